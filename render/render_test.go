package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shorts-bot/config"
	"shorts-bot/types"
)

// fakeRunner records calls and writes the output file named by the last argument
type fakeRunner struct {
	calls [][]string
	err   error
	// writes controls whether the fake produces output
	writes bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return f.err
	}
	if f.writes && len(args) > 0 {
		return os.WriteFile(args[len(args)-1], []byte("media"), 0644)
	}
	return nil
}

func (f *fakeRunner) argsOf(i int) string {
	return strings.Join(f.calls[i], " ")
}

func testAssemblyConfig() config.AssemblyConfig {
	cfg := config.Default().Assembly
	cfg.VideoResolution = "108x192"
	return cfg
}

func TestSplitCaptions_TwelveWords(t *testing.T) {
	segments, err := SplitCaptions("one two three four five six seven eight nine ten eleven twelve", 10, 20)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, "one two three four five six seven eight nine ten", segments[0].Text)
	assert.Equal(t, "eleven twelve", segments[1].Text)

	var total float64
	for _, s := range segments {
		total += s.End - s.Start
	}
	assert.Equal(t, 20.0, total)
	assert.Equal(t, 0.0, segments[0].Start)
	assert.Equal(t, segments[0].End, segments[1].Start)
	assert.Equal(t, 20.0, segments[1].End)
}

func TestSplitCaptions_CoversDurationExactly(t *testing.T) {
	words := strings.Repeat("word ", 31)
	segments, err := SplitCaptions(words, 10, 7)
	require.NoError(t, err)
	require.Len(t, segments, 4)
	for i := 1; i < len(segments); i++ {
		assert.Equal(t, segments[i-1].End, segments[i].Start)
	}
	assert.Equal(t, 7.0, segments[len(segments)-1].End)
}

func TestSplitCaptions_EdgeCases(t *testing.T) {
	segments, err := SplitCaptions("   ", 10, 20)
	require.NoError(t, err)
	assert.Empty(t, segments)

	_, err = SplitCaptions("hello", 10, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	_, err = SplitCaptions("hello", 10, -3)
	assert.ErrorIs(t, err, ErrInvalidDuration)
}

func TestWrapLine(t *testing.T) {
	assert.Equal(t, "a b c", wrapLine("a b c", 2))
	assert.Equal(t, "1 2 3 4 5\n6 7 8 9 10", wrapLine("1 2 3 4 5 6 7 8 9 10", 2))
}

func TestAssemble_KenBurnsWithCaptions(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "image.jpg")
	require.NoError(t, os.WriteFile(img, []byte("jpeg"), 0644))

	runner := &fakeRunner{writes: true}
	a := NewAssembler(testAssemblyConfig(), runner, nil, zap.NewNop())

	artifact, err := a.Assemble(context.Background(), Input{
		ImagePath: img,
		Narration: "one two three four five six seven eight nine ten eleven twelve",
		Title:     "The Last Light",
		Duration:  20,
		Dir:       dir,
	})
	require.NoError(t, err)
	require.True(t, artifact.Usable())
	assert.Equal(t, types.ArtifactVideo, artifact.Kind)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), artifact.LocalPath)
	assert.Equal(t, 20.0, artifact.DurationSeconds)

	require.Len(t, runner.calls, 1)
	args := runner.argsOf(0)
	assert.Contains(t, args, "zoompan")
	assert.NotContains(t, args, "-loop")
	assert.Equal(t, 2, strings.Count(args, "drawtext="))
	assert.Contains(t, args, "-an")
	assert.FileExists(t, filepath.Join(dir, "caption_000.txt"))
	assert.FileExists(t, filepath.Join(dir, "caption_001.txt"))
}

func TestAssemble_CanvasWhenNoImage(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{writes: true}
	a := NewAssembler(testAssemblyConfig(), runner, nil, zap.NewNop())

	artifact, err := a.Assemble(context.Background(), Input{Narration: "short line", Duration: 5, Dir: dir})
	require.NoError(t, err)
	assert.True(t, artifact.Usable())

	args := runner.argsOf(0)
	assert.NotContains(t, args, "zoompan")
	assert.Contains(t, args, "-loop 1")
	assert.Contains(t, args, filepath.Join(dir, "canvas.png"))
	assert.FileExists(t, filepath.Join(dir, "canvas.png"))
}

func TestAssemble_EmptyNarrationHasNoCaptions(t *testing.T) {
	runner := &fakeRunner{writes: true}
	a := NewAssembler(testAssemblyConfig(), runner, nil, zap.NewNop())

	_, err := a.Assemble(context.Background(), Input{Duration: 5, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.NotContains(t, runner.argsOf(0), "drawtext")
}

func TestAssemble_InvalidDuration(t *testing.T) {
	runner := &fakeRunner{writes: true}
	a := NewAssembler(testAssemblyConfig(), runner, nil, zap.NewNop())

	_, err := a.Assemble(context.Background(), Input{Narration: "x", Duration: 0, Dir: t.TempDir()})
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Empty(t, runner.calls)
}

func TestAssemble_Placeholder(t *testing.T) {
	cfg := testAssemblyConfig()
	cfg.Mode = config.AssemblyPlaceholder
	runner := &fakeRunner{}
	a := NewAssembler(cfg, runner, nil, zap.NewNop())

	artifact, err := a.Assemble(context.Background(), Input{Narration: "x", Duration: 5, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.True(t, artifact.Placeholder)
	assert.False(t, artifact.Usable())
	assert.Empty(t, runner.calls)
}

func TestAssemble_EncoderFailureIsSoft(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{err: errors.New("exit status 1")}
	a := NewAssembler(testAssemblyConfig(), runner, nil, zap.NewNop())

	_, err := a.Assemble(context.Background(), Input{Narration: "x y z", Duration: 5, Dir: dir})
	var sf *types.SoftFailure
	require.ErrorAs(t, err, &sf)
	assert.Equal(t, types.StageAssembly, sf.Stage)
	assert.Equal(t, CauseEncode, sf.Cause)
	assert.NoFileExists(t, filepath.Join(dir, "video.mp4"))
}

func TestAssemble_EmptyOutputIsSoft(t *testing.T) {
	runner := &fakeRunner{writes: false}
	a := NewAssembler(testAssemblyConfig(), runner, nil, zap.NewNop())

	_, err := a.Assemble(context.Background(), Input{Narration: "x", Duration: 5, Dir: t.TempDir()})
	var sf *types.SoftFailure
	assert.ErrorAs(t, err, &sf)
}

func TestAssemble_TTSFailureStillEncodes(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{writes: true}
	ttsRunner := &fakeRunner{err: errors.New("tts down")}
	narrator := NewNarrator("my-tts", "", ttsRunner, zap.NewNop())
	a := NewAssembler(testAssemblyConfig(), runner, narrator, zap.NewNop())

	artifact, err := a.Assemble(context.Background(), Input{Narration: "hello there", Duration: 5, Dir: dir})
	require.NoError(t, err)
	assert.True(t, artifact.Usable())
	require.Len(t, ttsRunner.calls, 1)
	assert.Contains(t, runner.argsOf(0), "-an")
}

func TestAssemble_WithNarrationAudio(t *testing.T) {
	dir := t.TempDir()
	runner := &fakeRunner{writes: true}
	ttsRunner := &fakeRunner{writes: true}
	narrator := NewNarrator("edge-tts", "en-US-GuyNeural", ttsRunner, zap.NewNop())
	a := NewAssembler(testAssemblyConfig(), runner, narrator, zap.NewNop())

	_, err := a.Assemble(context.Background(), Input{Narration: "hello there", Duration: 5, Dir: dir})
	require.NoError(t, err)

	assert.Equal(t, "edge-tts", ttsRunner.calls[0][0])
	assert.Contains(t, ttsRunner.argsOf(0), "--voice en-US-GuyNeural")
	args := runner.argsOf(0)
	assert.Contains(t, args, filepath.Join(dir, "narration.mp3"))
	assert.Contains(t, args, "apad")
	assert.NotContains(t, args, "-an")
}

func TestParseResolution(t *testing.T) {
	w, h, err := parseResolution("1080x1920")
	require.NoError(t, err)
	assert.Equal(t, 1080, w)
	assert.Equal(t, 1920, h)

	w, _, err = parseResolution("721x1280")
	require.NoError(t, err)
	assert.Equal(t, 720, w)

	_, _, err = parseResolution("hd")
	assert.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	c, err := parseHexColor("#101018")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x10), c.R)
	assert.Equal(t, uint8(0x18), c.B)

	_, err = parseHexColor("#zzz")
	assert.Error(t, err)
}

// unescapeLevel undoes one level of ffmpeg quoting: backslash escapes and '...' spans
func unescapeLevel(s string) string {
	var sb strings.Builder
	quoted := false
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\'':
			quoted = !quoted
		case s[i] == '\\' && !quoted && i+1 < len(s):
			i++
			sb.WriteByte(s[i])
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

func TestEscapeFilterPath(t *testing.T) {
	assert.Equal(t, `/tmp/it\\\'s\\:a\,b`, escapeFilterPath(`/tmp/it's:a,b`))

	paths := []string{
		"/tmp/shorts-bot/run_abc12345_1/caption_000.txt",
		"/tmp/o'brien/run:1/caption_000.txt",
		`C:\fonts\Bold [v2];x.ttf`,
	}
	for _, p := range paths {
		// the filtergraph parser and then the option parser each strip one level
		assert.Equal(t, p, unescapeLevel(unescapeLevel(escapeFilterPath(p))), p)
	}
}

func TestDrawtextFilter_EscapesPaths(t *testing.T) {
	seg := Segment{Text: "hello", Start: 0, End: 2.5}
	f := drawtextFilter("/tmp/o'brien/caption_000.txt", seg, "/fonts/a:b.ttf", 48)

	assert.Contains(t, f, `fontfile=/fonts/a\\:b.ttf:`)
	assert.Contains(t, f, `textfile=/tmp/o\\\'brien/caption_000.txt:`)
	assert.Contains(t, f, "enable='gte(t,0.000)*lt(t,2.500)'")
}
