package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shorts-bot/config"
	"shorts-bot/types"
)

func TestWorkspace_CleanupIsIdempotent(t *testing.T) {
	root := t.TempDir()
	ws, err := NewWorkspace(root, "run1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(ws.Dir()), "run_run1_"))

	inside := filepath.Join(ws.Dir(), "image.jpg")
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0644))
	ws.Track(inside)

	// a tracked file outside the run directory
	outside := filepath.Join(root, "stray.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0644))
	ws.Track(outside)

	// already gone before cleanup
	ws.Track(filepath.Join(ws.Dir(), "never-created.png"))

	require.NoError(t, ws.Cleanup())
	assert.NoFileExists(t, inside)
	assert.NoFileExists(t, outside)
	assert.NoDirExists(t, ws.Dir())

	require.NoError(t, ws.Cleanup())
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWorkspace_SeparateRunsDoNotCollide(t *testing.T) {
	root := t.TempDir()
	a, err := NewWorkspace(root, "same")
	require.NoError(t, err)
	b, err := NewWorkspace(root, "same")
	require.NoError(t, err)
	assert.NotEqual(t, a.Dir(), b.Dir())

	require.NoError(t, a.Cleanup())
	assert.DirExists(t, b.Dir())
	require.NoError(t, b.Cleanup())
}

func TestNewVariant(t *testing.T) {
	cfg := config.Default()

	shorts, err := NewVariant(cfg.Pipeline, cfg.Image)
	require.NoError(t, err)
	assert.Equal(t, []string{types.FieldImagePrompt, types.FieldScript, types.FieldTitle}, shorts.Schema.Names())
	assert.Equal(t, "16:9", shorts.AspectRatio)
	assert.True(t, shorts.Assembles)
	assert.True(t, shorts.DownloadImage)
	assert.Contains(t, shorts.Schema[1].Description, "20-second")

	cfg.Pipeline.Variant = config.VariantMovieInfo
	movie, err := NewVariant(cfg.Pipeline, cfg.Image)
	require.NoError(t, err)
	assert.Equal(t, []string{types.FieldImagePrompt, types.FieldStartDate, types.FieldEndDate}, movie.Schema.Names())
	assert.Equal(t, "2:3", movie.AspectRatio)
	assert.False(t, movie.Assembles)
	assert.False(t, movie.DownloadImage)

	cfg.Image.AspectRatio = "1:1"
	square, err := NewVariant(cfg.Pipeline, cfg.Image)
	require.NoError(t, err)
	assert.Equal(t, "1:1", square.AspectRatio)

	cfg.Pipeline.Variant = "podcast"
	_, err = NewVariant(cfg.Pipeline, cfg.Image)
	assert.Error(t, err)
}
