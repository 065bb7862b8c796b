package render

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidDuration is returned for a non-positive target duration
var ErrInvalidDuration = errors.New("video duration must be positive")

// Segment is one caption shown from Start until End (seconds)
type Segment struct {
	Text  string
	Start float64
	End   float64
}

// SplitCaptions wraps narration greedily into chunkWords-word segments that
// share the duration equally. Segments are contiguous and the last one ends
// exactly at duration. Empty narration yields no segments.
func SplitCaptions(narration string, chunkWords int, duration float64) ([]Segment, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if chunkWords < 1 {
		chunkWords = 1
	}

	words := strings.Fields(narration)
	if len(words) == 0 {
		return nil, nil
	}

	var chunks []string
	for i := 0; i < len(words); i += chunkWords {
		end := i + chunkWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}

	per := duration / float64(len(chunks))
	segments := make([]Segment, len(chunks))
	for i, text := range chunks {
		segments[i] = Segment{
			Text:  text,
			Start: float64(i) * per,
			End:   float64(i+1) * per,
		}
	}
	// no float drift at the tail
	segments[len(segments)-1].End = duration
	return segments, nil
}

// writeCaptionFiles writes each segment to its own text file for drawtext's textfile option.
// Text files avoid escaping narration inside the filter graph.
func writeCaptionFiles(dir string, segments []Segment) ([]string, error) {
	paths := make([]string, 0, len(segments))
	for i, seg := range segments {
		path := filepath.Join(dir, fmt.Sprintf("caption_%03d.txt", i))
		if err := os.WriteFile(path, []byte(wrapLine(seg.Text, 2)), 0644); err != nil {
			return nil, fmt.Errorf("write caption %d: %w", i, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// wrapLine breaks text into at most lines lines of similar word count
func wrapLine(text string, lines int) string {
	words := strings.Fields(text)
	if lines < 2 || len(words) < 6 {
		return text
	}
	per := (len(words) + lines - 1) / lines
	var out []string
	for i := 0; i < len(words); i += per {
		end := i + per
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return strings.Join(out, "\n")
}

// drawtextFilter renders one caption file during [seg.Start, seg.End)
func drawtextFilter(textFile string, seg Segment, fontFile string, fontSize int) string {
	var sb strings.Builder
	sb.WriteString("drawtext=")
	if fontFile != "" {
		fmt.Fprintf(&sb, "fontfile=%s:", escapeFilterPath(fontFile))
	}
	fmt.Fprintf(&sb,
		"textfile=%s:fontcolor=white:fontsize=%d:line_spacing=8:box=1:boxcolor=black@0.55:boxborderw=14:"+
			"x=(w-tw)/2:y=h-th-h/8:enable='gte(t,%.3f)*lt(t,%.3f)'",
		escapeFilterPath(textFile), fontSize, seg.Start, seg.End,
	)
	return sb.String()
}

var (
	// option values are split on ':' by the filter
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	// the filtergraph parser unescapes once more before the filter sees its options
	graphEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterPath escapes a path for use as an unquoted option value inside a filtergraph
func escapeFilterPath(path string) string {
	return graphEscaper.Replace(optionEscaper.Replace(path))
}
