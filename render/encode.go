package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner executes an external media tool
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec and keeps the stderr tail for errors
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates a new ExecRunner
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{logger: logger.Named("exec")}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	r.logger.Debug("Running command", zap.String("name", name), zap.Strings("args", args))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(stderr.String(), 600))
	}
	return nil
}

// encodeArgs builds the single ffmpeg invocation that composites the visual
// track and captions (and narration audio when present) into an MP4.
// zoompan generates its own frames from one input frame, so only static
// backgrounds loop the input.
func encodeArgs(imagePath, audioPath, filter string, loop bool, duration float64, fps int, outFile string) []string {
	args := []string{"-y"}
	if loop {
		args = append(args, "-loop", "1")
	}
	args = append(args, "-i", imagePath)
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}

	args = append(args,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", duration),
		"-r", fmt.Sprintf("%d", fps),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
	)

	if audioPath != "" {
		// pad short narration with silence so the length stays fixed
		args = append(args,
			"-map", "0:v", "-map", "1:a",
			"-af", "apad",
			"-c:a", "aac",
			"-b:a", "192k",
		)
	} else {
		args = append(args, "-an")
	}

	args = append(args,
		"-movflags", "+faststart", // optimize for web streaming
		outFile,
	)
	return args
}

// kenBurnsFilter applies a slow centered zoom from 1.0 to zoom over the whole duration
func kenBurnsFilter(width, height, fps int, zoom, duration float64) string {
	totalFrames := int(duration * float64(fps))
	if totalFrames < 1 {
		totalFrames = 1
	}
	zoomStep := (zoom - 1.0) / float64(totalFrames)
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,"+
			"zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d",
		width*2, height*2, width*2, height*2,
		zoomStep, zoom, totalFrames, width, height, fps,
	)
}

// staticFilter fits a canvas to the output size without motion
func staticFilter(width, height int) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
		width, height, width, height,
	)
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
