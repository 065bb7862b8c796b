package render

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"shorts-bot/config"
	"shorts-bot/types"
)

// Soft failure causes reported by Assemble
const (
	CauseEncode = "encode"
	CauseIO     = "io"
)

// Input is everything one assembly needs
type Input struct {
	ImagePath string // empty means render a solid canvas
	Narration string
	Title     string
	Duration  float64 // seconds
	Dir       string  // run workspace
}

// Assembler composites a still image (or canvas) and caption track into a fixed-duration video
type Assembler struct {
	cfg      config.AssemblyConfig
	runner   Runner
	narrator *Narrator
	logger   *zap.Logger
}

// NewAssembler creates a new Assembler. narrator may be nil.
func NewAssembler(cfg config.AssemblyConfig, runner Runner, narrator *Narrator, logger *zap.Logger) *Assembler {
	return &Assembler{
		cfg:      cfg,
		runner:   runner,
		narrator: narrator,
		logger:   logger.Named("assembly"),
	}
}

// Assemble builds the video. A non-positive duration fails fast with ErrInvalidDuration.
// In placeholder mode it succeeds without producing media. Any other failure is a
// *types.SoftFailure and leaves no output file behind.
func (a *Assembler) Assemble(ctx context.Context, in Input) (*types.MediaArtifact, error) {
	if in.Duration <= 0 {
		return nil, ErrInvalidDuration
	}
	if a.cfg.Mode == config.AssemblyPlaceholder {
		a.logger.Info("Placeholder assembly, no media produced")
		return &types.MediaArtifact{Kind: types.ArtifactVideo, DurationSeconds: in.Duration, Placeholder: true}, nil
	}

	if a.cfg.TimeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(a.cfg.TimeoutSec)*time.Second)
		defer cancel()
	}

	width, height, err := parseResolution(a.cfg.VideoResolution)
	if err != nil {
		return nil, soft(CauseEncode, err)
	}

	segments, err := SplitCaptions(in.Narration, a.cfg.CaptionChunkWords, in.Duration)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		a.logger.Warn("Empty narration, rendering without captions")
	}

	// Visual track
	var filters []string
	background := in.ImagePath
	loop := false
	if background != "" {
		filters = append(filters, kenBurnsFilter(width, height, a.cfg.FPS, a.cfg.KenBurnsZoomFactor, in.Duration))
	} else {
		background, err = renderCanvas(in.Dir, width, height, a.cfg.CanvasColor, in.Title, a.cfg.FontFile, a.cfg.FontSize)
		if err != nil {
			return nil, soft(CauseIO, err)
		}
		filters = append(filters, staticFilter(width, height))
		loop = true
	}

	// Caption track
	captionFiles, err := writeCaptionFiles(in.Dir, segments)
	if err != nil {
		return nil, soft(CauseIO, err)
	}
	for i, seg := range segments {
		filters = append(filters, drawtextFilter(captionFiles[i], seg, a.cfg.FontFile, a.cfg.FontSize))
	}

	// Narration is optional: a TTS failure yields a silent video
	var audioPath string
	if a.narrator.Enabled() && len(segments) > 0 {
		audioPath, err = a.narrator.Synthesize(ctx, in.Narration, in.Dir)
		if err != nil {
			a.logger.Warn("TTS failed, continuing without narration audio", zap.Error(err))
			audioPath = ""
		}
	}

	outFile := filepath.Join(in.Dir, "video.mp4")
	args := encodeArgs(background, audioPath, strings.Join(filters, ","), loop, in.Duration, a.cfg.FPS, outFile)

	a.logger.Info("Encoding video",
		zap.Float64("duration", in.Duration),
		zap.Int("captions", len(segments)),
		zap.Bool("ken_burns", in.ImagePath != ""),
		zap.Bool("audio", audioPath != ""),
	)

	if err := a.runner.Run(ctx, a.ffmpegPath(), args...); err != nil {
		_ = os.Remove(outFile)
		return nil, soft(CauseEncode, err)
	}
	info, err := os.Stat(outFile)
	if err != nil || info.Size() == 0 {
		_ = os.Remove(outFile)
		if err == nil {
			err = errors.New("encoder produced an empty file")
		}
		return nil, soft(CauseEncode, err)
	}

	a.logger.Info("✅ Video ready", zap.String("path", outFile), zap.Int64("bytes", info.Size()))
	return &types.MediaArtifact{Kind: types.ArtifactVideo, LocalPath: outFile, DurationSeconds: in.Duration}, nil
}

func (a *Assembler) ffmpegPath() string {
	if a.cfg.FFmpegPath == "" {
		return "ffmpeg"
	}
	return a.cfg.FFmpegPath
}

func soft(cause string, err error) error {
	return types.NewSoftFailure(types.StageAssembly, cause, fmt.Errorf("assemble: %w", err))
}
