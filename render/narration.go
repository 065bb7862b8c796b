package render

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Narrator voices the narration with an external TTS command.
// TTS_COMMAND must accept --text "..." --output path/to/file.mp3;
// "edge-tts" is recognised and called with its own flags.
type Narrator struct {
	command string
	voice   string
	runner  Runner
	logger  *zap.Logger
}

// NewNarrator creates a new Narrator. An empty command disables narration.
func NewNarrator(command, voice string, runner Runner, logger *zap.Logger) *Narrator {
	return &Narrator{
		command: strings.TrimSpace(command),
		voice:   voice,
		runner:  runner,
		logger:  logger.Named("narration"),
	}
}

// Enabled reports whether a TTS command is configured
func (n *Narrator) Enabled() bool {
	return n != nil && n.command != ""
}

// Synthesize writes narration audio into dir and returns its path
func (n *Narrator) Synthesize(ctx context.Context, text, dir string) (string, error) {
	if !n.Enabled() {
		return "", errors.New("no TTS command configured")
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty narration")
	}

	outFile := filepath.Join(dir, "narration.mp3")
	name, args := n.commandLine(text, outFile)

	if err := n.runner.Run(ctx, name, args...); err != nil {
		return "", err
	}
	if info, err := os.Stat(outFile); err != nil || info.Size() == 0 {
		return "", errors.New("TTS produced no audio")
	}

	n.logger.Info("Narration audio ready", zap.String("path", outFile))
	return outFile, nil
}

func (n *Narrator) commandLine(text, outFile string) (string, []string) {
	switch {
	case n.command == "edge-tts":
		voice := n.voice
		if voice == "" {
			voice = "tr-TR-AhmetNeural"
		}
		return "edge-tts", []string{"--voice", voice, "--text", text, "--write-media", outFile}

	case strings.HasSuffix(n.command, ".py"):
		// Custom Python TTS script
		return "python3", []string{n.command, "--text", text, "--output", outFile}

	default:
		fields := strings.Fields(n.command)
		args := append(fields[1:], "--text", text, "--output", outFile)
		return fields[0], args
	}
}
