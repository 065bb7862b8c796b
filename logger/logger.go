package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Defaults used by config.Default and for empty or unknown values
const (
	DefaultLevel    = "info"
	DefaultEncoding = "json"
	DefaultOutput   = "stdout"
)

// Config holds logger settings.
type Config struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`             // debug, info, warn, error
	Encoding   string `yaml:"encoding" env:"LOG_ENCODING"`       // json or console
	OutputPath string `yaml:"output_path" env:"LOG_OUTPUT_PATH"` // stdout when empty
}

// DefaultConfig is the logger section of the default bot configuration
func DefaultConfig() Config {
	return Config{Level: DefaultLevel, Encoding: DefaultEncoding}
}

// New builds the process logger. An invalid level falls back to info with a note on stderr.
func New(cfg Config) (*zap.Logger, error) {
	zapCfg := zap.Config{
		Level:             parseLevel(cfg.Level),
		DisableCaller:     true,
		DisableStacktrace: true,
		Encoding:          encoding(cfg.Encoding),
		EncoderConfig:     encoderConfig(),
		OutputPaths:       []string{orDefault(cfg.OutputPath, DefaultOutput)},
		ErrorOutputPaths:  []string{"stderr"},
	}

	log, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return log, nil
}

func parseLevel(raw string) zap.AtomicLevel {
	level := zap.NewAtomicLevel()
	name := strings.ToLower(orDefault(raw, DefaultLevel))
	if err := level.UnmarshalText([]byte(name)); err != nil {
		// no logger yet
		fmt.Fprintf(os.Stderr, "Invalid log level %q, using %q: %v\n", raw, DefaultLevel, err)
		level.SetLevel(zap.InfoLevel)
	}
	return level
}

func encoding(raw string) string {
	switch e := strings.ToLower(raw); e {
	case "console", "json":
		return e
	default:
		return DefaultEncoding
	}
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return enc
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
