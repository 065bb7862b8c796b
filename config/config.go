package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"shorts-bot/logger"
)

// Pipeline variants
const (
	VariantShorts    = "shorts"
	VariantMovieInfo = "movie_info"
)

// Text and image providers
const (
	ProviderGemini       = "gemini"
	ProviderOpenAI       = "openai"
	ProviderPollinations = "pollinations"
)

// Assembly modes
const (
	AssemblyFFmpeg      = "ffmpeg"
	AssemblyPlaceholder = "placeholder"
)

type Config struct {
	Secrets  SecretsConfig  `yaml:"-"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Text     TextConfig     `yaml:"text"`
	Image    ImageConfig    `yaml:"image"`
	Fetch    FetchConfig    `yaml:"fetch"`
	Assembly AssemblyConfig `yaml:"assembly"`
	Paths    PathsConfig    `yaml:"paths"`
	Logger   logger.Config  `yaml:"logger"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SecretsConfig is only ever read from the environment
type SecretsConfig struct {
	TelegramToken string `env:"TELEGRAM_BOT_TOKEN"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
}

type PipelineConfig struct {
	Variant              string `yaml:"variant" env:"PIPELINE_VARIANT"`
	ImageStageEnabled    bool   `yaml:"image_stage_enabled" env:"IMAGE_STAGE_ENABLED"`
	AssemblyStageEnabled bool   `yaml:"assembly_stage_enabled" env:"ASSEMBLY_STAGE_ENABLED"`
	VideoDurationSec     int    `yaml:"video_duration_sec" env:"VIDEO_DURATION_SEC"`
	Language             string `yaml:"language" env:"CONTENT_LANGUAGE"`
}

type TextConfig struct {
	Provider    string  `yaml:"provider" env:"TEXT_PROVIDER"`
	Model       string  `yaml:"model" env:"TEXT_MODEL"`
	Temperature float64 `yaml:"temperature" env:"TEXT_TEMPERATURE"`
	TimeoutSec  int     `yaml:"timeout_sec" env:"TEXT_TIMEOUT_SEC"`
}

type ImageConfig struct {
	Provider    string `yaml:"provider" env:"IMAGE_PROVIDER"`
	Model       string `yaml:"model" env:"IMAGE_MODEL"`
	AspectRatio string `yaml:"aspect_ratio" env:"IMAGE_ASPECT_RATIO"` // empty means the variant default
	StyleSuffix string `yaml:"style_suffix" env:"IMAGE_STYLE_SUFFIX"`
	BaseURL     string `yaml:"base_url" env:"IMAGE_BASE_URL"`
	TimeoutSec  int    `yaml:"timeout_sec" env:"IMAGE_TIMEOUT_SEC"`
}

type FetchConfig struct {
	TimeoutSec int `yaml:"timeout_sec" env:"FETCH_TIMEOUT_SEC"`
}

type AssemblyConfig struct {
	Mode               string  `yaml:"mode" env:"ASSEMBLY_MODE"`
	FFmpegPath         string  `yaml:"ffmpeg_path" env:"FFMPEG_PATH"`
	VideoResolution    string  `yaml:"video_resolution" env:"VIDEO_RESOLUTION"`
	FPS                int     `yaml:"fps" env:"VIDEO_FPS"`
	KenBurnsZoomFactor float64 `yaml:"ken_burns_zoom_factor"`
	CaptionChunkWords  int     `yaml:"caption_chunk_words"`
	CanvasColor        string  `yaml:"canvas_color"`
	FontFile           string  `yaml:"font_file" env:"CAPTION_FONT_FILE"`
	FontSize           int     `yaml:"font_size"`
	TTSCommand         string  `yaml:"tts_command" env:"TTS_COMMAND"`
	TTSVoice           string  `yaml:"tts_voice" env:"TTS_VOICE"`
	TimeoutSec         int     `yaml:"timeout_sec" env:"ASSEMBLY_TIMEOUT_SEC"`
}

type PathsConfig struct {
	WorkDir string `yaml:"work_dir" env:"WORK_DIR"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"METRICS_ADDR"`
}

// Default returns the shorts-variant configuration
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Variant:              VariantShorts,
			ImageStageEnabled:    true,
			AssemblyStageEnabled: true,
			VideoDurationSec:     20,
			Language:             "Turkish",
		},
		Text: TextConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			Temperature: 0.9,
			TimeoutSec:  60,
		},
		Image: ImageConfig{
			Provider:    ProviderPollinations,
			Model:       "flux",
			BaseURL:     "https://image.pollinations.ai",
			TimeoutSec:  90,
		},
		Fetch: FetchConfig{TimeoutSec: 60},
		Assembly: AssemblyConfig{
			Mode:               AssemblyFFmpeg,
			FFmpegPath:         "ffmpeg",
			VideoResolution:    "1080x1920",
			FPS:                24,
			KenBurnsZoomFactor: 1.15,
			CaptionChunkWords:  10,
			CanvasColor:        "#101018",
			FontSize:           56,
			TimeoutSec:         300,
		},
		Paths:  PathsConfig{WorkDir: os.TempDir()},
		Logger: logger.DefaultConfig(),
	}
}

// Load reads config.yaml over the defaults, then the environment (and .env) on top.
// A missing config file is not an error.
func Load(path string) (*Config, error) {
	// .env is only for local runs
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects option values the pipeline cannot run with
func (c *Config) Validate() error {
	switch c.Pipeline.Variant {
	case VariantShorts, VariantMovieInfo:
	default:
		return fmt.Errorf("unknown pipeline.variant %q", c.Pipeline.Variant)
	}
	switch c.Text.Provider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown text.provider %q", c.Text.Provider)
	}
	switch c.Image.Provider {
	case ProviderOpenAI, ProviderPollinations:
	default:
		return fmt.Errorf("unknown image.provider %q", c.Image.Provider)
	}
	switch c.Assembly.Mode {
	case AssemblyFFmpeg, AssemblyPlaceholder:
	default:
		return fmt.Errorf("unknown assembly.mode %q", c.Assembly.Mode)
	}
	if c.Pipeline.VideoDurationSec <= 0 {
		return fmt.Errorf("pipeline.video_duration_sec must be positive, got %d", c.Pipeline.VideoDurationSec)
	}
	if c.Assembly.FPS <= 0 {
		return fmt.Errorf("assembly.fps must be positive, got %d", c.Assembly.FPS)
	}
	if c.Assembly.CaptionChunkWords < 1 {
		return fmt.Errorf("assembly.caption_chunk_words must be at least 1, got %d", c.Assembly.CaptionChunkWords)
	}
	if c.Assembly.KenBurnsZoomFactor < 1 {
		return fmt.Errorf("assembly.ken_burns_zoom_factor must be >= 1, got %.2f", c.Assembly.KenBurnsZoomFactor)
	}
	return nil
}

// TextAPIKey returns the key for the configured text provider
func (c *Config) TextAPIKey() string {
	if c.Text.Provider == ProviderOpenAI {
		return c.Secrets.OpenAIAPIKey
	}
	return c.Secrets.GeminiAPIKey
}
