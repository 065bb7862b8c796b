package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"shorts-bot/bot"
	"shorts-bot/config"
	"shorts-bot/delivery"
	"shorts-bot/imagegen"
	"shorts-bot/logger"
	"shorts-bot/metrics"
	"shorts-bot/pipeline"
	"shorts-bot/render"
	"shorts-bot/script"
	"shorts-bot/visuals"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load config (.env is read inside for local dev)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Bot stopped with error", zap.Error(err))
		os.Exit(1)
	}
	log.Info("Bot stopped")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if cfg.Secrets.TelegramToken == "" {
		// without a token the transport never starts
		log.Error("TELEGRAM_BOT_TOKEN is not set, not starting")
		return nil
	}

	variant, err := pipeline.NewVariant(cfg.Pipeline, cfg.Image)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────
	// Generation clients (process-wide, read-only)
	// ─────────────────────────────────────────────
	var generator pipeline.Generator
	textClient, closeText, err := newTextClient(ctx, cfg)
	switch {
	case err != nil:
		log.Warn("Text generation client unavailable, every run will fail with a config error",
			zap.String("provider", cfg.Text.Provider), zap.Error(err))
	default:
		defer closeText()
		generator = script.New(textClient, cfg.Text, log)
	}

	images, err := newImageGenerator(cfg)
	if err != nil {
		log.Warn("Image generation unavailable, runs continue without images", zap.Error(err))
	}

	// ─────────────────────────────────────────────
	// Media + delivery
	// ─────────────────────────────────────────────
	runner := render.NewExecRunner(log)
	narrator := render.NewNarrator(cfg.Assembly.TTSCommand, cfg.Assembly.TTSVoice, runner, log)
	assembler := render.NewAssembler(cfg.Assembly, runner, narrator, log)
	fetcher := visuals.NewFetcher(time.Duration(cfg.Fetch.TimeoutSec)*time.Second, log)

	api, err := tgbotapi.NewBotAPI(cfg.Secrets.TelegramToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	log.Info("Authorized on Telegram", zap.String("account", api.Self.UserName))

	deps := pipeline.Deps{
		Generator: generator,
		Fetcher:   fetcher,
		Assembler: assembler,
		Deliverer: delivery.New(api, log),
	}
	if images != nil {
		deps.Images = images
	}

	controller := pipeline.NewController(variant, pipeline.Options{
		ImageStageEnabled:    cfg.Pipeline.ImageStageEnabled,
		AssemblyStageEnabled: cfg.Pipeline.AssemblyStageEnabled,
		VideoDuration:        float64(cfg.Pipeline.VideoDurationSec),
		ImageModel:           cfg.Image.Model,
		ImageTimeout:         time.Duration(cfg.Image.TimeoutSec) * time.Second,
		WorkDir:              cfg.Paths.WorkDir,
	}, deps, log)

	if cfg.Metrics.Addr != "" {
		go metrics.Serve(ctx, cfg.Metrics.Addr, log)
	}

	log.Info("🎬 Shorts bot starting",
		zap.String("variant", variant.Name),
		zap.Bool("image_stage", cfg.Pipeline.ImageStageEnabled),
		zap.Bool("assembly_stage", cfg.Pipeline.AssemblyStageEnabled),
		zap.String("assembly_mode", cfg.Assembly.Mode),
	)
	return bot.New(api, api, controller, variant.Greeting, log).Run(ctx)
}

// newTextClient builds the client for the configured provider.
// A missing key yields an error and no client.
func newTextClient(ctx context.Context, cfg *config.Config) (script.TextClient, func(), error) {
	key := cfg.TextAPIKey()
	switch cfg.Text.Provider {
	case config.ProviderOpenAI:
		c, err := script.NewOpenAIClient(key)
		if err != nil {
			return nil, nil, err
		}
		return c, func() {}, nil
	default:
		c, err := script.NewGeminiClient(ctx, key)
		if err != nil {
			return nil, nil, err
		}
		return c, func() { _ = c.Close() }, nil
	}
}

func newImageGenerator(cfg *config.Config) (imagegen.Generator, error) {
	switch cfg.Image.Provider {
	case config.ProviderOpenAI:
		g, err := imagegen.NewOpenAI(cfg.Secrets.OpenAIAPIKey, cfg.Image.StyleSuffix)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return imagegen.NewPollinations(cfg.Image.BaseURL, cfg.Image.StyleSuffix), nil
	}
}
