package bot

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"shorts-bot/delivery"
	"shorts-bot/types"
)

// pollTimeout is the long-polling timeout in seconds
const pollTimeout = 60

// UpdateSource is the part of *tgbotapi.BotAPI used for inbound updates
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Pipeline runs one generation request to completion
type Pipeline interface {
	Run(ctx context.Context, req types.GenerationRequest) *types.RunResult
}

// Bot receives chat messages and starts one pipeline run per idea
type Bot struct {
	source   UpdateSource
	sender   delivery.Sender
	pipeline Pipeline
	greeting string
	logger   *zap.Logger

	wg sync.WaitGroup
}

// New creates a new Bot
func New(source UpdateSource, sender delivery.Sender, pipeline Pipeline, greeting string, logger *zap.Logger) *Bot {
	return &Bot{
		source:   source,
		sender:   sender,
		pipeline: pipeline,
		greeting: greeting,
		logger:   logger.Named("bot"),
	}
}

// Run long-polls for updates until ctx is done, then waits for in-flight runs
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := b.source.GetUpdatesChan(u)

	// runs are not cancelled mid-way by shutdown
	runCtx := context.WithoutCancel(ctx)

	b.logger.Info("Bot started, polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.source.StopReceivingUpdates()
			b.logger.Info("Waiting for in-flight runs")
			b.Wait()
			return nil
		case update, ok := <-updates:
			if !ok {
				b.Wait()
				return nil
			}
			b.Handle(runCtx, update)
		}
	}
}

// Handle dispatches one update. Ideas start a run in their own goroutine.
func (b *Bot) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	if msg.IsCommand() {
		if msg.Command() == "start" {
			reply := tgbotapi.NewMessage(msg.Chat.ID, b.greeting)
			reply.ReplyToMessageID = msg.MessageID
			if _, err := b.sender.Send(reply); err != nil {
				b.logger.Warn("Greeting failed", zap.Int64("chat_id", msg.Chat.ID), zap.Error(err))
			}
		}
		return
	}

	idea := strings.TrimSpace(msg.Text)
	if idea == "" || strings.HasPrefix(idea, "/") {
		return
	}

	req := types.GenerationRequest{
		RunID:   uuid.NewString()[:8],
		ChatID:  msg.Chat.ID,
		RawIdea: idea,
	}
	b.logger.Info("Idea received", zap.String("run_id", req.RunID), zap.Int64("chat_id", req.ChatID))

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		res := b.pipeline.Run(ctx, req)
		fields := []zap.Field{
			zap.String("run_id", res.RunID),
			zap.String("state", string(res.State)),
			zap.String("delivered", res.Delivered),
		}
		if res.Failure != nil {
			fields = append(fields, zap.String("stage", string(res.Failure.Stage)), zap.String("kind", string(res.Failure.Kind)))
		}
		b.logger.Info("Run finished", fields...)
	}()
}

// Wait blocks until every started run has finished
func (b *Bot) Wait() {
	b.wg.Wait()
}
