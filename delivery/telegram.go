package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Telegram message limits, in characters
const (
	MaxCaptionLen = 1024
	MaxTextLen    = 4096
)

// Delivered kinds
const (
	KindText  = "text"
	KindPhoto = "photo"
	KindVideo = "video"
)

// Sender is the part of *tgbotapi.BotAPI used for outbound messages
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Content is the final result of one run
type Content struct {
	Title     string
	Body      string
	ImagePath string
	VideoPath string
	LinkURL   string // optional inline button target
	LinkLabel string
}

// Kind is what Deliver sends: video if present, else photo, else text
func (c Content) Kind() string {
	switch {
	case c.VideoPath != "":
		return KindVideo
	case c.ImagePath != "":
		return KindPhoto
	default:
		return KindText
	}
}

// Telegram delivers results and progress messages to a chat
type Telegram struct {
	sender Sender
	logger *zap.Logger
}

// New creates a new Telegram delivery adapter
func New(sender Sender, logger *zap.Logger) *Telegram {
	return &Telegram{sender: sender, logger: logger.Named("delivery")}
}

// Notify sends a plain progress or error message
func (t *Telegram) Notify(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, truncateRunes(text, MaxTextLen))
	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("notify chat %d: %w", chatID, err)
	}
	return nil
}

// Deliver sends exactly one message carrying the content
func (t *Telegram) Deliver(ctx context.Context, chatID int64, c Content) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Title) == "" && strings.TrimSpace(c.Body) == "" {
		return errors.New("nothing to deliver")
	}

	var msg tgbotapi.Chattable
	switch c.Kind() {
	case KindVideo:
		v := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(c.VideoPath))
		v.Caption = formatMarkdown(c.Title, c.Body, MaxCaptionLen)
		v.ParseMode = tgbotapi.ModeMarkdown
		v.SupportsStreaming = true
		v.ReplyMarkup = linkButton(c)
		msg = v
	case KindPhoto:
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(c.ImagePath))
		p.Caption = formatMarkdown(c.Title, c.Body, MaxCaptionLen)
		p.ParseMode = tgbotapi.ModeMarkdown
		p.ReplyMarkup = linkButton(c)
		msg = p
	default:
		m := tgbotapi.NewMessage(chatID, formatMarkdown(c.Title, c.Body, MaxTextLen))
		m.ParseMode = tgbotapi.ModeMarkdown
		m.ReplyMarkup = linkButton(c)
		msg = m
	}

	if _, err := t.sender.Send(msg); err != nil {
		return fmt.Errorf("send %s to chat %d: %w", c.Kind(), chatID, err)
	}
	t.logger.Info("Result delivered", zap.Int64("chat_id", chatID), zap.String("kind", c.Kind()))
	return nil
}

// linkButton returns an inline keyboard with one URL button, or nil
func linkButton(c Content) any {
	if c.LinkURL == "" {
		return nil
	}
	label := c.LinkLabel
	if label == "" {
		label = "Open"
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(label, c.LinkURL)),
	)
	return markup
}

// formatMarkdown renders "*title*\n\nbody" with escaped dynamic text,
// shortening the body so the result fits in limit characters.
func formatMarkdown(title, body string, limit int) string {
	head := ""
	if t := strings.TrimSpace(title); t != "" {
		head = "*" + tgbotapi.EscapeText(tgbotapi.ModeMarkdown, t) + "*"
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return truncateRunes(head, limit)
	}

	sep := ""
	if head != "" {
		sep = "\n\n"
	}
	room := limit - utf8.RuneCountInString(head) - utf8.RuneCountInString(sep)
	if room <= 0 {
		return truncateRunes(head, limit)
	}

	escaped := tgbotapi.EscapeText(tgbotapi.ModeMarkdown, body)
	if utf8.RuneCountInString(escaped) > room {
		// escaping can only grow the text, so shrink the raw body until it fits
		raw := []rune(body)
		keep := room - 1
		for keep > 0 {
			escaped = tgbotapi.EscapeText(tgbotapi.ModeMarkdown, string(raw[:min(keep, len(raw))])) + "…"
			if utf8.RuneCountInString(escaped) <= room {
				break
			}
			keep -= max(1, keep/10)
		}
		if keep <= 0 {
			escaped = ""
		}
	}
	return head + sep + escaped
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
