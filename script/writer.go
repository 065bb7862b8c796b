package script

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"shorts-bot/config"
	"shorts-bot/types"
)

// ErrEmptyResponse is returned when the model produced no text, usually because of content filtering
var ErrEmptyResponse = errors.New("empty response from text model")

// ErrMalformedResponse is returned when the text is not a JSON object matching the schema
var ErrMalformedResponse = errors.New("malformed structured response")

// ServiceError is a transport, auth or quota failure of the generation service
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// TextRequest is one structured-generation call
type TextRequest struct {
	Model       string
	System      string
	Prompt      string
	Schema      types.Schema
	Temperature float64
}

// TextClient is a generation backend that returns raw JSON text
type TextClient interface {
	Complete(ctx context.Context, req TextRequest) (string, error)
}

// Request is what the caller asks the Writer for
type Request struct {
	System string
	Prompt string
	Schema types.Schema
}

// Writer turns an idea into validated StructuredContent
type Writer struct {
	client      TextClient
	model       string
	temperature float64
	timeout     time.Duration
	logger      *zap.Logger
}

// New creates a new Writer
func New(client TextClient, cfg config.TextConfig, logger *zap.Logger) *Writer {
	return &Writer{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     time.Duration(cfg.TimeoutSec) * time.Second,
		logger:      logger.Named("script"),
	}
}

// Generate sends exactly one request and validates the response against req.Schema.
// It never retries.
func (w *Writer) Generate(ctx context.Context, req Request) (*types.StructuredContent, error) {
	if w.client == nil {
		return nil, types.ErrMissingCredentials
	}
	if len(req.Schema) == 0 {
		return nil, errors.New("schema has no fields")
	}

	log := w.logger.With(zap.String("model", w.model), zap.Strings("fields", req.Schema.Names()))
	log.Info("Requesting structured content")

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	raw, err := w.client.Complete(ctx, TextRequest{
		Model:       w.model,
		System:      req.System,
		Prompt:      req.Prompt,
		Schema:      req.Schema,
		Temperature: w.temperature,
	})
	if err != nil {
		var svcErr *ServiceError
		switch {
		case errors.Is(err, ErrEmptyResponse):
			log.Warn("Text model returned nothing", zap.Error(err))
			return nil, err
		case errors.As(err, &svcErr):
			log.Error("Text service call failed", zap.Error(err))
			return nil, err
		default:
			log.Error("Text service call failed", zap.Error(err))
			return nil, &ServiceError{Provider: "text", Err: err}
		}
	}

	content, err := Parse(raw, req.Schema)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			log.Error("Structured response rejected", zap.Error(err), zap.String("raw", raw))
		}
		return nil, err
	}

	log.Info("✅ Structured content ready", zap.String("title", content.Title))
	return content, nil
}

// Parse validates raw model output: one JSON object with every schema field as a non-empty string.
func Parse(raw string, schema types.Schema) (*types.StructuredContent, error) {
	cleaned := cleanJSON(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v (raw: %s)", ErrMalformedResponse, err, truncate(cleaned, 200))
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: not a JSON object", ErrMalformedResponse)
	}

	fields := make(map[string]string, len(schema))
	for _, f := range schema {
		v, ok := obj[f.Name]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrMalformedResponse, f.Name)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: field %q is %T, want string", ErrMalformedResponse, f.Name, v)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, fmt.Errorf("%w: field %q is empty", ErrMalformedResponse, f.Name)
		}
		fields[f.Name] = s
	}
	return types.NewStructuredContent(fields), nil
}

// cleanJSON strips markdown fences if the model wraps the response in ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
