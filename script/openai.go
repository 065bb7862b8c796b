package script

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"shorts-bot/types"
)

// OpenAIClient implements TextClient using strict JSON-schema chat completions
type OpenAIClient struct {
	client openai.Client
}

// NewOpenAIClient creates the process-wide OpenAI client.
// An empty key yields types.ErrMissingCredentials.
func NewOpenAIClient(apiKey string) (*OpenAIClient, error) {
	if apiKey == "" {
		return nil, types.ErrMissingCredentials
	}
	return &OpenAIClient{client: openai.NewClient(option.WithAPIKey(apiKey))}, nil
}

// Complete asks the model for JSON matching req.Schema
func (o *OpenAIClient) Complete(ctx context.Context, req TextRequest) (string, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "structured_content",
		Description: openai.String("Structured content for one generation request"),
		Schema:      jsonSchema(req.Schema),
		Strict:      openai.Bool(true),
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.Prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", &ServiceError{Provider: "openai", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}

	msg := resp.Choices[0].Message
	if msg.Refusal != "" {
		return "", fmt.Errorf("%w: refused: %s", ErrEmptyResponse, msg.Refusal)
	}
	if strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: finish reason %s", ErrEmptyResponse, resp.Choices[0].FinishReason)
	}
	return msg.Content, nil
}

func jsonSchema(schema types.Schema) map[string]any {
	props := make(map[string]any, len(schema))
	for _, f := range schema {
		props[f.Name] = map[string]any{
			"type":        "string",
			"description": f.Description,
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             schema.Names(),
		"additionalProperties": false,
	}
}
