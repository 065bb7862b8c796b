package imagegen

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"shorts-bot/types"
)

// OpenAI generates images with the OpenAI Images API and returns hosted URLs
type OpenAI struct {
	client      openai.Client
	styleSuffix string
}

// NewOpenAI creates the image client. An empty key yields types.ErrMissingCredentials.
func NewOpenAI(apiKey, styleSuffix string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, types.ErrMissingCredentials
	}
	return &OpenAI{
		client:      openai.NewClient(option.WithAPIKey(apiKey)),
		styleSuffix: styleSuffix,
	}, nil
}

// Generate requests req.Count images in URL response format
func (o *OpenAI) Generate(ctx context.Context, req Request) ([]GeneratedImage, error) {
	count := req.Count
	if count < 1 {
		count = 1
	}
	prompt := req.Prompt
	if o.styleSuffix != "" {
		prompt = prompt + ", " + o.styleSuffix
	}

	resp, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(req.Model),
		N:              openai.Int(int64(count)),
		Size:           openAISize(req.AspectRatio),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatURL,
	})
	if err != nil {
		return nil, fmt.Errorf("openai images: %w", err)
	}

	images := make([]GeneratedImage, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			images = append(images, GeneratedImage{URL: d.URL})
		}
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	return images, nil
}

// openAISize picks the closest supported size for an aspect ratio
func openAISize(aspect string) openai.ImageGenerateParamsSize {
	w, h, err := parseAspect(aspect)
	switch {
	case err != nil, w == h:
		return openai.ImageGenerateParamsSize1024x1024
	case w > h:
		return openai.ImageGenerateParamsSize1792x1024
	default:
		return openai.ImageGenerateParamsSize1024x1792
	}
}
