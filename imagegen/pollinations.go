package imagegen

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strings"
)

// Pollinations generates AI images via Pollinations.ai (free, no key needed).
// The image is rendered when its URL is first requested, so Generate only builds URLs.
type Pollinations struct {
	baseURL     string
	styleSuffix string
}

// NewPollinations creates a new Pollinations generator
func NewPollinations(baseURL, styleSuffix string) *Pollinations {
	if baseURL == "" {
		baseURL = "https://image.pollinations.ai"
	}
	return &Pollinations{
		baseURL:     strings.TrimRight(baseURL, "/"),
		styleSuffix: styleSuffix,
	}
}

// Generate returns req.Count image URLs for the prompt
func (p *Pollinations) Generate(ctx context.Context, req Request) ([]GeneratedImage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("empty image prompt")
	}
	prompt = enhancePrompt(prompt, p.styleSuffix)

	width, height, err := dimensions(req.AspectRatio, 1920)
	if err != nil {
		return nil, err
	}
	count := req.Count
	if count < 1 {
		count = 1
	}

	images := make([]GeneratedImage, 0, count)
	for i := 0; i < count; i++ {
		q := url.Values{}
		q.Set("width", fmt.Sprint(width))
		q.Set("height", fmt.Sprint(height))
		q.Set("nologo", "true")
		if req.Model != "" {
			q.Set("model", req.Model)
		}
		// deterministic seed per prompt and index
		q.Set("seed", fmt.Sprint(seed(prompt)+uint32(i)))

		images = append(images, GeneratedImage{
			URL: fmt.Sprintf("%s/prompt/%s?%s", p.baseURL, url.PathEscape(prompt), q.Encode()),
		})
	}
	return images, nil
}

// enhancePrompt adds the configured style and the quality modifiers
func enhancePrompt(base, style string) string {
	if style == "" {
		style = "cinematic, dramatic lighting, photorealistic, 4K"
	}
	return fmt.Sprintf("%s, %s, no text, no watermark", base, style)
}

func seed(prompt string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	return h.Sum32() % 1000000
}
