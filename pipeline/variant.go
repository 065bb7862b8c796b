package pipeline

import (
	"fmt"

	"shorts-bot/config"
	"shorts-bot/delivery"
	"shorts-bot/types"
)

// Variant is one flavour of the bot: what it asks the model for and how it presents the result
type Variant struct {
	Name        string
	Schema      types.Schema
	System      string
	AspectRatio string
	// DownloadImage is false when the image URL is linked instead of sent
	DownloadImage bool
	// Assembles reports whether the variant can produce a video at all
	Assembles bool
	Greeting  string
	// Started is sent once the idea is accepted; %s is the idea
	Started string
	// Progress is sent on entry to each working state
	Progress map[types.State]string

	prompt  func(idea string) string
	content func(idea string, c *types.StructuredContent) delivery.Content
}

// Prompt builds the user prompt for an idea
func (v *Variant) Prompt(idea string) string { return v.prompt(idea) }

// Content builds the delivery content for a structured result
func (v *Variant) Content(idea string, c *types.StructuredContent) delivery.Content {
	return v.content(idea, c)
}

// NewVariant returns the variant selected by cfg
func NewVariant(cfg config.PipelineConfig, image config.ImageConfig) (*Variant, error) {
	switch cfg.Variant {
	case config.VariantShorts:
		return shortsVariant(cfg, image), nil
	case config.VariantMovieInfo:
		return movieInfoVariant(image), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", cfg.Variant)
	}
}

func shortsVariant(cfg config.PipelineConfig, image config.ImageConfig) *Variant {
	aspect := image.AspectRatio
	if aspect == "" {
		aspect = "16:9"
	}
	return &Variant{
		Name: config.VariantShorts,
		Schema: types.Schema{
			{Name: types.FieldImagePrompt, Description: "Detailed English instruction for the image generation model."},
			{Name: types.FieldScript, Description: fmt.Sprintf("%d-second %s voice-over narration.", cfg.VideoDurationSec, cfg.Language)},
			{Name: types.FieldTitle, Description: fmt.Sprintf("Catchy %s YouTube video title.", cfg.Language)},
		},
		System:        "Return all output ONLY as JSON in the given format. Do NOT add any extra text.",
		AspectRatio:   aspect,
		DownloadImage: true,
		Assembles:     true,
		Greeting:      "Hello! I am an automatic YouTube content bot. Send me a video idea.",
		Started:       "🤖 Idea received: '%s'. Starting...",
		Progress: map[types.State]string{
			types.StateTextGenerating:  "📝 Writing the script and image instructions...",
			types.StateImageGenerating: "📸 Generating and downloading the image...",
			types.StateAssembling:      "🎬 Assembling the video...",
			types.StateDelivering:      "✅ Content ready! Sending the result...",
		},
		prompt: func(idea string) string {
			return "Video idea: " + idea
		},
		content: func(_ string, c *types.StructuredContent) delivery.Content {
			return delivery.Content{
				Title: "🎥 " + c.Title,
				Body:  c.Narration,
			}
		},
	}
}

func movieInfoVariant(image config.ImageConfig) *Variant {
	aspect := image.AspectRatio
	if aspect == "" {
		// poster orientation
		aspect = "2:3"
	}
	return &Variant{
		Name: config.VariantMovieInfo,
		Schema: types.Schema{
			{Name: types.FieldImagePrompt, Description: "English movie-poster style image instruction showing the theme and main character."},
			{Name: types.FieldStartDate, Description: "Start date of the film or series (e.g. 2023-11-01 or just 2023)."},
			{Name: types.FieldEndDate, Description: "End date of the film or series (write 'Still running' if it continues)."},
		},
		System:        "Return all output ONLY as JSON in the given format. Do NOT add any extra text. Create an image instruction for the poster.",
		AspectRatio:   aspect,
		DownloadImage: false,
		Assembles:     false,
		Greeting:      "Hello! Send me the name of a film or series and I will look it up.",
		Started:       "🎬 Looking up film/series info: '%s'. Starting...",
		Progress: map[types.State]string{
			types.StateTextGenerating:  "📝 Asking for the dates and poster details...",
			types.StateImageGenerating: "📸 Creating the poster image URL...",
			types.StateDelivering:      "✅ Info ready! Sending the result...",
		},
		prompt: func(idea string) string {
			return "Prepare the start and end dates and an English poster image instruction for this film/series: " + idea
		},
		content: func(idea string, c *types.StructuredContent) delivery.Content {
			return delivery.Content{
				Title: "🎬 " + idea,
				Body: fmt.Sprintf("Start date: %s\nEnd date: %s\n\n✅ Info generated!",
					c.StartDate, c.EndDate),
				LinkLabel: "Download poster",
			}
		},
	}
}
