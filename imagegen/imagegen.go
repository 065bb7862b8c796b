package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNoImages is returned when the service answered without any image
var ErrNoImages = errors.New("image service returned no images")

// Request is one image-generation call
type Request struct {
	Model       string
	Prompt      string
	Count       int
	AspectRatio string // e.g. "16:9", "2:3"
}

// GeneratedImage is one image the service made available
type GeneratedImage struct {
	URL string
}

// Generator is an image-generation backend
type Generator interface {
	Generate(ctx context.Context, req Request) ([]GeneratedImage, error)
}

// dimensions maps an aspect ratio onto pixel sizes with the long side at longSide
func dimensions(aspect string, longSide int) (int, int, error) {
	w, h, err := parseAspect(aspect)
	if err != nil {
		return 0, 0, err
	}
	if w >= h {
		return longSide, longSide * h / w, nil
	}
	return longSide * w / h, longSide, nil
}

func parseAspect(aspect string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(aspect), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid aspect ratio %q", aspect)
	}
	w, err1 := strconv.Atoi(parts[0])
	h, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid aspect ratio %q", aspect)
	}
	return w, h, nil
}
