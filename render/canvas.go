package render

import (
	"encoding/hex"
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/fogleman/gg"
)

// renderCanvas draws the solid background used when no image is available.
// The title is drawn in the upper third when a font file is configured.
func renderCanvas(dir string, width, height int, hexColor, title, fontFile string, fontSize int) (string, error) {
	bg, err := parseHexColor(hexColor)
	if err != nil {
		return "", err
	}

	dc := gg.NewContext(width, height)
	dc.SetColor(bg)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	if fontFile != "" && strings.TrimSpace(title) != "" {
		if err := dc.LoadFontFace(fontFile, float64(fontSize)*1.4); err == nil {
			dc.SetColor(color.White)
			margin := float64(width) * 0.08
			dc.DrawStringWrapped(title, float64(width)/2, float64(height)/3, 0.5, 0.5,
				float64(width)-2*margin, 1.3, gg.AlignCenter)
		}
	}

	path := filepath.Join(dir, "canvas.png")
	if err := dc.SavePNG(path); err != nil {
		return "", fmt.Errorf("save canvas: %w", err)
	}
	return path, nil
}

func parseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return color.NRGBA{A: 255}, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 3 {
		return color.NRGBA{}, fmt.Errorf("invalid canvas color %q", s)
	}
	return color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 255}, nil
}

// parseResolution reads "WIDTHxHEIGHT"
func parseResolution(s string) (int, int, error) {
	var w, h int
	if _, err := fmt.Sscanf(strings.ToLower(strings.TrimSpace(s)), "%dx%d", &w, &h); err != nil || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid resolution %q", s)
	}
	// libx264 with yuv420p needs even dimensions
	return w &^ 1, h &^ 1, nil
}
