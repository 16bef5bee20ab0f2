package prompts

import (
	"fmt"
	"sort"
	"strings"
)

var stylePrefixes = map[string]string{
	"default":        "",
	"photorealistic": "A photorealistic, high-detail image of: ",
	"cartoon":        "A cartoon style illustration of: ",
	"abstract":       "An abstract artistic interpretation of: ",
	"pixel_art":      "Pixel art of: ",
	"line_art":       "A black and white line art drawing of: ",
	"fantasy":        "A fantasy art painting of: ",
	"anime":          "An anime style drawing of: ",
}

// Presets lists the known style preset names.
func Presets() []string {
	out := make([]string, 0, len(stylePrefixes))
	for k := range stylePrefixes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ValidPreset reports whether name is a known preset. Empty means default.
func ValidPreset(name string) bool {
	if strings.TrimSpace(name) == "" {
		return true
	}
	_, ok := stylePrefixes[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Style decorates scene prompts before image generation.
type Style struct {
	Preset           string
	PositiveKeywords string
	NegativeKeywords string
	Artists          string
}

// Apply builds the styled prompt for one scene. Unknown presets add no prefix.
func (s Style) Apply(prompt string) string {
	out := stylePrefixes[strings.ToLower(strings.TrimSpace(s.Preset))] + strings.TrimSpace(prompt)
	if kw := strings.TrimSpace(s.PositiveKeywords); kw != "" {
		out += ", " + kw
	}
	if a := strings.TrimSpace(s.Artists); a != "" {
		out += ", art by " + a
	}
	return out
}

// Format is the output video aspect.
type Format string

const (
	FormatVertical   Format = "9:16"
	FormatHorizontal Format = "16:9"
	FormatSquare     Format = "1:1"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimSpace(s)); f {
	case "":
		return FormatVertical, nil
	case FormatVertical, FormatHorizontal, FormatSquare:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported video format %q (want 9:16, 16:9 or 1:1)", s)
	}
}

// Canvas returns the render resolution for the format.
func (f Format) Canvas() (width, height int) {
	switch f {
	case FormatHorizontal:
		return 1920, 1080
	case FormatSquare:
		return 1080, 1080
	default:
		return 1080, 1920
	}
}

// ImageSize returns the closest image generation size for the format.
func (f Format) ImageSize() string {
	switch f {
	case FormatHorizontal:
		return "1792x1024"
	case FormatSquare:
		return "1024x1024"
	default:
		return "1024x1792"
	}
}

func (f Format) orientation() string {
	switch f {
	case FormatHorizontal:
		return "horizontally oriented (16:9 aspect ratio)"
	case FormatSquare:
		return "square (1:1 aspect ratio)"
	default:
		return "vertically oriented (9:16 aspect ratio)"
	}
}

// ImageRequest wraps a styled prompt in the reel framing sent to the image
// model. Negative keywords become an avoid clause.
func ImageRequest(styled string, f Format, negative string) string {
	out := fmt.Sprintf(
		"Create a high-quality, %s image for a social media reel. The image should be: %s. Make it visually engaging, modern, and suitable for social media content.",
		f.orientation(), strings.TrimRight(strings.TrimSpace(styled), "."),
	)
	if n := strings.TrimSpace(negative); n != "" {
		out += " Avoid: " + n + "."
	}
	return out
}
