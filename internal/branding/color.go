// Package branding derives the presentation hints for a quote's logo and
// accent color: perceived brightness, the header contrast correction, and the
// faded watermark drawn behind the document.
package branding

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ErrInvalidColor is returned when a color is not #RGB or #RRGGBB hex.
var ErrInvalidColor = errors.New("invalid hex color")

// ParseHex parses "#RRGGBB" or "#RGB" (the leading # is optional).
func ParseHex(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// Luminance is the perceived brightness of an RGB triple on a 0-255 scale.
func Luminance(r, g, b uint8) float64 {
	return (float64(r)*299 + float64(g)*587 + float64(b)*114) / 1000
}

// HexBrightness returns the luminance of a hex color.
func HexBrightness(s string) (float64, error) {
	c, err := ParseHex(s)
	if err != nil {
		return 0, err
	}
	return Luminance(c.R, c.G, c.B), nil
}

// RGB returns the components of a hex color as ints, falling back to fallback
// when s cannot be parsed. Renderers use it where an error has nowhere to go.
func RGB(s, fallback string) (r, g, b int) {
	c, err := ParseHex(s)
	if err != nil {
		c, _ = ParseHex(fallback)
	}
	return int(c.R), int(c.G), int(c.B)
}

// NormalizeHex returns s in canonical "#RRGGBB" form.
func NormalizeHex(s string) (string, error) {
	c, err := ParseHex(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B), nil
}
