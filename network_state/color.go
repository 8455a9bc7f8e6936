package network_state

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ErrInvalidColor is returned for strings that are neither hex colors nor web color names.
var ErrInvalidColor = errors.New("invalid color")

// Color represents a simplified RGBA representation for server.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

var (
	Gray  = Color{128, 128, 128, 255}
	White = Color{255, 255, 255, 255}
)

// ParseHTMLColor accepts #RGB, #RGBA, #RRGGBB, #RRGGBBAA and web color names.
func ParseHTMLColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Color{}, fmt.Errorf("%w: empty string", ErrInvalidColor)
	}
	if !strings.HasPrefix(s, "#") {
		named, ok := colornames.Map[strings.ToLower(s)]
		if !ok {
			return Color{}, fmt.Errorf("%w: unknown color name %q", ErrInvalidColor, s)
		}
		return Color{R: named.R, G: named.G, B: named.B, A: 255}, nil
	}

	digits := s[1:]
	for _, r := range digits {
		if !isHexDigit(r) {
			return Color{}, fmt.Errorf("%w: %q is not a hex color", ErrInvalidColor, s)
		}
	}
	alpha := uint8(255)
	switch len(digits) {
	case 3, 6:
	case 4, 8:
		n := len(digits) / 4
		a, err := strconv.ParseUint(digits[len(digits)-n:], 16, 8)
		if err != nil {
			return Color{}, fmt.Errorf("%w: bad alpha in %q", ErrInvalidColor, s)
		}
		if n == 1 {
			a *= 17
		}
		alpha = uint8(a)
		digits = digits[:len(digits)-n]
	default:
		return Color{}, fmt.Errorf("%w: %q has %d hex digits", ErrInvalidColor, s, len(digits))
	}

	c, err := colorful.Hex("#" + strings.ToLower(digits))
	if err != nil {
		return Color{}, fmt.Errorf("%w: %v", ErrInvalidColor, err)
	}
	r, g, b := c.RGB255()
	return Color{R: r, G: g, B: b, A: alpha}, nil
}

func isHexDigit(r rune) bool {
	return ('0' <= r && r <= '9') || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// ColorFromHSV builds an opaque color; hue is in degrees, saturation and value in [0,1].
func ColorFromHSV(h, s, v float64) Color {
	r, g, b := colorful.Hsv(h, s, v).Clamped().RGB255()
	return Color{R: r, G: g, B: b, A: 255}
}

// Hex formats the color as #RRGGBBAA.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}
