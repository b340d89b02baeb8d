package branding

import "image/color"

// ContrastThreshold splits dark from light on the 0-255 luminance scale.
const ContrastThreshold = 140.0

// Contrast is the correction applied to the header logo so it stays visible
// on the accent-colored header band.
type Contrast int

const (
	// ContrastNone leaves the logo as uploaded.
	ContrastNone Contrast = iota
	// ContrastForceLight renders the logo as a white silhouette.
	ContrastForceLight
	// ContrastForceDark renders the logo as a black silhouette.
	ContrastForceDark
)

// Class returns the CSS class the preview puts on the header.
func (c Contrast) Class() string {
	switch c {
	case ContrastForceLight:
		return "force-light"
	case ContrastForceDark:
		return "force-dark"
	default:
		return ""
	}
}

// Color is the silhouette color for a forced mode.
func (c Contrast) Color() (color.NRGBA, bool) {
	switch c {
	case ContrastForceLight:
		return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, true
	case ContrastForceDark:
		return color.NRGBA{A: 0xff}, true
	default:
		return color.NRGBA{}, false
	}
}

// ContrastFor compares a logo brightness with a background brightness. A
// dark logo on a dark background is forced light; a light logo on a light
// background is forced dark.
func ContrastFor(logo, background float64) Contrast {
	logoDark := logo < ContrastThreshold
	bgDark := background < ContrastThreshold
	switch {
	case logoDark && bgDark:
		return ContrastForceLight
	case !logoDark && !bgDark:
		return ContrastForceDark
	default:
		return ContrastNone
	}
}

// HeaderContrast evaluates the rule for a stored logo brightness and accent
// color. Without a measured brightness, or with an unparsable accent, no
// correction is applied.
func HeaderContrast(logoBrightness *float64, accent string) Contrast {
	if logoBrightness == nil {
		return ContrastNone
	}
	bg, err := HexBrightness(accent)
	if err != nil {
		return ContrastNone
	}
	return ContrastFor(*logoBrightness, bg)
}

// PaperBrightness is the luminance of a white printed page.
const PaperBrightness = 255.0

// PageContrast evaluates the rule for a logo placed directly on white paper,
// as the PDF header does. Dark logos are kept; light ones are forced dark.
func PageContrast(logoBrightness *float64) Contrast {
	if logoBrightness == nil {
		return ContrastNone
	}
	return ContrastFor(*logoBrightness, PaperBrightness)
}
