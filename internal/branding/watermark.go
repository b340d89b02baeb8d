package branding

import (
	"fmt"
	"image/color"

	"github.com/disintegration/imaging"
)

// Watermark geometry, in pixels on an A4 canvas at roughly 4 px/mm.
const (
	watermarkPageWidth  = 840
	watermarkPageHeight = 1188
	watermarkLogoWidth  = 600 // 150mm
	watermarkAngle      = 45
	watermarkOpacity    = 0.05
)

// Watermark renders a full A4 page background with the logo scaled to
// 150mm wide, rotated 45 degrees, centered and faded to 5% opacity. The
// result is a PNG.
func Watermark(logo []byte) ([]byte, error) {
	_, img, err := DecodePNG(logo)
	if err != nil {
		return nil, err
	}

	fitted := imaging.Resize(img, watermarkLogoWidth, 0, imaging.Lanczos)
	rotated := imaging.Rotate(fitted, watermarkAngle, color.Transparent)
	if rotated.Bounds().Dx() > watermarkPageWidth || rotated.Bounds().Dy() > watermarkPageHeight {
		rotated = imaging.Fit(rotated, watermarkPageWidth, watermarkPageHeight, imaging.Lanczos)
	}

	page := imaging.New(watermarkPageWidth, watermarkPageHeight, color.White)
	page = imaging.OverlayCenter(page, rotated, watermarkOpacity)

	out, err := encodePNG(page)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	return out, nil
}

// HeaderLogo returns the logo as PNG with the contrast correction applied.
func HeaderLogo(logo []byte, c Contrast) ([]byte, error) {
	png, img, err := DecodePNG(logo)
	if err != nil {
		return nil, err
	}
	tint, ok := c.Color()
	if !ok {
		return png, nil
	}
	return encodePNG(Silhouette(img, tint))
}
