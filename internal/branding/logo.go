package branding

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidContentType is returned when the uploaded file is not an image.
	ErrInvalidContentType = errors.New("invalid content type: only PNG, JPEG and GIF logos are allowed")

	// ErrFileTooLarge is returned when the uploaded file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large: maximum 5MB")

	// ErrInvalidMagicBytes is returned when the file content does not match any supported image format.
	ErrInvalidMagicBytes = errors.New("invalid file: content does not match a supported image format")
)

// MaxLogoSize is the upload limit for logos.
const MaxLogoSize = 5 * 1024 * 1024

const (
	// FallbackBrightness is used when a logo cannot be decoded.
	FallbackBrightness = 128.0

	// EmptyBrightness is reported for a logo without any visible pixels.
	EmptyBrightness = 255.0

	sampleSize     = 50
	alphaThreshold = 20
)

// allowedContentTypes lists the formats both renderers can embed.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// ReadLogo reads an uploaded logo, enforcing the size limit and checking the
// declared content type against the file signature. It returns the raw bytes
// and the content type.
func ReadLogo(r io.Reader, contentType string) ([]byte, string, error) {
	if !allowedContentTypes[contentType] {
		return nil, "", ErrInvalidContentType
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxLogoSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading logo: %w", err)
	}
	if len(data) > MaxLogoSize {
		return nil, "", ErrFileTooLarge
	}

	sniffed := sniffImage(data)
	if sniffed == "" {
		return nil, "", ErrInvalidMagicBytes
	}
	return data, sniffed, nil
}

// sniffImage checks the first bytes of a file against known image signatures
// and returns the matching content type, or "".
func sniffImage(buf []byte) string {
	if len(buf) < 4 {
		return ""
	}

	// JPEG: starts with FF D8 FF
	if buf[0] == 0xFF && buf[1] == 0xD8 && buf[2] == 0xFF {
		return "image/jpeg"
	}

	// PNG: starts with 89 50 4E 47
	if buf[0] == 0x89 && buf[1] == 0x50 && buf[2] == 0x4E && buf[3] == 0x47 {
		return "image/png"
	}

	// GIF: starts with "GIF8"
	if buf[0] == 0x47 && buf[1] == 0x49 && buf[2] == 0x46 && buf[3] == 0x38 {
		return "image/gif"
	}

	return ""
}

// ImageBrightness returns the average luminance of the visible pixels of an
// encoded image. The image is first scaled to 50x50; pixels with alpha at or
// below 20 are ignored. A fully transparent image reports EmptyBrightness.
func ImageBrightness(data []byte) (float64, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decoding logo: %w", err)
	}
	return brightness(img), nil
}

// LogoBrightness is ImageBrightness with the decode failure folded into
// FallbackBrightness. The returned error is informational.
func LogoBrightness(data []byte) (float64, error) {
	v, err := ImageBrightness(data)
	if err != nil {
		return FallbackBrightness, err
	}
	return v, nil
}

func brightness(img image.Image) float64 {
	small := imaging.Resize(img, sampleSize, sampleSize, imaging.Box)

	var total float64
	var count int
	for y := 0; y < sampleSize; y++ {
		for x := 0; x < sampleSize; x++ {
			c := small.NRGBAAt(x, y)
			if c.A <= alphaThreshold {
				continue
			}
			total += Luminance(c.R, c.G, c.B)
			count++
		}
	}
	if count == 0 {
		return EmptyBrightness
	}
	return total / float64(count)
}

// DecodePNG decodes any supported logo format and re-encodes it as PNG, the
// one format every renderer accepts.
func DecodePNG(data []byte) ([]byte, image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("decoding logo: %w", err)
	}
	out, err := encodePNG(img)
	if err != nil {
		return nil, nil, err
	}
	return out, img, nil
}

// Silhouette recolors every visible pixel of img to c, keeping the alpha
// channel. It is the raster equivalent of the preview's contrast filter.
func Silhouette(img image.Image, c color.NRGBA) *image.NRGBA {
	return imaging.AdjustFunc(img, func(px color.NRGBA) color.NRGBA {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: px.A}
	})
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
