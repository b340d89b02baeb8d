// Package export produces the downloadable projections of a quote: the PDF
// document, a spreadsheet, and the SEPA payment QR code embedded in the PDF.
package export

import (
	"strings"

	"github.com/quotify/api/internal/quote"
)

// Filename returns the download name "<title>_<number>.<ext>" with path
// separators and problematic characters removed.
func Filename(meta quote.Meta, ext string) string {
	name := sanitizeFilename(meta.DisplayTitle()) + "_" + sanitizeFilename(meta.Number)
	return strings.Trim(name, "_") + "." + ext
}

// sanitizeFilename keeps only alphanumerics, hyphens, underscores and dots.
// Spaces become underscores.
func sanitizeFilename(name string) string {
	name = name[strings.LastIndex(name, "/")+1:]
	if i := strings.LastIndex(name, "\\"); i >= 0 {
		name = name[i+1:]
	}

	var sb strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('_')
		}
	}

	result := strings.Trim(sb.String(), ".")
	if result == "" {
		result = "offerte"
	}
	return result
}
