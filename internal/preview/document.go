package preview

//go:generate templ generate -f document.templ

import (
	"github.com/a-h/templ"

	"github.com/quotify/api/internal/branding"
)

// accentStyle sets the --accent variable the stylesheet reads. NewView has
// already normalized the accent to hex.
func accentStyle(accent string) templ.SafeCSS {
	return templ.SafeCSS("--accent:" + accent)
}

// headerClasses adds the logo contrast class to the header when one applies.
func headerClasses(c branding.Contrast) []string {
	if class := c.Class(); class != "" {
		return []string{"paper-header", class}
	}
	return []string{"paper-header"}
}
