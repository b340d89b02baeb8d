package quote

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is advisory only; nothing enforces transitions.
type Status string

const (
	StatusConcept  Status = "concept"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
)

// DefaultAccentColor is the accent used until the user picks one.
const DefaultAccentColor = "#0F172A"

// DateLayout matches the nl-NL short date the editor displays ("19-10-2026").
const DateLayout = "2-1-2006"

// Party is the sender or the client address card. Website and IBAN are
// only filled for the sender, Reference only for the client.
type Party struct {
	Company   string `json:"company"`
	Contact   string `json:"contact"`
	Address   string `json:"address"`
	Zip       string `json:"zip"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Website   string `json:"website,omitempty"`
	KVK       string `json:"kvk"`
	VAT       string `json:"vat"`
	IBAN      string `json:"iban,omitempty"`
	Reference string `json:"reference,omitempty"`
}

// AddressLines returns the postal lines that have content. Empty fields
// produce no line at all.
func (p Party) AddressLines() []string {
	var lines []string
	if p.Address != "" {
		lines = append(lines, p.Address)
	}
	if p.Zip != "" || p.City != "" {
		lines = append(lines, strings.TrimSpace(p.Zip+" "+p.City))
	}
	if p.Country != "" {
		lines = append(lines, p.Country)
	}
	return lines
}

// Meta is the document header information.
type Meta struct {
	Number     string `json:"number"`
	Date       string `json:"date"`
	ValidUntil string `json:"validUntil"`
	Title      string `json:"title"`
	Project    string `json:"project"`
	Currency   string `json:"currency"`
	Status     Status `json:"status"`
}

// DisplayTitle falls back to the generic document name.
func (m Meta) DisplayTitle() string {
	if m.Title == "" {
		return "OFFERTE"
	}
	return m.Title
}

// Branding holds the logo and accent color. Logo is a data URL so a
// snapshot stays a single self-contained JSON document.
type Branding struct {
	Logo           string   `json:"logo,omitempty"`
	PrimaryColor   string   `json:"primaryColor"`
	LogoBrightness *float64 `json:"logoBri,omitempty"`
}

// ErrInvalidDataURL is returned when a logo is not a base64 data URL.
var ErrInvalidDataURL = errors.New("logo is not a base64 data URL")

// HasLogo reports whether a logo is set.
func (b Branding) HasLogo() bool { return b.Logo != "" }

// LogoBytes decodes the logo data URL.
func (b Branding) LogoBytes() (data []byte, contentType string, err error) {
	return DecodeDataURL(b.Logo)
}

// EncodeDataURL builds a base64 data URL.
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURL splits a base64 data URL into its payload and content type.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	contentType, ok := strings.CutSuffix(header, ";base64")
	if !ok {
		return nil, "", ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.Join(ErrInvalidDataURL, err)
	}
	return data, contentType, nil
}

// Settings are the document options.
type Settings struct {
	PaymentTerm   int  `json:"paymentTerm"`
	ShowSignature bool `json:"showSignature"`
}

// State is the whole editable quote.
type State struct {
	Sender   Party           `json:"sender"`
	Client   Party           `json:"client"`
	Meta     Meta            `json:"meta"`
	Branding Branding        `json:"branding"`
	Items    Items           `json:"items"`
	Settings Settings        `json:"settings"`
	Notes    string          `json:"notes"`
	Total    decimal.Decimal `json:"total"`
}

// DefaultState returns the state a fresh session starts with. It carries no
// items; callers seed the example row when nothing was restored.
func DefaultState(now time.Time) State {
	return State{
		Meta: Meta{
			Number:   "2026-001",
			Date:     now.Format(DateLayout),
			Title:    "Quotify",
			Currency: "EUR",
			Status:   StatusConcept,
		},
		Branding: Branding{PrimaryColor: DefaultAccentColor},
		Settings: Settings{
			PaymentTerm:   14,
			ShowSignature: true,
		},
		Total: decimal.Zero,
	}
}

// Clone returns a deep copy.
func (s State) Clone() State {
	out := s
	out.Items = s.Items.Clone()
	if s.Branding.LogoBrightness != nil {
		v := *s.Branding.LogoBrightness
		out.Branding.LogoBrightness = &v
	}
	return out
}

// Document bundles the state with its derived model. Both renderers take a
// Document, so they always see the same figures.
type Document struct {
	State  State
	Totals GroupedTotals
}

// NewDocument computes the totals for s.
func NewDocument(s State) Document {
	return Document{State: s, Totals: Compute(s.Items)}
}

// Currency returns the document currency, defaulting to EUR.
func (d Document) Currency() string {
	if d.State.Meta.Currency == "" {
		return "EUR"
	}
	return d.State.Meta.Currency
}

// Money formats an amount in the document currency.
func (d Document) Money(v decimal.Decimal) string {
	return FormatMoney(d.Currency(), v)
}
