// Package preview renders a quote as an HTML document. The View built here
// is also the input of the PDF and spreadsheet exports, so every renderer
// prints the same formatted figures.
package preview

import (
	"strconv"
	"strings"

	"github.com/quotify/api/internal/branding"
	"github.com/quotify/api/internal/quote"
)

// Placeholders used when a party has no company name.
const (
	DefaultSenderName = "Jouw Bedrijf"
	DefaultClientName = "De Klant"
)

// DefaultValidity is printed in the footer when no expiry date is set.
const DefaultValidity = "30 dagen na dagtekening"

// PartyView is an address card with empty fields already dropped.
type PartyView struct {
	Name      string
	Contact   string
	Lines     []string
	Reference string
}

// RowView is one formatted line item.
type RowView struct {
	Description string
	Discount    string // "" when no discount applies
	Quantity    string
	Unit        string
	Price       string
	Total       string
}

// GroupView is one period table.
type GroupView struct {
	Period    quote.Period
	Label     string
	Recurring bool
	Rows      []RowView
	Subtotal  string
	VAT       string
	// Summary is the single line printed under a recurring table.
	Summary string
}

// VATLine is one line of the totals block.
type VATLine struct {
	Label  string
	Amount string
}

// TotalsView is the one-off totals block.
type TotalsView struct {
	Subtotal string
	VAT      []VATLine
	Grand    string
}

// FooterView holds the three footer columns.
type FooterView struct {
	Company  string
	Email    string
	Phone    string
	Website  string
	KVK      string
	VAT      string
	IBAN     string
	Validity string
}

// View is the fully formatted document.
type View struct {
	Title      string
	Number     string
	Date       string
	ValidUntil string
	Project    string

	Accent   string
	Logo     string
	Contrast branding.Contrast

	Sender PartyView
	Client PartyView

	Groups []GroupView
	Totals *TotalsView // nil when there are no one-off items

	Notes         []string
	Footer        FooterView
	PaymentTerm   string
	ShowSignature bool
}

// NewView formats doc for rendering. Every amount goes through
// quote.FormatMoney on the figures computed by quote.Compute.
func NewView(doc quote.Document) View {
	s := doc.State

	accent, err := branding.NormalizeHex(s.Branding.PrimaryColor)
	if err != nil {
		accent = quote.DefaultAccentColor
	}

	v := View{
		Title:         s.Meta.DisplayTitle(),
		Number:        s.Meta.Number,
		Date:          s.Meta.Date,
		ValidUntil:    orDash(s.Meta.ValidUntil),
		Project:       s.Meta.Project,
		Accent:        accent,
		Sender:        partyView(s.Sender, DefaultSenderName),
		Client:        partyView(s.Client, DefaultClientName),
		Notes:         noteLines(s.Notes),
		ShowSignature: s.Settings.ShowSignature,
		Footer: FooterView{
			Company:  s.Sender.Company,
			Email:    s.Sender.Email,
			Phone:    s.Sender.Phone,
			Website:  s.Sender.Website,
			KVK:      s.Sender.KVK,
			VAT:      s.Sender.VAT,
			IBAN:     s.Sender.IBAN,
			Validity: s.Meta.ValidUntil,
		},
	}
	if v.Footer.Validity == "" {
		v.Footer.Validity = DefaultValidity
	}
	if s.Settings.PaymentTerm > 0 {
		v.PaymentTerm = "Betaling binnen " + strconv.Itoa(s.Settings.PaymentTerm) + " dagen na factuurdatum."
	}

	if s.Branding.HasLogo() {
		v.Logo = s.Branding.Logo
		v.Contrast = branding.HeaderContrast(s.Branding.LogoBrightness, accent)
	}

	for _, g := range doc.Totals.NonEmpty() {
		gv := GroupView{
			Period:    g.Period,
			Label:     g.Label,
			Recurring: g.Recurring(),
			Subtotal:  doc.Money(g.Subtotal),
			VAT:       doc.Money(g.VATTotal),
		}
		for _, line := range g.Lines {
			gv.Rows = append(gv.Rows, rowView(doc, line))
		}
		if gv.Recurring {
			gv.Summary = "Totaal " + g.Label + " (Excl. BTW)"
		}
		v.Groups = append(v.Groups, gv)
	}

	oneOff := doc.Totals.OneOff()
	if !oneOff.Empty() {
		t := &TotalsView{
			Subtotal: doc.Money(oneOff.Subtotal),
			Grand:    doc.Money(doc.Totals.GrandTotal),
		}
		for _, b := range doc.Totals.VisibleBuckets() {
			t.VAT = append(t.VAT, VATLine{
				Label:  "BTW (" + quote.FormatPercent(b.Rate) + "%)",
				Amount: doc.Money(b.Amount),
			})
		}
		v.Totals = t
	}

	return v
}

func rowView(doc quote.Document, line quote.Line) RowView {
	it := line.Item
	r := RowView{
		Description: it.Description,
		Quantity:    quote.FormatQuantity(it.Quantity),
		Unit:        it.Unit,
		Price:       doc.Money(it.Price),
		Total:       doc.Money(line.Totals.ExVAT),
	}
	if it.Discount.IsPositive() {
		r.Discount = "Korting: " + quote.FormatPercent(it.Discount) + "%"
	}
	return r
}

func partyView(p quote.Party, fallback string) PartyView {
	name := p.Company
	if name == "" {
		name = fallback
	}
	return PartyView{
		Name:      name,
		Contact:   p.Contact,
		Lines:     p.AddressLines(),
		Reference: p.Reference,
	}
}

func noteLines(notes string) []string {
	if strings.TrimSpace(notes) == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(notes, "\r\n", "\n"), "\n")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
