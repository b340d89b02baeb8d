package export

import (
	"fmt"
	"log/slog"
	"math"
	"unicode/utf8"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/quotify/api/internal/branding"
	"github.com/quotify/api/internal/preview"
	"github.com/quotify/api/internal/quote"
)

const (
	pageMargin = 20
	qrPixels   = 256
	// charsPerLine approximates how many 9pt characters fit across the
	// content width; used to size wrapped text rows.
	charsPerLine = 95
)

var (
	grey      = &props.Color{Red: 100, Green: 100, Blue: 100}
	lightGrey = &props.Color{Red: 150, Green: 150, Blue: 150}
	ruleGrey  = &props.Color{Red: 230, Green: 230, Blue: 230}
	discountR = &props.Color{Red: 239, Green: 68, Blue: 68}
)

// PDFRenderer turns a quote into an A4 PDF.
type PDFRenderer struct {
	logger *slog.Logger
}

// NewPDFRenderer creates a PDF renderer.
func NewPDFRenderer(logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFRenderer{logger: logger}
}

// Render produces the PDF bytes for doc. A logo that cannot be decoded is
// left out (and logged) rather than failing the export; the payment QR is
// added only when the sender has an IBAN and the total is payable.
func (r *PDFRenderer) Render(doc quote.Document) ([]byte, error) {
	m, err := r.build(doc)
	if err != nil {
		return nil, err
	}
	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generating pdf: %w", err)
	}
	return out.GetBytes(), nil
}

// build lays out the document without generating it.
func (r *PDFRenderer) build(doc quote.Document) (core.Maroto, error) {
	v := preview.NewView(doc)
	accentR, accentG, accentB := branding.RGB(v.Accent, quote.DefaultAccentColor)
	accent := &props.Color{Red: accentR, Green: accentG, Blue: accentB}

	logo, watermark, err := pdfLogos(doc.State.Branding)
	if err != nil {
		r.logger.Warn("logo left out of pdf", slog.String("error", err.Error()))
		logo, watermark = nil, nil
	}

	builder := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(pageMargin).
		WithTopMargin(pageMargin).
		WithRightMargin(pageMargin).
		WithPageNumber(props.PageNumber{
			Pattern: "Pagina {current} van {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   lightGrey,
		})
	if watermark != nil {
		builder = builder.WithBackgroundImage(watermark, extension.Png)
	}

	m := maroto.New(builder.Build())

	if err := m.RegisterFooter(footerRows(v.Footer, accent)...); err != nil {
		return nil, fmt.Errorf("registering pdf footer: %w", err)
	}

	addHeader(m, v, logo, accent)
	addAddresses(m, v)
	for _, g := range v.Groups {
		addGroup(m, g, accent)
	}
	if v.Totals != nil {
		addTotals(m, *v.Totals, v.PaymentTerm, accent)
		if qr, err := PaymentQR(doc, qrPixels); err == nil {
			addPaymentQR(m, qr)
		} else {
			r.logger.Debug("payment qr skipped", slog.String("reason", err.Error()))
		}
	}
	addNotes(m, v.Notes)
	if v.ShowSignature {
		addSignature(m, v)
	}
	return m, nil
}

// pdfLogos prepares the header logo and the page watermark. The PDF header
// has no accent band, so the logo's contrast is judged against white paper
// rather than the accent color the preview uses.
func pdfLogos(b quote.Branding) (logo, watermark []byte, err error) {
	if !b.HasLogo() {
		return nil, nil, nil
	}
	raw, _, err := b.LogoBytes()
	if err != nil {
		return nil, nil, err
	}
	if logo, err = branding.HeaderLogo(raw, branding.PageContrast(b.LogoBrightness)); err != nil {
		return nil, nil, err
	}
	if watermark, err = branding.Watermark(raw); err != nil {
		return nil, nil, err
	}
	return logo, watermark, nil
}

// PDF renders doc with the default logger.
func PDF(doc quote.Document) ([]byte, error) {
	return NewPDFRenderer(nil).Render(doc)
}

func addHeader(m core.Maroto, v preview.View, logo []byte, accent *props.Color) {
	var left core.Col
	if logo != nil {
		left = image.NewFromBytesCol(4, logo, extension.Png, props.Rect{Percent: 100})
	} else {
		left = text.NewCol(4, "LOGO", props.Text{Size: 20, Style: fontstyle.Bold, Color: accent, Top: 5})
	}
	m.AddRows(row.New(22).Add(
		left,
		col.New(8).Add(text.New(v.Title, props.Text{
			Size:  28,
			Style: fontstyle.Bold,
			Align: align.Right,
			Color: accent,
		})),
	))

	metaLabel := props.Text{Size: 8, Align: align.Right, Color: grey}
	metaValue := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right}
	meta := [][2]string{{"NUMMER", v.Number}, {"DATUM", v.Date}, {"GELDIG TOT", v.ValidUntil}}
	for _, kv := range meta {
		m.AddRow(5,
			col.New(6),
			text.NewCol(3, kv[0], metaLabel),
			text.NewCol(3, kv[1], metaValue),
		)
	}

	if v.Project != "" {
		m.AddRow(12, text.NewCol(12, v.Project, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Color: accent,
			Top:   4,
		}))
	}
	m.AddRow(8)
}

func addAddresses(m core.Maroto, v preview.View) {
	label := props.Text{Size: 8, Color: lightGrey}
	name := props.Text{Size: 10, Style: fontstyle.Bold}
	body := props.Text{Size: 10}

	m.AddRow(5, text.NewCol(6, "VAN", label), text.NewCol(6, "VOOR", label))
	m.AddRow(5, text.NewCol(6, v.Sender.Name, name), text.NewCol(6, v.Client.Name, name))

	var client []string
	if v.Client.Contact != "" {
		client = append(client, "T.a.v. "+v.Client.Contact)
	}
	client = append(client, v.Client.Lines...)
	if v.Client.Reference != "" {
		client = append(client, "Ref: "+v.Client.Reference)
	}

	n := max(len(v.Sender.Lines), len(client))
	for i := 0; i < n; i++ {
		m.AddRow(5, text.NewCol(6, at(v.Sender.Lines, i), body), text.NewCol(6, at(client, i), body))
	}
	m.AddRow(10)
}

func addGroup(m core.Maroto, g preview.GroupView, accent *props.Color) {
	head := props.Text{Size: 8, Style: fontstyle.Bold, Color: grey}
	headRight := head
	headRight.Align = align.Right
	cell := props.Text{Size: 10}
	cellRight := props.Text{Size: 10, Align: align.Right}

	m.AddRow(7, text.NewCol(12, g.Label, props.Text{Size: 11, Style: fontstyle.Bold, Color: accent}))
	m.AddRow(6,
		text.NewCol(6, "OMSCHRIJVING", head),
		text.NewCol(2, "AANTAL", headRight),
		text.NewCol(2, "PRIJS", headRight),
		text.NewCol(2, "TOTAAL", headRight),
	)
	m.AddRow(1, line.NewCol(12, props.Line{Color: ruleGrey}))

	for _, r := range g.Rows {
		qty := r.Quantity
		if r.Unit != "" {
			qty += " " + r.Unit
		}
		m.AddRow(wrappedHeight(r.Description, charsPerLine/2, 7),
			text.NewCol(6, r.Description, cell),
			text.NewCol(2, qty, cellRight),
			text.NewCol(2, r.Price, cellRight),
			text.NewCol(2, r.Total, cellRight),
		)
		if r.Discount != "" {
			m.AddRow(4, text.NewCol(12, r.Discount, props.Text{Size: 7, Color: discountR}))
		}
	}

	if g.Recurring {
		m.AddRow(1, line.NewCol(12, props.Line{Color: ruleGrey}))
		m.AddRow(7,
			text.NewCol(8, g.Summary, props.Text{Size: 10, Style: fontstyle.Bold, Top: 1}),
			text.NewCol(4, g.Subtotal, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right, Top: 1}),
		)
	}
	m.AddRow(6)
}

func addTotals(m core.Maroto, t preview.TotalsView, paymentTerm string, accent *props.Color) {
	label := props.Text{Size: 10, Align: align.Right}
	value := props.Text{Size: 10, Align: align.Right}

	m.AddRow(2, col.New(6), line.NewCol(6, props.Line{Color: accent, Thickness: 0.6}))
	m.AddRow(6, col.New(6), text.NewCol(4, "Subtotaal (Excl. BTW)", label), text.NewCol(2, t.Subtotal, value))
	for _, l := range t.VAT {
		m.AddRow(6, col.New(6), text.NewCol(4, l.Label, label), text.NewCol(2, l.Amount, value))
	}

	final := props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Right, Color: accent, Top: 1}
	m.AddRow(9, col.New(6), text.NewCol(4, "Totaal (Incl. BTW)", final), text.NewCol(2, t.Grand, final))

	if paymentTerm != "" {
		m.AddRow(6, col.New(6), text.NewCol(6, paymentTerm, props.Text{Size: 8, Align: align.Right, Color: grey}))
	}
}

func addPaymentQR(m core.Maroto, qr []byte) {
	m.AddRow(32,
		col.New(8),
		text.NewCol(2, "Scan om direct te betalen", props.Text{Size: 7, Align: align.Right, Color: grey, Top: 12}),
		image.NewFromBytesCol(2, qr, extension.Png, props.Rect{Center: true, Percent: 95}),
	)
}

func addNotes(m core.Maroto, notes []string) {
	if len(notes) == 0 {
		return
	}
	m.AddRow(8)
	style := props.Text{Size: 9, Color: grey}
	for _, n := range notes {
		m.AddRow(wrappedHeight(n, charsPerLine, 4.5), text.NewCol(12, n, style))
	}
}

func addSignature(m core.Maroto, v preview.View) {
	m.AddRow(12)
	m.AddRow(5, text.NewCol(6, "Voor akkoord", props.Text{Size: 8, Color: lightGrey}))
	m.AddRow(5, text.NewCol(6, v.Client.Name, props.Text{Size: 10, Style: fontstyle.Bold}))
	m.AddRow(15)
	m.AddRow(1, line.NewCol(6, props.Line{Color: lightGrey}))
	m.AddRow(5, text.NewCol(6, "Naam, datum en handtekening", props.Text{Size: 7, Color: grey}))
}

func footerRows(f preview.FooterView, accent *props.Color) []core.Row {
	style := props.Text{Size: 8, Color: grey}
	center := props.Text{Size: 8, Color: grey, Align: align.Center}
	right := props.Text{Size: 8, Color: grey, Align: align.Right}

	return []core.Row{
		row.New(2).Add(line.NewCol(12, props.Line{Color: accent, Thickness: 0.5})),
		row.New(4).Add(
			text.NewCol(4, f.Company, style),
			text.NewCol(4, "KVK: "+orDash(f.KVK), center),
			text.NewCol(4, "Geldig tot: "+f.Validity, right),
		),
		row.New(4).Add(
			text.NewCol(4, f.Email, style),
			text.NewCol(4, "IBAN: "+orDash(f.IBAN), center),
			col.New(4),
		),
		row.New(6),
	}
}

func wrappedHeight(s string, perLine int, lineHeight float64) float64 {
	lines := math.Ceil(float64(utf8.RuneCountInString(s)) / float64(perLine))
	return math.Max(1, lines) * lineHeight
}

func at(lines []string, i int) string {
	if i < len(lines) {
		return lines[i]
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
