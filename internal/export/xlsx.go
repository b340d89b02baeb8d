package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/quotify/api/internal/preview"
	"github.com/quotify/api/internal/quote"
)

// XLSX creates a workbook with one sheet per non-empty period group and a
// closing "Totaal" sheet. Amounts are numeric cells in the quote currency so
// they can be summed; labels match the preview and PDF.
func XLSX(doc quote.Document) ([]byte, error) {
	v := preview.NewView(doc)

	f := excelize.NewFile()
	defer f.Close()

	styles, err := newSheetStyles(f, v.Accent, quote.CurrencySymbol(doc.Currency()))
	if err != nil {
		return nil, err
	}

	first := f.GetSheetName(0)
	for i, g := range doc.Totals.NonEmpty() {
		name := sheetName(g.Label)
		if i == 0 {
			if err := f.SetSheetName(first, name); err != nil {
				return nil, fmt.Errorf("set sheet name: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", name, err)
		}
		if err := writeGroupSheet(f, name, v, g, styles); err != nil {
			return nil, err
		}
	}

	const totalsSheet = "Totaal"
	if len(v.Groups) == 0 {
		if err := f.SetSheetName(first, totalsSheet); err != nil {
			return nil, fmt.Errorf("set sheet name: %w", err)
		}
	} else if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, fmt.Errorf("new sheet %s: %w", totalsSheet, err)
	}
	if err := writeTotalsSheet(f, totalsSheet, v, doc, styles); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

type sheetStyles struct {
	title     int
	header    int
	cell      int
	money     int
	number    int
	label     int
	summary   int
	moneyBold int
}

func newSheetStyles(f *excelize.File, accent, symbol string) (sheetStyles, error) {
	var s sheetStyles
	var err error

	moneyFmt := `"` + strings.ReplaceAll(symbol, `"`, "") + `" #,##0.00`
	numberFmt := "0.####"

	if s.title, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16, Color: accent},
	}); err != nil {
		return s, fmt.Errorf("create title style: %w", err)
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{accent}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	}); err != nil {
		return s, fmt.Errorf("create header style: %w", err)
	}

	if s.cell, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	}); err != nil {
		return s, fmt.Errorf("create cell style: %w", err)
	}

	if s.money, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, fmt.Errorf("create money style: %w", err)
	}

	if s.number, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &numberFmt,
	}); err != nil {
		return s, fmt.Errorf("create number style: %w", err)
	}

	if s.label, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Alignment: &excelize.Alignment{Horizontal: "right"},
	}); err != nil {
		return s, fmt.Errorf("create label style: %w", err)
	}

	if s.summary, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
	}); err != nil {
		return s, fmt.Errorf("create summary style: %w", err)
	}

	if s.moneyBold, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &moneyFmt,
	}); err != nil {
		return s, fmt.Errorf("create money total style: %w", err)
	}
	return s, nil
}

// sheetWriter sets cells on one sheet and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(cell string, value any) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
		w.err = fmt.Errorf("set %s!%s: %w", w.sheet, cell, err)
	}
}

func (w *sheetWriter) style(from, to string, id int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellStyle(w.sheet, from, to, id); err != nil {
		w.err = fmt.Errorf("style %s!%s:%s: %w", w.sheet, from, to, err)
	}
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func writeGroupSheet(f *excelize.File, sheet string, v preview.View, g quote.Group, st sheetStyles) error {
	widths := map[string]float64{"A": 48, "B": 10, "C": 12, "D": 16, "E": 16, "F": 12}
	for c, w := range widths {
		if err := f.SetColWidth(sheet, c, c, w); err != nil {
			return fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	w := &sheetWriter{f: f, sheet: sheet}
	w.set("A1", sanitizeExcelCell(g.Label))
	w.style("A1", "A1", st.title)
	w.set("A2", sanitizeExcelCell(v.Title+" "+v.Number))

	headers := []string{"Omschrijving", "Aantal", "Eenheid", "Prijs", "Totaal", "Korting %"}
	for i, h := range headers {
		w.set(string(rune('A'+i))+"4", h)
	}
	w.style("A4", "F4", st.header)

	row := 5
	for _, line := range g.Lines {
		it := line.Item
		n := strconv.Itoa(row)
		w.set("A"+n, sanitizeExcelCell(it.Description))
		w.set("B"+n, it.Quantity.InexactFloat64())
		w.set("C"+n, sanitizeExcelCell(it.Unit))
		w.set("D"+n, amount(it.Price))
		w.set("E"+n, amount(line.Totals.ExVAT))
		if it.Discount.IsPositive() {
			w.set("F"+n, it.Discount.InexactFloat64())
		}
		w.style("A"+n, "A"+n, st.cell)
		w.style("B"+n, "B"+n, st.number)
		w.style("C"+n, "C"+n, st.cell)
		w.style("D"+n, "E"+n, st.money)
		w.style("F"+n, "F"+n, st.number)
		row++
	}

	row++
	n := strconv.Itoa(row)
	label := "Subtotaal (Excl. BTW)"
	if g.Recurring() {
		label = "Totaal " + g.Label + " (Excl. BTW)"
	}
	w.set("D"+n, label)
	w.style("D"+n, "D"+n, st.label)
	w.set("E"+n, amount(g.Subtotal))
	w.style("E"+n, "E"+n, st.moneyBold)
	return w.err
}

func writeTotalsSheet(f *excelize.File, sheet string, v preview.View, doc quote.Document, st sheetStyles) error {
	if err := f.SetColWidth(sheet, "A", "A", 36); err != nil {
		return fmt.Errorf("set col width: %w", err)
	}
	if err := f.SetColWidth(sheet, "B", "B", 18); err != nil {
		return fmt.Errorf("set col width: %w", err)
	}

	w := &sheetWriter{f: f, sheet: sheet}
	w.set("A1", sanitizeExcelCell(v.Title))
	w.style("A1", "A1", st.title)

	row := 3
	put := func(label string, value any, valueStyle int) {
		n := strconv.Itoa(row)
		row++
		if label == "" {
			return
		}
		w.set("A"+n, sanitizeExcelCell(label))
		w.style("A"+n, "A"+n, st.label)
		if s, ok := value.(string); ok {
			value = sanitizeExcelCell(s)
		}
		w.set("B"+n, value)
		w.style("B"+n, "B"+n, valueStyle)
	}

	put("Nummer", v.Number, st.summary)
	put("Datum", v.Date, st.summary)
	put("Geldig tot", v.ValidUntil, st.summary)
	put("Klant", v.Client.Name, st.summary)

	if oneOff := doc.Totals.OneOff(); !oneOff.Empty() {
		put("", nil, 0)
		put("Subtotaal (Excl. BTW)", amount(oneOff.Subtotal), st.moneyBold)
		for _, b := range doc.Totals.VisibleBuckets() {
			put("BTW ("+quote.FormatPercent(b.Rate)+"%)", amount(b.Amount), st.moneyBold)
		}
		put("Totaal (Incl. BTW)", amount(doc.Totals.GrandTotal), st.moneyBold)
	}
	for _, g := range doc.Totals.NonEmpty() {
		if g.Recurring() {
			put("Totaal "+g.Label+" (Excl. BTW)", amount(g.Subtotal), st.moneyBold)
		}
	}
	if summary := doc.Totals.Summary(doc.Currency()); summary != "" {
		put("", nil, 0)
		put("Overzicht", summary, st.summary)
	}
	return w.err
}

// sheetName trims a label to Excel's 31 character sheet name limit.
func sheetName(label string) string {
	r := []rune(label)
	if len(r) > 31 {
		r = r[:31]
	}
	if len(r) == 0 {
		return "Offerte"
	}
	return string(r)
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
