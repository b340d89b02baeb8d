package quote

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineTotals holds the derived amounts for a single item. Values are
// unrounded; rounding happens only when a figure is formatted.
type LineTotals struct {
	Raw      decimal.Decimal `json:"raw"`
	Discount decimal.Decimal `json:"discount"`
	ExVAT    decimal.Decimal `json:"exVat"`
	VAT      decimal.Decimal `json:"vatAmount"`
	Total    decimal.Decimal `json:"total"`
}

// Line pairs an item with its computed amounts.
type Line struct {
	Item   LineItem   `json:"item"`
	Totals LineTotals `json:"totals"`
}

// Group is the per-period section of the document.
type Group struct {
	Period   Period          `json:"period"`
	Label    string          `json:"label"`
	Lines    []Line          `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	VATTotal decimal.Decimal `json:"vatTotal"`
}

// Empty reports whether the group has no lines.
func (g Group) Empty() bool { return len(g.Lines) == 0 }

// Recurring reports whether the group is a repeating cost.
func (g Group) Recurring() bool { return g.Period.Recurring() }

// VATBucket is the VAT accumulated for one distinct rate among one-off items.
type VATBucket struct {
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// GroupedTotals is the derived document model. It is recomputed on every
// change and never persisted.
type GroupedTotals struct {
	// Groups holds one entry per recognized period, in display order,
	// including empty ones.
	Groups []Group `json:"groups"`

	// VATBuckets covers one-off items only, ordered by ascending rate.
	VATBuckets []VATBucket `json:"vatBuckets"`

	// GrandTotal is the one-off subtotal plus the one-off VAT total.
	// Recurring groups are informational and excluded.
	GrandTotal decimal.Decimal `json:"grandTotal"`
}

// CalcLine derives the amounts for a single item:
//
//	raw      = price * qty
//	discount = raw * discount% / 100
//	exVat    = raw - discount
//	vat      = exVat * vat% / 100
func CalcLine(item LineItem) LineTotals {
	raw := item.Price.Mul(item.Quantity)
	discount := raw.Mul(item.Discount).Div(hundred)
	exVAT := raw.Sub(discount)
	vat := exVAT.Mul(item.VAT).Div(hundred)
	return LineTotals{
		Raw:      raw,
		Discount: discount,
		ExVAT:    exVAT,
		VAT:      vat,
		Total:    exVAT.Add(vat),
	}
}

// Compute partitions items by period and derives subtotals, VAT buckets and
// the grand total. It is pure and deterministic: the same items always give
// the same model. Items with an unrecognized period land in the one-off group.
func Compute(items []LineItem) GroupedTotals {
	groups := make([]Group, len(Periods))
	index := make(map[Period]int, len(Periods))
	for i, p := range Periods {
		groups[i] = Group{
			Period:   p,
			Label:    p.Label(),
			Subtotal: decimal.Zero,
			VATTotal: decimal.Zero,
		}
		index[p] = i
	}

	buckets := make(map[string]*VATBucket)

	for _, item := range items {
		period := item.Period.Normalize()
		totals := CalcLine(item)

		g := &groups[index[period]]
		g.Lines = append(g.Lines, Line{Item: item, Totals: totals})
		g.Subtotal = g.Subtotal.Add(totals.ExVAT)
		g.VATTotal = g.VATTotal.Add(totals.VAT)

		if period == PeriodOneOff {
			key := item.VAT.String()
			b, ok := buckets[key]
			if !ok {
				b = &VATBucket{Rate: item.VAT, Amount: decimal.Zero}
				buckets[key] = b
			}
			b.Amount = b.Amount.Add(totals.VAT)
		}
	}

	vatBuckets := make([]VATBucket, 0, len(buckets))
	for _, b := range buckets {
		vatBuckets = append(vatBuckets, *b)
	}
	sort.Slice(vatBuckets, func(i, j int) bool {
		return vatBuckets[i].Rate.LessThan(vatBuckets[j].Rate)
	})

	oneOff := groups[index[PeriodOneOff]]
	return GroupedTotals{
		Groups:     groups,
		VATBuckets: vatBuckets,
		GrandTotal: oneOff.Subtotal.Add(oneOff.VATTotal),
	}
}

// Group returns the group for period p (normalized).
func (t GroupedTotals) Group(p Period) Group {
	p = p.Normalize()
	for _, g := range t.Groups {
		if g.Period == p {
			return g
		}
	}
	return Group{Period: p, Label: p.Label()}
}

// OneOff returns the payable group.
func (t GroupedTotals) OneOff() Group {
	return t.Group(PeriodOneOff)
}

// NonEmpty returns the groups that have at least one line, in display order.
func (t GroupedTotals) NonEmpty() []Group {
	out := make([]Group, 0, len(t.Groups))
	for _, g := range t.Groups {
		if !g.Empty() {
			out = append(out, g)
		}
	}
	return out
}

// VisibleBuckets returns the VAT buckets that produce a line in the totals
// block. Zero-amount buckets (for example a 0% rate) are skipped.
func (t GroupedTotals) VisibleBuckets() []VATBucket {
	out := make([]VATBucket, 0, len(t.VATBuckets))
	for _, b := range t.VATBuckets {
		if !b.Amount.IsZero() {
			out = append(out, b)
		}
	}
	return out
}

// Summary renders the one-line overview used next to the editor, e.g.
// "€ 3025.00 + € 80.00 p/m".
func (t GroupedTotals) Summary(currency string) string {
	s := FormatMoney(currency, t.GrandTotal)
	monthly := t.Group(PeriodMonthly)
	if monthly.Subtotal.IsPositive() {
		s += " + " + FormatMoney(currency, monthly.Subtotal) + " " + PeriodMonthly.Suffix()
	}
	return s
}
