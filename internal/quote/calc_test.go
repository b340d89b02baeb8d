package quote

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func item(price, qty, discount, vat string, period Period) LineItem {
	return LineItem{
		ID:       NewItemID(),
		Price:    d(price),
		Quantity: d(qty),
		Discount: d(discount),
		VAT:      d(vat),
		Period:   period,
	}
}

// --------------------------------------------------------------------------
// CalcLine
// --------------------------------------------------------------------------

func TestCalcLine(t *testing.T) {
	tests := []struct {
		name      string
		item      LineItem
		wantExVAT string
		wantVAT   string
		wantTotal string
	}{
		{"plain", item("2500", "1", "0", "21", PeriodOneOff), "2500", "525", "3025"},
		{"discounted", item("100", "2", "25", "21", PeriodOneOff), "150", "31.5", "181.5"},
		{"fractional quantity", item("80", "1.5", "0", "9", PeriodOneOff), "120", "10.8", "130.8"},
		{"zero vat", item("50", "3", "0", "0", PeriodOneOff), "150", "0", "150"},
		{"full discount", item("99", "1", "100", "21", PeriodOneOff), "0", "0", "0"},
		{"negative price is computed through", item("-10", "1", "0", "21", PeriodOneOff), "-10", "-2.1", "-12.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalcLine(tt.item)
			if !got.ExVAT.Equal(d(tt.wantExVAT)) {
				t.Errorf("ExVAT = %s, want %s", got.ExVAT, tt.wantExVAT)
			}
			if !got.VAT.Equal(d(tt.wantVAT)) {
				t.Errorf("VAT = %s, want %s", got.VAT, tt.wantVAT)
			}
			if !got.Total.Equal(d(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", got.Total, tt.wantTotal)
			}
		})
	}
}

// --------------------------------------------------------------------------
// Scenarios
// --------------------------------------------------------------------------

func TestCompute_ScenarioA_SingleOneOff(t *testing.T) {
	got := Compute([]LineItem{item("2500", "1", "0", "21", PeriodOneOff)})
	oneOff := got.OneOff()

	if s := FormatAmount(oneOff.Subtotal); s != "2500.00" {
		t.Errorf("subtotal = %s, want 2500.00", s)
	}
	if s := FormatAmount(oneOff.VATTotal); s != "525.00" {
		t.Errorf("vat = %s, want 525.00", s)
	}
	if s := FormatAmount(got.GrandTotal); s != "3025.00" {
		t.Errorf("grand total = %s, want 3025.00", s)
	}
}

func TestCompute_ScenarioB_MixedVATRates(t *testing.T) {
	got := Compute([]LineItem{
		item("100", "1", "0", "21", PeriodOneOff),
		item("50", "1", "0", "9", PeriodOneOff),
	})

	if len(got.VATBuckets) != 2 {
		t.Fatalf("buckets = %d, want 2", len(got.VATBuckets))
	}
	want := map[string]string{"21": "21.00", "9": "4.50"}
	for _, b := range got.VATBuckets {
		w, ok := want[b.Rate.String()]
		if !ok {
			t.Errorf("unexpected bucket rate %s", b.Rate)
			continue
		}
		if s := FormatAmount(b.Amount); s != w {
			t.Errorf("bucket %s%% = %s, want %s", b.Rate, s, w)
		}
	}
	if s := FormatAmount(got.GrandTotal); s != "175.50" {
		t.Errorf("grand total = %s, want 175.50", s)
	}
}

func TestCompute_ScenarioC_RecurringExcludedFromGrandTotal(t *testing.T) {
	got := Compute([]LineItem{
		item("80", "1", "0", "21", PeriodMonthly),
		item("2500", "1", "0", "21", PeriodOneOff),
	})

	if s := FormatAmount(got.GrandTotal); s != "3025.00" {
		t.Errorf("grand total = %s, want 3025.00", s)
	}
	monthly := got.Group(PeriodMonthly)
	if s := FormatAmount(monthly.Subtotal); s != "80.00" {
		t.Errorf("monthly subtotal = %s, want 80.00", s)
	}
	if len(got.VATBuckets) != 1 {
		t.Errorf("buckets = %d, want 1 (monthly VAT must not be bucketed)", len(got.VATBuckets))
	}
}

// --------------------------------------------------------------------------
// Rounding
// --------------------------------------------------------------------------

func TestCompute_RoundsOnlyAtFormatting(t *testing.T) {
	got := Compute([]LineItem{item("9.99", "3", "10", "21", PeriodOneOff)})
	oneOff := got.OneOff()

	if !oneOff.Subtotal.Equal(d("26.973")) {
		t.Errorf("unrounded subtotal = %s, want 26.973", oneOff.Subtotal)
	}
	if s := FormatAmount(oneOff.Subtotal); s != "26.97" {
		t.Errorf("subtotal = %s, want 26.97", s)
	}
	if s := FormatAmount(oneOff.VATTotal); s != "5.66" {
		t.Errorf("vat = %s, want 5.66", s)
	}
	// 26.973 + 5.66433 = 32.63733; summing the rounded lines would give 32.63.
	if s := FormatAmount(got.GrandTotal); s != "32.64" {
		t.Errorf("grand total = %s, want 32.64", s)
	}
}

func TestCompute_Idempotent(t *testing.T) {
	items := []LineItem{
		item("9.99", "3", "10", "21", PeriodOneOff),
		item("12.5", "7", "0", "9", PeriodOneOff),
		item("45", "1", "5", "21", PeriodYearly),
	}
	first := Compute(items)
	second := Compute(items)

	if FormatAmount(first.GrandTotal) != FormatAmount(second.GrandTotal) {
		t.Errorf("grand totals differ: %s vs %s", first.GrandTotal, second.GrandTotal)
	}
	for i := range first.Groups {
		a, b := first.Groups[i], second.Groups[i]
		if FormatAmount(a.Subtotal) != FormatAmount(b.Subtotal) || FormatAmount(a.VATTotal) != FormatAmount(b.VATTotal) {
			t.Errorf("group %s differs between runs", a.Period)
		}
	}
}

// --------------------------------------------------------------------------
// Properties
// --------------------------------------------------------------------------

func propertyItems() []LineItem {
	return []LineItem{
		item("2500", "1", "0", "21", PeriodOneOff),
		item("19.95", "3", "15", "9", PeriodOneOff),
		item("7.333", "2.5", "0", "21", PeriodOneOff),
		item("100", "1", "0", "0", PeriodOneOff),
		item("80", "1", "0", "21", PeriodMonthly),
		item("12", "4", "10", "21", PeriodWeekly),
		item("300", "1", "0", "21", PeriodQuarterly),
		item("1200", "1", "20", "21", PeriodYearly),
		item("150", "1", "0", "21", PeriodStart),
	}
}

func TestCompute_PartitionPreservesMass(t *testing.T) {
	items := propertyItems()
	got := Compute(items)

	groupSum := decimal.Zero
	for _, g := range got.Groups {
		groupSum = groupSum.Add(g.Subtotal)
	}
	itemSum := decimal.Zero
	for _, it := range items {
		itemSum = itemSum.Add(CalcLine(it).ExVAT)
	}
	if !groupSum.Equal(itemSum) {
		t.Errorf("sum of group subtotals = %s, sum of item exVat = %s", groupSum, itemSum)
	}
}

func TestCompute_VATBucketsSumToOneOffVAT(t *testing.T) {
	got := Compute(propertyItems())

	sum := decimal.Zero
	for _, b := range got.VATBuckets {
		sum = sum.Add(b.Amount)
	}
	if !sum.Equal(got.OneOff().VATTotal) {
		t.Errorf("bucket sum = %s, one-off vat = %s", sum, got.OneOff().VATTotal)
	}
}

func TestCompute_GrandTotalIgnoresRecurringItems(t *testing.T) {
	base := []LineItem{
		item("2500", "1", "0", "21", PeriodOneOff),
		item("19.95", "3", "15", "9", PeriodOneOff),
	}
	want := Compute(base).GrandTotal

	for _, p := range []Period{PeriodStart, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly} {
		withRecurring := append([]LineItem{item("999", "2", "0", "21", p)}, base...)
		got := Compute(withRecurring).GrandTotal
		if !got.Equal(want) {
			t.Errorf("adding a %s item changed grand total: %s -> %s", p, want, got)
		}
	}

	oneOff := Compute(base).OneOff()
	if !want.Equal(oneOff.Subtotal.Add(oneOff.VATTotal)) {
		t.Errorf("grand total %s != subtotal + vat", want)
	}
}

func TestCompute_UnrecognizedPeriodFoldsIntoOneOff(t *testing.T) {
	got := Compute([]LineItem{
		item("100", "1", "0", "21", Period("fortnightly")),
		item("50", "1", "0", "21", Period("")),
	})

	oneOff := got.OneOff()
	if len(oneOff.Lines) != 2 {
		t.Fatalf("one-off lines = %d, want 2", len(oneOff.Lines))
	}
	if s := FormatAmount(got.GrandTotal); s != "181.50" {
		t.Errorf("grand total = %s, want 181.50", s)
	}
}

func TestCompute_BucketsOrderedByRate(t *testing.T) {
	got := Compute([]LineItem{
		item("10", "1", "0", "21", PeriodOneOff),
		item("10", "1", "0", "9", PeriodOneOff),
		item("10", "1", "0", "0", PeriodOneOff),
	})

	var rates []string
	for _, b := range got.VATBuckets {
		rates = append(rates, b.Rate.String())
	}
	want := []string{"0", "9", "21"}
	if len(rates) != len(want) {
		t.Fatalf("rates = %v, want %v", rates, want)
	}
	for i := range want {
		if rates[i] != want[i] {
			t.Errorf("rates = %v, want %v", rates, want)
			break
		}
	}
	if n := len(got.VisibleBuckets()); n != 2 {
		t.Errorf("visible buckets = %d, want 2 (0%% hidden)", n)
	}
}

func TestCompute_Empty(t *testing.T) {
	got := Compute(nil)
	if len(got.Groups) != len(Periods) {
		t.Errorf("groups = %d, want %d", len(got.Groups), len(Periods))
	}
	if len(got.NonEmpty()) != 0 {
		t.Errorf("non-empty groups = %d, want 0", len(got.NonEmpty()))
	}
	if !got.GrandTotal.IsZero() {
		t.Errorf("grand total = %s, want 0", got.GrandTotal)
	}
}

func TestGroupedTotals_Summary(t *testing.T) {
	got := Compute([]LineItem{
		item("2500", "1", "0", "21", PeriodOneOff),
		item("80", "1", "0", "21", PeriodMonthly),
	})
	if s := got.Summary("EUR"); s != "€ 3025.00 + € 80.00 p/m" {
		t.Errorf("Summary = %q", s)
	}
}
