package quote

// Period is the billing cadence of a line item.
type Period string

const (
	PeriodOneOff    Period = "one-off"
	PeriodStart     Period = "start"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Periods lists every recognized period in display order.
var Periods = []Period{
	PeriodOneOff,
	PeriodStart,
	PeriodWeekly,
	PeriodMonthly,
	PeriodQuarterly,
	PeriodYearly,
}

var periodLabels = map[Period]string{
	PeriodOneOff:    "Eenmalige Investering",
	PeriodStart:     "Opstartkosten",
	PeriodWeekly:    "Wekelijkse Kosten",
	PeriodMonthly:   "Maandelijkse Kosten",
	PeriodQuarterly: "Kosten per Kwartaal",
	PeriodYearly:    "Jaarlijkse Kosten",
}

// Valid reports whether p is one of the six recognized periods.
func (p Period) Valid() bool {
	_, ok := periodLabels[p]
	return ok
}

// Normalize maps any unrecognized value, including the empty string, to
// PeriodOneOff. Every consumer of line items goes through this, so the
// preview and the export can never disagree on grouping.
func (p Period) Normalize() Period {
	if p.Valid() {
		return p
	}
	return PeriodOneOff
}

// Label returns the group heading shown above the period's table.
func (p Period) Label() string {
	return periodLabels[p.Normalize()]
}

// Recurring reports whether the period repeats. Recurring groups are
// reported at their per-period rate and never count towards the grand total.
func (p Period) Recurring() bool {
	return p.Normalize() != PeriodOneOff
}

// Suffix is the short per-period marker used in summaries ("p/m").
func (p Period) Suffix() string {
	switch p.Normalize() {
	case PeriodWeekly:
		return "p/w"
	case PeriodMonthly:
		return "p/m"
	case PeriodQuarterly:
		return "p/kw"
	case PeriodYearly:
		return "p/j"
	case PeriodStart:
		return "eenmalig bij start"
	}
	return ""
}
