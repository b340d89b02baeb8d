package quote

import (
	"strings"

	"github.com/shopspring/decimal"
)

var currencySymbols = map[string]string{
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
}

// FormatAmount rounds d half away from zero to exactly two decimal places.
// This is the only place a computed figure is rounded.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatMoney prefixes FormatAmount with the currency symbol, or with the
// ISO code when no symbol is known. An empty currency means EUR.
func FormatMoney(currency string, d decimal.Decimal) string {
	return CurrencySymbol(currency) + " " + FormatAmount(d)
}

// CurrencySymbol returns the display symbol for an ISO currency code.
func CurrencySymbol(currency string) string {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if code == "" {
		code = "EUR"
	}
	if sym, ok := currencySymbols[code]; ok {
		return sym
	}
	return code
}

// FormatQuantity prints whole quantities without decimals and fractional
// ones as entered.
func FormatQuantity(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.String()
}

// FormatPercent prints a rate without trailing zeros, e.g. "21" or "5.5".
func FormatPercent(d decimal.Decimal) string {
	return d.String()
}
