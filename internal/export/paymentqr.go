package export

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"

	"github.com/quotify/api/internal/quote"
)

var (
	// ErrNoIBAN is returned when the sender has no IBAN to pay to.
	ErrNoIBAN = errors.New("sender has no IBAN")

	// ErrNotPayable is returned when the amount or currency cannot be
	// expressed as a SEPA credit transfer.
	ErrNotPayable = errors.New("amount is not payable by SEPA transfer")
)

var maxEPCAmount = decimal.RequireFromString("999999999.99")

// EPCPayload builds the European Payments Council "BCD" QR payload (version
// 002, UTF-8) for a SEPA credit transfer of the quote's grand total.
func EPCPayload(doc quote.Document) (string, error) {
	s := doc.State
	iban := strings.ReplaceAll(strings.ToUpper(s.Sender.IBAN), " ", "")
	if iban == "" {
		return "", ErrNoIBAN
	}
	if doc.Currency() != "EUR" {
		return "", fmt.Errorf("%w: currency %s", ErrNotPayable, doc.Currency())
	}
	amount := doc.Totals.GrandTotal.Round(2)
	if !amount.IsPositive() || amount.GreaterThan(maxEPCAmount) {
		return "", fmt.Errorf("%w: %s", ErrNotPayable, quote.FormatAmount(amount))
	}

	name := s.Sender.Company
	if name == "" {
		name = s.Sender.Contact
	}
	remittance := strings.TrimSpace(s.Meta.DisplayTitle() + " " + s.Meta.Number)

	lines := []string{
		"BCD",
		"002",
		"1",
		"SCT",
		"", // BIC is optional within the EEA
		truncate(name, 70),
		iban,
		"EUR" + amount.StringFixed(2),
		"",
		"",
		truncate(remittance, 140),
	}
	return strings.Join(lines, "\n"), nil
}

// PaymentQR renders EPCPayload as a PNG of size x size pixels.
func PaymentQR(doc quote.Document, size int) ([]byte, error) {
	payload, err := EPCPayload(doc)
	if err != nil {
		return nil, err
	}
	png, err := qrcode.Encode(payload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encoding payment qr: %w", err)
	}
	return png, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
