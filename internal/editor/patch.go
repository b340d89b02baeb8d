package editor

import "github.com/quotify/api/internal/quote"

// Role selects the address card SetParty edits.
type Role string

const (
	RoleSender Role = "sender"
	RoleClient Role = "client"
)

// PartyPatch is a field-by-field party update; nil fields stay unchanged.
type PartyPatch struct {
	Company   *string `json:"company,omitempty"`
	Contact   *string `json:"contact,omitempty"`
	Address   *string `json:"address,omitempty"`
	Zip       *string `json:"zip,omitempty"`
	City      *string `json:"city,omitempty"`
	Country   *string `json:"country,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Website   *string `json:"website,omitempty"`
	KVK       *string `json:"kvk,omitempty"`
	VAT       *string `json:"vat,omitempty"`
	IBAN      *string `json:"iban,omitempty"`
	Reference *string `json:"reference,omitempty"`
}

func (p PartyPatch) apply(dst *quote.Party) {
	set(&dst.Company, p.Company)
	set(&dst.Contact, p.Contact)
	set(&dst.Address, p.Address)
	set(&dst.Zip, p.Zip)
	set(&dst.City, p.City)
	set(&dst.Country, p.Country)
	set(&dst.Email, p.Email)
	set(&dst.Phone, p.Phone)
	set(&dst.Website, p.Website)
	set(&dst.KVK, p.KVK)
	set(&dst.VAT, p.VAT)
	set(&dst.IBAN, p.IBAN)
	set(&dst.Reference, p.Reference)
}

// MetaPatch updates the document header.
type MetaPatch struct {
	Number     *string       `json:"number,omitempty"`
	Date       *string       `json:"date,omitempty"`
	ValidUntil *string       `json:"validUntil,omitempty"`
	Title      *string       `json:"title,omitempty"`
	Project    *string       `json:"project,omitempty"`
	Currency   *string       `json:"currency,omitempty"`
	Status     *quote.Status `json:"status,omitempty"`
}

func (p MetaPatch) apply(dst *quote.Meta) {
	set(&dst.Number, p.Number)
	set(&dst.Date, p.Date)
	set(&dst.ValidUntil, p.ValidUntil)
	set(&dst.Title, p.Title)
	set(&dst.Project, p.Project)
	set(&dst.Currency, p.Currency)
	set(&dst.Status, p.Status)
}

// SettingsPatch updates the document options.
type SettingsPatch struct {
	PaymentTerm   *int  `json:"paymentTerm,omitempty"`
	ShowSignature *bool `json:"showSignature,omitempty"`
}

func (p SettingsPatch) apply(dst *quote.Settings) {
	set(&dst.PaymentTerm, p.PaymentTerm)
	set(&dst.ShowSignature, p.ShowSignature)
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
