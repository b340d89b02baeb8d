package quote

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrItemNotFound is returned when an action references an unknown line item.
var ErrItemNotFound = errors.New("line item not found")

// ItemID identifies a line item for its whole lifetime.
type ItemID string

// UnmarshalJSON accepts both strings and bare numbers. Snapshots written by
// older clients used millisecond timestamps as ids.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

// NewItemID returns a fresh random identifier.
func NewItemID() ItemID {
	return ItemID(uuid.NewString())
}

// LineItem is one billable row. Only raw input fields live here; derived
// amounts are produced by Compute.
type LineItem struct {
	ID          ItemID          `json:"id"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	VAT         decimal.Decimal `json:"vat"`
	Discount    decimal.Decimal `json:"discount"`
	Period      Period          `json:"period"`
}

// NewLineItem returns the item created by the "add item" action.
func NewLineItem() LineItem {
	return LineItem{
		ID:       NewItemID(),
		Price:    decimal.Zero,
		Quantity: decimal.NewFromInt(1),
		Unit:     "stk",
		VAT:      decimal.NewFromInt(21),
		Discount: decimal.Zero,
		Period:   PeriodOneOff,
	}
}

// DefaultLineItem is the example row a brand-new quote starts with.
func DefaultLineItem() LineItem {
	return LineItem{
		ID:          ItemID("1"),
		Description: "Website Design & Development",
		Price:       decimal.NewFromInt(2500),
		Quantity:    decimal.NewFromInt(1),
		Unit:        "project",
		VAT:         decimal.NewFromInt(21),
		Discount:    decimal.Zero,
		Period:      PeriodOneOff,
	}
}

// ItemPatch carries a field-by-field update. Nil fields are left untouched.
type ItemPatch struct {
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	VAT         *decimal.Decimal `json:"vat,omitempty"`
	Discount    *decimal.Decimal `json:"discount,omitempty"`
	Period      *Period          `json:"period,omitempty"`
}

// Apply copies every set field of p onto item.
func (p ItemPatch) Apply(item *LineItem) {
	if p.Description != nil {
		item.Description = *p.Description
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		item.Unit = *p.Unit
	}
	if p.VAT != nil {
		item.VAT = *p.VAT
	}
	if p.Discount != nil {
		item.Discount = *p.Discount
	}
	if p.Period != nil {
		item.Period = *p.Period
	}
}

// Items is the ordered line-item store. Order is insertion order and is
// preserved by every operation.
type Items []LineItem

// Index returns the position of the item with the given id, or -1.
func (l Items) Index(id ItemID) int {
	for i := range l {
		if l[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns a copy of the item with the given id.
func (l Items) Get(id ItemID) (LineItem, bool) {
	i := l.Index(id)
	if i < 0 {
		return LineItem{}, false
	}
	return l[i], true
}

// Add appends item, assigning an id when it has none.
func (l *Items) Add(item LineItem) LineItem {
	if item.ID == "" {
		item.ID = NewItemID()
	}
	*l = append(*l, item)
	return item
}

// Remove deletes the item with the given id and reports whether it existed.
func (l *Items) Remove(id ItemID) bool {
	i := l.Index(id)
	if i < 0 {
		return false
	}
	*l = append((*l)[:i:i], (*l)[i+1:]...)
	return true
}

// Update applies patch to the item with the given id.
func (l Items) Update(id ItemID, patch ItemPatch) (LineItem, error) {
	i := l.Index(id)
	if i < 0 {
		return LineItem{}, fmt.Errorf("updating item %s: %w", id, ErrItemNotFound)
	}
	patch.Apply(&l[i])
	return l[i], nil
}

// Clone returns a copy that shares no backing array with l.
func (l Items) Clone() Items {
	if l == nil {
		return nil
	}
	out := make(Items, len(l))
	copy(out, l)
	return out
}
