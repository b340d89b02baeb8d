package editor

import (
	"errors"
	"fmt"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/quotify/api/internal/quote"
)

// Policy controls how strictly edits are checked.
type Policy string

const (
	// PolicyPermissive accepts any numeric input and computes it through,
	// as the editor has always done.
	PolicyPermissive Policy = "permissive"

	// PolicyStrict rejects negative prices and quantities, discounts outside
	// 0 to 100, negative VAT and unknown periods.
	PolicyStrict Policy = "strict"
)

// ParsePolicy maps a config value to a Policy, defaulting to permissive.
func ParsePolicy(s string) Policy {
	if Policy(strings.ToLower(strings.TrimSpace(s))) == PolicyStrict {
		return PolicyStrict
	}
	return PolicyPermissive
}

type itemRules struct {
	ID       string  `validate:"required"`
	Price    float64 `validate:"gte=0"`
	Quantity float64 `validate:"gte=0"`
	Discount float64 `validate:"gte=0,lte=100"`
	VAT      float64 `validate:"gte=0,lte=100"`
	Period   string  `validate:"oneof=one-off start weekly monthly quarterly yearly"`
}

type stateRules struct {
	Items       []itemRules `validate:"dive"`
	Currency    string      `validate:"omitempty,len=3,alpha"`
	PaymentTerm int         `validate:"gte=0,lte=365"`
}

type validator struct {
	policy Policy
	v      *playground.Validate
}

func newValidator(p Policy) *validator {
	if p != PolicyStrict {
		p = PolicyPermissive
	}
	return &validator{policy: p, v: playground.New(playground.WithRequiredStructEnabled())}
}

// state checks s under the strict policy. Permissive accepts everything.
func (v *validator) state(s quote.State) error {
	if v.policy != PolicyStrict {
		return nil
	}
	rules := stateRules{
		Items:       make([]itemRules, len(s.Items)),
		Currency:    s.Meta.Currency,
		PaymentTerm: s.Settings.PaymentTerm,
	}
	for i, it := range s.Items {
		rules.Items[i] = itemRules{
			ID:       string(it.ID),
			Price:    it.Price.InexactFloat64(),
			Quantity: it.Quantity.InexactFloat64(),
			Discount: it.Discount.InexactFloat64(),
			VAT:      it.VAT.InexactFloat64(),
			Period:   string(it.Period),
		}
	}

	err := v.v.Struct(rules)
	if err == nil {
		return nil
	}
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.TrimPrefix(fe.Namespace(), "stateRules."), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
}
