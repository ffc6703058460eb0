package pricing

import (
	"errors"

	"homeease/internal/domain/promo"
	"homeease/internal/domain/shared/money"
)

var (
	ErrNoLineItems     = errors.New("pricing: at least one line item is required")
	ErrInvalidQuantity = errors.New("pricing: quantity must be positive")
	ErrCurrencyUnset   = errors.New("pricing: currency must be defined")
)

// ServiceChargeAmount is the fixed platform fee applied to every booking.
const ServiceChargeAmount int64 = 99

// LineInput is one priced line: the caller passes the unit price snapshotted
// from the catalog at call time.
type LineInput struct {
	UnitPrice money.Money
	Quantity  int
}

// Quote is the immutable pricing snapshot embedded into a booking at
// creation. Total = Subtotal + ServiceCharges - Discount; the total is not
// clamped at zero, so a fixed discount larger than subtotal plus fee drives
// it negative.
type Quote struct {
	Subtotal       money.Money
	ServiceCharges money.Money
	Discount       money.Money
	Total          money.Money
}

// PromoApplied records the code and resolved deduction when a known promo
// code participated in the quote.
type PromoApplied struct {
	Code           string
	DiscountAmount money.Money
}

// Compute derives the pricing snapshot for the given lines and optional
// promo code. It is a pure function: same inputs always produce the same
// quote. Unknown codes resolve silently to a zero discount.
func Compute(lines []LineInput, promos promo.Table, code string) (Quote, *PromoApplied, error) {
	if len(lines) == 0 {
		return Quote{}, nil, ErrNoLineItems
	}
	currency := lines[0].UnitPrice.Currency
	if currency == "" {
		return Quote{}, nil, ErrCurrencyUnset
	}
	var subtotal int64
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Quote{}, nil, ErrInvalidQuantity
		}
		if line.UnitPrice.Currency != currency {
			return Quote{}, nil, money.ErrCurrencyMismatch
		}
		subtotal += line.UnitPrice.Amount * int64(line.Quantity)
	}

	discount := int64(0)
	var applied *PromoApplied
	if promos != nil && code != "" && promos.Known(code) {
		discount = promos.Discount(code, subtotal)
		applied = &PromoApplied{
			Code:           code,
			DiscountAmount: money.Money{Amount: discount, Currency: currency},
		}
	}

	quote := Quote{
		Subtotal:       money.Money{Amount: subtotal, Currency: currency},
		ServiceCharges: money.Money{Amount: ServiceChargeAmount, Currency: currency},
		Discount:       money.Money{Amount: discount, Currency: currency},
		Total:          money.Money{Amount: subtotal + ServiceChargeAmount - discount, Currency: currency},
	}
	return quote, applied, nil
}

// Validate checks structural sanity of a stored quote.
func (q Quote) Validate() error {
	if q.Subtotal.Currency == "" || q.Total.Currency == "" {
		return ErrCurrencyUnset
	}
	return nil
}
