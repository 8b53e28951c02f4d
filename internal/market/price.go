package market

import (
	"fmt"

	"github.com/efreitasn/knightsmarket/internal/domain"
)

// PriceValidator enforces the accepted currency and the price bounds. The
// bounds are inclusive and expressed in the currency's minor unit.
type PriceValidator struct {
	Currency domain.Symbol
	Min      int64
	Max      int64
}

// Validate returns a *domain.ValidationError if p cannot be offered on the
// market.
func (v PriceValidator) Validate(p domain.Price) error {
	if p.Symbol != v.Currency {
		return &domain.ValidationError{
			Message: fmt.Sprintf("only %s is accepted, got %s", v.Currency.Code, p.Symbol.Code),
		}
	}
	if !p.IsValid() {
		return &domain.ValidationError{Message: "invalid price"}
	}
	if p.Amount <= 0 {
		return &domain.ValidationError{Message: "price must be positive"}
	}
	if p.Amount < v.Min {
		return &domain.ValidationError{
			Message: fmt.Sprintf("price must be at least %s", domain.Price{Amount: v.Min, Symbol: v.Currency}),
		}
	}
	if p.Amount > v.Max {
		return &domain.ValidationError{
			Message: fmt.Sprintf("price must be at most %s", domain.Price{Amount: v.Max, Symbol: v.Currency}),
		}
	}
	return nil
}
