package coindash

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ValidateCurrency checks that code is a known ISO 4217 currency code.
func ValidateCurrency(code string) error {
	if code == "" {
		return fmt.Errorf("%w: empty currency code", ErrUnknownCurrency)
	}
	if code != strings.ToUpper(code) || money.GetCurrency(code) == nil {
		return fmt.Errorf("%w: %q is not an ISO currency code", ErrUnknownCurrency, code)
	}
	return nil
}

// Rates maps a currency code to its multiplier against the base currency: one
// unit of base currency is worth rates[code] units of code. The base currency
// itself has a multiplier of 1.
//
// A Rates value is immutable once built, a new fetch produces a new table.
type Rates map[string]decimal.Decimal

// NewRates builds a validated rate table. Every code must be an ISO currency
// and every multiplier strictly positive.
func NewRates(values map[string]decimal.Decimal) (Rates, error) {
	r := make(Rates, len(values))
	for code, v := range values {
		r[code] = v
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Validate checks that every code is an ISO currency and every multiplier
// strictly positive.
func (r Rates) Validate() error {
	for code, v := range r {
		if err := ValidateCurrency(code); err != nil {
			return err
		}
		if !v.IsPositive() {
			return fmt.Errorf("%w: rate for %s must be positive, got %s", ErrInvalidRate, code, v)
		}
	}
	return nil
}

// Has reports whether code is present in the table.
func (r Rates) Has(code string) bool {
	_, ok := r[code]
	return ok
}

// Currencies returns the codes of the table, sorted.
func (r Rates) Currencies() []string {
	return slices.Sorted(maps.Keys(r))
}

// ConvertAmount converts amount expressed in from into to:
//
//	amount * rates[to] / rates[from]
//
// Both codes must be present in rates. Converting to the same currency
// returns amount unchanged.
func ConvertAmount(amount decimal.Decimal, from, to string, rates Rates) (decimal.Decimal, error) {
	src, ok := rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("cannot convert from %q: %w", from, ErrUnknownCurrency)
	}
	dst, ok := rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("cannot convert to %q: %w", to, ErrUnknownCurrency)
	}
	if !src.IsPositive() || !dst.IsPositive() {
		return decimal.Zero, fmt.Errorf("cannot convert %s to %s: %w", from, to, ErrInvalidRate)
	}
	if from == to {
		return amount, nil
	}
	return amount.Mul(dst).Div(src), nil
}

// Convert converts a money into currency to.
func Convert(m Money, to string, rates Rates) (Money, error) {
	v, err := ConvertAmount(m.value, m.cur, to, rates)
	if err != nil {
		return Money{}, err
	}
	return M(v, to), nil
}
