package coindash

import "errors"

// Errors reported by the dashboard core. They are returned wrapped with
// details, match them with errors.Is.
var (
	// ErrInvalidQuantity reports a transaction quantity that is not strictly positive.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInsufficientHolding reports a sell exceeding the net quantity held.
	ErrInsufficientHolding = errors.New("insufficient holding")
	// ErrUnknownCurrency reports a currency absent from the rate table.
	ErrUnknownCurrency = errors.New("unknown currency")
	// ErrInvalidPrice reports a negative price.
	ErrInvalidPrice = errors.New("invalid price")
	// ErrCurrencyMismatch reports a price in a currency other than the ledger's.
	ErrCurrencyMismatch = errors.New("currency mismatch")
	// ErrNonMonotonicTime reports a transaction that is not strictly after the last one.
	ErrNonMonotonicTime = errors.New("non monotonic transaction time")
	// ErrInvalidRate reports an exchange rate that is not strictly positive.
	ErrInvalidRate = errors.New("invalid exchange rate")
	// ErrInvalidMarket reports a market snapshot breaking its invariants.
	ErrInvalidMarket = errors.New("invalid market snapshot")
)
