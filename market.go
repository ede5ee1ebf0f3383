package coindash

import (
	"fmt"
	"iter"
	"slices"
	"time"
)

// Coin is one row of a market snapshot. Monetary fields are expressed in the
// market's base currency.
type Coin struct {
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	Rank      int      `json:"rank"`
	Price     Money    `json:"price"`
	Change24h Percent  `json:"change24h"`
	Change7d  Percent  `json:"change7d"`
	MarketCap Money    `json:"marketCap"`
	Volume24h Money    `json:"volume24h"`
	Supply    Quantity `json:"supply"`
}

// Market is a complete, immutable market data pull for all tracked coins.
// Coins are kept in rank order.
type Market struct {
	base    string
	fetched time.Time
	coins   []Coin
	index   map[string]int // index coins by symbol
}

// NewMarket validates coins and builds a market snapshot in base currency.
//
// Symbols must be non empty and unique, ranks positive and unique, and every
// monetary field non negative and in the base currency (a field without a
// currency is quick fixed to base).
func NewMarket(base string, fetched time.Time, coins []Coin) (*Market, error) {
	if err := ValidateCurrency(base); err != nil {
		return nil, fmt.Errorf("%w: base currency: %w", ErrInvalidMarket, err)
	}
	m := &Market{
		base:    base,
		fetched: fetched,
		coins:   make([]Coin, 0, len(coins)),
		index:   make(map[string]int, len(coins)),
	}
	ranks := make(map[int]string, len(coins))
	for _, c := range coins {
		if c.Symbol == "" {
			return nil, fmt.Errorf("%w: coin %q has no symbol", ErrInvalidMarket, c.Name)
		}
		if _, dup := m.index[c.Symbol]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidMarket, c.Symbol)
		}
		if c.Rank <= 0 {
			return nil, fmt.Errorf("%w: %s rank must be positive, got %d", ErrInvalidMarket, c.Symbol, c.Rank)
		}
		if other, dup := ranks[c.Rank]; dup {
			return nil, fmt.Errorf("%w: %s and %s share rank %d", ErrInvalidMarket, other, c.Symbol, c.Rank)
		}
		ranks[c.Rank] = c.Symbol

		for _, f := range []*Money{&c.Price, &c.MarketCap, &c.Volume24h} {
			if f.cur == "" {
				*f = f.In(base)
			}
			if f.cur != base {
				return nil, fmt.Errorf("%w: %s has a %s value in a %s market", ErrInvalidMarket, c.Symbol, f.cur, base)
			}
			if f.IsNegative() {
				return nil, fmt.Errorf("%w: %s has a negative value %s", ErrInvalidMarket, c.Symbol, f.value)
			}
		}
		m.index[c.Symbol] = 0
		m.coins = append(m.coins, c)
	}
	slices.SortStableFunc(m.coins, func(a, b Coin) int { return a.Rank - b.Rank })
	for i, c := range m.coins {
		m.index[c.Symbol] = i
	}
	return m, nil
}

// Base returns the currency prices are natively expressed in.
func (m *Market) Base() string { return m.base }

// Fetched returns the time the snapshot was pulled.
func (m *Market) Fetched() time.Time { return m.fetched }

// Len returns the number of coins.
func (m *Market) Len() int { return len(m.coins) }

// Coins returns a copy of the coins in rank order.
func (m *Market) Coins() []Coin { return slices.Clone(m.coins) }

// All returns an iterator over the coins in rank order.
func (m *Market) All() iter.Seq[Coin] {
	return func(yield func(Coin) bool) {
		for _, c := range m.coins {
			if !yield(c) {
				return
			}
		}
	}
}

// Coin returns the coin with this symbol.
func (m *Market) Coin(symbol string) (Coin, bool) {
	i, ok := m.index[symbol]
	if !ok {
		return Coin{}, false
	}
	return m.coins[i], true
}

// Prices returns the current price of every coin by symbol.
func (m *Market) Prices() map[string]Money {
	prices := make(map[string]Money, len(m.coins))
	for _, c := range m.coins {
		prices[c.Symbol] = c.Price
	}
	return prices
}

// Filter returns the coins matching query, see Filter.
func (m *Market) Filter(query string) []Coin { return Filter(m.coins, query) }
