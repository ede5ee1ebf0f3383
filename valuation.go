package coindash

import "fmt"

// Position is the valuation of one holding in the display currency.
type Position struct {
	Holding
	Price     Money // current unit price, or last transaction price when Stale
	Value     Money // Quantity × Price
	Cost      Money // cost basis
	Gain      Money // Value - Cost
	Realized  Money // realized gains
	Stale     bool  // no current price, valued at the last transaction price
	Weight    Percent
	GainRatio Percent // Gain / Cost
}

// Valuation is the portfolio summary in a display currency.
type Valuation struct {
	Currency  string
	Positions []Position
	Total     Money // sum of position values
	Cost      Money // sum of position cost basis
	Gain      Money // Total - Cost
	Realized  Money // sum of realized gains, including closed positions
	Stale     int   // number of stale positions
}

// Valuate values holdings in currency target.
//
// prices gives the current unit price of each coin, in any currency present in
// rates. A coin without a current price is valued at its last transaction
// price and flagged as stale: it never aborts the aggregate. closed holdings
// only contribute their realized gains.
func Valuate(holdings []Holding, prices map[string]Money, target string, rates Rates) (*Valuation, error) {
	if !rates.Has(target) {
		return nil, fmt.Errorf("cannot value portfolio in %q: %w", target, ErrUnknownCurrency)
	}
	zero := M(0, target)
	v := &Valuation{
		Currency:  target,
		Positions: make([]Position, 0, len(holdings)),
		Total:     zero,
		Cost:      zero,
		Gain:      zero,
		Realized:  zero,
	}
	for _, h := range holdings {
		realized, err := Convert(h.Realized, target, rates)
		if err != nil {
			return nil, fmt.Errorf("realized gains of %s: %w", h.Coin, err)
		}
		v.Realized = v.Realized.Add(realized)
		if h.Quantity.IsZero() {
			continue
		}

		p := Position{Holding: h, Realized: realized}
		price, ok := prices[h.Coin]
		if !ok {
			price, p.Stale = h.LastPrice, true
			v.Stale++
		}
		if p.Price, err = Convert(price, target, rates); err != nil {
			return nil, fmt.Errorf("price of %s: %w", h.Coin, err)
		}
		if p.Cost, err = Convert(h.CostBasis, target, rates); err != nil {
			return nil, fmt.Errorf("cost basis of %s: %w", h.Coin, err)
		}
		p.Value = p.Price.Mul(h.Quantity)
		p.Gain = p.Value.Sub(p.Cost)
		if !p.Cost.IsZero() {
			p.GainRatio = Percent(p.Gain.value.Div(p.Cost.value).Shift(2).InexactFloat64())
		}
		v.Total = v.Total.Add(p.Value)
		v.Cost = v.Cost.Add(p.Cost)
		v.Positions = append(v.Positions, p)
	}
	v.Gain = v.Total.Sub(v.Cost)
	if !v.Total.IsZero() {
		for i := range v.Positions {
			p := &v.Positions[i]
			p.Weight = Percent(p.Value.value.Div(v.Total.value).Shift(2).InexactFloat64())
		}
	}
	return v, nil
}

// Valuate values all the ledger holdings, see Valuate.
func (l *Ledger) Valuate(prices map[string]Money, target string, rates Rates) (*Valuation, error) {
	l.mu.Lock()
	holdings := make([]Holding, 0, len(l.coins))
	for _, c := range l.coins {
		holdings = append(holdings, l.tally[c])
	}
	l.mu.Unlock()
	return Valuate(holdings, prices, target, rates)
}

// TotalValue returns the total value of the holdings in target, see Valuate.
func (l *Ledger) TotalValue(prices map[string]Money, target string, rates Rates) (Money, error) {
	v, err := l.Valuate(prices, target, rates)
	if err != nil {
		return Money{}, err
	}
	return v.Total, nil
}
