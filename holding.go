package coindash

import "time"

// Holding is the net position on one coin, derived from the ledger. It is
// never stored: it is recomputed by folding the coin's transactions in time
// order.
type Holding struct {
	Coin      string
	Quantity  Quantity // net quantity, buys minus sells
	CostBasis Money    // cost of the coins still held
	Realized  Money    // gains locked in by sells
	Invested  Money    // total spent on buys
	Proceeds  Money    // total received from sells
	LastPrice Money    // unit price of the last transaction
	LastTime  time.Time

	lots lots // open lots, FIFO only
}

// AverageCost returns the cost basis per coin held, zero when nothing is held.
func (h Holding) AverageCost() Money {
	if h.Quantity.IsZero() {
		return M(0, h.CostBasis.Currency())
	}
	return h.CostBasis.Div(h.Quantity)
}

// apply folds tx into the holding. Callers must have checked that a sell does
// not exceed the net quantity.
func (h Holding) apply(tx Transaction, method CostBasisMethod) Holding {
	amount := tx.Amount()
	switch tx.Side {
	case Buy:
		h.Quantity = h.Quantity.Add(tx.Quantity)
		h.CostBasis = h.CostBasis.Add(amount)
		h.Invested = h.Invested.Add(amount)
		if method == FIFO {
			h.lots = append(h.lots, lot{Time: tx.Time, Quantity: tx.Quantity, Cost: amount})
		}
	case Sell:
		var costOfSale Money
		switch method {
		case FIFO:
			costOfSale = h.lots.costOfSelling(tx.Quantity)
			h.lots = h.lots.sell(tx.Quantity)
		default:
			// costBasis -= costBasis * sold / held
			if !h.Quantity.IsZero() {
				costOfSale = h.CostBasis.Mul(tx.Quantity).Div(h.Quantity)
			}
		}
		h.Quantity = h.Quantity.Sub(tx.Quantity)
		h.CostBasis = h.CostBasis.Sub(costOfSale)
		if h.Quantity.IsZero() {
			// nothing left, do not carry rounding residues.
			h.CostBasis = M(0, h.CostBasis.Currency())
		}
		h.Proceeds = h.Proceeds.Add(amount)
		h.Realized = h.Realized.Add(amount.Sub(costOfSale))
	}
	h.LastPrice = tx.Price
	h.LastTime = tx.Time
	return h
}

// equal compares the public figures of two holdings.
func (h Holding) equal(o Holding) bool {
	return h.Coin == o.Coin &&
		h.Quantity.Equal(o.Quantity) &&
		h.CostBasis.Equal(o.CostBasis) &&
		h.Realized.Equal(o.Realized) &&
		h.Invested.Equal(o.Invested) &&
		h.Proceeds.Equal(o.Proceeds) &&
		h.LastPrice.Equal(o.LastPrice) &&
		h.LastTime.Equal(o.LastTime)
}

// fold computes the holding of coin from scratch.
func fold(coin, currency string, txs []Transaction, method CostBasisMethod) Holding {
	h := newHolding(coin, currency)
	for _, tx := range txs {
		if tx.Coin == coin {
			h = h.apply(tx, method)
		}
	}
	return h
}

func newHolding(coin, currency string) Holding {
	zero := M(0, currency)
	return Holding{
		Coin:      coin,
		CostBasis: zero,
		Realized:  zero,
		Invested:  zero,
		Proceeds:  zero,
		LastPrice: zero,
	}
}
