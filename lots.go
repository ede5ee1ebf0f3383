package coindash

import "time"

// lot represents a single purchase of a coin, used for FIFO cost basis.
type lot struct {
	Time     time.Time
	Quantity Quantity
	Cost     Money // Total cost of the lot (quantity * price)
}

type lots []lot

// costOfSelling returns the cost of the first quantity coins held.
func (l lots) costOfSelling(quantity Quantity) Money {
	var cost Money
	for _, current := range l {
		if current.Quantity.GreaterThan(quantity) {
			// Partial sale from this lot
			return cost.Add(current.Cost.Mul(quantity).Div(current.Quantity))
		}
		cost = cost.Add(current.Cost)
		quantity = quantity.Sub(current.Quantity)
	}
	return cost
}

// sell removes quantity coins from the oldest lots.
func (l lots) sell(quantity Quantity) lots {
	var remaining lots
	for _, current := range l {
		if quantity.IsZero() {
			remaining = append(remaining, current)
			continue
		}
		if current.Quantity.GreaterThan(quantity) {
			// Partial sale from this lot
			sold := current.Cost.Mul(quantity).Div(current.Quantity)
			remaining = append(remaining, lot{
				Time:     current.Time,
				Quantity: current.Quantity.Sub(quantity),
				Cost:     current.Cost.Sub(sold),
			})
			quantity = Q(0)
		} else {
			quantity = quantity.Sub(current.Quantity)
		}
	}
	return remaining
}
