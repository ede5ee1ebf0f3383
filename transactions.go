package coindash

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a transaction.
type Side string

// Transaction sides.
const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// ParseSide parses "buy" or "sell".
func ParseSide(s string) (Side, error) {
	switch Side(s) {
	case Buy, Sell:
		return Side(s), nil
	default:
		return "", fmt.Errorf("unknown transaction side: %q", s)
	}
}

// Transaction is a simulated buy or sell of a coin. Transactions are
// immutable once recorded: corrections are new offsetting transactions.
type Transaction struct {
	Coin     string    // Coin is the symbol of the coin traded.
	Side     Side      // Side is either Buy or Sell.
	Quantity Quantity  // Quantity is the number of coins traded, always positive.
	Price    Money     // Price is the unit price at execution, in the ledger currency.
	Time     time.Time // Time is the execution time, unique in a ledger.
	Memo     string    // Memo is an optional note.
}

// NewBuy creates a buy transaction.
func NewBuy(at time.Time, coin string, quantity Quantity, price Money) Transaction {
	return Transaction{Coin: coin, Side: Buy, Quantity: quantity, Price: price, Time: at}
}

// NewSell creates a sell transaction.
func NewSell(at time.Time, coin string, quantity Quantity, price Money) Transaction {
	return Transaction{Coin: coin, Side: Sell, Quantity: quantity, Price: price, Time: at}
}

// Amount returns the total value of the transaction (quantity × unit price).
func (t Transaction) Amount() Money { return t.Price.Mul(t.Quantity) }

func (t Transaction) Equal(o Transaction) bool {
	return t.Coin == o.Coin &&
		t.Side == o.Side &&
		t.Quantity.Equal(o.Quantity) &&
		t.Price.Equal(o.Price) &&
		t.Time.Equal(o.Time) &&
		t.Memo == o.Memo
}

func (t Transaction) String() string {
	return fmt.Sprintf("%s %s %s %s at %s", t.Time.Format(time.RFC3339), t.Side, t.Quantity, t.Coin, t.Price)
}

// MarshalJSON writes the transaction with a stable field order.
func (t Transaction) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("time", t.Time.UTC().Format(time.RFC3339Nano))
	w.Append("side", t.Side)
	w.Append("coin", t.Coin)
	w.Append("quantity", t.Quantity)
	w.Append("price", t.Price.value)
	w.Optional("currency", t.Price.cur)
	w.Optional("memo", t.Memo)
	return w.MarshalJSON()
}

// UnmarshalJSON reads a transaction written by MarshalJSON.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var temp struct {
		Time     time.Time       `json:"time"`
		Side     Side            `json:"side"`
		Coin     string          `json:"coin"`
		Quantity Quantity        `json:"quantity"`
		Price    decimal.Decimal `json:"price"`
		Currency string          `json:"currency"`
		Memo     string          `json:"memo"`
	}
	if err := json.Unmarshal(data, &temp); err != nil {
		return err
	}
	if _, err := ParseSide(string(temp.Side)); err != nil {
		return err
	}
	*t = Transaction{
		Coin:     temp.Coin,
		Side:     temp.Side,
		Quantity: temp.Quantity,
		Price:    M(temp.Price, temp.Currency),
		Time:     temp.Time,
		Memo:     temp.Memo,
	}
	return nil
}
