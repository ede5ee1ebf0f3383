package coindash

import (
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"
)

// Ledger is the append-only list of portfolio transactions. It is the single
// source of truth for holdings.
//
// In a Ledger transactions are always in chronological order, and every
// transaction is strictly after the previous one.
//
// A Ledger is safe for concurrent use. Subscribers are notified after each
// append, outside of the ledger lock.
type Ledger struct {
	mu           sync.Mutex
	currency     string // the currency of transaction prices and cost basis
	method       CostBasisMethod
	transactions []Transaction
	coins        []string           // coins in order of first appearance
	tally        map[string]Holding // incremental fold of transactions, by coin
	now          func() time.Time
	listeners    []func()
}

// NewLedger creates an empty ledger whose prices are expressed in currency.
func NewLedger(currency string) (*Ledger, error) {
	if err := ValidateCurrency(currency); err != nil {
		return nil, fmt.Errorf("invalid ledger currency: %w", err)
	}
	return &Ledger{
		currency:     currency,
		transactions: make([]Transaction, 0),
		tally:        make(map[string]Holding),
		now:          time.Now,
	}, nil
}

// Currency returns the ledger currency.
func (l *Ledger) Currency() string { return l.currency }

// CostBasisMethod returns the method used to compute cost basis.
func (l *Ledger) CostBasisMethod() CostBasisMethod {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.method
}

// SetCostBasisMethod changes the cost basis method and recomputes the tally.
func (l *Ledger) SetCostBasisMethod(method CostBasisMethod) {
	l.mu.Lock()
	if l.method == method {
		l.mu.Unlock()
		return
	}
	l.method = method
	l.rebuild()
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()
	notify(listeners)
}

// Subscribe registers fn to be called after each change.
func (l *Ledger) Subscribe(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// RecordBuy appends a buy of quantity coins at unitPrice.
func (l *Ledger) RecordBuy(coin string, quantity Quantity, unitPrice Money, at time.Time) (Transaction, error) {
	return l.Record(NewBuy(at, coin, quantity, unitPrice))
}

// RecordSell appends a sell of quantity coins at unitPrice. It fails with
// ErrInsufficientHolding if quantity exceeds the net quantity held.
func (l *Ledger) RecordSell(coin string, quantity Quantity, unitPrice Money, at time.Time) (Transaction, error) {
	return l.Record(NewSell(at, coin, quantity, unitPrice))
}

// Record validates tx and appends it to the ledger. It returns the
// transaction as recorded, quick fixes applied: a zero time is set to now,
// and a price without currency is set to the ledger currency.
//
// On error the ledger is left unchanged.
func (l *Ledger) Record(tx Transaction) (Transaction, error) {
	l.mu.Lock()
	tx, err := l.validate(tx)
	if err != nil {
		l.mu.Unlock()
		return tx, err
	}
	l.append(tx)
	listeners := slices.Clone(l.listeners)
	l.mu.Unlock()
	notify(listeners)
	return tx, nil
}

// Validate checks tx against the current ledger without recording it.
func (l *Ledger) Validate(tx Transaction) (Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.validate(tx)
}

func (l *Ledger) validate(tx Transaction) (Transaction, error) {
	if tx.Coin == "" {
		return tx, fmt.Errorf("%s transaction coin is missing", tx.Side)
	}
	if _, err := ParseSide(string(tx.Side)); err != nil {
		return tx, err
	}
	if !tx.Quantity.IsPositive() {
		return tx, fmt.Errorf("%s transaction quantity must be positive, got %s: %w", tx.Side, tx.Quantity, ErrInvalidQuantity)
	}
	// first the quick fixes
	if tx.Price.Currency() == "" {
		tx.Price = tx.Price.In(l.currency)
	} else if tx.Price.Currency() != l.currency {
		return tx, fmt.Errorf("%s transaction price is in %s, ledger is in %s: %w", tx.Side, tx.Price.Currency(), l.currency, ErrCurrencyMismatch)
	}
	if tx.Price.IsNegative() {
		return tx, fmt.Errorf("%s transaction price must not be negative, got %s: %w", tx.Side, tx.Price, ErrInvalidPrice)
	}
	if tx.Time.IsZero() {
		tx.Time = l.now()
	}
	if n := len(l.transactions); n > 0 {
		if last := l.transactions[n-1].Time; !tx.Time.After(last) {
			return tx, fmt.Errorf("%s transaction at %s is not after the last one at %s: %w", tx.Side, tx.Time.Format(time.RFC3339Nano), last.Format(time.RFC3339Nano), ErrNonMonotonicTime)
		}
	}
	if tx.Side == Sell {
		held := l.holding(tx.Coin).Quantity
		if held.LessThan(tx.Quantity) {
			return tx, fmt.Errorf("cannot sell %s %s, holding is only %s: %w", tx.Quantity, tx.Coin, held, ErrInsufficientHolding)
		}
	}
	return tx, nil
}

// append adds a validated transaction and updates the tally.
func (l *Ledger) append(tx Transaction) {
	l.transactions = append(l.transactions, tx)
	h, ok := l.tally[tx.Coin]
	if !ok {
		h = newHolding(tx.Coin, l.currency)
		l.coins = append(l.coins, tx.Coin)
	}
	l.tally[tx.Coin] = h.apply(tx, l.method)
}

// rebuild recomputes the tally from the transactions.
func (l *Ledger) rebuild() {
	l.tally = make(map[string]Holding, len(l.coins))
	for _, c := range l.coins {
		l.tally[c] = fold(c, l.currency, l.transactions, l.method)
	}
}

func (l *Ledger) holding(coin string) Holding {
	if h, ok := l.tally[coin]; ok {
		return h
	}
	return newHolding(coin, l.currency)
}

// HoldingFor returns the holding on coin. A coin never traded has a zero
// holding.
func (l *Ledger) HoldingFor(coin string) Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.holding(coin)
}

// Holdings returns the holdings with a non zero net quantity, in order of
// first transaction.
func (l *Ledger) Holdings() []Holding {
	l.mu.Lock()
	defer l.mu.Unlock()
	res := make([]Holding, 0, len(l.coins))
	for _, c := range l.coins {
		if h := l.tally[c]; !h.Quantity.IsZero() {
			res = append(res, h)
		}
	}
	return res
}

// Reconcile checks that the cached tally equals a full fold of the ledger.
func (l *Ledger) Reconcile() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.coins {
		want := fold(c, l.currency, l.transactions, l.method)
		if got := l.tally[c]; !got.equal(want) {
			return fmt.Errorf("tally for %s is out of sync: cached %s @ %s, ledger %s @ %s", c, got.Quantity, got.CostBasis, want.Quantity, want.CostBasis)
		}
	}
	return nil
}

// Len returns the number of transactions.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.transactions)
}

// Transactions returns an iterator over a copy of the transactions, in
// chronological order, that are accepted by all filters.
func (l *Ledger) Transactions(filters ...func(Transaction) bool) iter.Seq2[int, Transaction] {
	l.mu.Lock()
	txs := slices.Clone(l.transactions)
	l.mu.Unlock()
	return func(yield func(int, Transaction) bool) {
		for i, tx := range txs {
			accept := true
			for _, filter := range filters {
				if !filter(tx) {
					accept = false
					break
				}
			}
			if !accept {
				continue
			}
			if !yield(i, tx) {
				return
			}
		}
	}
}

// ByCoin is a Transactions filter keeping transactions on coin.
func ByCoin(coin string) func(Transaction) bool {
	return func(tx Transaction) bool { return tx.Coin == coin }
}

// Export returns a copy of the transactions for persistence.
func (l *Ledger) Export() []Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.transactions)
}

// ImportLedger rebuilds a ledger by replaying txs through validation.
func ImportLedger(currency string, txs []Transaction) (*Ledger, error) {
	l, err := NewLedger(currency)
	if err != nil {
		return nil, err
	}
	for i, tx := range txs {
		if tx.Time.IsZero() {
			return nil, fmt.Errorf("transaction #%d has no time", i)
		}
		if _, err := l.Record(tx); err != nil {
			return nil, fmt.Errorf("transaction #%d: %w", i, err)
		}
	}
	return l, nil
}

// Import replaces the transactions of l with txs. txs are validated as a
// whole first; on error l is left unchanged.
func (l *Ledger) Import(txs []Transaction) error {
	replay, err := ImportLedger(l.currency, txs)
	if err != nil {
		return err
	}
	notify(l.replace(replay))
	return nil
}

// replace swaps the transactions of l with those of replay and returns the
// listeners to notify.
func (l *Ledger) replace(replay *Ledger) []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transactions = replay.transactions
	l.coins = replay.coins
	l.rebuild()
	return slices.Clone(l.listeners)
}
