package coindash

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/etnz/coindash/metrics"
)

// Settings is the display configuration passed explicitly to the dashboard.
type Settings struct {
	ActiveCurrency string // currency every monetary value is displayed in
	Rates          Rates  // multipliers against the market base currency
}

// Row is a market table row: the coin joined with its watchlist membership
// and its monetary fields converted to the display currency.
type Row struct {
	Coin
	Watched bool
}

// WatchRow is a watchlist entry. Coins absent from the current market are kept
// with Known set to false and no pricing.
type WatchRow struct {
	Row
	Known bool
}

// View is the complete derived state handed to a renderer. A View is never
// modified once published.
type View struct {
	Seq       uint64    // sequence of the market snapshot in use
	Fetched   time.Time // fetch time of the market snapshot in use
	Query     string
	Currency  string // display currency actually used
	Rows      []Row  // filtered market rows, rank order
	Total     int    // number of coins in the market before filtering
	Watchlist []WatchRow
	Portfolio *Valuation
	Warning   string // set when the display fell back to the base currency
}

// Dashboard is the controller deriving views from a market snapshot, a query,
// the display settings, a watchlist and a ledger.
//
// Any input change recomputes the whole view under a single lock, in a fixed
// order: filter, join the watchlist, convert, valuate the portfolio. Readers
// only ever observe a fully previous or fully current View.
type Dashboard struct {
	watchlist *Watchlist
	ledger    *Ledger

	mu       sync.Mutex
	market   *Market
	seq      uint64 // sequence of market
	rateSeq  uint64 // sequence of settings.Rates
	query    string
	settings Settings
	view     *View
}

// NewDashboard creates a dashboard over the stores. The view is empty until
// a market snapshot is applied.
func NewDashboard(watchlist *Watchlist, ledger *Ledger, settings Settings) (*Dashboard, error) {
	if err := validateSettings(settings, ledger.Currency()); err != nil {
		return nil, err
	}
	d := &Dashboard{
		watchlist: watchlist,
		ledger:    ledger,
		settings:  settings,
	}
	watchlist.Subscribe(d.recompute)
	ledger.Subscribe(d.recompute)
	d.recompute()
	return d, nil
}

func validateSettings(s Settings, base string) error {
	if err := s.Rates.Validate(); err != nil {
		return err
	}
	if !s.Rates.Has(base) {
		return fmt.Errorf("rate table lacks base currency %q: %w", base, ErrUnknownCurrency)
	}
	if !s.Rates.Has(s.ActiveCurrency) {
		return fmt.Errorf("cannot display %q: %w", s.ActiveCurrency, ErrUnknownCurrency)
	}
	return nil
}

// Watchlist returns the watchlist store.
func (d *Dashboard) Watchlist() *Watchlist { return d.watchlist }

// Ledger returns the portfolio store.
func (d *Dashboard) Ledger() *Ledger { return d.ledger }

// View returns the last complete view.
func (d *Dashboard) View() *View {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Market returns the market snapshot in use, nil if none was applied yet.
func (d *Dashboard) Market() *Market {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.market
}

// Settings returns the current display settings.
func (d *Dashboard) Settings() Settings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settings
}

// SetQuery changes the market filter query.
func (d *Dashboard) SetQuery(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.query = query
	d.recomputeLocked()
}

// SetCurrency switches the display currency. It fails with ErrUnknownCurrency
// if the current rate table lacks currency, leaving the view unchanged.
func (d *Dashboard) SetCurrency(currency string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.settings.Rates.Has(currency) {
		return fmt.Errorf("cannot display %q: %w", currency, ErrUnknownCurrency)
	}
	d.settings.ActiveCurrency = currency
	d.recomputeLocked()
	return nil
}

// ApplyMarket replaces the market snapshot with m, fetched as sequence seq.
// A snapshot older than the one in use is discarded and ApplyMarket returns
// false.
func (d *Dashboard) ApplyMarket(seq uint64, m *Market) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.market != nil && seq <= d.seq {
		log.Printf("discard market snapshot #%d, #%d already applied", seq, d.seq)
		metrics.SnapshotsDiscarded.WithLabelValues("market").Inc()
		return false
	}
	if !d.settings.Rates.Has(m.Base()) {
		log.Printf("discard market snapshot #%d: no rate for base currency %s", seq, m.Base())
		metrics.SnapshotsDiscarded.WithLabelValues("market").Inc()
		return false
	}
	d.market, d.seq = m, seq
	metrics.SnapshotsApplied.WithLabelValues("market").Inc()
	metrics.MarketCoins.Set(float64(m.Len()))
	d.recomputeLocked()
	return true
}

// ApplyRates replaces the rate table with rates, fetched as sequence seq.
// Rates older than the ones in use are discarded, so are invalid rates and
// rates lacking the ledger currency or the market base currency. If rates
// lack the active currency, the view falls back to the base currency with a
// warning.
func (d *Dashboard) ApplyRates(seq uint64, rates Rates) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq <= d.rateSeq {
		log.Printf("discard rates #%d, #%d already applied", seq, d.rateSeq)
		metrics.SnapshotsDiscarded.WithLabelValues("rates").Inc()
		return false
	}
	if err := rates.Validate(); err != nil {
		log.Printf("discard rates #%d: %v", seq, err)
		metrics.SnapshotsDiscarded.WithLabelValues("rates").Inc()
		return false
	}
	if !rates.Has(d.ledger.Currency()) || (d.market != nil && !rates.Has(d.market.Base())) {
		log.Printf("discard rates #%d: base currency missing", seq)
		metrics.SnapshotsDiscarded.WithLabelValues("rates").Inc()
		return false
	}
	d.settings.Rates, d.rateSeq = rates, seq
	metrics.SnapshotsApplied.WithLabelValues("rates").Inc()
	d.recomputeLocked()
	return true
}

// Watch adds coin to the watchlist.
func (d *Dashboard) Watch(coin string) { d.watchlist.Add(coin) }

// Unwatch removes coin from the watchlist.
func (d *Dashboard) Unwatch(coin string) { d.watchlist.Remove(coin) }

// Record records tx in the ledger, see Ledger.Record.
func (d *Dashboard) Record(tx Transaction) (Transaction, error) {
	tx, err := d.ledger.Record(tx)
	countTransaction(tx.Side, err)
	return tx, err
}

// Buy records a buy in the ledger.
func (d *Dashboard) Buy(coin string, quantity Quantity, unitPrice Money, at time.Time) (Transaction, error) {
	return d.Record(NewBuy(at, coin, quantity, unitPrice))
}

// Sell records a sell in the ledger.
func (d *Dashboard) Sell(coin string, quantity Quantity, unitPrice Money, at time.Time) (Transaction, error) {
	return d.Record(NewSell(at, coin, quantity, unitPrice))
}

// SellAll sells the whole net quantity held on coin.
func (d *Dashboard) SellAll(coin string, unitPrice Money, at time.Time) (Transaction, error) {
	held := d.ledger.HoldingFor(coin).Quantity
	if held.IsZero() {
		err := fmt.Errorf("nothing to sell on %s: %w", coin, ErrInsufficientHolding)
		countTransaction(Sell, err)
		return Transaction{}, err
	}
	return d.Sell(coin, held, unitPrice, at)
}

func countTransaction(side Side, err error) {
	switch {
	case err == nil:
		metrics.TransactionsRecorded.WithLabelValues(string(side)).Inc()
	case errors.Is(err, ErrInvalidQuantity):
		metrics.TransactionsRejected.WithLabelValues("invalid_quantity").Inc()
	case errors.Is(err, ErrInsufficientHolding):
		metrics.TransactionsRejected.WithLabelValues("insufficient_holding").Inc()
	default:
		metrics.TransactionsRejected.WithLabelValues("invalid").Inc()
	}
}

// recompute is the store change listener.
func (d *Dashboard) recompute() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recomputeLocked()
}

// recomputeLocked derives a new view and publishes it. d.mu must be held.
func (d *Dashboard) recomputeLocked() {
	start := time.Now()
	defer func() { metrics.RecomputeDuration.Observe(time.Since(start).Seconds()) }()

	v := &View{Seq: d.seq, Query: d.query, Currency: d.settings.ActiveCurrency}
	rates := d.settings.Rates
	base := d.ledger.Currency()
	if d.market != nil {
		base = d.market.Base()
		v.Fetched = d.market.Fetched()
		v.Total = d.market.Len()
	}
	if !rates.Has(v.Currency) {
		v.Warning = fmt.Sprintf("no exchange rate for %s, values are displayed in %s", v.Currency, base)
		v.Currency = base
	}

	// 1. filter
	var coins []Coin
	if d.market != nil {
		coins = d.market.Filter(d.query)
	}

	// 2. join the watchlist
	watched := d.watchlist.List()
	isWatched := make(map[string]bool, len(watched))
	for _, symbol := range watched {
		isWatched[symbol] = true
	}
	v.Rows = make([]Row, len(coins))
	for i, c := range coins {
		v.Rows[i] = Row{Coin: c, Watched: isWatched[c.Symbol]}
	}
	for _, symbol := range watched {
		w := WatchRow{Row: Row{Coin: Coin{Symbol: symbol}, Watched: true}}
		if d.market != nil {
			if c, ok := d.market.Coin(symbol); ok {
				w.Coin, w.Known = c, true
			}
		}
		v.Watchlist = append(v.Watchlist, w)
	}

	// 3. convert
	for i := range v.Rows {
		v.Rows[i].Coin = convertCoin(v.Rows[i].Coin, v.Currency, rates)
	}
	for i := range v.Watchlist {
		if v.Watchlist[i].Known {
			v.Watchlist[i].Coin = convertCoin(v.Watchlist[i].Coin, v.Currency, rates)
		}
	}

	// 4. valuate the portfolio
	var prices map[string]Money
	if d.market != nil {
		prices = d.market.Prices()
	}
	p, err := d.ledger.Valuate(prices, v.Currency, rates)
	if err != nil {
		// rates were validated on apply, this is a broken invariant.
		log.Printf("cannot valuate portfolio in %s: %v", v.Currency, err)
		p = &Valuation{Currency: v.Currency}
		v.Warning = err.Error()
	}
	v.Portfolio = p

	d.view = v
	metrics.Recomputations.Inc()
}

// convertCoin converts the monetary fields of c. Rates are validated to hold
// both currencies, a failing conversion keeps the base currency values.
func convertCoin(c Coin, target string, rates Rates) Coin {
	for _, f := range []*Money{&c.Price, &c.MarketCap, &c.Volume24h} {
		if m, err := Convert(*f, target, rates); err == nil {
			*f = m
		}
	}
	return c
}
