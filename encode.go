package coindash

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// State is the persisted form of the dashboard stores: the watchlist entries
// and the ledger transactions, with no additional semantics.
type State struct {
	Currency     string        `json:"currency"`
	Watchlist    []string      `json:"watchlist,omitempty"`
	Transactions []Transaction `json:"transactions,omitempty"`
}

// header is the first line of an encoded state.
type header struct {
	Currency  string   `json:"currency"`
	Watchlist []string `json:"watchlist"`
}

// MarshalJSON writes the header with a stable field order.
func (h header) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Append("currency", h.Currency)
	w.Append("watchlist", h.Watchlist)
	return w.MarshalJSON()
}

// Export returns the state of the dashboard stores.
func (d *Dashboard) Export() State {
	return State{
		Currency:     d.ledger.Currency(),
		Watchlist:    d.watchlist.Export(),
		Transactions: d.ledger.Export(),
	}
}

// Import replaces the content of the dashboard stores with s. If the
// transactions are invalid nothing is changed.
//
// Both stores are swapped and the view recomputed under the dashboard lock:
// store listeners are notified afterwards, and never observe a view mixing
// the previous and the imported state.
func (d *Dashboard) Import(s State) error {
	if s.Currency != "" && s.Currency != d.ledger.Currency() {
		return fmt.Errorf("cannot import a %s ledger into a %s ledger: %w", s.Currency, d.ledger.Currency(), ErrCurrencyMismatch)
	}
	replay, err := ImportLedger(d.ledger.Currency(), s.Transactions)
	if err != nil {
		return fmt.Errorf("invalid ledger: %w", err)
	}
	d.mu.Lock()
	ledgerListeners := d.ledger.replace(replay)
	watchlistListeners := d.watchlist.replace(s.Watchlist)
	d.recomputeLocked()
	d.mu.Unlock()

	notify(ledgerListeners)
	notify(watchlistListeners)
	return nil
}

// EncodeState writes s in JSONL format: a header line with the currency and
// the watchlist, then one line per transaction in chronological order.
func EncodeState(w io.Writer, s State) error {
	watchlist := s.Watchlist
	if watchlist == nil {
		watchlist = []string{}
	}
	if err := encodeLine(w, header{Currency: s.Currency, Watchlist: watchlist}); err != nil {
		return err
	}
	for _, tx := range s.Transactions {
		if err := encodeLine(w, tx); err != nil {
			return err
		}
	}
	return nil
}

func encodeLine(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %T: %w", v, err)
	}
	return nil
}

// DecodeState reads a state written by EncodeState. Empty lines are skipped.
// An empty input decodes to an empty state.
func DecodeState(r io.Reader) (State, error) {
	var s State
	scanner := bufio.NewScanner(r)
	first := true
	line := 0
	for scanner.Scan() {
		line++
		lineBytes := scanner.Bytes()
		if len(lineBytes) == 0 {
			continue // Skip empty lines
		}
		if first {
			first = false
			var h header
			if err := json.Unmarshal(lineBytes, &h); err != nil {
				return State{}, fmt.Errorf("line %d: invalid header: %w", line, err)
			}
			s.Currency = h.Currency
			if len(h.Watchlist) > 0 {
				s.Watchlist = h.Watchlist
			}
			continue
		}
		var tx Transaction
		if err := json.Unmarshal(lineBytes, &tx); err != nil {
			return State{}, fmt.Errorf("line %d: invalid transaction %q: %w", line, string(lineBytes), err)
		}
		s.Transactions = append(s.Transactions, tx)
	}
	if err := scanner.Err(); err != nil {
		return State{}, fmt.Errorf("error reading from input: %w", err)
	}
	return s, nil
}
