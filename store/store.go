// Package store persists the dashboard state, the watchlist and the ledger.
// Implementations include a JSONL file (local first), Redis, and in-memory
// (for testing).
package store

import (
	"context"

	"github.com/etnz/coindash"
)

// Store is the persistence interface.
type Store interface {
	// Load returns the saved state. A store that was never saved returns an
	// empty state.
	Load(ctx context.Context) (coindash.State, error)

	// Save replaces the saved state with s.
	Save(ctx context.Context, s coindash.State) error
}

// Load loads the state from st into d. An empty store leaves d unchanged.
func Load(ctx context.Context, st Store, d *coindash.Dashboard) error {
	s, err := st.Load(ctx)
	if err != nil {
		return err
	}
	if s.Currency == "" && len(s.Watchlist) == 0 && len(s.Transactions) == 0 {
		return nil
	}
	return d.Import(s)
}

// Save saves the state of d into st.
func Save(ctx context.Context, st Store, d *coindash.Dashboard) error {
	return st.Save(ctx, d.Export())
}
