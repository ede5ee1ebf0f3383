package store

import (
	"context"
	"slices"
	"sync"

	"github.com/etnz/coindash"
)

// Memory implements Store in memory. Used for testing, nothing is persisted.
type Memory struct {
	mu    sync.Mutex
	state coindash.State
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(_ context.Context) (coindash.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.state), nil
}

func (m *Memory) Save(_ context.Context, s coindash.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Store a copy to avoid external mutation.
	m.state = clone(s)
	return nil
}

func clone(s coindash.State) coindash.State {
	s.Watchlist = slices.Clone(s.Watchlist)
	s.Transactions = slices.Clone(s.Transactions)
	return s
}
