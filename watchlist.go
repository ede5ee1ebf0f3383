package coindash

import (
	"slices"
	"sync"
)

// Watchlist is the set of coins tracked by the user. Coins are listed in
// insertion order.
//
// A Watchlist is safe for concurrent use. Subscribers are notified after each
// effective change, outside of the watchlist lock.
type Watchlist struct {
	mu        sync.Mutex
	coins     []string
	index     map[string]struct{}
	listeners []func()
}

// NewWatchlist creates an empty watchlist.
func NewWatchlist() *Watchlist {
	return &Watchlist{index: make(map[string]struct{})}
}

// Subscribe registers fn to be called after each change.
func (w *Watchlist) Subscribe(fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Add tracks coin. Adding a coin already tracked is a no-op.
func (w *Watchlist) Add(coin string) {
	w.mu.Lock()
	if _, ok := w.index[coin]; ok {
		w.mu.Unlock()
		return
	}
	w.index[coin] = struct{}{}
	w.coins = append(w.coins, coin)
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()
	notify(listeners)
}

// Remove stops tracking coin. Removing an untracked coin is a no-op.
func (w *Watchlist) Remove(coin string) {
	w.mu.Lock()
	if _, ok := w.index[coin]; !ok {
		w.mu.Unlock()
		return
	}
	delete(w.index, coin)
	w.coins = slices.DeleteFunc(w.coins, func(c string) bool { return c == coin })
	listeners := slices.Clone(w.listeners)
	w.mu.Unlock()
	notify(listeners)
}

// Contains reports whether coin is tracked.
func (w *Watchlist) Contains(coin string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.index[coin]
	return ok
}

// List returns the tracked coins in insertion order.
func (w *Watchlist) List() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.coins)
}

// Len returns the number of tracked coins.
func (w *Watchlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.coins)
}

// Export returns the watchlist entries for persistence.
func (w *Watchlist) Export() []string { return w.List() }

// Import replaces the content of the watchlist with coins. Duplicates are
// dropped, the first occurrence wins.
func (w *Watchlist) Import(coins []string) {
	notify(w.replace(coins))
}

// replace swaps the content of the watchlist and returns the listeners to
// notify.
func (w *Watchlist) replace(coins []string) []func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.coins = make([]string, 0, len(coins))
	w.index = make(map[string]struct{}, len(coins))
	for _, c := range coins {
		if _, ok := w.index[c]; ok {
			continue
		}
		w.index[c] = struct{}{}
		w.coins = append(w.coins, c)
	}
	return slices.Clone(w.listeners)
}

func notify(listeners []func()) {
	for _, fn := range listeners {
		fn()
	}
}
