package coindash

import (
	"slices"
	"testing"
)

func TestWatchlist(t *testing.T) {
	w := NewWatchlist()
	calls := 0
	w.Subscribe(func() { calls++ })

	testCases := []struct {
		name      string
		op        func()
		want      []string
		wantCalls int
	}{
		{"add", func() { w.Add("ETH") }, []string{"ETH"}, 1},
		{"add again is a no-op", func() { w.Add("ETH") }, []string{"ETH"}, 1},
		{"add another", func() { w.Add("BTC") }, []string{"ETH", "BTC"}, 2},
		{"remove absent is a no-op", func() { w.Remove("DOGE") }, []string{"ETH", "BTC"}, 2},
		{"remove", func() { w.Remove("ETH") }, []string{"BTC"}, 3},
		{"import drops duplicates", func() { w.Import([]string{"SOL", "BTC", "SOL"}) }, []string{"SOL", "BTC"}, 4},
	}
	for _, tc := range testCases {
		tc.op()
		if got := w.List(); !slices.Equal(got, tc.want) {
			t.Errorf("%s: List() = %v, want %v", tc.name, got, tc.want)
		}
		if calls != tc.wantCalls {
			t.Errorf("%s: notifications = %d, want %d", tc.name, calls, tc.wantCalls)
		}
	}
	if !w.Contains("SOL") || w.Contains("ETH") {
		t.Errorf("Contains() inconsistent with List() = %v", w.List())
	}
}

func TestWatchlist_RoundTrip(t *testing.T) {
	w := NewWatchlist()
	for _, c := range []string{"BTC", "ETH", "ADA"} {
		w.Add(c)
	}
	other := NewWatchlist()
	other.Import(w.Export())
	if !slices.Equal(other.List(), w.List()) {
		t.Errorf("Import(Export()) = %v, want %v", other.List(), w.List())
	}
}
