package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/etnz/coindash"
	"github.com/shopspring/decimal"
)

const marketsJSON = `[
  {"id": "bitcoin", "symbol": "btc", "name": "Bitcoin", "current_price": 50000, "market_cap": 980000000000, "market_cap_rank": 1, "total_volume": 31000000000, "circulating_supply": 19600000, "price_change_percentage_24h": -1.25, "price_change_percentage_7d_in_currency": 3.5},
  {"id": "tether", "symbol": "usdt", "name": "Tether", "current_price": 1, "market_cap": 110000000000, "market_cap_rank": 3, "total_volume": 50000000000, "circulating_supply": 110000000000, "price_change_percentage_24h": 0.01, "price_change_percentage_7d_in_currency": null},
  {"id": "ethereum", "symbol": "eth", "name": "Ethereum", "current_price": 3000, "market_cap": 360000000000, "market_cap_rank": 2, "total_volume": 15000000000, "circulating_supply": 120000000, "price_change_percentage_24h": 2.5},
  {"id": "bitcoin-wannabe", "symbol": "btc", "name": "Bitcoin Wannabe", "current_price": 0.01, "market_cap_rank": 4000},
  {"id": "unranked", "symbol": "unr", "name": "Unranked", "current_price": 1, "market_cap_rank": null},
  {"id": "broken", "symbol": "brk", "name": "Broken", "current_price": -1, "market_cap_rank": 5},
  {"id": "bad-cap", "symbol": "bcp", "name": "Bad Cap", "current_price": 2, "market_cap": -100, "market_cap_rank": 6},
  {"id": "bad-volume", "symbol": "bvl", "name": "Bad Volume", "current_price": 2, "total_volume": -5, "market_cap_rank": 7}
]`

const ratesJSON = `{
  "rates": {
    "btc": {"name": "Bitcoin", "unit": "BTC", "value": 1, "type": "crypto"},
    "usd": {"name": "US Dollar", "unit": "$", "value": 60000, "type": "fiat"},
    "eur": {"name": "Euro", "unit": "€", "value": 54000, "type": "fiat"},
    "xau": {"name": "Gold - Troy Ounce", "unit": "XAU", "value": 25, "type": "commodity"},
    "bits": {"name": "Bits", "unit": "μBTC", "value": 1000000, "type": "fiat"}
  }
}`

func newServer(t *testing.T) (*httptest.Server, *http.Request) {
	t.Helper()
	var last http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		last = *r
		switch r.URL.Path {
		case "/coins/markets":
			w.Write([]byte(marketsJSON))
		case "/exchange_rates":
			w.Write([]byte(ratesJSON))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestClient_FetchMarket(t *testing.T) {
	srv, last := newServer(t)
	c := &Client{BaseURL: srv.URL, Currency: "USD", PerPage: 5, APIKey: "secret", HTTP: srv.Client()}

	m, err := c.FetchMarket(context.Background())
	if err != nil {
		t.Fatalf("FetchMarket() unexpected error: %v", err)
	}
	if got := last.URL.Query().Get("vs_currency"); got != "usd" {
		t.Errorf("vs_currency = %q, want %q", got, "usd")
	}
	if got := last.URL.Query().Get("per_page"); got != "5" {
		t.Errorf("per_page = %q, want %q", got, "5")
	}
	if got := last.Header.Get(apiKeyHeader); got != "secret" {
		t.Errorf("api key header = %q, want %q", got, "secret")
	}

	if m.Base() != "USD" {
		t.Errorf("Base() = %q, want USD", m.Base())
	}
	var symbols []string
	for coin := range m.All() {
		symbols = append(symbols, coin.Symbol)
	}
	want := []string{"BTC", "ETH", "USDT"}
	if len(symbols) != len(want) {
		t.Fatalf("symbols = %v, want %v", symbols, want)
	}
	for i := range want {
		if symbols[i] != want[i] {
			t.Errorf("symbols[%d] = %q, want %q", i, symbols[i], want[i])
		}
	}

	btc, _ := m.Coin("BTC")
	if !btc.Price.Equal(coindash.M(50000, "USD")) {
		t.Errorf("BTC price = %v, want $50,000.00", btc.Price)
	}
	if btc.Name != "Bitcoin" || btc.Rank != 1 {
		t.Errorf("BTC = %q #%d, want Bitcoin #1", btc.Name, btc.Rank)
	}
	if !btc.Change24h.Equal(-1.25) || !btc.Change7d.Equal(3.5) {
		t.Errorf("BTC changes = %v %v, want -1.25%% 3.5%%", btc.Change24h, btc.Change7d)
	}
	if !btc.Supply.Equal(coindash.Q(19600000)) {
		t.Errorf("BTC supply = %v, want 19600000", btc.Supply)
	}
	usdt, _ := m.Coin("USDT")
	if usdt.Change7d != 0 {
		t.Errorf("USDT 7d change = %v, want 0 for a null value", usdt.Change7d)
	}
}

func TestClient_FetchRates(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{BaseURL: srv.URL, Currency: "USD", HTTP: srv.Client()}

	rates, err := c.FetchRates(context.Background())
	if err != nil {
		t.Fatalf("FetchRates() unexpected error: %v", err)
	}
	want := map[string]string{"USD": "1", "EUR": "0.9"}
	if len(rates) != len(want) {
		t.Errorf("FetchRates() = %v, want %v", rates.Currencies(), want)
	}
	for code, v := range want {
		if !rates[code].Equal(decimal.RequireFromString(v)) {
			t.Errorf("rates[%s] = %v, want %s", code, rates[code], v)
		}
	}
}

func TestClient_FetchRatesUnknownBase(t *testing.T) {
	srv, _ := newServer(t)
	c := &Client{BaseURL: srv.URL, Currency: "JPY", HTTP: srv.Client()}
	if _, err := c.FetchRates(context.Background()); !errors.Is(err, coindash.ErrUnknownCurrency) {
		t.Errorf("FetchRates() error = %v, want %v", err, coindash.ErrUnknownCurrency)
	}
}

func TestClient_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := &Client{BaseURL: srv.URL, Currency: "USD", HTTP: srv.Client()}
	if _, err := c.FetchMarket(context.Background()); err == nil {
		t.Error("FetchMarket() expected an error on HTTP 429")
	}
}

func TestNew_CachePeriods(t *testing.T) {
	c := New("USD", "")
	tests := []struct {
		name   string
		client *http.Client
		want   time.Duration
	}{
		{"market", c.HTTP, time.Minute},
		{"rates", c.RatesHTTP, time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, ok := tt.client.Transport.(*diskCache)
			if !ok {
				t.Fatalf("Transport = %T, want *diskCache", tt.client.Transport)
			}
			if cache.period != tt.want {
				t.Errorf("period = %v, want %v", cache.period, tt.want)
			}
		})
	}
}

func TestClient_RatesHTTP(t *testing.T) {
	srv, _ := newServer(t)
	down := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, errors.New("market client used")
	})}
	c := &Client{BaseURL: srv.URL, Currency: "USD", HTTP: down, RatesHTTP: srv.Client()}

	if _, err := c.FetchRates(context.Background()); err != nil {
		t.Errorf("FetchRates() unexpected error: %v", err)
	}
	if _, err := c.FetchMarket(context.Background()); err == nil {
		t.Error("FetchMarket() expected an error from the market client")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestDiskCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(ratesJSON))
	}))
	defer srv.Close()

	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	cache := &diskCache{base: srv.Client().Transport, period: time.Hour, dir: t.TempDir(), now: func() time.Time { return now }}
	c := &Client{BaseURL: srv.URL, Currency: "USD", HTTP: &http.Client{Transport: cache}}

	for range 2 {
		if _, err := c.FetchRates(context.Background()); err != nil {
			t.Fatalf("FetchRates() unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("server calls = %d within a period, want 1", calls)
	}

	now = now.Add(time.Hour)
	if _, err := c.FetchRates(context.Background()); err != nil {
		t.Fatalf("FetchRates() unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("server calls = %d after the period, want 2", calls)
	}
}
