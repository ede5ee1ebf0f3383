package coindash

import (
	"time"

	"github.com/shopspring/decimal"
)

// USD is a helper for test to create usd money from const
func USD(v float64) Money { return M(v, "USD") }

// EUR is a helper for test to create euro money from const
func EUR(v float64) Money { return M(v, "EUR") }

// day returns a UTC time on 2025-01-<d> at noon.
func day(d int) time.Time { return time.Date(2025, 1, d, 12, 0, 0, 0, time.UTC) }

// usdEur is the rate table used by most tests: 1 USD = 0.9 EUR.
func usdEur() Rates {
	r, err := NewRates(map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.9"),
	})
	if err != nil {
		panic(err)
	}
	return r
}

// testMarket is a small USD market snapshot.
func testMarket(fetched time.Time) *Market {
	m, err := NewMarket("USD", fetched, []Coin{
		{Symbol: "ETH", Name: "Ethereum", Rank: 2, Price: USD(3000), MarketCap: USD(360e9), Volume24h: USD(15e9), Supply: Q(120e6)},
		{Symbol: "BTC", Name: "Bitcoin", Rank: 1, Price: USD(50000), MarketCap: USD(980e9), Volume24h: USD(31e9), Supply: Q(19.6e6), Change24h: -1.25},
		{Symbol: "USDT", Name: "Tether", Rank: 3, Price: USD(1)},
	})
	if err != nil {
		panic(err)
	}
	return m
}
