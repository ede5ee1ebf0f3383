// Package coingecko fetches market snapshots and exchange rates from a
// CoinGecko compatible API.
package coingecko

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/coindash"
	"github.com/shopspring/decimal"
)

// DefaultURL is the public API endpoint.
const DefaultURL = "https://api.coingecko.com/api/v3"

const apiKeyHeader = "x-cg-demo-api-key"

// Client is both a coindash.MarketProvider and a coindash.RateProvider.
type Client struct {
	BaseURL  string       // defaults to DefaultURL
	Currency string       // base currency of market snapshots, e.g. "USD"
	PerPage  int          // number of coins per snapshot, defaults to 100
	APIKey   string       // optional
	HTTP     *http.Client // defaults to http.DefaultClient

	// RatesHTTP serves FetchRates, defaults to HTTP.
	RatesHTTP *http.Client
}

// New returns a client for currency with the default endpoint. Market
// requests are cached one minute on disk, rate requests one hour.
func New(currency, apiKey string) *Client {
	return &Client{
		Currency: currency,
		APIKey:   apiKey,
		HTTP:     NewCachingClient(time.Minute),

		RatesHTTP: NewCachingClient(time.Hour),
	}
}

func (c *Client) url(path string, query url.Values) string {
	base := c.BaseURL
	if base == "" {
		base = DefaultURL
	}
	addr := strings.TrimSuffix(base, "/") + path
	if len(query) > 0 {
		addr += "?" + query.Encode()
	}
	return addr
}

func (c *Client) get(ctx context.Context, client *http.Client, path string, query url.Values) (any, error) {
	if client == nil {
		client = http.DefaultClient
	}
	header := make(http.Header)
	if c.APIKey != "" {
		header.Set(apiKeyHeader, c.APIKey)
	}
	var jobj any
	if err := jwget(ctx, client, c.url(path, query), header, &jobj); err != nil {
		return nil, err
	}
	return jobj, nil
}

// FetchMarket fetches the top coins by market capitalization.
//
//	[
//	  {
//	    "id": "bitcoin",
//	    "symbol": "btc",
//	    "name": "Bitcoin",
//	    "current_price": 50000,
//	    "market_cap": 980000000000,
//	    "market_cap_rank": 1,
//	    "total_volume": 31000000000,
//	    "circulating_supply": 19600000,
//	    "price_change_percentage_24h": -1.2,
//	    "price_change_percentage_7d_in_currency": 3.4
//	  }
//	]
//
// Coins without rank or price, or with a negative price, market cap or volume
// are skipped, so are symbols and ranks already
// seen in better ranked coins.
func (c *Client) FetchMarket(ctx context.Context) (*coindash.Market, error) {
	if err := coindash.ValidateCurrency(c.Currency); err != nil {
		return nil, err
	}
	perPage := c.PerPage
	if perPage <= 0 {
		perPage = 100
	}
	query := url.Values{
		"vs_currency":             {strings.ToLower(c.Currency)},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(perPage)},
		"page":                    {"1"},
		"price_change_percentage": {"7d"},
	}
	fetched := time.Now()
	jobj, err := c.get(ctx, c.HTTP, "/coins/markets", query)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch market: %w", err)
	}
	items, ok := jobj.([]any)
	if !ok {
		return nil, fmt.Errorf("cannot fetch market: expected a list got %T", jobj)
	}

	coins := make([]coindash.Coin, 0, len(items))
	symbols := make(map[string]bool)
	ranks := make(map[int]bool)
	for i, item := range items {
		coin, err := c.decodeCoin(item)
		if err != nil {
			log.Printf("skipping market item #%d: %v", i, err)
			continue
		}
		if symbols[coin.Symbol] || ranks[coin.Rank] {
			log.Printf("skipping %s (%s): symbol or rank #%d already used", coin.Name, coin.Symbol, coin.Rank)
			continue
		}
		symbols[coin.Symbol], ranks[coin.Rank] = true, true
		coins = append(coins, coin)
	}
	return coindash.NewMarket(c.Currency, fetched, coins)
}

func (c *Client) decodeCoin(item any) (coindash.Coin, error) {
	var coin coindash.Coin
	symbol, err := getString("$.symbol", item)
	if err != nil {
		return coin, err
	}
	coin.Symbol = strings.ToUpper(symbol)
	if coin.Name, err = getString("$.name", item); err != nil {
		return coin, err
	}
	rank, err := getDecimal("$.market_cap_rank", item)
	if err != nil {
		return coin, err
	}
	coin.Rank = int(rank.IntPart())
	price, err := getDecimal("$.current_price", item)
	if err != nil {
		return coin, err
	}
	coin.Price = coindash.M(price, c.Currency)

	// optional fields
	coin.MarketCap = coindash.M(optDecimal("$.market_cap", item), c.Currency)
	coin.Volume24h = coindash.M(optDecimal("$.total_volume", item), c.Currency)
	for _, m := range []struct {
		field string
		value coindash.Money
	}{{"price", coin.Price}, {"market cap", coin.MarketCap}, {"volume", coin.Volume24h}} {
		if m.value.IsNegative() {
			return coin, fmt.Errorf("%s (%s): negative %s %s", coin.Name, coin.Symbol, m.field, m.value)
		}
	}
	coin.Supply = coindash.Q(optDecimal("$.circulating_supply", item))
	coin.Change24h = coindash.Percent(optDecimal("$.price_change_percentage_24h", item).InexactFloat64())
	coin.Change7d = coindash.Percent(optDecimal("$.price_change_percentage_7d_in_currency", item).InexactFloat64())
	return coin, nil
}

// FetchRates fetches the fiat exchange rates, relative to the client currency.
//
//	{
//	  "rates": {
//	    "btc": {"name": "Bitcoin", "unit": "BTC", "value": 1, "type": "crypto"},
//	    "usd": {"name": "US Dollar", "unit": "$", "value": 60000, "type": "fiat"},
//	    "eur": {"name": "Euro", "unit": "€", "value": 54000, "type": "fiat"}
//	  }
//	}
//
// Values are given against bitcoin, they are rebased so that the client
// currency is 1. Codes unknown to the currency table are ignored.
func (c *Client) FetchRates(ctx context.Context) (coindash.Rates, error) {
	if err := coindash.ValidateCurrency(c.Currency); err != nil {
		return nil, err
	}
	client := c.RatesHTTP
	if client == nil {
		client = c.HTTP
	}
	jobj, err := c.get(ctx, client, "/exchange_rates", nil)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch rates: %w", err)
	}
	jrates, err := jsonpath.Get("$.rates", jobj)
	if err != nil {
		return nil, fmt.Errorf("cannot fetch rates: %w", err)
	}
	entries, ok := jrates.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("cannot fetch rates: expected an object got %T", jrates)
	}

	values := make(map[string]decimal.Decimal)
	for code, entry := range entries {
		if kind, _ := getString("$.type", entry); kind != "fiat" {
			continue
		}
		code = strings.ToUpper(code)
		if coindash.ValidateCurrency(code) != nil {
			continue
		}
		value, err := getDecimal("$.value", entry)
		if err != nil || !value.IsPositive() {
			log.Printf("ignoring rate %s: %v", code, entry)
			continue
		}
		values[code] = value
	}
	base, ok := values[c.Currency]
	if !ok {
		return nil, fmt.Errorf("no exchange rate for %s: %w", c.Currency, coindash.ErrUnknownCurrency)
	}
	for code, value := range values {
		values[code] = value.Div(base)
	}
	return coindash.NewRates(values)
}

// get returns the single value at path in jobj.
func get(path string, jobj any) (any, error) {
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %w", path, err)
	}
	// jsonpath may return a list of one answer instead of the answer.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	if jval == nil {
		return nil, fmt.Errorf("error parsing %q: null value", path)
	}
	return jval, nil
}

func getString(path string, jobj any) (string, error) {
	jval, err := get(path, jobj)
	if err != nil {
		return "", err
	}
	s, ok := jval.(string)
	if !ok {
		return "", fmt.Errorf("error parsing %q: not a string %v", path, jval)
	}
	return s, nil
}

func getDecimal(path string, jobj any) (decimal.Decimal, error) {
	jval, err := get(path, jobj)
	if err != nil {
		return decimal.Zero, err
	}
	switch v := jval.(type) {
	case float64:
		return decimal.NewFromFloat(v), nil
	case string:
		return decimal.NewFromString(v)
	default:
		return decimal.Zero, fmt.Errorf("error parsing %q: not a number %v", path, jval)
	}
}

// optDecimal is getDecimal with missing or null values read as zero.
func optDecimal(path string, jobj any) decimal.Decimal {
	d, err := getDecimal(path, jobj)
	if err != nil {
		return decimal.Zero
	}
	return d
}
