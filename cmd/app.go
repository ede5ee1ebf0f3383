// Package cmd implements the CLI application of the crypto dashboard.
package cmd

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/coindash"
	"github.com/etnz/coindash/coingecko"
	"github.com/etnz/coindash/metrics"
	"github.com/etnz/coindash/store"
	"github.com/google/subcommands"
	"github.com/joho/godotenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var (
	configFile      = flag.String("config", envOr(EnvConfig, "coindash.yaml"), "Path to the YAML configuration file")
	stateFile       = flag.String("state", "", "Path to the state file (JSONL format), overrides the configuration")
	displayCurrency = flag.String("currency", "", "Display currency, overrides the configuration")
	redisURL        = flag.String("redis", "", "Redis URL to keep the state in, overrides the configuration")
	htmlOutput      = flag.Bool("html", false, "Print reports as HTML instead of terminal markdown")
	Verbose         = flag.Bool("v", verboseFromEnv(), "Verbose logging")
)

// Commands lists all the subcommands, by group.
var Commands = map[string][]subcommands.Command{
	"market":    {&marketCmd{}},
	"watchlist": {&watchCmd{}, &unwatchCmd{}, &watchlistCmd{}},
	"portfolio": {&buyCmd{}, &sellCmd{}, &holdingCmd{}, &txCmd{}, &fmtCmd{}},
}

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	for _, group := range []string{"market", "watchlist", "portfolio"} {
		for _, cmd := range Commands[group] {
			c.Register(cmd, group)
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// loadConfig loads the .env file, the configuration file, then applies the
// global flags.
func loadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("cannot load .env file: %v", err)
	}
	cfg, err := LoadConfig(*configFile)
	if err != nil {
		return nil, err
	}
	if *stateFile != "" {
		cfg.State.File = *stateFile
	}
	if *displayCurrency != "" {
		cfg.Display = *displayCurrency
	}
	if *redisURL != "" {
		cfg.State.Redis = *redisURL
	}
	return cfg, cfg.Validate()
}

// openStore returns the configured store and a function to release it.
func openStore(cfg *Config) (store.Store, func(), error) {
	if cfg.State.Redis == "" {
		return store.NewFile(cfg.State.File), func() {}, nil
	}
	rdb, err := store.OpenRedis(cfg.State.Redis, cfg.State.Name)
	if err != nil {
		return nil, nil, err
	}
	return rdb, func() { rdb.Close() }, nil
}

// app is the dashboard loaded from the configured store.
type app struct {
	cfg   *Config
	st    store.Store
	close func()
	dash  *coindash.Dashboard
}

// openApp loads the configuration and the state. The dashboard displays
// values in the ledger currency until rates are fetched, see app.refresh.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, st: st, close: closeStore}

	ledger, err := coindash.NewLedger(cfg.Currency)
	if err != nil {
		a.close()
		return nil, err
	}
	method, _ := coindash.ParseCostBasisMethod(cfg.Method)
	ledger.SetCostBasisMethod(method)

	rates, _ := cfg.StaticRates()
	a.dash, err = coindash.NewDashboard(coindash.NewWatchlist(), ledger, coindash.Settings{ActiveCurrency: cfg.Currency, Rates: rates})
	if err != nil {
		a.close()
		return nil, err
	}
	if err := store.Load(ctx, st, a.dash); err != nil {
		a.close()
		return nil, fmt.Errorf("cannot load state: %w", err)
	}
	return a, nil
}

// refresher returns a refresher on the configured provider.
func (a *app) refresher() *coindash.Refresher {
	client := coingecko.New(a.cfg.Currency, a.cfg.Provider.APIKey)
	client.BaseURL = a.cfg.Provider.URL
	client.PerPage = a.cfg.Provider.PerPage
	return &coindash.Refresher{Dashboard: a.dash, Market: client, Rates: client}
}

// refresh fetches market and rates, then switches to the display currency.
// Failures are reported as warnings, the dashboard keeps working offline.
func (a *app) refresh(ctx context.Context) {
	if err := a.refresher().Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	a.setDisplay()
}

func (a *app) setDisplay() {
	if err := a.dash.SetCurrency(a.cfg.Display); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, values are displayed in %s\n", err, a.dash.View().Currency)
	}
}

// save writes the state back to the store.
func (a *app) save(ctx context.Context) error {
	return store.Save(ctx, a.st, a.dash)
}

// serveMetrics serves the Prometheus metrics on the configured address, if
// any, until the process exits.
func (a *app) serveMetrics() {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		log.Printf("serving metrics on %s/metrics", a.cfg.Metrics.Addr)
		if err := http.ListenAndServe(a.cfg.Metrics.Addr, mux); err != nil {
			log.Printf("metrics server stopped: %v", err)
		}
	}()
}

// printMarkdown prints md to stdout, rendered for the terminal or as HTML.
func printMarkdown(md string) {
	if err := writeMarkdown(os.Stdout, md, *htmlOutput); err != nil {
		// fall back to the raw markdown.
		fmt.Println(md)
	}
}

func writeMarkdown(w io.Writer, md string, html bool) error {
	if html {
		var buf bytes.Buffer
		if err := goldmark.New(goldmark.WithExtensions(extension.GFM)).Convert([]byte(md), &buf); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(160))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
