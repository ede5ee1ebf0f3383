package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/etnz/coindash"
	"github.com/etnz/coindash/renderer"
	"github.com/google/subcommands"
)

// parseTime parses a transaction time. An empty string is the zero time,
// the ledger sets it to now.
func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, use RFC3339 or YYYY-MM-DD [hh:mm[:ss]]", s)
}

// tradeFlags are the flags shared by buy and sell.
type tradeFlags struct {
	time     string
	coin     string
	quantity string
	price    string
	memo     string
}

func (c *tradeFlags) setFlags(f *flag.FlagSet) {
	f.StringVar(&c.time, "d", "", "Transaction time (RFC3339 or YYYY-MM-DD [hh:mm]), defaults to now")
	f.StringVar(&c.coin, "c", "", "Coin symbol")
	f.StringVar(&c.quantity, "q", "", "Quantity of coins")
	f.StringVar(&c.price, "p", "", "Unit price in the ledger currency, defaults to the current market price")
	f.StringVar(&c.memo, "m", "", "An optional rationale or note for the transaction")
}

// parse returns the transaction described by the flags. A missing price is
// resolved from the current market snapshot.
func (c *tradeFlags) parse(ctx context.Context, a *app, side coindash.Side, all bool) (coindash.Transaction, error) {
	tx := coindash.Transaction{Side: side, Coin: strings.ToUpper(strings.TrimSpace(c.coin)), Memo: c.memo}
	var err error
	if tx.Time, err = parseTime(c.time); err != nil {
		return tx, err
	}
	if !all {
		if tx.Quantity, err = coindash.ParseQuantity(c.quantity); err != nil {
			return tx, fmt.Errorf("invalid quantity %q: %w", c.quantity, err)
		}
	}
	if c.price != "" {
		q, err := coindash.ParseQuantity(c.price)
		if err != nil {
			return tx, fmt.Errorf("invalid price %q: %w", c.price, err)
		}
		tx.Price = coindash.M(q.Value(), a.cfg.Currency)
		return tx, nil
	}

	a.refresh(ctx)
	m := a.dash.Market()
	if m == nil {
		return tx, fmt.Errorf("no market data to price %s, use -p", tx.Coin)
	}
	coin, ok := m.Coin(tx.Coin)
	if !ok {
		return tx, fmt.Errorf("%s is not in the market, use -p", tx.Coin)
	}
	tx.Price = coin.Price
	return tx, nil
}

// record records tx and saves the state.
func record(ctx context.Context, a *app, tx coindash.Transaction, all bool) subcommands.ExitStatus {
	if all {
		held := a.dash.Ledger().HoldingFor(tx.Coin).Quantity
		if held.IsZero() {
			fmt.Fprintf(os.Stderr, "Error: no %s held, nothing to sell\n", tx.Coin)
			return subcommands.ExitFailure
		}
		tx.Quantity = held
	}
	tx, err := a.dash.Record(tx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.save(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving state: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Println(renderer.Transaction(tx))
	return subcommands.ExitSuccess
}

// --- Buy Command ---

type buyCmd struct {
	tradeFlags
}

func (*buyCmd) Name() string     { return "buy" }
func (*buyCmd) Synopsis() string { return "record a simulated purchase of coins" }
func (*buyCmd) Usage() string {
	return `coindash buy -c <symbol> -q <quantity> [-p <price>] [-d <time>] [-m <memo>]

  Records a simulated purchase in the ledger. Without -p, the coin is bought
  at its current market price.
`
}

func (c *buyCmd) SetFlags(f *flag.FlagSet) { c.setFlags(f) }

func (c *buyCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.coin == "" || c.quantity == "" {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	tx, err := c.parse(ctx, a, coindash.Buy, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return record(ctx, a, tx, false)
}

// --- Sell Command ---

type sellCmd struct {
	tradeFlags
	all bool
}

func (*sellCmd) Name() string     { return "sell" }
func (*sellCmd) Synopsis() string { return "record a simulated sale of coins" }
func (*sellCmd) Usage() string {
	return `coindash sell -c <symbol> (-q <quantity> | -all) [-p <price>] [-d <time>] [-m <memo>]

  Records a simulated sale in the ledger. A sale cannot exceed the quantity
  held. With -all, the whole position is sold.
`
}

func (c *sellCmd) SetFlags(f *flag.FlagSet) {
	c.setFlags(f)
	f.BoolVar(&c.all, "all", false, "Sell the whole position")
}

func (c *sellCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.coin == "" || (c.quantity == "") == !c.all {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	tx, err := c.parse(ctx, a, coindash.Sell, c.all)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	return record(ctx, a, tx, c.all)
}

// --- Holding Command ---

type holdingCmd struct {
	coin string
}

func (*holdingCmd) Name() string     { return "holding" }
func (*holdingCmd) Synopsis() string { return "display the portfolio valuation" }
func (*holdingCmd) Usage() string {
	return `coindash holding [-c <symbol>]

  Displays the portfolio holdings valued at current market prices in the
  display currency. Coins without a current price are valued at their last
  transaction price. With -c, details the holding on a single coin in the
  ledger currency.
`
}

func (c *holdingCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "c", "", "Coin symbol to detail")
}

func (c *holdingCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if c.coin != "" {
		h := a.dash.Ledger().HoldingFor(strings.ToUpper(c.coin))
		printMarkdown(renderer.HoldingMarkdown(h))
		return subcommands.ExitSuccess
	}
	a.refresh(ctx)
	printMarkdown(renderer.RenderView(a.dash.View(), renderer.ViewRenderOptions{SkipMarket: true, SkipWatchlist: true}))
	return subcommands.ExitSuccess
}

// --- Tx Command ---

type txCmd struct {
	coin string
	head int
	tail int
}

func (*txCmd) Name() string     { return "tx" }
func (*txCmd) Synopsis() string { return "list the transactions in the ledger" }
func (*txCmd) Usage() string {
	return `coindash tx [-c <symbol>] [-head <n>] [-tail <n>]

  Lists the ledger transactions in chronological order.
`
}

func (c *txCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.coin, "c", "", "Only list transactions on this coin")
	f.IntVar(&c.head, "head", 0, "Show only the first N transactions.")
	f.IntVar(&c.tail, "tail", 0, "Show only the last N transactions.")
}

func (c *txCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.head > 0 && c.tail > 0 {
		fmt.Fprintln(os.Stderr, "Error: -head and -tail flags cannot be used together.")
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	var filters []func(coindash.Transaction) bool
	if c.coin != "" {
		filters = append(filters, coindash.ByCoin(strings.ToUpper(c.coin)))
	}
	var transactions []coindash.Transaction
	for _, tx := range a.dash.Ledger().Transactions(filters...) {
		transactions = append(transactions, tx)
	}

	if c.head > 0 && len(transactions) > c.head {
		transactions = transactions[:c.head]
	}
	if c.tail > 0 && len(transactions) > c.tail {
		transactions = transactions[len(transactions)-c.tail:]
	}

	printMarkdown(renderer.TransactionsMarkdown(transactions))
	return subcommands.ExitSuccess
}

// --- Fmt Command ---

type fmtCmd struct{}

func (*fmtCmd) Name() string { return "fmt" }
func (*fmtCmd) Synopsis() string {
	return "validates and formats the state into a canonical form"
}
func (*fmtCmd) Usage() string {
	return `coindash fmt

  Validates the state: every transaction is replayed through the ledger
  checks, the cached holdings are reconciled with the transactions, and the
  state is written back in a canonical JSONL format.
`
}
func (*fmtCmd) SetFlags(*flag.FlagSet) {}

func (*fmtCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if err := a.dash.Ledger().Reconcile(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if err := a.save(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving state: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "✅ Successfully formatted %d transactions and %d watched coins.\n", a.dash.Ledger().Len(), a.dash.Watchlist().Len())
	return subcommands.ExitSuccess
}
