package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/etnz/coindash/renderer"
	"github.com/google/subcommands"
)

type marketCmd struct {
	query  string
	follow bool
	page   int
	size   int
}

func (*marketCmd) Name() string { return "market" }
func (*marketCmd) Synopsis() string {
	return "display the market table, the watchlist and the portfolio"
}
func (*marketCmd) Usage() string {
	return `coindash market [-q <query>] [-f] [-n <rows> [-page <page>]]

  Fetches the latest market snapshot and exchange rates, then displays the
  coins matching the query, the watchlist and the portfolio valuation in the
  display currency.

  With -f, the market is refreshed at the configured interval until
  interrupted.

  With -n, the market table is split in pages of that many rows and only
  the requested page is displayed.
`
}

func (c *marketCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.query, "q", "", "Filter coins whose name or symbol contains the query, case insensitive")
	f.BoolVar(&c.follow, "f", false, "Follow the market, refreshing at the configured interval")
	f.IntVar(&c.size, "n", 0, "Number of market rows per page, 0 for all")
	f.IntVar(&c.page, "page", 1, "Page of the market table to display")
}

func (c *marketCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.size < 0 || c.page < 1 {
		fmt.Fprintln(os.Stderr, "Error: -n must not be negative and -page must be at least 1")
		return subcommands.ExitUsageError
	}
	opts := renderer.ViewRenderOptions{PageSize: c.size, Page: c.page}

	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	a.dash.SetQuery(c.query)
	if !c.follow {
		a.refresh(ctx)
		printMarkdown(renderer.RenderView(a.dash.View(), opts))
		return subcommands.ExitSuccess
	}

	a.serveMetrics()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r := a.refresher()
	ticker := time.NewTicker(a.cfg.Interval())
	defer ticker.Stop()
	for {
		if err := r.Refresh(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		a.setDisplay()
		printMarkdown(renderer.RenderView(a.dash.View(), opts))
		select {
		case <-ctx.Done():
			return subcommands.ExitSuccess
		case <-ticker.C:
		}
	}
}
