package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/coindash/renderer"
	"github.com/google/subcommands"
)

// --- Watch Command ---

type watchCmd struct{}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "add coins to the watchlist" }
func (*watchCmd) Usage() string {
	return `coindash watch <symbol>...

  Adds the coins to the watchlist. Coins already watched are ignored.
`
}
func (*watchCmd) SetFlags(*flag.FlagSet) {}

func (*watchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return editWatchlist(ctx, f, func(a *app, coin string) {
		a.dash.Watch(coin)
		fmt.Fprintf(os.Stderr, "Watching %s\n", coin)
	})
}

// --- Unwatch Command ---

type unwatchCmd struct{}

func (*unwatchCmd) Name() string     { return "unwatch" }
func (*unwatchCmd) Synopsis() string { return "remove coins from the watchlist" }
func (*unwatchCmd) Usage() string {
	return `coindash unwatch <symbol>...

  Removes the coins from the watchlist. Coins not watched are ignored.
`
}
func (*unwatchCmd) SetFlags(*flag.FlagSet) {}

func (*unwatchCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	return editWatchlist(ctx, f, func(a *app, coin string) {
		a.dash.Unwatch(coin)
		fmt.Fprintf(os.Stderr, "Stopped watching %s\n", coin)
	})
}

func editWatchlist(ctx context.Context, f *flag.FlagSet, edit func(*app, string)) subcommands.ExitStatus {
	if f.NArg() == 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	for _, coin := range f.Args() {
		edit(a, strings.ToUpper(strings.TrimSpace(coin)))
	}
	if err := a.save(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving state: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// --- Watchlist Command ---

type watchlistCmd struct{}

func (*watchlistCmd) Name() string     { return "watchlist" }
func (*watchlistCmd) Synopsis() string { return "display the watchlist with current prices" }
func (*watchlistCmd) Usage() string {
	return `coindash watchlist

  Displays the watched coins with their current price in the display
  currency. Coins missing from the market are shown with unknown pricing.
`
}
func (*watchlistCmd) SetFlags(*flag.FlagSet) {}

func (*watchlistCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer a.close()

	if a.dash.Watchlist().Len() == 0 {
		fmt.Fprintln(os.Stderr, "The watchlist is empty, add coins with 'coindash watch <symbol>'.")
		return subcommands.ExitSuccess
	}
	a.refresh(ctx)
	printMarkdown(renderer.RenderView(a.dash.View(), renderer.ViewRenderOptions{SkipMarket: true, SkipPortfolio: true}))
	return subcommands.ExitSuccess
}
