package cmd

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/etnz/coindash"
	"github.com/etnz/coindash/store"
	"github.com/google/subcommands"
)

// useState points the global flags to a fresh state file.
func useState(t *testing.T) string {
	t.Helper()
	for _, env := range []string{EnvState, EnvCurrency, EnvRedis, EnvConfig} {
		t.Setenv(env, "")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "state.jsonl")
	oldState, oldConfig := *stateFile, *configFile
	*stateFile = path
	*configFile = filepath.Join(dir, "coindash.yaml")
	t.Cleanup(func() { *stateFile, *configFile = oldState, oldConfig })
	return path
}

func execute(t *testing.T, c subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
	c.SetFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("%s %v: %v", c.Name(), args, err)
	}
	return c.Execute(context.Background(), fs)
}

func TestCommands(t *testing.T) {
	path := useState(t)

	steps := []struct {
		cmd  subcommands.Command
		args []string
		want subcommands.ExitStatus
	}{
		{&watchCmd{}, []string{"btc", "eth"}, subcommands.ExitSuccess},
		{&unwatchCmd{}, []string{"eth"}, subcommands.ExitSuccess},
		{&watchCmd{}, nil, subcommands.ExitUsageError},
		{&buyCmd{}, []string{"-c", "btc", "-q", "2", "-p", "40000", "-d", "2025-03-01 10:00", "-m", "first"}, subcommands.ExitSuccess},
		{&sellCmd{}, []string{"-c", "btc", "-q", "3", "-p", "50000", "-d", "2025-03-02"}, subcommands.ExitFailure},
		{&sellCmd{}, []string{"-c", "btc", "-q", "0.5", "-p", "50000", "-d", "2025-03-02"}, subcommands.ExitSuccess},
		{&sellCmd{}, []string{"-c", "btc", "-p", "50000"}, subcommands.ExitUsageError},
		{&buyCmd{}, []string{"-c", "eth", "-q", "0", "-p", "3000", "-d", "2025-03-03"}, subcommands.ExitFailure},
		{&buyCmd{}, []string{"-c", "eth", "-q", "1", "-p", "3000", "-d", "2025-02-01"}, subcommands.ExitFailure},
		{&txCmd{}, []string{"-head", "1", "-tail", "1"}, subcommands.ExitUsageError},
		{&txCmd{}, []string{"-c", "btc"}, subcommands.ExitSuccess},
		{&holdingCmd{}, []string{"-c", "btc"}, subcommands.ExitSuccess},
		{&fmtCmd{}, nil, subcommands.ExitSuccess},
	}
	for _, s := range steps {
		if got := execute(t, s.cmd, s.args...); got != s.want {
			t.Fatalf("%s %v = %v, want %v", s.cmd.Name(), s.args, got, s.want)
		}
	}

	state, err := store.NewFile(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if len(state.Watchlist) != 1 || state.Watchlist[0] != "BTC" {
		t.Errorf("watchlist = %v, want [BTC]", state.Watchlist)
	}
	if len(state.Transactions) != 2 {
		t.Fatalf("transactions = %v, want 2", state.Transactions)
	}
	first := state.Transactions[0]
	want := coindash.Transaction{
		Coin:     "BTC",
		Side:     coindash.Buy,
		Quantity: coindash.Q(2),
		Price:    coindash.M(40000, "USD"),
		Time:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local),
		Memo:     "first",
	}
	if !first.Equal(want) {
		t.Errorf("first transaction = %v, want %v", first, want)
	}

	// -all sells the remaining 1.5 BTC.
	if got := execute(t, &sellCmd{}, "-c", "btc", "-all", "-p", "60000", "-d", "2025-03-04"); got != subcommands.ExitSuccess {
		t.Fatalf("sell -all = %v", got)
	}
	state, _ = store.NewFile(path).Load(context.Background())
	if last := state.Transactions[len(state.Transactions)-1]; !last.Quantity.Equal(coindash.Q(1.5)) {
		t.Errorf("sell -all quantity = %v, want 1.5", last.Quantity)
	}
	if got := execute(t, &sellCmd{}, "-c", "btc", "-all", "-p", "60000", "-d", "2025-03-05"); got != subcommands.ExitFailure {
		t.Errorf("sell -all on a closed position = %v, want failure", got)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		{input: "", want: time.Time{}},
		{input: "2025-03-01T10:00:00Z", want: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)},
		{input: "2025-03-01 10:00", want: time.Date(2025, 3, 1, 10, 0, 0, 0, time.Local)},
		{input: "2025-03-01 10:00:30", want: time.Date(2025, 3, 1, 10, 0, 30, 0, time.Local)},
		{input: "2025-03-01", want: time.Date(2025, 3, 1, 0, 0, 0, 0, time.Local)},
		{input: "yesterday", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseTime(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTime(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteMarkdown_HTML(t *testing.T) {
	md := "## Watchlist\n\n| Coin | Price |\n|:---|--:|\n| BTC | $50,000.00 |\n"
	var buf bytes.Buffer
	if err := writeMarkdown(&buf, md, true); err != nil {
		t.Fatalf("writeMarkdown() unexpected error: %v", err)
	}
	for _, want := range []string{"<h2>Watchlist</h2>", "<table>", ">BTC</td>"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("writeMarkdown() missing %q in:\n%s", want, buf.String())
		}
	}
}

func TestCompletion(t *testing.T) {
	c := Completion()
	for _, name := range []string{"market", "watch", "unwatch", "watchlist", "buy", "sell", "holding", "tx", "fmt", "help"} {
		if _, ok := c.Sub[name]; !ok {
			t.Errorf("Completion() has no %q subcommand", name)
		}
	}
	sell := c.Sub["sell"]
	for _, flag := range []string{"c", "q", "p", "d", "m", "all"} {
		if _, ok := sell.Flags[flag]; !ok {
			t.Errorf("Completion() sell has no -%s flag", flag)
		}
	}
	if _, ok := c.Flags["currency"]; !ok {
		t.Error("Completion() has no -currency global flag")
	}
}
