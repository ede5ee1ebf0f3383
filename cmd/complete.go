package cmd

import (
	"flag"

	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// currencies are the display currencies suggested by the shell completion.
var currencies = predict.Set{"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "CNY", "KRW", "INR", "BRL"}

// flagPredictors are the predictions for flags by name, other flags accept
// anything.
var flagPredictors = map[string]complete.Predictor{
	"config":   predict.Files("*.yaml"),
	"state":    predict.Files("*.jsonl"),
	"currency": currencies,
}

// Completion returns the shell completion tree of the global flags and of
// every registered subcommand.
func Completion() *complete.Command {
	root := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: predictFlags(flag.CommandLine),
	}
	for _, cmds := range Commands {
		for _, c := range cmds {
			fs := flag.NewFlagSet(c.Name(), flag.ContinueOnError)
			c.SetFlags(fs)
			root.Sub[c.Name()] = &complete.Command{Flags: predictFlags(fs)}
		}
	}
	root.Sub["help"] = &complete.Command{Args: predict.Set(subcommandNames())}
	return root
}

func predictFlags(fs *flag.FlagSet) map[string]complete.Predictor {
	flags := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		if p, ok := flagPredictors[f.Name]; ok {
			flags[f.Name] = p
			return
		}
		if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
			flags[f.Name] = predict.Nothing
			return
		}
		flags[f.Name] = predict.Something
	})
	return flags
}

func subcommandNames() []string {
	var names []string
	for _, cmds := range Commands {
		for _, c := range cmds {
			names = append(names, c.Name())
		}
	}
	return names
}
