package cmd

import (
	"flag"
	"io"

	"github.com/etnz/treasury/docs"
	"github.com/etnz/treasury/holdings"
	"github.com/google/subcommands"
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

// Completion returns the shell completion of the application: global flags,
// subcommands and their flags.
func Completion() *complete.Command {
	c := &complete.Command{
		Sub:   make(map[string]*complete.Command),
		Flags: flagPredictors(flag.CommandLine),
	}
	for _, sc := range Commands {
		fs := flag.NewFlagSet(sc.Name(), flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		sc.SetFlags(fs)
		c.Sub[sc.Name()] = &complete.Command{Flags: flagPredictors(fs), Args: argsPredictor(sc)}
	}
	for _, name := range []string{"help", "flags", "commands"} {
		c.Sub[name] = &complete.Command{}
	}
	return c
}

// flagPredictors predicts the values of the flags of a flag set.
func flagPredictors(fs *flag.FlagSet) map[string]complete.Predictor {
	m := make(map[string]complete.Predictor)
	fs.VisitAll(func(f *flag.Flag) {
		m[f.Name] = flagPredictor(f)
	})
	return m
}

func flagPredictor(f *flag.Flag) complete.Predictor {
	if b, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && b.IsBoolFlag() {
		return predict.Nothing
	}
	switch f.Name {
	case "config":
		return predict.Files("*.toml")
	case "data-dir", "out-dir":
		return predict.Dirs("*")
	case "db-path":
		return predict.Files("*.db")
	case "log-level":
		return predict.Set{"debug", "info", "warn", "error"}
	case "selection":
		var set predict.Set
		for _, s := range holdings.Strategies {
			set = append(set, string(s))
		}
		return set
	case "o":
		return predict.Files("*.xlsx")
	}
	return predict.Something
}

func argsPredictor(sc subcommands.Command) complete.Predictor {
	switch sc.(type) {
	case *seedCmd:
		return predict.Files("*.csv")
	case *topicCmd:
		return predict.Set(docs.Names())
	}
	return predict.Nothing
}
