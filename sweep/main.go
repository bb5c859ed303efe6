// Command sweep runs the treasury auto-sweep: forecast, prescribe and
// perform a sweep order, and manage the holdings ledger.
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/etnz/treasury/cmd"
	"github.com/google/subcommands"
)

func main() {
	name := path.Base(os.Args[0])
	commander := subcommands.NewCommander(flag.CommandLine, name)
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	for _, c := range cmd.Commands {
		commander.Register(c, "")
	}

	// exits when invoked by the shell for completion.
	cmd.Completion().Complete(name)

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
