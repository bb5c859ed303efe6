package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/treasury/docs"
	"github.com/google/subcommands"
)

type topicCmd struct {
	all  bool
	list bool
}

func (*topicCmd) Name() string     { return "topic" }
func (*topicCmd) Synopsis() string { return "read the guides of sweep" }
func (*topicCmd) Usage() string {
	return `sweep topic [-all | -list | <topic>...]

  Without arguments, prints the introduction and the table of topics.
  With topics, prints their guides one after the other.
`
}

func (c *topicCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.all, "all", false, "Print every guide.")
	f.BoolVar(&c.list, "list", false, "Print the topic names only, one per line.")
}

func (c *topicCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.list {
		fmt.Println(strings.Join(docs.Names(), "\n"))
		return subcommands.ExitSuccess
	}
	names := f.Args()
	if c.all {
		names = docs.Names()
	}
	if len(names) == 0 {
		printMarkdown(docs.Contents())
		return subcommands.ExitSuccess
	}
	var b strings.Builder
	for _, name := range names {
		g, err := docs.Lookup(name)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
		b.WriteString(g.Body)
		b.WriteString("\n")
	}
	printMarkdown(b.String())
	return subcommands.ExitSuccess
}
