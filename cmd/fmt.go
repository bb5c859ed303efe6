package cmd

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/PaesslerAG/jsonpath"
	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
)

// output holds the output flags shared by commands: JSON by default,
// optionally filtered by a jsonpath query, or markdown.
type output struct {
	markdown bool
	query    string
}

func (o *output) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&o.markdown, "md", false, "Print a markdown report instead of JSON.")
	f.StringVar(&o.query, "q", "", "jsonpath query selecting part of the JSON output, like '$.order.status'.")
}

// print prints v as JSON, or the markdown produced by render when -md is
// set and render is not nil.
func (o *output) print(v any, render func() string) subcommands.ExitStatus {
	if o.markdown && render != nil {
		printMarkdown(render())
		return subcommands.ExitSuccess
	}
	if err := printJSON(v, o.query); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printJSON prints v as indented JSON, or the part of it selected by query.
func printJSON(v any, query string) error { return writeJSON(os.Stdout, v, query) }

// writeJSON keeps the encoded key order and the exact number literals, amounts
// must not go through float64.
func writeJSON(w io.Writer, v any, query string) error {
	content, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if query != "" {
		content, err = selectJSON(content, query)
		if err != nil {
			return err
		}
	}
	var b bytes.Buffer
	if err := json.Indent(&b, content, "", "  "); err != nil {
		return err
	}
	b.WriteByte('\n')
	_, err = b.WriteTo(w)
	return err
}

// selectJSON applies a jsonpath query to a JSON document.
func selectJSON(content []byte, query string) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var jobj any
	if err := dec.Decode(&jobj); err != nil {
		return nil, err
	}
	jval, err := jsonpath.Get(query, jobj)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", query, err)
	}
	// jsonpath returns a list for wildcard queries even when they match a single value.
	if list, ok := jval.([]any); ok && len(list) == 1 {
		jval = list[0]
	}
	return json.Marshal(jval)
}

// printMarkdown prints markdown styled for the terminal, or raw when it
// cannot be styled.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
