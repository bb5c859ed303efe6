// Package docs embeds the guides displayed by "sweep topic".
package docs

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

//go:embed *.md
var guides embed.FS

// index is the introduction shown above the table of contents.
const index = "readme"

// Guide is one embedded markdown document.
type Guide struct {
	Name  string // as typed after "sweep topic".
	Title string // first level 1 heading.
	Body  string
}

// Lookup returns the guide of that name.
func Lookup(name string) (Guide, error) {
	body, err := guides.ReadFile(name + ".md")
	if errors.Is(err, fs.ErrNotExist) {
		return Guide{}, fmt.Errorf("no topic %q, want one of %s", name, strings.Join(Names(), ", "))
	}
	if err != nil {
		return Guide{}, err
	}
	return Guide{Name: name, Title: title(body), Body: string(body)}, nil
}

// Guides returns every guide but the introduction, sorted by name.
func Guides() []Guide {
	files, _ := fs.Glob(guides, "*.md") // sorted, and the pattern is valid.
	var list []Guide
	for _, file := range files {
		name := strings.TrimSuffix(path.Base(file), ".md")
		if name == index {
			continue
		}
		g, err := Lookup(name)
		if err != nil {
			continue
		}
		list = append(list, g)
	}
	return list
}

// Names returns the names of Guides.
func Names() []string {
	var names []string
	for _, g := range Guides() {
		names = append(names, g.Name)
	}
	return names
}

// Contents returns the introduction followed by the table of the guides.
func Contents() string {
	intro, _ := Lookup(index)
	var b strings.Builder
	b.WriteString(intro.Body)
	b.WriteString("\n| Topic | Content |\n|---|---|\n")
	for _, g := range Guides() {
		fmt.Fprintf(&b, "| `%s` | %s |\n", g.Name, g.Title)
	}
	return b.String()
}

// title returns the text of the first level 1 heading of a markdown source.
func title(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 1 {
			continue
		}
		var b bytes.Buffer
		lines := h.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(source))
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}
