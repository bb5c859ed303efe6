// Package renderer renders run summaries and holdings reports as markdown.
//
// Each report is a main template assembled from partials, all embedded in
// the binary.
package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
	"github.com/etnz/treasury/holdings"
	"github.com/shopspring/decimal"
)

//go:embed *.md
var templates embed.FS

var funcs = template.FuncMap{
	// bps formats basis points as a percentage, 630 is "6.30%".
	"bps": func(v any) string {
		var n int64
		switch b := v.(type) {
		case int:
			n = int64(b)
		case int64:
			n = b
		}
		return decimal.New(n, -2).StringFixed(2) + "%"
	},
	"join": func(codes []treasury.ReasonCode) string {
		s := make([]string, len(codes))
		for i, c := range codes {
			s[i] = "`" + string(c) + "`"
		}
		return strings.Join(s, ", ")
	},
}

// RenderRun renders the summary of a sweep run.
func RenderRun(s *treasury.Summary) string {
	partials := map[string]string{
		"run_title":    "run_title.md",
		"run_position": "run_position.md",
		"run_buffers":  "run_buffers.md",
		"run_order":    "run_order.md",
		"run_defects":  "run_defects.md",
	}
	return renderTemplate("run", "run.md", partials, s)
}

// RenderForecast renders the scored flows of a forecast.
func RenderForecast(f *treasury.HorizonForecast) string {
	return renderTemplate("forecast", "forecast.md", nil, f)
}

// RenderHoldings renders the holdings list and its totals.
func RenderHoldings(hs []holdings.Holding, t holdings.Totals) string {
	data := struct {
		Holdings []holdings.Holding
		Totals   holdings.Totals
	}{hs, t}
	return renderTemplate("holdings", "holdings.md", nil, data)
}

// RenderDailySeries renders the interest accrued per day over r.
func RenderDailySeries(r date.Range, points []holdings.DailyPoint) string {
	data := struct {
		Range  date.Range
		Points []holdings.DailyPoint
	}{r, points}
	return renderTemplate("dailySeries", "daily_series.md", nil, data)
}

// RenderAttribution renders the interest of r per holding.
func RenderAttribution(r date.Range, attr []holdings.HoldingInterest) string {
	data := struct {
		Range    date.Range
		Holdings []holdings.HoldingInterest
	}{r, attr}
	return renderTemplate("attribution", "attribution.md", nil, data)
}

// RenderDailyDetail renders every accrual entry of r.
func RenderDailyDetail(r date.Range, entries []holdings.AccrualEntry) string {
	data := struct {
		Range   date.Range
		Entries []holdings.AccrualEntry
	}{r, entries}
	return renderTemplate("dailyDetail", "daily_detail.md", nil, data)
}

// RenderYTD renders the interest accrued over a year.
func RenderYTD(y holdings.YTD) string {
	return renderTemplate("ytd", "ytd.md", nil, y)
}

// renderTemplate is a generic utility to render a main template that depends on several partials.
func renderTemplate(templateName, mainFile string, partials map[string]string, data any) string {
	mainContent, err := fs.ReadFile(templates, mainFile)
	if err != nil {
		return fmt.Sprintf("error reading main template %q: %v", mainFile, err)
	}

	tmpl, err := template.New(templateName).Funcs(funcs).Parse(string(mainContent))
	if err != nil {
		return fmt.Sprintf("error parsing main template %q: %v", mainFile, err)
	}

	for name, file := range partials {
		content, err := fs.ReadFile(templates, file)
		if err != nil {
			return fmt.Sprintf("error reading partial template %q: %v", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Sprintf("error parsing partial template %q for %q: %v", file, name, err)
		}
	}

	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, templateName, data); err != nil {
		return fmt.Sprintf("error executing template %q: %v", templateName, err)
	}
	return b.String()
}
