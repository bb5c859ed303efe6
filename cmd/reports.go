package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/etnz/treasury/holdings"
	"github.com/etnz/treasury/renderer"
	"github.com/google/subcommands"
)

type dailySeriesCmd struct{ output }

func (*dailySeriesCmd) Name() string     { return "daily-series" }
func (*dailySeriesCmd) Synopsis() string { return "display the interest posted per day" }
func (*dailySeriesCmd) Usage() string {
	return `sweep daily-series [-md] <start_date> <end_date>

  Displays the total interest posted on each day of the range, with the
  running cumulative interest. Days without accruals are omitted.
`
}

func (c *dailySeriesCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := parseRange(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "daily-series", err)
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	points, err := s.DailySeries(ctx, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if points == nil {
		points = []holdings.DailyPoint{}
	}
	return c.print(points, func() string { return renderer.RenderDailySeries(r, points) })
}

type ytdCmd struct{ output }

func (*ytdCmd) Name() string     { return "ytd" }
func (*ytdCmd) Synopsis() string { return "display the interest totals of a year" }
func (*ytdCmd) Usage() string {
	return `sweep ytd [-md] <year>
`
}

func (c *ytdCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	year, err := parseYear(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ytd", err)
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	y, err := s.YTDTotals(ctx, year)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return c.print(y, func() string { return renderer.RenderYTD(y) })
}

type attributionCmd struct{ output }

func (*attributionCmd) Name() string     { return "attribution" }
func (*attributionCmd) Synopsis() string { return "display the interest earned per holding" }
func (*attributionCmd) Usage() string {
	return `sweep attribution [-md] <start_date> <end_date>

  Displays the interest earned by each holding over the range, largest
  first, with its average opening balance and weighted rate.
`
}

func (c *attributionCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := parseRange(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "attribution", err)
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	attr, err := s.Attribution(ctx, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if attr == nil {
		attr = []holdings.HoldingInterest{}
	}
	return c.print(attr, func() string { return renderer.RenderAttribution(r, attr) })
}

type dailyDetailCmd struct {
	output
	reconcile bool
}

func (*dailyDetailCmd) Name() string     { return "daily-detail" }
func (*dailyDetailCmd) Synopsis() string { return "display every accrual entry" }
func (*dailyDetailCmd) Usage() string {
	return `sweep daily-detail [-md] [-reconcile] <start_date> <end_date>

  Displays the accrual entries of the range, one per holding and day.
  With -reconcile, checks instead that the daily series, the attribution
  and the entries agree on the total interest.
`
}

func (c *dailyDetailCmd) SetFlags(f *flag.FlagSet) {
	c.output.SetFlags(f)
	f.BoolVar(&c.reconcile, "reconcile", false, "Reconcile the reports of the range.")
}

func (c *dailyDetailCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := parseRange(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "daily-detail", err)
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()

	if c.reconcile {
		rec, err := s.ReconcileRange(ctx, r)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		if status := c.print(rec, nil); status != subcommands.ExitSuccess {
			return status
		}
		if !rec.Balanced {
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}

	entries, err := s.DailyDetail(ctx, r)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if entries == nil {
		entries = []holdings.AccrualEntry{}
	}
	return c.print(entries, func() string { return renderer.RenderDailyDetail(r, entries) })
}

type exportCmd struct {
	file string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "export the holdings and accruals to a spreadsheet" }
func (*exportCmd) Usage() string {
	return `sweep export [-o <file>] <start_date> <end_date>

  Writes an xlsx workbook with the current holdings, the daily series and
  the attribution of the range.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "o", "holdings.xlsx", "Output file.")
}

func (c *exportCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	r, err := parseRange(f)
	if err != nil {
		fmt.Fprintln(os.Stderr, "export", err)
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()

	out, err := os.Create(c.file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	w := bufio.NewWriter(out)
	if err := s.ExportXLSX(ctx, r, w); err != nil {
		out.Close()
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := w.Flush(); err != nil {
		out.Close()
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if err := out.Close(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	fmt.Printf("exported %s to %s\n", r, c.file)
	return subcommands.ExitSuccess
}
