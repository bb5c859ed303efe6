package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/date"
	"github.com/etnz/treasury/holdings"
	"github.com/etnz/treasury/loader"
	"github.com/etnz/treasury/renderer"
	"github.com/google/subcommands"
)

// printOutcome prints a command result. A rejected outcome is printed too,
// but the command fails.
func printOutcome(o *output, v any, outcome holdings.Outcome) subcommands.ExitStatus {
	if status := o.print(v, nil); status != subcommands.ExitSuccess {
		return status
	}
	if !outcome.OK() {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

type setupCmd struct{ output }

func (*setupCmd) Name() string     { return "holdings-setup" }
func (*setupCmd) Synopsis() string { return "create the holdings database or migrate it" }
func (*setupCmd) Usage() string {
	return `sweep holdings-setup

  Creates the holdings database at the configured path, or applies the
  missing schema migrations to an existing one.
`
}

func (c *setupCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := loadApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	return c.print(map[string]string{"status": string(holdings.Success), "db_path": a.DBPath}, nil)
}

type seedCmd struct {
	output
	update bool
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "seed holdings from a CSV file" }
func (*seedCmd) Usage() string {
	return `sweep seed [-update] <csv_file>

  Loads holdings from a CSV file with the columns instrument_name, issuer,
  amount_rupees, expected_annual_rate_bps and optionally accrual_basis_days.

  By default all holdings and accruals are cleared first. With -update the
  seeded amounts are added to the existing holdings.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	c.output.SetFlags(f)
	f.BoolVar(&c.update, "update", false, "Add to the existing holdings instead of overwriting them.")
}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "seed requires exactly one csv file")
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()

	file := f.Arg(0)
	in, err := os.Open(file)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer in.Close()
	rows, defects, err := loader.ReadSeed(in, s.Currency())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
		return subcommands.ExitFailure
	}
	mode := holdings.Overwrite
	if c.update {
		mode = holdings.Update
	}
	res, err := s.Seed(ctx, rows, mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	out := struct {
		holdings.SeedResult
		File    string            `json:"csv_file"`
		Defects []treasury.Defect `json:"defects,omitempty"`
	}{res, file, defects}
	return printOutcome(&c.output, out, res.Outcome)
}

type clearCmd struct{ output }

func (*clearCmd) Name() string     { return "clear" }
func (*clearCmd) Synopsis() string { return "delete all holdings and accruals" }
func (*clearCmd) Usage() string {
	return `sweep clear

  Deletes every holding and every accrual entry.
`
}

func (c *clearCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	res, err := s.Clear(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printOutcome(&c.output, res, res.Outcome)
}

type listCmd struct{ output }

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list the holdings" }
func (*listCmd) Usage() string {
	return `sweep list [-md] [-q <query>]

  Lists the holdings by issuer, with their daily interest.
`
}

func (c *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	hs, err := s.List(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	tot, err := s.Totals(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	if hs == nil {
		hs = []holdings.Holding{}
	}
	return c.print(hs, func() string { return renderer.RenderHoldings(hs, tot) })
}

type totalsCmd struct{ output }

func (*totalsCmd) Name() string     { return "totals" }
func (*totalsCmd) Synopsis() string { return "display the total corpus and daily interest" }
func (*totalsCmd) Usage() string {
	return `sweep totals [-q <query>]
`
}

func (c *totalsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	tot, err := s.Totals(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return c.print(tot, nil)
}

type allocateCmd struct {
	output
	rate  int
	basis int
}

func (*allocateCmd) Name() string     { return "allocate" }
func (*allocateCmd) Synopsis() string { return "invest an amount in a holding" }
func (*allocateCmd) Usage() string {
	return `sweep allocate [-rate <bps>] [-basis <days>] <instrument> <issuer> <amount>

  Adds amount, in major units, to the holding of instrument and issuer,
  creating it with the given rate and accrual basis if it does not exist.
  Without -rate, the rate of the instrument in the policy whitelist is used.
  An existing holding keeps its rate.
`
}

func (c *allocateCmd) SetFlags(f *flag.FlagSet) {
	c.output.SetFlags(f)
	f.IntVar(&c.rate, "rate", 0, "Expected annual rate in basis points, for a new holding (default the whitelist rate).")
	f.IntVar(&c.basis, "basis", holdings.DefaultBasisDays, "Accrual basis in days, for a new holding.")
}

func (c *allocateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 3 {
		fmt.Fprintln(os.Stderr, "allocate requires an instrument, an issuer and an amount")
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	amount, err := treasury.ParseMajor(f.Arg(2), s.Currency())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	rate := c.rate
	if !isSet(f, "rate") {
		if rate, err = whitelistRate(f.Arg(0), f.Arg(1)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
	}
	res, err := s.Allocate(ctx, holdings.Allocation{
		Instrument: f.Arg(0),
		Issuer:     f.Arg(1),
		Amount:     amount,
		RateBps:    rate,
		BasisDays:  c.basis,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printOutcome(&c.output, res, res.Outcome)
}

type redeemCmd struct {
	output
	selection string
}

func (*redeemCmd) Name() string     { return "redeem" }
func (*redeemCmd) Synopsis() string { return "redeem an amount from the holdings" }
func (*redeemCmd) Usage() string {
	return `sweep redeem [-selection <strategy>] <amount>

  Reduces the corpus by amount, in major units, drawing from the holdings in the
  order of the selection strategy. Nothing is redeemed if the corpus is not
  enough.
`
}

func (c *redeemCmd) SetFlags(f *flag.FlagSet) {
	c.output.SetFlags(f)
	f.StringVar(&c.selection, "selection", string(holdings.MostRecentFirst), fmt.Sprintf("Redemption strategy, one of %v.", holdings.Strategies))
}

func (c *redeemCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "redeem requires an amount")
		return subcommands.ExitUsageError
	}
	strategy := holdings.Strategy(c.selection)
	if !slices.Contains(holdings.Strategies, strategy) {
		fmt.Fprintf(os.Stderr, "unknown selection %q, want one of %v\n", c.selection, holdings.Strategies)
		return subcommands.ExitUsageError
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	amount, err := treasury.ParseMajor(f.Arg(0), s.Currency())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitUsageError
	}
	res, err := s.Redeem(ctx, amount, strategy)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printOutcome(&c.output, res, res.Outcome)
}

type postAccrualCmd struct{ output }

func (*postAccrualCmd) Name() string     { return "post-accrual" }
func (*postAccrualCmd) Synopsis() string { return "post the daily interest of a date" }
func (*postAccrualCmd) Usage() string {
	return `sweep post-accrual [<date>]

  Posts the daily interest of every holding for date (default today).
  Posting a date twice does not change anything.
`
}

func (c *postAccrualCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	day := date.Today()
	if f.NArg() > 0 {
		var err error
		if day, err = date.Parse(f.Arg(0)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitUsageError
		}
	}
	s, ok := openStore()
	if !ok {
		return subcommands.ExitFailure
	}
	defer s.Close()
	res, err := s.PostAccrual(ctx, day)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	return printOutcome(&c.output, res, res.Outcome)
}

// isSet reports whether the flag name was given on the command line.
func isSet(f *flag.FlagSet, name string) bool {
	set := false
	f.Visit(func(fl *flag.Flag) { set = set || fl.Name == name })
	return set
}

// whitelistRate returns the rate of an instrument of the policy whitelist,
// zero when there is no policy or the instrument is not whitelisted for
// that issuer.
func whitelistRate(instrument, issuer string) (int, error) {
	a, err := loadApp()
	if err != nil {
		return 0, err
	}
	p, found, err := loadPolicy(a)
	if err != nil || !found {
		return 0, err
	}
	if in, ok := p.Instrument(instrument); ok && in.Issuer == issuer {
		return in.RateBps, nil
	}
	return 0, nil
}

// parseRange reads a start and an end date from the command arguments.
func parseRange(f *flag.FlagSet) (date.Range, error) {
	if f.NArg() != 2 {
		return date.Range{}, fmt.Errorf("requires a start date and an end date")
	}
	from, err := date.Parse(f.Arg(0))
	if err != nil {
		return date.Range{}, err
	}
	to, err := date.Parse(f.Arg(1))
	if err != nil {
		return date.Range{}, err
	}
	if to.Before(from) {
		return date.Range{}, fmt.Errorf("end date %s is before start date %s", to, from)
	}
	return date.Range{From: from, To: to}, nil
}

// parseYear reads a year from the command arguments.
func parseYear(f *flag.FlagSet) (int, error) {
	if f.NArg() != 1 {
		return 0, fmt.Errorf("requires a year")
	}
	return strconv.Atoi(f.Arg(0))
}
