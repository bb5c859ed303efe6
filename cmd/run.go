package cmd

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/config"
	"github.com/etnz/treasury/date"
	"github.com/etnz/treasury/loader"
	"github.com/etnz/treasury/renderer"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// runFlags are the flags shared by the run and forecast commands.
type runFlags struct {
	horizon int
	demo    bool
	at      string
}

func (r *runFlags) SetFlags(f *flag.FlagSet) {
	f.IntVar(&r.horizon, "horizon", 0, fmt.Sprintf("Forecast horizon in days, %d to %d (default from config).", config.MinHorizon, config.MaxHorizon))
	f.BoolVar(&r.demo, "demo", false, fmt.Sprintf("Replay the snapshots as of the demo date %s.", treasury.DemoDate))
	f.StringVar(&r.at, "at", "", "Instant of the run, '2006-01-02T15:04' in the calendar time zone or RFC 3339 (default now).")
}

// load reads the configuration and the snapshots of a run.
func (r *runFlags) load() (treasury.Settings, treasury.Inputs, time.Time, *logrus.Logger, subcommands.ExitStatus) {
	var s treasury.Settings
	var in treasury.Inputs
	a, log, ok := setup()
	if !ok {
		return s, in, time.Time{}, nil, subcommands.ExitFailure
	}
	horizon := a.Horizon
	if r.horizon != 0 {
		horizon = r.horizon
	}
	if horizon < config.MinHorizon || horizon > config.MaxHorizon {
		fmt.Fprintf(os.Stderr, "horizon %d is not in [%d, %d]\n", horizon, config.MinHorizon, config.MaxHorizon)
		return s, in, time.Time{}, nil, subcommands.ExitUsageError
	}

	s, err := config.Load(a.DataDir, horizon)
	if err != nil {
		logError(log, "run", "loading configuration", err)
		return s, in, time.Time{}, nil, subcommands.ExitFailure
	}
	if in, err = loader.LoadDir(a.DataDir, s.Policy.Currency); err != nil {
		logError(log, "run", "loading snapshots", err)
		return s, in, time.Time{}, nil, subcommands.ExitFailure
	}
	at, err := instant(s.Calendar, r.demo || a.Demo, r.at)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return s, in, time.Time{}, nil, subcommands.ExitUsageError
	}
	return s, in, at, log, subcommands.ExitSuccess
}

// instant resolves the instant of a run.
func instant(cal treasury.CutoffCalendar, demo bool, at string) (time.Time, error) {
	loc := cal.Location
	if loc == nil {
		loc = time.UTC
	}
	switch {
	case at != "":
		if t, err := time.ParseInLocation("2006-01-02T15:04", at, loc); err == nil {
			return t, nil
		}
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return t, fmt.Errorf("invalid instant %q: %w", at, err)
		}
		return t.In(loc), nil
	case demo:
		return treasury.DemoDate.At(10, 0, loc), nil
	}
	return time.Now().In(loc), nil
}

type runCmd struct {
	runFlags
	output
	perform    bool
	approve    bool
	rejectRate float64
	seed       uint64
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "forecast cash, prescribe a sweep order and optionally perform it" }
func (*runCmd) Usage() string {
	return `sweep run [-horizon <days>] [-demo] [-at <instant>] [-perform [-approve] [-reject-rate <rate>]] [-md] [-q <query>]

  Runs the pipeline once on the snapshots of the data directory: predicts
  the expected cash flows over the horizon, computes the cash to keep and
  the deployable surplus, and proposes a sweep order.

  With -perform the order is simulated to a terminal state and its
  execution artifact is written in the output directory. Running again on
  the same snapshots yields the same order and does not execute it twice.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	c.runFlags.SetFlags(f)
	c.output.SetFlags(f)
	f.BoolVar(&c.perform, "perform", false, "Simulate the execution of the order.")
	f.BoolVar(&c.approve, "approve", false, "Approve orders that need a maker-checker approval.")
	f.Float64Var(&c.rejectRate, "reject-rate", 0, "Reject executions at random at this rate instead of following the rules.")
	f.Uint64Var(&c.seed, "seed", 1, "Seed of the random rejections.")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, in, at, log, status := c.load()
	if status != subcommands.ExitSuccess {
		return status
	}

	var performer *treasury.Performer
	if c.perform {
		a, err := loadApp()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return subcommands.ExitFailure
		}
		var decider treasury.Decider = treasury.RuleDecider{Approved: c.approve, Today: date.Of(at)}
		if c.rejectRate > 0 {
			decider = treasury.RandomDecider{Rand: rand.New(rand.NewPCG(c.seed, c.seed)), RejectRate: c.rejectRate}
		}
		performer = &treasury.Performer{Decider: decider, Store: treasury.DirArtifacts{Dir: a.OutDir}}
	}

	sum, err := treasury.Run(ctx, s, in, at, performer)
	if err != nil {
		logError(log, "run", "running the pipeline", err)
		return subcommands.ExitFailure
	}

	fields := logrus.Fields{
		"module":     "sweep",
		"as_of":      sum.AsOf.String(),
		"horizon":    sum.HorizonDays,
		"balance":    sum.CurrentBalance.String(),
		"must_keep":  sum.Prescription.MustKeep.String(),
		"deployable": sum.Prescription.Deployable.String(),
		"reason":     sum.Prescription.Proposal.ReasonCode,
		"defects":    len(sum.Defects),
	}
	if sum.Order != nil {
		fields["order"] = sum.Order.ID
		fields["status"] = sum.Order.Status
	}
	log.WithFields(fields).Info("run complete")

	return c.print(sum, func() string { return renderer.RenderRun(sum) })
}

type forecastCmd struct {
	runFlags
	output
}

func (*forecastCmd) Name() string     { return "forecast" }
func (*forecastCmd) Synopsis() string { return "display the probability weighted cash flows over the horizon" }
func (*forecastCmd) Usage() string {
	return `sweep forecast [-horizon <days>] [-demo] [-at <instant>] [-md] [-q <query>]

  Scores every open invoice and bill of the snapshots and prints the
  expected inflows and outflows within the horizon.
`
}

func (c *forecastCmd) SetFlags(f *flag.FlagSet) {
	c.runFlags.SetFlags(f)
	c.output.SetFlags(f)
}

func (c *forecastCmd) Execute(_ context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, in, at, log, status := c.load()
	if status != subcommands.ExitSuccess {
		return status
	}
	asOf := date.Of(at)
	fc, err := treasury.HorizonFlows(asOf, s.HorizonDays, in.Receivables, in.Payables, s.Model, s.Policy.APProvisionDays)
	if err != nil {
		logError(log, "forecast", "forecasting", err)
		return subcommands.ExitFailure
	}
	log.WithFields(logrus.Fields{
		"module":   "sweep",
		"as_of":    asOf.String(),
		"inflows":  len(fc.Inflows()),
		"outflows": len(fc.Outflows()),
		"defects":  len(fc.Defects()),
	}).Info("forecast complete")
	return c.print(fc, func() string { return renderer.RenderForecast(fc) })
}
