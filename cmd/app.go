// Package cmd implements the CLI application of the treasury auto-sweep.
package cmd

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/etnz/treasury"
	"github.com/etnz/treasury/config"
	"github.com/etnz/treasury/holdings"
	"github.com/google/subcommands"
	"github.com/sirupsen/logrus"
)

// Commands lists the subcommands, a main package registers them all.
var Commands = []subcommands.Command{
	&runCmd{},
	&forecastCmd{},

	&setupCmd{},
	&seedCmd{},
	&clearCmd{},
	&listCmd{},
	&totalsCmd{},
	&allocateCmd{},
	&redeemCmd{},
	&postAccrualCmd{},

	&dailySeriesCmd{},
	&ytdCmd{},
	&attributionCmd{},
	&dailyDetailCmd{},
	&exportCmd{},

	&topicCmd{},
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "", "Path to a toml config file (default ./sweep.toml when present)")
var dataDir = flag.String("data-dir", "", "Directory of the snapshots and configuration files (overrides config)")
var dbPath = flag.String("db-path", "", "Path to the holdings database (overrides config)")
var outDir = flag.String("out-dir", "", "Directory of the execution artifacts (overrides config)")
var logLevel = flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
var logJSON = flag.Bool("log-json", false, "Log in JSON")

// loadApp reads the application settings, then applies the global flags.
func loadApp() (config.App, error) {
	a, err := config.LoadApp(*configFile)
	if err != nil {
		return a, err
	}
	override := func(setting *string, flagValue string) {
		if flagValue != "" {
			*setting = flagValue
		}
	}
	override(&a.DataDir, *dataDir)
	override(&a.DBPath, *dbPath)
	override(&a.OutDir, *outDir)
	override(&a.LogLevel, *logLevel)
	return a, nil
}

// setup loads the settings and builds the logger, reporting errors on stderr.
func setup() (config.App, *logrus.Logger, bool) {
	a, err := loadApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return a, nil, false
	}
	log, err := NewLogger(a.LogLevel, *logJSON)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return a, nil, false
	}
	return a, log, true
}

// loadPolicy reads the policy of the data directory. The ledger can be used
// before any policy is written, found is false then.
func loadPolicy(a config.App) (p treasury.PolicyConfig, found bool, err error) {
	p, err = config.LoadPolicy(filepath.Join(a.DataDir, config.PolicyFile))
	if errors.Is(err, config.ErrMissingFile) {
		return p, false, nil
	}
	return p, err == nil, err
}

// openStore opens the holdings ledger of the app settings, in the policy
// currency.
func openStore() (*holdings.Store, bool) {
	a, log, ok := setup()
	if !ok {
		return nil, false
	}
	p, found, err := loadPolicy(a)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, false
	}
	cfg := holdings.Config{Path: a.DBPath, Logger: log}
	if found {
		cfg.Currency = p.Currency
	}
	s, err := holdings.Open(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return nil, false
	}
	return s, true
}
