// Package config loads the settings of the sweep tool: the application
// settings from an optional toml file and the environment, and the three
// JSON files of the data directory (policy, cutoff calendar and probability
// model).
package config

import (
	"cmp"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// App holds the application settings.
type App struct {
	DataDir  string `mapstructure:"data_dir"`
	OutDir   string `mapstructure:"out_dir"`
	DBPath   string `mapstructure:"db_path"`
	Horizon  int    `mapstructure:"horizon"`
	Demo     bool   `mapstructure:"demo"`
	LogLevel string `mapstructure:"log_level"`
}

// Horizon bounds accepted on the command line.
const (
	MinHorizon     = 3
	MaxHorizon     = 14
	DefaultHorizon = 7
)

// LoadApp reads the application settings. file is an optional toml file,
// "sweep.toml" in the working directory is used when empty and ignored if
// missing. Environment variables prefixed with SWEEP_ override both.
func LoadApp(file string) (App, error) {
	v := viper.New()

	// default values
	v.SetDefault("data_dir", "data")
	v.SetDefault("out_dir", "out")
	v.SetDefault("db_path", filepath.Join("data", "holdings.db"))
	v.SetDefault("horizon", DefaultHorizon)
	v.SetDefault("demo", false)
	v.SetDefault("log_level", "info")

	v.SetConfigType("toml")
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("sweep")
	}

	v.SetEnvPrefix("SWEEP")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// an explicit file must exist, the default one is optional but must be valid.
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return App{}, fmt.Errorf("cannot read config %q: %w", cmp.Or(file, "sweep.toml"), err)
		}
	}

	var a App
	if err := v.Unmarshal(&a); err != nil {
		return App{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := a.Validate(); err != nil {
		return App{}, err
	}
	return a, nil
}

// Validate checks the horizon bounds.
func (a App) Validate() error {
	if a.Horizon < MinHorizon || a.Horizon > MaxHorizon {
		return fmt.Errorf("horizon %d is not in [%d, %d]", a.Horizon, MinHorizon, MaxHorizon)
	}
	return nil
}
