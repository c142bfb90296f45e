package config

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"codeberg.org/mutker/metalsnapd/internal/errors"
	"codeberg.org/mutker/metalsnapd/internal/schedule"
)

const (
	DefaultLogLevel      = "info"
	DefaultDBPath        = "/var/lib/metalsnapd/snapshots.db"
	DefaultSourceTimeout = 20 // seconds

	configName = "metalsnapd"
	envPrefix  = "METALSNAPD"
)

// Config is the immutable per-cycle configuration snapshot.
type Config struct {
	APIKey string `mapstructure:"api_key"`

	// Times are the daily capture times as strict "HH:MM" strings.
	// Empty means the built-in default schedule.
	Times []string `mapstructure:"times"`

	// UseDatabaseSchedule is accepted for compatibility with older
	// deployments but ignored: configured times always win.
	UseDatabaseSchedule bool `mapstructure:"use_database_schedule"`

	Database      string `mapstructure:"database"`
	SourceTimeout int    `mapstructure:"source_timeout"`
	LogLevel      string `mapstructure:"log_level"`
	Debug         bool   `mapstructure:"debug"`
	Verbose       bool   `mapstructure:"verbose"`
}

// Load reads configuration from flags, the environment and an optional
// TOML file (metalsnapd.toml in /etc or the working directory, or the
// path in METALSNAPD_CONFIG). It returns a Monitor whose Current()
// yields the latest validated snapshot.
func Load() (*Monitor, error) {
	fs := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	fs.String("database", DefaultDBPath, "Path to the snapshot database")
	fs.String("api-key", "", "metals-api.com access key")
	fs.String("log-level", DefaultLogLevel, "Log level (debug, info, warning, error)")
	fs.Bool("debug", false, "Enable debug logging")
	fs.Bool("verbose", false, "Enable verbose logging")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err)
	}

	v := viper.New()
	v.SetDefault("database", DefaultDBPath)
	v.SetDefault("source_timeout", DefaultSourceTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("times", []string{})
	v.SetDefault("use_database_schedule", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about; bind the ones
	// without defaults so env-only values are picked up.
	_ = v.BindEnv("api_key")
	_ = v.BindEnv("debug")
	_ = v.BindEnv("verbose")

	if *configPath == "" {
		*configPath = os.Getenv(envPrefix + "_CONFIG")
	}
	if *configPath != "" {
		v.SetConfigFile(*configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("toml")
		v.AddConfigPath("/etc")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(errors.ErrReadConfig, err)
		}
	}

	// Flags set on the command line override file and environment.
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "config" {
			return
		}
		v.Set(strings.ReplaceAll(f.Name, "-", "_"), f.Value.String())
	})

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfig, err)
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	} else if cfg.Verbose && cfg.LogLevel != "debug" {
		cfg.LogLevel = "info"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return newMonitor(v, cfg), nil
}

// Validate checks the configuration for startup. A blank API key or an
// unparsable time entry is fatal here, before any cycle runs.
func (c Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warning", "warn", "error":
	default:
		return errors.WithData(errors.ErrInvalidLogLevel, c.LogLevel)
	}

	if strings.TrimSpace(c.APIKey) == "" {
		return errors.WithData(errors.ErrMissingConfig, "api_key")
	}

	if c.Database == "" {
		return errors.WithData(errors.ErrMissingConfig, "database")
	}

	if c.SourceTimeout <= 0 {
		return errors.WithData(errors.ErrInvalidConfig, "source_timeout must be positive")
	}

	if _, err := schedule.Parse(c.Times); err != nil {
		return err
	}

	return nil
}
