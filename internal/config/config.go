// Package config loads clinicflow settings from a TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rom8726/clinicflow"
)

const EnvPrefix = "CLINICFLOW"

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverDiskv    = "diskv"
)

// Config holds application configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Store    StoreConfig    `mapstructure:"store"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Checkout CheckoutConfig `mapstructure:"checkout"`
	Checkin  CheckinConfig  `mapstructure:"checkin"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Limits   LimitsConfig   `mapstructure:"limits"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StoreConfig selects the archetype backend. DSN is used by the SQL
// drivers and Path by diskv.
type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Path   string `mapstructure:"path"`
}

type WorkflowConfig struct {
	AbsorbPolicy string `mapstructure:"absorb_policy"`
}

type CheckoutConfig struct {
	EditInvoice  bool `mapstructure:"edit_invoice"`
	PrintInvoice bool `mapstructure:"print_invoice"`
}

type CheckinConfig struct {
	CreateTask bool `mapstructure:"create_task"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LimitsConfig caps workflow starts per workflow name. MaxStarts 0
// disables the limit.
type LimitsConfig struct {
	MaxStarts int           `mapstructure:"max_starts"`
	Refill    time.Duration `mapstructure:"refill"`
}

// Load reads configuration from path, or from $CLINICFLOW_CONFIG, or from
// config.toml in the user config directory. A missing default file is not
// an error. Env var overrides use prefix CLINICFLOW_.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("log.level", "info")
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.path", filepath.Join(os.TempDir(), "clinicflow"))
	v.SetDefault("workflow.absorb_policy", "stop")
	v.SetDefault("checkout.edit_invoice", false)
	v.SetDefault("checkout.print_invoice", true)
	v.SetDefault("checkin.create_task", true)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("limits.max_starts", 0)
	v.SetDefault("limits.refill", time.Minute)

	v.SetConfigType("toml")

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = path != ""
	}
	if explicit {
		v.SetConfigFile(path)
	} else {
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "clinicflow"))
		}
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory, DriverDiskv:
	case DriverSQLite, DriverMySQL, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if _, ok := clinicflow.ParseAbsorbPolicy(c.Workflow.AbsorbPolicy); !ok {
		return fmt.Errorf("unknown workflow.absorb_policy %q", c.Workflow.AbsorbPolicy)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}

// AbsorbPolicy returns the parsed workflow.absorb_policy.
func (c Config) AbsorbPolicy() clinicflow.AbsorbPolicy {
	policy, _ := clinicflow.ParseAbsorbPolicy(c.Workflow.AbsorbPolicy)

	return policy
}

func (c Config) LogLevel() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.Log.Level))

	return level
}
