// Package config holds the taskvisor configuration, loaded through viper
// from defaults, an optional config file, TASKVISOR_ environment variables
// and command-line flags.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/vnykmshr/gosupervise/internal/logging"
	gserrors "github.com/vnykmshr/gosupervise/pkg/common/errors"
	"github.com/vnykmshr/gosupervise/pkg/common/validation"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. TASKVISOR_RUNNER_TASKS for runner.tasks.
const EnvPrefix = "TASKVISOR"

// Config represents the complete taskvisor configuration
type Config struct {
	Runner    RunnerConfig    `mapstructure:"runner"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat"`
	Status    StatusConfig    `mapstructure:"status"`
	Shutdown  ShutdownConfig  `mapstructure:"shutdown"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// RunnerConfig controls the task runner
type RunnerConfig struct {
	// Name labels the runner in logs and metrics
	Name string `mapstructure:"name"`
	// Tasks is the number of heartbeat tasks to supervise
	Tasks int `mapstructure:"tasks"`
	// LockOSThread pins every task to its own OS thread
	LockOSThread bool `mapstructure:"lock_os_thread"`
	// RecordCancellation records canceled tasks as Canceled instead of Finished
	RecordCancellation bool `mapstructure:"record_cancellation"`
}

// HeartbeatConfig controls the demo task bodies
type HeartbeatConfig struct {
	// Interval is the pause between beats of a single task
	Interval time.Duration `mapstructure:"interval"`
	// MinWork and MaxWork bound the simulated work done per beat
	MinWork time.Duration `mapstructure:"min_work"`
	MaxWork time.Duration `mapstructure:"max_work"`
}

// StatusConfig controls the periodic status line
type StatusConfig struct {
	// Interval is the status cadence, used when Schedule is empty
	Interval time.Duration `mapstructure:"interval"`
	// Schedule is an optional cron expression that replaces Interval
	Schedule string `mapstructure:"schedule"`
	// Color enables colored status output
	Color bool `mapstructure:"color"`
}

// ShutdownConfig controls how the supervisor stops
type ShutdownConfig struct {
	// Timeout bounds the wait for tasks to stop after cancellation
	Timeout time.Duration `mapstructure:"timeout"`
	// After triggers a shutdown on its own after this long (0 = wait for a signal)
	After time.Duration `mapstructure:"after"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addr      string `mapstructure:"addr"`
	Namespace string `mapstructure:"namespace"`
}

// LoggingConfig controls structured logging
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is text or json
	Format string `mapstructure:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Runner: RunnerConfig{
			Name:               "taskvisor",
			Tasks:              3,
			LockOSThread:       false,
			RecordCancellation: true,
		},
		Heartbeat: HeartbeatConfig{
			Interval: time.Second,
			MinWork:  10 * time.Millisecond,
			MaxWork:  200 * time.Millisecond,
		},
		Status: StatusConfig{
			Interval: 2 * time.Second,
			Color:    true,
		},
		Shutdown: ShutdownConfig{
			Timeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled:   false,
			Addr:      ":9090",
			Namespace: "taskvisor",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// SetDefaults registers the defaults with v so they apply even without a
// config file.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("runner.name", d.Runner.Name)
	v.SetDefault("runner.tasks", d.Runner.Tasks)
	v.SetDefault("runner.lock_os_thread", d.Runner.LockOSThread)
	v.SetDefault("runner.record_cancellation", d.Runner.RecordCancellation)

	v.SetDefault("heartbeat.interval", d.Heartbeat.Interval)
	v.SetDefault("heartbeat.min_work", d.Heartbeat.MinWork)
	v.SetDefault("heartbeat.max_work", d.Heartbeat.MaxWork)

	v.SetDefault("status.interval", d.Status.Interval)
	v.SetDefault("status.schedule", d.Status.Schedule)
	v.SetDefault("status.color", d.Status.Color)

	v.SetDefault("shutdown.timeout", d.Shutdown.Timeout)
	v.SetDefault("shutdown.after", d.Shutdown.After)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every section and returns all failures joined.
func (c *Config) Validate() error {
	const module = "config"

	errs := []error{
		validation.ValidateNotEmpty(module, "runner.name", c.Runner.Name),
		validation.ValidatePositive(module, "runner.tasks", c.Runner.Tasks),
		validation.ValidatePositiveDuration(module, "heartbeat.interval", c.Heartbeat.Interval),
		validation.ValidateNonNegativeDuration(module, "heartbeat.min_work", c.Heartbeat.MinWork),
		validation.ValidatePositiveDuration(module, "shutdown.timeout", c.Shutdown.Timeout),
		validation.ValidateNonNegativeDuration(module, "shutdown.after", c.Shutdown.After),
		validation.ValidateOneOf(module, "logging.level", c.Logging.Level, ValidLogLevels()...),
		validation.ValidateOneOf(module, "logging.format", c.Logging.Format, logging.FormatText, logging.FormatJSON),
	}
	if c.Heartbeat.MaxWork < c.Heartbeat.MinWork {
		errs = append(errs, gserrors.NewValidationError(module, "heartbeat.max_work", c.Heartbeat.MaxWork,
			"must not be below heartbeat.min_work"))
	}
	if c.Status.Schedule == "" {
		errs = append(errs, validation.ValidatePositiveDuration(module, "status.interval", c.Status.Interval))
	}
	if c.Metrics.Enabled {
		errs = append(errs, validation.ValidateNotEmpty(module, "metrics.addr", c.Metrics.Addr))
	}
	return errors.Join(errs...)
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ConfigDir returns the directory searched for config.yaml after the
// working directory.
func ConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "taskvisor")
	}
	return filepath.Join(os.Getenv("HOME"), ".config", "taskvisor")
}
