package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	gserrors "github.com/vnykmshr/gosupervise/pkg/common/errors"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Runner.Name != "taskvisor" {
		t.Errorf("Runner.Name = %q, want %q", cfg.Runner.Name, "taskvisor")
	}
	if cfg.Runner.Tasks != 3 {
		t.Errorf("Runner.Tasks = %d, want 3", cfg.Runner.Tasks)
	}
	if !cfg.Runner.RecordCancellation {
		t.Error("Runner.RecordCancellation should be true by default")
	}
	if cfg.Heartbeat.Interval != time.Second {
		t.Errorf("Heartbeat.Interval = %v, want 1s", cfg.Heartbeat.Interval)
	}
	if cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled should be false by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config is invalid: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	if *cfg != *want {
		t.Errorf("Load() = %+v, want %+v", *cfg, *want)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
runner:
  name: ingest
  tasks: 8
  lock_os_thread: true
heartbeat:
  interval: 250ms
  max_work: 1s
status:
  schedule: "@every 5s"
logging:
  level: debug
  format: json
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig() error = %v", err)
	}

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runner.Name != "ingest" || cfg.Runner.Tasks != 8 || !cfg.Runner.LockOSThread {
		t.Errorf("unexpected runner config %+v", cfg.Runner)
	}
	if cfg.Heartbeat.Interval != 250*time.Millisecond {
		t.Errorf("Heartbeat.Interval = %v, want 250ms", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.MaxWork != time.Second {
		t.Errorf("Heartbeat.MaxWork = %v, want 1s", cfg.Heartbeat.MaxWork)
	}
	if cfg.Status.Schedule != "@every 5s" {
		t.Errorf("Status.Schedule = %q", cfg.Status.Schedule)
	}
	// untouched keys keep their defaults
	if cfg.Shutdown.Timeout != 10*time.Second {
		t.Errorf("Shutdown.Timeout = %v, want 10s", cfg.Shutdown.Timeout)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("TASKVISOR_RUNNER_TASKS", "5")
	t.Setenv("TASKVISOR_SHUTDOWN_AFTER", "3s")

	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Runner.Tasks != 5 {
		t.Errorf("Runner.Tasks = %d, want 5", cfg.Runner.Tasks)
	}
	if cfg.Shutdown.After != 3*time.Second {
		t.Errorf("Shutdown.After = %v, want 3s", cfg.Shutdown.After)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"empty name", func(c *Config) { c.Runner.Name = "" }, "runner.name"},
		{"zero tasks", func(c *Config) { c.Runner.Tasks = 0 }, "runner.tasks"},
		{"zero interval", func(c *Config) { c.Heartbeat.Interval = 0 }, "heartbeat.interval"},
		{"max below min", func(c *Config) { c.Heartbeat.MaxWork = time.Millisecond }, "heartbeat.max_work"},
		{"negative after", func(c *Config) { c.Shutdown.After = -time.Second }, "shutdown.after"},
		{"zero timeout", func(c *Config) { c.Shutdown.Timeout = 0 }, "shutdown.timeout"},
		{"zero status interval", func(c *Config) { c.Status.Interval = 0 }, "status.interval"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"metrics without addr", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Addr = ""
		}, "metrics.addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() returned nil")
			}
			if !errors.Is(err, gserrors.ErrInvalidConfiguration) {
				t.Errorf("error %v does not wrap ErrInvalidConfiguration", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestValidate_ScheduleReplacesInterval(t *testing.T) {
	cfg := Default()
	cfg.Status.Interval = 0
	cfg.Status.Schedule = "*/10 * * * * *"

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Runner.Tasks = -1
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	msg := err.Error()
	if !strings.Contains(msg, "runner.tasks") || !strings.Contains(msg, "logging.level") {
		t.Errorf("expected both failures in %q", msg)
	}
}

func TestConfigDir(t *testing.T) {
	if !strings.HasSuffix(ConfigDir(), "taskvisor") {
		t.Errorf("ConfigDir() = %q", ConfigDir())
	}
}
