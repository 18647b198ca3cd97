package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vnykmshr/gosupervise/internal/config"
	"github.com/vnykmshr/gosupervise/internal/logging"
	"github.com/vnykmshr/gosupervise/pkg/supervision/shutdown"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the heartbeat tasks and wait for a shutdown signal",
	Long: `Start the configured number of heartbeat tasks on a single runner.
A status line is printed on every status tick until SIGINT or SIGTERM
arrives (or --after elapses). The tasks are then canceled and the
runner is shut down.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	flags := runCmd.Flags()
	flags.IntP("tasks", "n", 0, "number of heartbeat tasks")
	flags.String("name", "", "runner name used in logs and metrics")
	flags.Duration("interval", 0, "pause between beats of a task")
	flags.Duration("status-interval", 0, "status line cadence")
	flags.String("status-schedule", "", "cron expression for the status line, replaces --status-interval")
	flags.Duration("after", 0, "trigger a shutdown after this long")
	flags.Duration("shutdown-timeout", 0, "how long to wait for tasks to stop")
	flags.Bool("lock-os-thread", false, "pin every task to its own OS thread")
	flags.Bool("metrics", false, "serve Prometheus metrics")
	flags.String("metrics-addr", "", "metrics listen address")
	flags.Bool("no-color", false, "disable colored status output")

	bind := map[string]string{
		"runner.tasks":          "tasks",
		"runner.name":           "name",
		"heartbeat.interval":    "interval",
		"status.interval":       "status-interval",
		"status.schedule":       "status-schedule",
		"shutdown.after":        "after",
		"shutdown.timeout":      "shutdown-timeout",
		"runner.lock_os_thread": "lock-os-thread",
		"metrics.enabled":       "metrics",
		"metrics.addr":          "metrics-addr",
	}
	for key, flag := range bind {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.Status.Color = false
	}

	logger := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	shutdown.SetLogger(logger)

	sup := NewSupervisor(cfg, logger, cmd.OutOrStdout(), shutdown.Create())
	shutdown.SetMetrics(sup.Metrics())

	return sup.Run()
}
