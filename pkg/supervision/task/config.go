package task

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/vnykmshr/gosupervise/pkg/metrics"
)

// Config holds configuration options for creating a Runner.
type Config struct {
	// Name identifies the runner in logs and metric labels.
	// Defaults to "runner-" followed by 8 random hex characters.
	Name string

	// Logger receives lifecycle and failure events. Nil discards them.
	Logger *slog.Logger

	// Metrics is the registry to record runner metrics in. Nil disables metrics.
	Metrics *metrics.Registry

	// LockOSThread pins each task goroutine to its own OS thread for the
	// lifetime of the action. The thread exits together with the goroutine.
	LockOSThread bool

	// RecordCancellation makes the runner record Canceled instead of Finished
	// for tasks whose cancellation was requested before the action returned.
	RecordCancellation bool
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "runner-" + uuid.NewString()[:8]
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}
