// Package metrics provides Prometheus instrumentation for gosupervise components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for gosupervise components.
type Registry struct {
	// Task Runner Metrics
	TasksStarted   *prometheus.CounterVec
	TasksStopped   *prometheus.CounterVec
	TasksFailed    *prometheus.CounterVec
	TasksPanicked  *prometheus.CounterVec
	TasksRejected  *prometheus.CounterVec
	TasksReaped    *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	RunnerActive   *prometheus.GaugeVec
	RunnerShutdown *prometheus.CounterVec

	// Shutdown Monitor Metrics
	ShutdownBroadcasts *prometheus.CounterVec
	MonitorsRegistered prometheus.Gauge
}

// DefaultRegistry is the default metrics registry used by gosupervise components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Enabled: true, Registry: reg})
}

// NewRegistryWithConfig creates a metrics registry honoring the namespace and
// constant labels of cfg. A nil cfg.Registry means prometheus.DefaultRegisterer.
//
// A disabled cfg yields a nil *Registry, which runners and the shutdown
// package accept as "no metrics".
func NewRegistryWithConfig(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Registry{
		// Task Runner Metrics
		TasksStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "tasks_started_total",
				Help:        "Total number of tasks that completed the start handshake",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name"},
		),

		TasksStopped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "tasks_stopped_total",
				Help:        "Total number of tasks that reached a terminal state",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name", "state"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "tasks_failed_total",
				Help:        "Total number of task actions that returned an error",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name"},
		),

		TasksPanicked: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "tasks_panicked_total",
				Help:        "Total number of task actions that panicked",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name"},
		),

		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "tasks_rejected_total",
				Help:        "Total number of start requests the runner refused",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name", "reason"},
		),

		TasksReaped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "tasks_reaped_total",
				Help:        "Total number of task goroutines joined and removed by the reaper",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "task_duration_seconds",
				Help:        "Time spent inside task actions",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name"},
		),

		RunnerActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "active_tasks",
				Help:        "Number of tasks in the runner's active set",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name"},
		),

		RunnerShutdown: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "runner",
				Name:        "shutdowns_total",
				Help:        "Total number of completed runner shutdowns",
				ConstLabels: cfg.Labels,
			},
			[]string{"runner_name"},
		),

		// Shutdown Monitor Metrics
		ShutdownBroadcasts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "shutdown",
				Name:        "broadcasts_total",
				Help:        "Total number of global shutdown broadcasts",
				ConstLabels: cfg.Labels,
			},
			[]string{"source"},
		),

		MonitorsRegistered: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "shutdown",
				Name:        "monitors_registered",
				Help:        "Number of shutdown monitors waiting for a global shutdown",
				ConstLabels: cfg.Labels,
			},
		),
	}
}
