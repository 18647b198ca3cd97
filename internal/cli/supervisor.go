package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc/pool"

	"github.com/vnykmshr/gosupervise/internal/config"
	gscontext "github.com/vnykmshr/gosupervise/pkg/common/context"
	"github.com/vnykmshr/gosupervise/pkg/metrics"
	"github.com/vnykmshr/gosupervise/pkg/supervision/shutdown"
	"github.com/vnykmshr/gosupervise/pkg/supervision/task"
)

// Supervisor runs the heartbeat fleet of a taskvisor process: it starts
// the tasks, reports status until its monitor is triggered and then stops
// the runner.
type Supervisor struct {
	cfg     *config.Config
	logger  *slog.Logger
	out     io.Writer
	monitor *shutdown.Monitor
	styles  styles

	metrics  *metrics.Registry
	gatherer prometheus.Gatherer

	runner *task.Runner
	beats  []*heartbeat

	metricsAddr string
}

// NewSupervisor creates a supervisor reporting to out and stopping when mon
// is triggered. Metrics are kept in a private registry.
func NewSupervisor(cfg *config.Config, logger *slog.Logger, out io.Writer, mon *shutdown.Monitor) *Supervisor {
	reg := prometheus.NewRegistry()
	m := metrics.NewRegistryWithConfig(metrics.Config{
		Enabled:   true,
		Registry:  reg,
		Namespace: cfg.Metrics.Namespace,
	})

	return &Supervisor{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		monitor:  mon,
		styles:   newStyles(cfg.Status.Color),
		metrics:  m,
		gatherer: reg,
		runner: task.NewRunner(task.Config{
			Name:               cfg.Runner.Name,
			Logger:             logger,
			Metrics:            m,
			LockOSThread:       cfg.Runner.LockOSThread,
			RecordCancellation: cfg.Runner.RecordCancellation,
		}),
	}
}

// Metrics returns the registry the supervisor records into.
func (s *Supervisor) Metrics() *metrics.Registry {
	return s.metrics
}

// Runner returns the runner executing the heartbeat tasks.
func (s *Supervisor) Runner() *task.Runner {
	return s.runner
}

// Run starts the fleet and blocks until the monitor is triggered and the
// tasks have stopped, or until the shutdown timeout expires.
func (s *Supervisor) Run() error {
	var srv *http.Server
	if s.cfg.Metrics.Enabled {
		var err error
		if srv, err = s.serveMetrics(); err != nil {
			s.runner.Shutdown()
			return err
		}
		defer s.stopMetrics(srv)
	}

	if err := s.startTasks(); err != nil {
		s.runner.Shutdown()
		return fmt.Errorf("failed to start tasks: %w", err)
	}
	s.logger.Info("supervisor running", "runner", s.runner.Name(), "tasks", s.runner.Len())

	if after := s.cfg.Shutdown.After; after > 0 {
		timer := time.AfterFunc(after, func() {
			if shutdown.Trigger() {
				s.logger.Info("shutdown deadline reached", "after", after)
			}
		})
		defer timer.Stop()
	}

	if schedule := s.cfg.Status.Schedule; schedule != "" {
		if err := s.monitor.WhileLiveSchedule(schedule, s.printStatus); err != nil {
			s.runner.Shutdown()
			return err
		}
	} else {
		s.monitor.WhileLive(s.cfg.Status.Interval, s.printStatus)
	}

	err := s.stop()
	s.printSummary(err == nil)
	return err
}

// startTasks launches the heartbeat tasks concurrently. Each launch blocks
// until its task has signaled start.
func (s *Supervisor) startTasks() error {
	hb := s.cfg.Heartbeat
	seed := uint64(time.Now().UnixNano())

	p := pool.New().WithErrors()
	for i := 0; i < s.cfg.Runner.Tasks; i++ {
		h := newHeartbeat("beat-"+strconv.Itoa(i), hb.Interval,
			durationGenerator(hb.MinWork, hb.MaxWork, seed+uint64(i)), s.logger)
		s.beats = append(s.beats, h)

		t := task.New(h)
		p.Go(func() error {
			return s.runner.Launch(t)
		})
	}
	return p.Wait()
}

// stop cancels every task and waits for them within the shutdown timeout.
// On timeout the runner stops accepting tasks at once and finishes its
// shutdown in the background when the remaining tasks return.
func (s *Supervisor) stop() error {
	s.logger.Info("stopping tasks", "active", s.runner.Len())
	s.runner.CancelAll()

	ctx, cancel := gscontext.WithTimeoutOrCancel(context.Background(), s.cfg.Shutdown.Timeout)
	defer cancel()
	if err := s.runner.AwaitAllContext(ctx); err != nil {
		remaining := s.runner.Len()
		s.logger.Error("tasks did not stop in time", "remaining", remaining, "timeout", s.cfg.Shutdown.Timeout)
		go s.runner.Shutdown()
		return fmt.Errorf("%d tasks still running after %v: %w", remaining, s.cfg.Shutdown.Timeout, err)
	}

	s.runner.Shutdown()
	return nil
}

func (s *Supervisor) totalBeats() int64 {
	var total int64
	for _, h := range s.beats {
		total += h.Beats()
	}
	return total
}

func (s *Supervisor) printStatus() {
	active := s.runner.Len()
	state := s.styles.active.Render("running")
	if active < s.cfg.Runner.Tasks {
		state = s.styles.idle.Render("degraded")
	}

	fmt.Fprintln(s.out, strings.Join([]string{
		state,
		s.styles.field("runner", s.runner.Name()),
		s.styles.field("active", strconv.Itoa(active)),
		s.styles.field("beats", strconv.FormatInt(s.totalBeats(), 10)),
	}, "  "))
}

func (s *Supervisor) printSummary(clean bool) {
	state := s.styles.stop.Render("stopped")
	if !clean {
		state = s.styles.stop.Render("timed out")
	}
	fmt.Fprintln(s.out, strings.Join([]string{
		state,
		s.styles.field("runner", s.runner.Name()),
		s.styles.field("beats", strconv.FormatInt(s.totalBeats(), 10)),
	}, "  "))
}

func (s *Supervisor) serveMetrics() (*http.Server, error) {
	ln, err := net.Listen("tcp", s.cfg.Metrics.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.cfg.Metrics.Addr, err)
	}
	s.metricsAddr = ln.Addr().String()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server failed", "error", err)
		}
	}()
	s.logger.Info("serving metrics", "addr", s.metricsAddr)
	return srv, nil
}

func (s *Supervisor) stopMetrics(srv *http.Server) {
	ctx, cancel := gscontext.WithTimeoutOrCancel(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics server shutdown", "error", err)
	}
}
