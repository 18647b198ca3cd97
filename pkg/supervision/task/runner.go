package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	gserrors "github.com/vnykmshr/gosupervise/pkg/common/errors"
	"github.com/vnykmshr/gosupervise/pkg/metrics"
)

// Runner runs each started Task on its own goroutine and reclaims it when
// the action returns.
//
// Start blocks until the task signals Started, so the caller knows the task
// is ready to accept queries and cancellation when Start returns.
//
// A dedicated reaper goroutine joins finished task goroutines and removes
// them from the active set.
//
// Lock ordering: tasksMu guards the active set and finishMu guards the
// finishing queue. The two are never held at the same time.
//
// A Runner must be created with NewRunner.
type Runner struct {
	cfg    Config
	logger *slog.Logger

	active atomic.Bool

	tasksMu   sync.Mutex
	tasks     map[uint64]*Task
	idle      chan struct{} // closed while tasks is empty
	cancelGen uint64        // bumped by every CancelAll

	finishMu  sync.Mutex
	finishing []*Task
	wake      *sync.Cond
	exiting   bool

	reaperDone chan struct{}
	stopped    chan struct{}
}

// NewRunner creates a runner and starts its reaper goroutine.
func NewRunner(cfg Config) *Runner {
	cfg = cfg.withDefaults()

	idle := make(chan struct{})
	close(idle)

	r := &Runner{
		cfg:        cfg,
		logger:     cfg.Logger.With("runner", cfg.Name),
		tasks:      make(map[uint64]*Task),
		idle:       idle,
		reaperDone: make(chan struct{}),
		stopped:    make(chan struct{}),
	}
	r.wake = sync.NewCond(&r.finishMu)
	r.active.Store(true)

	go r.reap()
	return r
}

// NewRunnerWithMetrics creates a named runner recording into metrics.DefaultRegistry.
func NewRunnerWithMetrics(name string) *Runner {
	return NewRunner(Config{
		Name:    name,
		Metrics: metrics.DefaultRegistry,
	})
}

// Name returns the runner's name.
func (r *Runner) Name() string {
	return r.cfg.Name
}

// IsActive reports whether the runner still accepts tasks.
func (r *Runner) IsActive() bool {
	return r.active.Load()
}

// Start starts t and blocks until its action calls Started.
// It returns false if the runner is shut down, t is nil, or t was already
// started by this or any other runner.
func (r *Runner) Start(t *Task) bool {
	return r.Launch(t) == nil
}

// Launch is Start with the reason for a refusal: ErrClosed, ErrNilTask or
// ErrAlreadyStarted. A task not built by New counts as nil.
func (r *Runner) Launch(t *Task) error {
	if t == nil || t.started == nil {
		r.rejected("nil")
		return gserrors.ErrNilTask
	}

	r.tasksMu.Lock()
	if !r.active.Load() {
		r.tasksMu.Unlock()
		r.rejected("closed")
		return fmt.Errorf("cannot start %v: runner %s: %w", t, r.cfg.Name, gserrors.ErrClosed)
	}
	if _, exists := r.tasks[t.id]; exists || !t.claimed.CompareAndSwap(false, true) {
		r.tasksMu.Unlock()
		r.rejected("duplicate")
		return fmt.Errorf("cannot start %v: %w", t, gserrors.ErrAlreadyStarted)
	}
	if len(r.tasks) == 0 {
		r.idle = make(chan struct{})
	}
	r.tasks[t.id] = t
	r.setActiveGauge(len(r.tasks))
	gen := r.cancelGen
	t.runner.Store(r)
	r.tasksMu.Unlock()

	go r.run(t)
	t.awaitStart()

	// A CancelAll that ran during the handshake saw the task as Created
	// and skipped it.
	r.tasksMu.Lock()
	if r.cancelGen != gen {
		t.Cancel()
	}
	r.tasksMu.Unlock()

	r.logger.Debug("task started", "task", t.id)
	if m := r.cfg.Metrics; m != nil {
		m.TasksStarted.WithLabelValues(r.cfg.Name).Inc()
	}
	return nil
}

// CancelAll requests cancellation of every active task, in id order.
// It does not wait for the tasks to stop.
func (r *Runner) CancelAll() {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	r.cancelAllLocked()
}

func (r *Runner) cancelAllLocked() {
	r.cancelGen++
	for _, t := range r.sortedLocked() {
		t.Cancel()
	}
}

// AwaitAll blocks until the active set is empty.
func (r *Runner) AwaitAll() {
	for {
		r.tasksMu.Lock()
		if len(r.tasks) == 0 {
			r.tasksMu.Unlock()
			return
		}
		idle := r.idle
		r.tasksMu.Unlock()
		<-idle
	}
}

// AwaitAllContext is AwaitAll bounded by ctx.
func (r *Runner) AwaitAllContext(ctx context.Context) error {
	for {
		r.tasksMu.Lock()
		if len(r.tasks) == 0 {
			r.tasksMu.Unlock()
			return nil
		}
		idle := r.idle
		r.tasksMu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Shutdown stops accepting tasks, cancels every active task, waits for the
// active set to drain and stops the reaper. It is idempotent: concurrent
// and later calls return once the first shutdown has completed.
//
// Shutdown blocks for as long as any action ignores its cancellation, and
// must not be called from inside an action of the same runner.
func (r *Runner) Shutdown() {
	r.tasksMu.Lock()
	if !r.active.CompareAndSwap(true, false) {
		r.tasksMu.Unlock()
		<-r.stopped
		return
	}
	pending := len(r.tasks)
	r.cancelAllLocked()
	r.tasksMu.Unlock()

	r.logger.Debug("runner shutting down", "pending", pending)
	r.AwaitAll()

	r.finishMu.Lock()
	r.exiting = true
	r.wake.Signal()
	r.finishMu.Unlock()
	<-r.reaperDone

	if m := r.cfg.Metrics; m != nil {
		m.RunnerShutdown.WithLabelValues(r.cfg.Name).Inc()
	}
	r.logger.Info("runner stopped")
	close(r.stopped)
}

// Close shuts the runner down. It always returns nil and makes the runner
// usable with defer and io.Closer.
func (r *Runner) Close() error {
	r.Shutdown()
	return nil
}

// Len returns the number of tasks in the active set.
func (r *Runner) Len() int {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	return len(r.tasks)
}

// Tasks returns a snapshot of the active set ordered by task id.
func (r *Runner) Tasks() []*Task {
	r.tasksMu.Lock()
	defer r.tasksMu.Unlock()
	return r.sortedLocked()
}

func (r *Runner) sortedLocked() []*Task {
	out := make([]*Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Task) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

// run is the body of a task goroutine.
func (r *Runner) run(t *Task) {
	defer close(t.exited)
	if r.cfg.LockOSThread {
		// Never unlocked, so the thread is torn down with the goroutine.
		runtime.LockOSThread()
	}

	start := time.Now()
	r.execute(t)
	elapsed := time.Since(start)

	if t.State() == Created {
		r.logger.Warn("task returned without signaling start", "task", t.id)
		t.Started()
	}

	state := Finished
	if r.cfg.RecordCancellation && t.ShouldCancel() && t.canceled() {
		state = Canceled
	} else {
		t.finished()
	}

	if m := r.cfg.Metrics; m != nil {
		m.TaskDuration.WithLabelValues(r.cfg.Name).Observe(elapsed.Seconds())
		m.TasksStopped.WithLabelValues(r.cfg.Name, state.String()).Inc()
	}
	r.logger.Debug("task stopped", "task", t.id, "state", state, "duration", elapsed)

	r.finishMu.Lock()
	r.finishing = append(r.finishing, t)
	r.wake.Signal()
	r.finishMu.Unlock()
}

// execute runs the action, recovering panics.
func (r *Runner) execute(t *Task) {
	defer func() {
		if rec := recover(); rec != nil {
			err := gserrors.NewOperationError("task", "Run", gserrors.ErrPanicked).
				WithContext(fmt.Sprint(rec))
			r.logger.Error("task panicked", "task", t.id, "error", err, "stack", string(debug.Stack()))
			if m := r.cfg.Metrics; m != nil {
				m.TasksPanicked.WithLabelValues(r.cfg.Name).Inc()
			}
		}
	}()

	if err := t.action.Run(t.ctx, t); err != nil {
		r.logger.Warn("task action failed", "task", t.id, "error", err)
		if m := r.cfg.Metrics; m != nil {
			m.TasksFailed.WithLabelValues(r.cfg.Name).Inc()
		}
	}
}

// reap joins finished task goroutines and prunes them from the active set
// until Shutdown tells it to exit.
func (r *Runner) reap() {
	defer close(r.reaperDone)

	for {
		r.finishMu.Lock()
		for !r.exiting && len(r.finishing) == 0 {
			r.wake.Wait()
		}
		if r.exiting && len(r.finishing) == 0 {
			r.finishMu.Unlock()
			return
		}
		batch := r.finishing
		r.finishing = nil
		r.finishMu.Unlock()

		for _, t := range batch {
			<-t.exited
			r.remove(t)
		}
	}
}

func (r *Runner) remove(t *Task) {
	r.tasksMu.Lock()
	delete(r.tasks, t.id)
	r.setActiveGauge(len(r.tasks))
	if m := r.cfg.Metrics; m != nil {
		m.TasksReaped.WithLabelValues(r.cfg.Name).Inc()
	}
	if len(r.tasks) == 0 {
		close(r.idle)
	}
	r.tasksMu.Unlock()
}

func (r *Runner) rejected(reason string) {
	r.logger.Debug("task rejected", "reason", reason)
	if m := r.cfg.Metrics; m != nil {
		m.TasksRejected.WithLabelValues(r.cfg.Name, reason).Inc()
	}
}

func (r *Runner) setActiveGauge(n int) {
	if m := r.cfg.Metrics; m != nil {
		m.RunnerActive.WithLabelValues(r.cfg.Name).Set(float64(n))
	}
}
