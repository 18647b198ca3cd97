package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	gscontext "github.com/vnykmshr/gosupervise/pkg/common/context"
)

// State is the lifecycle state of a Task.
type State int32

const (
	// Created is the state of a task that has not signaled Started yet.
	Created State = iota
	// Started means the action called Started and accepts cancellation.
	Started
	// Canceled is terminal. A runner only records it when configured with
	// RecordCancellation.
	Canceled
	// Finished is terminal and is recorded once the action returns.
	Finished
)

// String returns the lower-case name of the state.
func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Started:
		return "started"
	case Canceled:
		return "canceled"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Terminal reports whether no further transition is possible from s.
func (s State) Terminal() bool {
	return s == Canceled || s == Finished
}

// Action is the work body of a Task. It runs on the task's own goroutine.
//
// Implementations must call t.Started once initialization is complete, and
// long-running work should check t.ShouldCancel (or ctx.Done) periodically.
// The context is canceled when Cancel is accepted. The returned error is
// logged and counted by the runner; it does not affect the task state.
type Action interface {
	Run(ctx context.Context, t *Task) error
}

// ActionFunc is a function type that implements the Action interface.
type ActionFunc func(ctx context.Context, t *Task) error

// Run implements the Action interface for ActionFunc.
func (f ActionFunc) Run(ctx context.Context, t *Task) error {
	return f(ctx, t)
}

var nextTaskID atomic.Uint64

// Task is a single unit of work that runs on its own goroutine until its
// action returns. Tasks are created with New and handed to a Runner.
// The zero value is not usable; a Runner refuses it with ErrNilTask.
//
// All state transitions happen under the task's own lock. Once a task
// reaches Canceled or Finished its state never changes again.
type Task struct {
	id     uint64
	action Action

	mu    sync.Mutex
	state atomic.Int32

	cancelRequested atomic.Bool
	ctx             context.Context
	cancelCtx       context.CancelFunc

	// one-shot signals, closed on the matching transition
	started chan struct{}
	stopped chan struct{}

	claimed atomic.Bool
	runner  atomic.Pointer[Runner]
	exited  chan struct{}
}

// New creates a task around action with the next process-wide task id.
// It panics if action is nil.
func New(action Action) *Task {
	if action == nil {
		panic("task: New called with nil Action")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		id:        nextTaskID.Add(1) - 1,
		action:    action,
		ctx:       ctx,
		cancelCtx: cancel,
		started:   make(chan struct{}),
		stopped:   make(chan struct{}),
		exited:    make(chan struct{}),
	}
}

// NewFunc is shorthand for New(ActionFunc(fn)).
func NewFunc(fn func(ctx context.Context, t *Task) error) *Task {
	return New(ActionFunc(fn))
}

// ID returns the task's unique id. Ids increase monotonically in creation order.
func (t *Task) ID() uint64 {
	return t.id
}

// State returns the current state. The value may be stale by the time the
// caller looks at it.
func (t *Task) State() State {
	return State(t.state.Load())
}

// IsStopped reports whether the task reached a terminal state.
func (t *Task) IsStopped() bool {
	return t.State().Terminal()
}

func (t *Task) String() string {
	return fmt.Sprintf("task-%d(%s)", t.id, t.State())
}

// Cancel asks the task to stop. It is a no-op unless the task is Started.
// Cancellation is advisory: the action decides when to return.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State() != Started {
		return
	}
	t.cancelRequested.Store(true)
	t.cancelCtx()
}

// ShouldCancel reports whether Cancel was accepted. Actions poll it.
func (t *Task) ShouldCancel() bool {
	return t.cancelRequested.Load()
}

// AwaitStop blocks until the task is Canceled or Finished.
func (t *Task) AwaitStop() {
	<-t.stopped
}

// AwaitStopContext is AwaitStop bounded by ctx.
func (t *Task) AwaitStopContext(ctx context.Context) error {
	return gscontext.WaitDone(ctx, t.stopped)
}

// Done returns a channel that is closed when the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.stopped
}

// Runner returns the runner executing this task, or nil before it is started.
// Actions can use it to start sibling tasks on the same runner.
func (t *Task) Runner() *Runner {
	return t.runner.Load()
}

// Started signals that the action is initialized and ready for queries and
// cancellation. Actions must call it; later calls are no-ops.
func (t *Task) Started() {
	t.transition(Created, Started)
}

func (t *Task) finished() bool {
	return t.transition(Started, Finished)
}

func (t *Task) canceled() bool {
	return t.transition(Started, Canceled)
}

func (t *Task) transition(from, to State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.State() != from {
		return false
	}
	t.state.Store(int32(to))
	switch to {
	case Started:
		close(t.started)
	case Canceled, Finished:
		close(t.stopped)
		// releases the context; the cancellation flag is left untouched
		t.cancelCtx()
	}
	return true
}

func (t *Task) awaitStart() {
	<-t.started
}
