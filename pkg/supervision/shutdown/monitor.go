package shutdown

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	gscontext "github.com/vnykmshr/gosupervise/pkg/common/context"
	gserrors "github.com/vnykmshr/gosupervise/pkg/common/errors"
)

// Monitor observes the process-wide shutdown. It is triggered by the global
// broadcast or locally through Shutdown. Monitors must be created with Create;
// the zero value is not usable.
type Monitor struct {
	mgr *manager

	triggered atomic.Bool
	mu        sync.Mutex
	done      chan struct{}
}

func newMonitor(mgr *manager) *Monitor {
	return &Monitor{
		mgr:  mgr,
		done: make(chan struct{}),
	}
}

// ShouldShutdown reports whether this monitor has been triggered.
func (m *Monitor) ShouldShutdown() bool {
	return m.triggered.Load()
}

// Shutdown triggers this monitor only and wakes its waiters. It does not
// initiate a global shutdown.
func (m *Monitor) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.triggered.CompareAndSwap(false, true) {
		close(m.done)
	}
}

// Done returns a channel that is closed when the monitor is triggered.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// AwaitShutdown blocks until the monitor is triggered.
func (m *Monitor) AwaitShutdown() {
	<-m.done
}

// AwaitShutdownTimeout blocks until the monitor is triggered or d elapses.
// It reports whether the monitor was triggered.
func (m *Monitor) AwaitShutdownTimeout(d time.Duration) bool {
	if m.ShouldShutdown() {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-m.done:
		return true
	case <-timer.C:
		return m.ShouldShutdown()
	}
}

// AwaitShutdownContext blocks until the monitor is triggered or ctx is done.
func (m *Monitor) AwaitShutdownContext(ctx context.Context) error {
	return gscontext.WaitDone(ctx, m.done)
}

// WhileLive calls action, then waits up to cadence or until shutdown, and
// repeats until the monitor is triggered. It does not call action on a
// monitor that is already triggered.
func (m *Monitor) WhileLive(cadence time.Duration, action func()) {
	for !m.ShouldShutdown() {
		action()
		m.AwaitShutdownTimeout(cadence)
	}
}

var scheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// WhileLiveSchedule is WhileLive driven by a cron expression instead of a
// fixed cadence. Five or six fields and descriptors such as "@every 5s" are
// accepted. The action runs at each activation until shutdown; the first
// run waits for the first activation.
func (m *Monitor) WhileLiveSchedule(expr string, action func()) error {
	sched, err := scheduleParser.Parse(expr)
	if err != nil {
		return gserrors.NewValidationError("shutdown", "schedule", expr, err.Error()).
			WithHint("use a cron expression like '*/5 * * * * *' or '@every 5s'")
	}

	for {
		now := time.Now()
		next := sched.Next(now)
		if next.IsZero() {
			return fmt.Errorf("schedule %q has no future activation", expr)
		}
		if m.AwaitShutdownTimeout(next.Sub(now)) {
			return nil
		}
		action()
	}
}

// Close removes the monitor from the registry without triggering it.
// A closed monitor is not reached by a later global shutdown.
func (m *Monitor) Close() error {
	m.mgr.unregister(m)
	return nil
}
