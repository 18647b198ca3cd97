// Package integration contains integration tests that verify cross-package functionality.
// These tests ensure that runners and shutdown monitors work together in realistic scenarios.
package integration

import (
	"context"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sourcegraph/conc"

	"github.com/vnykmshr/gosupervise/internal/testutil"
	gserrors "github.com/vnykmshr/gosupervise/pkg/common/errors"
	"github.com/vnykmshr/gosupervise/pkg/metrics"
	"github.com/vnykmshr/gosupervise/pkg/supervision/shutdown"
	"github.com/vnykmshr/gosupervise/pkg/supervision/task"
)

// worker records its name once it observes cancellation.
func worker(items *testutil.Recorder, name string) *task.Task {
	return task.NewFunc(func(_ context.Context, t *task.Task) error {
		t.Started()
		for !t.ShouldCancel() {
			time.Sleep(5 * time.Millisecond)
		}
		items.Add(name)
		return nil
	})
}

// TestMonitorDrivesRunnerShutdown verifies the service-loop pattern: a
// WhileLive loop runs until the monitor fires, then the runner is shut down
// and every task observes its cancellation.
func TestMonitorDrivesRunnerShutdown(t *testing.T) {
	runner := task.NewRunner(task.Config{Name: "service"})
	mon := shutdown.Create()
	defer mon.Close()

	items := testutil.NewRecorder()
	for i := 0; i < 4; i++ {
		testutil.AssertEqual(t, runner.Start(worker(items, "worker-"+strconv.Itoa(i))), true)
	}

	var ticks atomic.Int32
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		mon.WhileLive(5*time.Millisecond, func() { ticks.Add(1) })
	}()

	testutil.Eventually(t, func() bool { return ticks.Load() >= 3 }, 2*time.Second, time.Millisecond)
	mon.Shutdown()
	<-loopDone

	testutil.WithinTimeout(t, 2*time.Second, "runner shutdown", runner.Shutdown)
	testutil.AssertEqual(t, items.Len(), 4)
	testutil.AssertEqual(t, runner.Len(), 0)
}

// TestTasksSpawnSiblings verifies that tasks can start siblings on their
// own runner and that a single shutdown drains the whole tree.
func TestTasksSpawnSiblings(t *testing.T) {
	runner := task.NewRunner(task.Config{Name: "tree"})
	items := testutil.NewRecorder()

	parent := task.NewFunc(func(ctx context.Context, t *task.Task) error {
		t.Started()
		for i := 0; i < 3; i++ {
			if !t.Runner().Start(worker(items, "child-"+strconv.Itoa(i))) {
				return nil
			}
		}
		<-ctx.Done()
		items.Add("parent")
		return nil
	})

	testutil.AssertEqual(t, runner.Start(parent), true)
	testutil.Eventually(t, func() bool { return runner.Len() == 4 }, 2*time.Second, time.Millisecond)

	testutil.WithinTimeout(t, 2*time.Second, "runner shutdown", runner.Shutdown)
	testutil.AssertEqual(t, items.Len(), 4)
	testutil.AssertEqual(t, items.Contains("parent"), true)
}

// TestScheduledTaskLaunches verifies that a cron-driven monitor loop can
// start short-lived tasks that are reaped as they finish.
func TestScheduledTaskLaunches(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	runner := task.NewRunner(task.Config{Name: "scheduled", Metrics: reg})
	defer runner.Shutdown()

	mon := shutdown.Create()
	defer mon.Close()

	var launched atomic.Int32
	errCh := make(chan error, 1)
	go func() {
		errCh <- mon.WhileLiveSchedule("@every 10ms", func() {
			job := task.NewFunc(func(_ context.Context, t *task.Task) error {
				t.Started()
				return nil
			})
			if runner.Start(job) && launched.Add(1) == 5 {
				mon.Shutdown()
			}
		})
	}()

	select {
	case err := <-errCh:
		testutil.AssertNoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduled loop did not stop")
	}

	runner.AwaitAll()
	testutil.AssertEqual(t, promtest.ToFloat64(reg.TasksReaped.WithLabelValues("scheduled")), float64(5))
	testutil.AssertEqual(t, promtest.ToFloat64(reg.RunnerActive.WithLabelValues("scheduled")), float64(0))
}

// TestMetricsBalanceAfterShutdown verifies that every started task is
// accounted for as stopped and reaped once the runner is down.
func TestMetricsBalanceAfterShutdown(t *testing.T) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	runner := task.NewRunner(task.Config{Name: "balanced", Metrics: reg, RecordCancellation: true})

	const n = 20
	items := testutil.NewRecorder()
	var wg conc.WaitGroup
	for i := 0; i < n; i++ {
		wg.Go(func() {
			runner.Start(worker(items, "w-"+strconv.Itoa(i)))
		})
	}
	wg.Wait()
	runner.Shutdown()

	started := promtest.ToFloat64(reg.TasksStarted.WithLabelValues("balanced"))
	canceled := promtest.ToFloat64(reg.TasksStopped.WithLabelValues("balanced", "canceled"))
	reaped := promtest.ToFloat64(reg.TasksReaped.WithLabelValues("balanced"))

	testutil.AssertEqual(t, started, float64(n))
	testutil.AssertEqual(t, canceled, float64(n))
	testutil.AssertEqual(t, reaped, float64(n))
	testutil.AssertEqual(t, items.Len(), n)
}

// TestRejectionsAfterShutdown verifies the error kinds reported once a
// runner has been shut down.
func TestRejectionsAfterShutdown(t *testing.T) {
	runner := task.NewRunner(task.Config{Name: "closed"})
	live := task.NewFunc(func(_ context.Context, t *task.Task) error {
		t.Started()
		return nil
	})
	testutil.AssertNoError(t, runner.Launch(live))
	testutil.AssertNoError(t, runner.Close())

	for _, tk := range []*task.Task{live, worker(testutil.NewRecorder(), "late"), nil} {
		err := runner.Launch(tk)
		testutil.AssertError(t, err)
		testutil.AssertEqual(t, gserrors.IsRejected(err), true)
	}
}
