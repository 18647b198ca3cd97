/*
Package gosupervise provides task supervision primitives for concurrent Go
applications.

Supervision (pkg/supervision):
  - task: Units of work with a Created, Started, Finished lifecycle and a
    Runner that runs each on its own goroutine
  - shutdown: Graceful shutdown monitors driven by SIGINT and SIGTERM

Support packages:
  - metrics: Prometheus instrumentation for runners and monitors
  - common/errors, common/validation, common/context: shared helpers

Example usage:

	import (
		"github.com/vnykmshr/gosupervise/pkg/supervision/shutdown"
		"github.com/vnykmshr/gosupervise/pkg/supervision/task"
	)

	runner := task.NewRunnerWithMetrics("workers")
	mon := shutdown.Create()

	runner.Start(task.NewFunc(func(ctx context.Context, t *task.Task) error {
		t.Started()
		<-ctx.Done()
		return nil
	}))

	mon.AwaitShutdown()
	runner.Shutdown()

The taskvisor command (cmd/taskvisor) is a runnable demonstration.
*/
package gosupervise
