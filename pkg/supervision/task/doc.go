/*
Package task provides units of work with an explicit lifecycle and a Runner
that executes each of them on its own goroutine.

A Task moves through Created, Started and then Finished (or Canceled when
the runner is configured to record it). Transitions are serialized by the
task's own lock and terminal states never change.

Basic usage:

	runner := task.NewRunner(task.Config{Name: "ingest"})
	defer runner.Shutdown()

	t := task.NewFunc(func(ctx context.Context, t *task.Task) error {
		conn, err := dial(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		t.Started()

		for !t.ShouldCancel() {
			if err := conn.Poll(ctx); err != nil {
				return err
			}
		}
		return nil
	})

	if !runner.Start(t) {
		log.Fatal("runner is shut down")
	}

Start Handshake:

Start does not return until the action calls Started. Callers can rely on a
task being initialized, and cancellable, once Start returns. An action that
returns or panics without calling Started still releases the handshake.

Cancellation:

Cancel is advisory. It sets the flag read by ShouldCancel and cancels the
context passed to the action, but only when the task is Started. An action
that never looks at either will keep AwaitAll and Shutdown blocked; there is
no forced termination and no timeout on task bodies.

Reclamation:

When an action returns the runner records the terminal state and queues the
task for the reaper goroutine, which waits for the task goroutine to exit and
removes the task from the active set. AwaitAll waits for that set to drain.

Shutdown:

Shutdown is idempotent. It stops accepting tasks, cancels the active ones,
waits for them and stops the reaper. Every caller returns only after the
runner has fully stopped.

Thread Safety:

All Runner and Task methods are safe for concurrent use.
*/
package task
