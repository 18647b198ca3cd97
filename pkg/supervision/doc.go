/*
Package supervision groups the task supervision primitives.

  - task: Tasks with an explicit lifecycle and a Runner that gives each
    started task its own goroutine and reclaims it when the action returns
  - shutdown: Process-wide shutdown monitors triggered by SIGINT, SIGTERM
    or Trigger

The usual service layout creates one runner and one monitor:

	runner := task.NewRunner(task.Config{Name: "service"})
	mon := shutdown.Create()

	runner.Start(task.NewFunc(consume))
	runner.Start(task.NewFunc(flush))

	mon.WhileLive(time.Second, reportStatus)
	runner.Shutdown()

Cancellation is advisory everywhere: a runner asks its tasks to stop and
waits for them, it never interrupts a running action.
*/
package supervision
