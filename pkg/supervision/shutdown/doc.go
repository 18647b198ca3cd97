/*
Package shutdown coordinates an orderly, process-wide shutdown.

Any number of components create a Monitor and watch it. The first
termination signal (SIGINT or SIGTERM) or the first call to Trigger
triggers every registered monitor exactly once. Later signals are absorbed.

	mon := shutdown.Create()
	mon.WhileLive(time.Second, func() {
		log.Println("heartbeat")
	})
	runner.Shutdown()

Signal delivery only hands the signal to a buffered channel; the broadcast
runs on a dedicated watcher goroutine, so monitors are triggered outside of
any signal context.

A monitor created after the global shutdown starts out triggered. Monitor
Shutdown triggers a single monitor and leaves the global state alone.
*/
package shutdown
