// Package metrics provides Prometheus instrumentation for gosupervise components.
//
// # Overview
//
// The metrics package instruments:
//   - Task runners (started, stopped, failed, panicked, rejected and reaped tasks)
//   - The active task set of each runner
//   - Process-wide shutdown broadcasts and registered shutdown monitors
//
// # Quick Start
//
// Create a runner with metrics:
//
//	runner := task.NewRunnerWithMetrics("ingest")
//	defer runner.Shutdown()
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	reg := prometheus.NewRegistry()
//	runner := task.NewRunner(task.Config{
//		Name:    "ingest",
//		Metrics: metrics.NewRegistry(reg),
//	})
//
// # Available Metrics
//
// ## Runner Metrics
//
//   - gosupervise_runner_tasks_started_total
//   - gosupervise_runner_tasks_stopped_total (label state: finished, canceled)
//   - gosupervise_runner_tasks_failed_total
//   - gosupervise_runner_tasks_panicked_total
//   - gosupervise_runner_tasks_rejected_total (label reason: closed, duplicate, nil)
//   - gosupervise_runner_tasks_reaped_total
//   - gosupervise_runner_task_duration_seconds
//   - gosupervise_runner_active_tasks
//   - gosupervise_runner_shutdowns_total
//
// ## Shutdown Metrics
//
//   - gosupervise_shutdown_broadcasts_total (label source: signal, manual)
//   - gosupervise_shutdown_monitors_registered
//
// Runner metrics carry a runner_name label.
package metrics
