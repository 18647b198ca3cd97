package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Example_basicUsage demonstrates recording runner metrics in an isolated registry.
func Example_basicUsage() {
	registry := NewRegistry(prometheus.NewRegistry())

	registry.TasksStarted.WithLabelValues("ingest").Add(3)
	registry.TasksStopped.WithLabelValues("ingest", "finished").Add(2)
	registry.RunnerActive.WithLabelValues("ingest").Set(1)

	fmt.Println(testutil.ToFloat64(registry.TasksStarted.WithLabelValues("ingest")))
	fmt.Println(testutil.ToFloat64(registry.RunnerActive.WithLabelValues("ingest")))

	// Output:
	// 3
	// 1
}

// Example_configuration demonstrates enabling and disabling collection.
func Example_configuration() {
	defaultConfig := DefaultConfig()
	defaultConfig.Registry = prometheus.NewRegistry()
	fmt.Printf("Default enabled: %v\n", defaultConfig.Enabled)
	fmt.Printf("Default namespace: %s\n", defaultConfig.Namespace)
	fmt.Printf("Default registry: %v\n", NewRegistryWithConfig(defaultConfig) != nil)

	disabled := Config{
		Enabled:   false,
		Namespace: "myapp",
	}
	fmt.Printf("Disabled registry: %v\n", NewRegistryWithConfig(disabled) != nil)

	// Output:
	// Default enabled: true
	// Default namespace: gosupervise
	// Default registry: true
	// Disabled registry: false
}
