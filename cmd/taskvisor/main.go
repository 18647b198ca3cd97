// Command taskvisor supervises a fleet of heartbeat tasks until SIGINT or
// SIGTERM and then shuts them down gracefully.
package main

import (
	"os"

	"github.com/vnykmshr/gosupervise/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
