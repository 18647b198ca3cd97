package task

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Every test must shut its runners down.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
