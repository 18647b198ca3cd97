//go:build !unix

package shutdown

import "os"

func defaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
