package shutdown

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"

	"github.com/vnykmshr/gosupervise/pkg/metrics"
)

const (
	sourceSignal = "signal"
	sourceManual = "manual"
)

// manager owns the process-wide shutdown state: the initiated flag, the
// registry of monitors waiting for a broadcast, and the signal watcher.
type manager struct {
	signals     []os.Signal
	installOnce sync.Once
	sigCh       chan os.Signal
	quit        chan struct{}

	initiated atomic.Bool

	mu       sync.Mutex
	monitors map[*Monitor]struct{}

	logger  atomic.Pointer[slog.Logger]
	metrics atomic.Pointer[metrics.Registry]
}

var global = newManager(defaultSignals()...)

func newManager(signals ...os.Signal) *manager {
	m := &manager{
		signals:  signals,
		sigCh:    make(chan os.Signal, 1),
		quit:     make(chan struct{}),
		monitors: make(map[*Monitor]struct{}),
	}
	m.logger.Store(slog.New(slog.DiscardHandler))
	return m
}

// install subscribes to the termination signals and starts the watcher.
// Only the first call has any effect.
func (m *manager) install() {
	m.installOnce.Do(func() {
		// Notify with no signals would relay every signal.
		if len(m.signals) > 0 {
			signal.Notify(m.sigCh, m.signals...)
		}
		go m.watch()
		m.logger.Load().Debug("shutdown signals installed", "signals", m.signals)
	})
}

// watch runs the broadcast outside of signal delivery. Signals after the
// first are absorbed.
func (m *manager) watch() {
	for {
		select {
		case sig := <-m.sigCh:
			if m.trigger(sourceSignal) {
				m.logger.Load().Info("shutdown signal received", "signal", sig.String())
			} else {
				m.logger.Load().Debug("shutdown signal ignored", "signal", sig.String())
			}
		case <-m.quit:
			return
		}
	}
}

// create returns a monitor registered for the next broadcast, or an
// already triggered one if the broadcast happened.
func (m *manager) create() *Monitor {
	m.install()

	m.mu.Lock()
	defer m.mu.Unlock()

	mon := newMonitor(m)
	if m.initiated.Load() {
		mon.Shutdown()
		return mon
	}
	m.monitors[mon] = struct{}{}
	m.setRegisteredGauge()
	return mon
}

// trigger sets the initiated flag and shuts down every registered monitor.
// It reports whether this call performed the broadcast.
func (m *manager) trigger(source string) bool {
	m.mu.Lock()
	if !m.initiated.CompareAndSwap(false, true) {
		m.mu.Unlock()
		return false
	}
	monitors := m.monitors
	m.monitors = make(map[*Monitor]struct{})
	m.setRegisteredGauge()
	m.mu.Unlock()

	for mon := range monitors {
		mon.Shutdown()
	}

	if reg := m.metrics.Load(); reg != nil {
		reg.ShutdownBroadcasts.WithLabelValues(source).Inc()
	}
	m.logger.Load().Info("shutdown broadcast", "source", source, "monitors", len(monitors))
	return true
}

func (m *manager) unregister(mon *Monitor) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.monitors[mon]; !ok {
		return
	}
	delete(m.monitors, mon)
	m.setRegisteredGauge()
}

func (m *manager) registered() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.monitors)
}

// setRegisteredGauge must be called with mu held.
func (m *manager) setRegisteredGauge() {
	if reg := m.metrics.Load(); reg != nil {
		reg.MonitorsRegistered.Set(float64(len(m.monitors)))
	}
}

// Create returns a new Monitor. The first call installs handlers for the
// termination signals (SIGINT and SIGTERM on unix). If a global shutdown was
// already initiated the returned monitor is triggered and not registered.
func Create() *Monitor {
	return global.create()
}

// Trigger initiates a global shutdown as if a termination signal had been
// received. It returns true for the call that performed the broadcast.
func Trigger() bool {
	return global.trigger(sourceManual)
}

// Initiated reports whether a global shutdown has been initiated.
// Once true it stays true for the life of the process.
func Initiated() bool {
	return global.initiated.Load()
}

// SetLogger sets the logger for shutdown events. Nil restores the discard logger.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	global.logger.Store(l)
}

// SetMetrics sets the registry for shutdown metrics. Nil disables them.
func SetMetrics(reg *metrics.Registry) {
	global.metrics.Store(reg)
}
