package cli

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync/atomic"
	"time"

	gscontext "github.com/vnykmshr/gosupervise/pkg/common/context"
	"github.com/vnykmshr/gosupervise/pkg/supervision/task"
)

// heartbeat is a task action that simulates a unit of work and then rests
// for a fixed interval, until canceled.
type heartbeat struct {
	name     string
	interval time.Duration
	work     func() time.Duration
	logger   *slog.Logger

	beats atomic.Int64
}

func newHeartbeat(name string, interval time.Duration, work func() time.Duration, logger *slog.Logger) *heartbeat {
	return &heartbeat{
		name:     name,
		interval: interval,
		work:     work,
		logger:   logger.With("heartbeat", name),
	}
}

func (h *heartbeat) Run(ctx context.Context, t *task.Task) error {
	t.Started()
	h.logger.Debug("heartbeat started", "task", t.ID())

	for !t.ShouldCancel() {
		if !gscontext.Sleep(ctx, h.work()) {
			break
		}
		n := h.beats.Add(1)
		h.logger.Debug("beat", "count", n)

		if !gscontext.Sleep(ctx, h.interval) {
			break
		}
	}

	h.logger.Debug("heartbeat stopped", "beats", h.beats.Load())
	return nil
}

// Beats returns the number of completed beats.
func (h *heartbeat) Beats() int64 {
	return h.beats.Load()
}

// durationGenerator returns a closure producing durations uniformly
// distributed in [low, high]. The closure is not safe for concurrent use;
// every task gets its own.
func durationGenerator(low, high time.Duration, seed uint64) func() time.Duration {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return func() time.Duration {
		if high <= low {
			return low
		}
		return low + time.Duration(rng.Int64N(int64(high-low)+1))
	}
}
