package task

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/vnykmshr/gosupervise/internal/testutil"
)

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		want     string
		terminal bool
	}{
		{Created, "created", false},
		{Started, "started", false},
		{Canceled, "canceled", true},
		{Finished, "finished", true},
		{State(42), "state(42)", false},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			testutil.AssertEqual(t, tt.state.String(), tt.want)
			testutil.AssertEqual(t, tt.state.Terminal(), tt.terminal)
		})
	}
}

func TestNew_IDsIncrease(t *testing.T) {
	noop := ActionFunc(func(context.Context, *Task) error { return nil })

	a := New(noop)
	b := New(noop)
	c := New(noop)

	if !(a.ID() < b.ID() && b.ID() < c.ID()) {
		t.Fatalf("ids not increasing: %d, %d, %d", a.ID(), b.ID(), c.ID())
	}
	testutil.AssertEqual(t, a.State(), Created)
	testutil.AssertEqual(t, a.Runner() == nil, true)
}

func TestNew_ConcurrentIDsUnique(t *testing.T) {
	const n = 100
	ids := make(chan uint64, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- NewFunc(func(context.Context, *Task) error { return nil }).ID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[uint64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestNew_NilActionPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic")
		}
	}()
	New(nil)
}

func TestCancel_BeforeStartIsNoop(t *testing.T) {
	tk := NewFunc(func(context.Context, *Task) error { return nil })

	tk.Cancel()

	testutil.AssertEqual(t, tk.ShouldCancel(), false)
	testutil.AssertEqual(t, tk.State(), Created)
	testutil.AssertEqual(t, tk.IsStopped(), false)
}

func TestTransitions(t *testing.T) {
	tk := NewFunc(func(context.Context, *Task) error { return nil })

	// Finished and Canceled are only reachable from Started.
	testutil.AssertEqual(t, tk.finished(), false)
	testutil.AssertEqual(t, tk.canceled(), false)
	testutil.AssertEqual(t, tk.State(), Created)

	tk.Started()
	testutil.AssertEqual(t, tk.State(), Started)

	// Started is only reachable from Created.
	tk.Started()
	testutil.AssertEqual(t, tk.State(), Started)

	tk.Cancel()
	testutil.AssertEqual(t, tk.ShouldCancel(), true)
	testutil.AssertEqual(t, tk.State(), Started)

	testutil.AssertEqual(t, tk.finished(), true)
	testutil.AssertEqual(t, tk.State(), Finished)

	// Terminal states never change.
	testutil.AssertEqual(t, tk.canceled(), false)
	tk.Started()
	testutil.AssertEqual(t, tk.State(), Finished)
	testutil.AssertEqual(t, tk.IsStopped(), true)

	select {
	case <-tk.Done():
	default:
		t.Fatal("Done not closed after Finished")
	}
}

func TestCancel_AfterTerminalIsNoop(t *testing.T) {
	tk := NewFunc(func(context.Context, *Task) error { return nil })
	tk.Started()
	tk.canceled()

	tk.Cancel()

	testutil.AssertEqual(t, tk.ShouldCancel(), false)
	testutil.AssertEqual(t, tk.State(), Canceled)
}

func TestCancel_CancelsContext(t *testing.T) {
	tk := NewFunc(func(context.Context, *Task) error { return nil })
	tk.Started()

	select {
	case <-tk.ctx.Done():
		t.Fatal("context canceled before Cancel")
	default:
	}

	tk.Cancel()

	select {
	case <-tk.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not canceled")
	}
}

func TestAwaitStopContext(t *testing.T) {
	tk := NewFunc(func(context.Context, *Task) error { return nil })
	tk.Started()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := tk.AwaitStopContext(ctx)
	testutil.AssertEqual(t, errors.Is(err, context.DeadlineExceeded), true)

	tk.finished()
	testutil.AssertNoError(t, tk.AwaitStopContext(context.Background()))
}

func TestTask_String(t *testing.T) {
	tk := NewFunc(func(context.Context, *Task) error { return nil })
	testutil.AssertEqual(t, tk.String(), "task-"+strconv.FormatUint(tk.ID(), 10)+"(created)")
}

