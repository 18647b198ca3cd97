package testutil

import (
	"slices"
	"sync"
)

// Recorder is a concurrency-safe set of strings that task actions write
// into so tests can observe which work was performed.
type Recorder struct {
	mu    sync.Mutex
	items map[string]int
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{items: make(map[string]int)}
}

// Add records item.
func (r *Recorder) Add(item string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[item]++
}

// Contains reports whether item was recorded at least once.
func (r *Recorder) Contains(item string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[item] > 0
}

// Count returns how many times item was recorded.
func (r *Recorder) Count(item string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[item]
}

// Len returns the number of distinct items.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// Items returns the distinct items in sorted order.
func (r *Recorder) Items() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.items))
	for k := range r.items {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Reset forgets all recorded items.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.items)
}
