package autoposter

import (
	"context"
	"slices"
	"sync"

	"github.com/jamesprial/go-topgg/pkg/types"
)

// SharedStats holds the statistics snapshot an adapter maintains and the
// autoposter reports. Every completed write raises a single-permit dirty
// signal; any number of writes before the autoposter wakes collapse into one
// post of the latest snapshot.
//
// Create one with NewSharedStats. The zero value is not usable.
type SharedStats struct {
	mu     sync.RWMutex
	stats  types.Stats
	signal chan struct{}
}

// NewSharedStats returns an empty snapshot (server count 0) with no pending signal.
func NewSharedStats() *SharedStats {
	return &SharedStats{signal: make(chan struct{}, 1)}
}

// Stats returns s, so a bare *SharedStats can be handed to New as a Handler.
func (s *SharedStats) Stats() *SharedStats {
	return s
}

// Write locks the snapshot for writing. The caller must call Release on the
// returned writer, which unlocks and raises the dirty signal.
func (s *SharedStats) Write() *StatsWriter {
	s.mu.Lock()
	return &StatsWriter{s: s}
}

// Update runs fn with the snapshot locked for writing and releases it afterwards.
func (s *SharedStats) Update(fn func(w *StatsWriter)) {
	w := s.Write()
	defer w.Release()
	fn(w)
}

// SetServerCount replaces the server count and raises the dirty signal.
func (s *SharedStats) SetServerCount(n int) {
	s.Update(func(w *StatsWriter) {
		w.SetServerCount(n)
	})
}

// Read returns a copy of the current snapshot.
func (s *SharedStats) Read() types.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.stats
	out.Shards = slices.Clone(s.stats.Shards)
	return out
}

// Pending reports whether a write has happened since the last wake-up.
func (s *SharedStats) Pending() bool {
	return len(s.signal) == 1
}

// Wait blocks until the dirty signal is raised and consumes it. The
// autoposter is normally the only caller.
func (s *SharedStats) Wait(ctx context.Context) error {
	select {
	case <-s.signal:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *SharedStats) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

// StatsWriter is exclusive write access to a SharedStats snapshot.
// It must not be used after Release.
type StatsWriter struct {
	s        *SharedStats
	released bool
}

// Replace overwrites the whole snapshot.
func (w *StatsWriter) Replace(stats types.Stats) {
	w.mustHold()
	stats.Shards = slices.Clone(stats.Shards)
	w.s.stats = stats
}

// SetServerCount overwrites only the server count.
func (w *StatsWriter) SetServerCount(n int) {
	w.mustHold()
	w.s.stats.ServerCount = n
}

// Release unlocks the snapshot and raises the dirty signal if it is not
// already raised. Calling Release more than once has no effect.
func (w *StatsWriter) Release() {
	if w.released {
		return
	}
	w.released = true
	w.s.mu.Unlock()
	w.s.notify()
}

func (w *StatsWriter) mustHold() {
	if w.released {
		panic("autoposter: StatsWriter used after Release")
	}
}
