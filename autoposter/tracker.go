package autoposter

import (
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// GuildTracker is the set of guilds a bot is in. It reports the set's size
// to its sink whenever membership actually changes, so duplicate gateway
// events never reach the stats.
//
// The sink runs with the tracker locked. A sink that writes a SharedStats
// therefore takes the tracker lock before the stats lock, and must not call
// back into the tracker.
type GuildTracker struct {
	mu   sync.Mutex
	ids  map[snowflake.ID]struct{}
	sink func(int)
}

// NewGuildTracker returns an empty tracker reporting to sink.
func NewGuildTracker(sink func(count int)) *GuildTracker {
	return &GuildTracker{
		ids:  make(map[snowflake.ID]struct{}),
		sink: sink,
	}
}

// Resync replaces the tracked set, typically from a READY payload, and
// always reports the new size.
func (t *GuildTracker) Resync(ids []snowflake.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ids = make(map[snowflake.ID]struct{}, len(ids))
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
	t.sink(len(t.ids))
}

// Add inserts id and reports whether the set changed.
func (t *GuildTracker) Add(id snowflake.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ids[id]; ok {
		return false
	}
	t.ids[id] = struct{}{}
	t.sink(len(t.ids))
	return true
}

// Remove deletes id and reports whether the set changed.
func (t *GuildTracker) Remove(id snowflake.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.ids[id]; !ok {
		return false
	}
	delete(t.ids, id)
	t.sink(len(t.ids))
	return true
}

// Contains reports whether id is tracked.
func (t *GuildTracker) Contains(id snowflake.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[id]
	return ok
}

// Len returns the number of tracked guilds.
func (t *GuildTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}
