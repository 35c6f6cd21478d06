package chat

import "sync"

// Snapshot is a point-in-time, read-only view of a Timeline.
// Snapshots are never modified after they are handed out.
type Snapshot struct {
	version uint64
	entries []Entry
}

// Version increases by one with every append; zero means an empty timeline.
func (s Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of entries in the snapshot.
func (s Snapshot) Len() int {
	return len(s.entries)
}

// At returns the i-th entry in render order.
func (s Snapshot) At(i int) Entry {
	return s.entries[i]
}

// Last returns the newest entry, if any.
func (s Snapshot) Last() (Entry, bool) {
	if len(s.entries) == 0 {
		return Entry{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Entries returns a copy of the entries in render order.
func (s Snapshot) Entries() []Entry {
	copied := make([]Entry, len(s.entries))
	copy(copied, s.entries)
	return copied
}

// Timeline is an append-only log of entries. Ids come from an internal
// counter, so they never depend on the current length.
type Timeline struct {
	mu     sync.RWMutex
	lastID uint64
	head   Snapshot
}

// NewTimeline returns an empty timeline.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Append stores a new entry at the tail and returns the resulting snapshot.
// The caller validates body beforehand.
func (t *Timeline) Append(origin Origin, body, createdAt string) Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastID++
	entry := Entry{
		ID:        t.lastID,
		Origin:    origin,
		Body:      body,
		CreatedAt: createdAt,
	}

	// Always copy into a fresh backing array: older snapshots keep theirs.
	entries := make([]Entry, len(t.head.entries), len(t.head.entries)+1)
	copy(entries, t.head.entries)
	entries = append(entries, entry)

	t.head = Snapshot{version: t.head.version + 1, entries: entries}
	return t.head
}

// Snapshot returns the current view of the timeline.
func (t *Timeline) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.head
}
