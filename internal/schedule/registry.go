package schedule

import (
	"sync"
	"time"
)

// Entry holds the live timers for one homework item: one per reminder
// stage plus the terminal expiry.
type Entry struct {
	timers []*time.Timer
}

func (e *Entry) stop() {
	for _, t := range e.timers {
		// Stop on an already-fired timer is a no-op. A callback that is
		// mid-flight keeps running; that race is accepted.
		t.Stop()
	}
}

// Len returns the number of timers in the entry.
func (e *Entry) Len() int {
	return len(e.timers)
}

// Registry maps homework ids to their live timer entries. Timer
// callbacks run on their own goroutines, so access is mutex-guarded.
type Registry struct {
	mu      sync.Mutex
	entries map[uint]*Entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[uint]*Entry)}
}

// Register installs the entry for an id. If an entry already exists its
// timers are stopped first, so re-registration can never leak timers.
func (r *Registry) Register(id uint, timers []*time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.entries[id]; ok {
		old.stop()
	}
	r.entries[id] = &Entry{timers: timers}
}

// Cancel stops every timer for the id and removes the entry. Cancelling
// an unknown id is a no-op, not an error: items without a due date never
// had an entry, and expired items may have been swept already.
func (r *Registry) Cancel(id uint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return false
	}
	entry.stop()
	delete(r.entries, id)
	return true
}

// Get returns the entry for an id, if present.
func (r *Registry) Get(id uint) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	return entry, ok
}

// Size reports the number of live entries, for startup diagnostics.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
