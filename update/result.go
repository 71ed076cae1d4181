package update

import (
	"sync"
	"time"

	"github.com/meridiancal/groupcal/calendar"
)

// UpdatedRecord pairs the before and after snapshots of one mutated
// event.
type UpdatedRecord struct {
	Original *calendar.Event
	Updated  *calendar.Event
}

// DeletedRecord is one removed event with its deletion timestamp.
type DeletedRecord struct {
	Original *calendar.Event
	At       time.Time
}

// Result is the structured outcome of one logical update call, consumed
// by downstream notification and scheduling handlers.
type Result struct {
	Created []*calendar.Event
	Updated []UpdatedRecord
	Deleted []DeletedRecord
}

// ResultTracker accumulates create/update/delete records over the course
// of one logical request.
type ResultTracker struct {
	mu      sync.Mutex
	created []*calendar.Event
	updated []UpdatedRecord
	deleted []DeletedRecord
}

// NewResultTracker creates an empty tracker.
func NewResultTracker() *ResultTracker {
	return &ResultTracker{}
}

// TrackCreation records a newly inserted event.
func (t *ResultTracker) TrackCreation(event *calendar.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.created = append(t.created, event.Clone())
}

// TrackUpdate records a mutated event with its pre-update snapshot.
func (t *ResultTracker) TrackUpdate(original, updated *calendar.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updated = append(t.updated, UpdatedRecord{Original: original.Clone(), Updated: updated.Clone()})
}

// TrackDeletion records a removed event.
func (t *ResultTracker) TrackDeletion(original *calendar.Event, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleted = append(t.deleted, DeletedRecord{Original: original.Clone(), At: at})
}

// Result snapshots the accumulated records.
func (t *ResultTracker) Result() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Result{
		Created: append([]*calendar.Event(nil), t.created...),
		Updated: append([]UpdatedRecord(nil), t.updated...),
		Deleted: append([]DeletedRecord(nil), t.deleted...),
	}
}

// Empty reports whether nothing has been tracked.
func (t *ResultTracker) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.created) == 0 && len(t.updated) == 0 && len(t.deleted) == 0
}
