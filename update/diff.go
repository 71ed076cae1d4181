package update

import (
	"time"

	"github.com/meridiancal/groupcal/calendar"
)

// skippedFields are never taken from client-submitted data: identifiers
// and stored bookkeeping are owned by the engine and the storage layer.
var skippedFields = calendar.NewFieldSet(
	calendar.FieldID,
	calendar.FieldSeriesID,
	calendar.FieldUID,
	calendar.FieldFolder,
	calendar.FieldCreated,
	calendar.FieldCreatedBy,
	calendar.FieldLastModified,
	calendar.FieldModifiedBy,
	calendar.FieldTimestamp,
	calendar.FieldAlarms,
)

// diffableFields are the scalar fields the diff engine compares, i.e.
// everything storable minus the skipped set. Collection fields get their
// own partitioned updates.
var diffableFields = func() []calendar.EventField {
	var out []calendar.EventField
	for _, f := range calendar.ScalarFields {
		if !skippedFields.Contains(f) {
			out = append(out, f)
		}
	}
	return out
}()

// ItemUpdate pairs the stored and submitted versions of one changed
// collection item.
type ItemUpdate[T any] struct {
	Original T
	Updated  T
}

// CollectionUpdate partitions a collection delta. Added, Updated,
// Retained and Removed together cover the union of the original and
// updated collections, each item in exactly one partition.
type CollectionUpdate[T any] struct {
	Added    []T
	Updated  []ItemUpdate[T]
	Retained []T
	Removed  []T
}

// Empty reports whether the collection is unchanged.
func (u CollectionUpdate[T]) Empty() bool {
	return len(u.Added) == 0 && len(u.Updated) == 0 && len(u.Removed) == 0
}

// newCollectionUpdate matches items between the original and updated
// collections. same decides identity; equal decides whether a matched
// item counts as retained or updated.
func newCollectionUpdate[T any](originals, updates []T, same, equal func(a, b T) bool) CollectionUpdate[T] {
	var out CollectionUpdate[T]
	matched := make([]bool, len(updates))
	for _, orig := range originals {
		found := false
		for i, upd := range updates {
			if matched[i] || !same(orig, upd) {
				continue
			}
			matched[i] = true
			found = true
			if equal(orig, upd) {
				out.Retained = append(out.Retained, orig)
			} else {
				out.Updated = append(out.Updated, ItemUpdate[T]{Original: orig, Updated: upd})
			}
			break
		}
		if !found {
			out.Removed = append(out.Removed, orig)
		}
	}
	for i, upd := range updates {
		if !matched[i] {
			out.Added = append(out.Added, upd)
		}
	}
	return out
}

// DiffOptions steers one diff computation.
type DiffOptions struct {
	// ActingUser is the session user the reply detection refers to.
	ActingUser int
	// Ignored lists additional fields excluded from this diff, e.g.
	// fields already reconciled by a series split.
	Ignored []calendar.EventField
	// Master is the series master when the original is an exception.
	Master *calendar.Event
	// Exceptions are the sibling change exceptions when the original is
	// a series master.
	Exceptions []*calendar.Event
}

// EventUpdate is the immutable delta between a stored event and the
// client-submitted replacement data.
type EventUpdate struct {
	Original *calendar.Event
	Updated  *calendar.Event

	// ChangedFields holds the scalar fields that differ.
	ChangedFields calendar.FieldSet

	Attendees   CollectionUpdate[calendar.Attendee]
	Conferences CollectionUpdate[calendar.Conference]
	Attachments CollectionUpdate[calendar.Attachment]

	// ChangeExceptions / DeleteExceptions carry the exception-date set
	// deltas of series masters.
	ChangeExceptions CollectionUpdate[time.Time]
	DeleteExceptions CollectionUpdate[time.Time]

	// Master and Exceptions mirror DiffOptions for downstream steps.
	Master     *calendar.Event
	Exceptions []*calendar.Event

	actingUser int
}

// NewEventUpdate computes the delta between original and updated,
// honoring the fixed skipped-field set plus any caller-supplied ignored
// fields. The result reports what changed; whether the acting principal
// may change it is the caller's concern.
func NewEventUpdate(original, updated *calendar.Event, opts DiffOptions) *EventUpdate {
	ignored := calendar.NewFieldSet(opts.Ignored...)
	u := &EventUpdate{
		Original:      original,
		Updated:       updated,
		ChangedFields: calendar.NewFieldSet(),
		Master:        opts.Master,
		Exceptions:    opts.Exceptions,
		actingUser:    opts.ActingUser,
	}

	for _, f := range diffableFields {
		if ignored.Contains(f) {
			continue
		}
		if !calendar.FieldEqual(original, updated, f) {
			u.ChangedFields.Add(f)
		}
	}

	if !ignored.Contains(calendar.FieldAttendees) {
		u.Attendees = newCollectionUpdate(original.Attendees, updated.Attendees,
			calendar.Attendee.Matches, attendeeEqual)
		if !u.Attendees.Empty() {
			u.ChangedFields.Add(calendar.FieldAttendees)
		}
	}
	if !ignored.Contains(calendar.FieldConferences) {
		u.Conferences = newCollectionUpdate(original.Conferences, updated.Conferences,
			func(a, b calendar.Conference) bool { return a.ID == b.ID },
			conferenceEqual)
		if !u.Conferences.Empty() {
			u.ChangedFields.Add(calendar.FieldConferences)
		}
	}
	if !ignored.Contains(calendar.FieldAttachments) {
		u.Attachments = newCollectionUpdate(original.Attachments, updated.Attachments,
			func(a, b calendar.Attachment) bool { return a.ID == b.ID },
			attachmentEqual)
		if !u.Attachments.Empty() {
			u.ChangedFields.Add(calendar.FieldAttachments)
		}
	}

	sameDate := func(a, b time.Time) bool { return a.Equal(b) }
	if !ignored.Contains(calendar.FieldChangeExceptionDates) {
		u.ChangeExceptions = newCollectionUpdate(original.ChangeExceptionDates, updated.ChangeExceptionDates, sameDate, sameDate)
	}
	if !ignored.Contains(calendar.FieldDeleteExceptionDates) {
		u.DeleteExceptions = newCollectionUpdate(original.DeleteExceptionDates, updated.DeleteExceptionDates, sameDate, sameDate)
	}

	return u
}

// Contains reports whether the given scalar field changed.
func (u *EventUpdate) Contains(f calendar.EventField) bool {
	return u.ChangedFields.Contains(f)
}

// Empty reports whether nothing changed at all.
func (u *EventUpdate) Empty() bool {
	return len(u.ChangedFields) == 0 &&
		u.Attendees.Empty() && u.Conferences.Empty() && u.Attachments.Empty() &&
		u.ChangeExceptions.Empty() && u.DeleteExceptions.Empty()
}

// TimeChanged reports whether the event's time placement moved.
func (u *EventUpdate) TimeChanged() bool {
	return u.Contains(calendar.FieldStart) || u.Contains(calendar.FieldEnd) || u.Contains(calendar.FieldAllDay)
}

// BecomesOpaque reports whether the update enters conflict-relevant
// transparency.
func (u *EventUpdate) BecomesOpaque() bool {
	return u.Contains(calendar.FieldTransp) &&
		u.Original.Transp == calendar.TransparencyTransparent &&
		u.Updated.Transp != calendar.TransparencyTransparent
}

// IsReschedule reports whether the update materially changes the event's
// time placement or busy/free semantics.
func (u *EventUpdate) IsReschedule() bool {
	return u.TimeChanged() || u.Contains(calendar.FieldTransp) || u.Contains(calendar.FieldRecurrenceRule)
}

// participationFields are the attendee attributes a reply may touch.
func participationOnlyChange(item ItemUpdate[calendar.Attendee]) bool {
	normalized := item.Updated
	normalized.PartStat = item.Original.PartStat
	normalized.Comment = item.Original.Comment
	normalized.RSVP = item.Original.RSVP
	normalized.Timestamp = item.Original.Timestamp
	return attendeeEqual(item.Original, normalized)
}

// IsReply reports whether the update is confined to the acting user's own
// participation-status fields, with nothing else touched.
func (u *EventUpdate) IsReply() bool {
	if u.Attendees.Empty() || len(u.Attendees.Added) > 0 || len(u.Attendees.Removed) > 0 {
		return false
	}
	for f := range u.ChangedFields {
		if f != calendar.FieldAttendees {
			return false
		}
	}
	if !u.Conferences.Empty() || !u.Attachments.Empty() ||
		!u.ChangeExceptions.Empty() || !u.DeleteExceptions.Empty() {
		return false
	}
	for _, item := range u.Attendees.Updated {
		if item.Original.Entity != u.actingUser {
			return false
		}
		if !participationOnlyChange(item) {
			return false
		}
	}
	return true
}

func attendeeEqual(a, b calendar.Attendee) bool {
	return a.Entity == b.Entity &&
		calendar.NormalizeURI(a.URI) == calendar.NormalizeURI(b.URI) &&
		a.CUType == b.CUType &&
		a.Role == b.Role &&
		a.PartStat == b.PartStat &&
		a.RSVP == b.RSVP &&
		a.Comment == b.Comment &&
		a.Hidden == b.Hidden &&
		a.Folder == b.Folder
}

func conferenceEqual(a, b calendar.Conference) bool {
	if a.URI != b.URI || a.Label != b.Label || len(a.Features) != len(b.Features) {
		return false
	}
	for i := range a.Features {
		if a.Features[i] != b.Features[i] {
			return false
		}
	}
	return true
}

func attachmentEqual(a, b calendar.Attachment) bool {
	return a.URI == b.URI && a.Filename == b.Filename && a.Format == b.Format &&
		a.Size == b.Size && a.Checksum == b.Checksum
}
