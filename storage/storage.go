// Package storage defines the persistence boundary of the update engine.
// Implementations own all durable calendar state; the engine only ever
// mutates it through this interface, one aggregate at a time.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/meridiancal/groupcal/calendar"
)

var (
	// ErrNotFound is returned when a requested resource doesn't exist.
	ErrNotFound = errors.New("resource not found")
	// ErrAlreadyExists is returned when an insert collides with stored state.
	ErrAlreadyExists = errors.New("resource already exists")
	// ErrInvalidInput is returned when the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrUnavailable is returned when the storage backend is unavailable.
	ErrUnavailable = errors.New("storage unavailable")
)

// CalendarStorage connects the update engine with a backing store. Loads
// return the full event aggregate (attendees, conferences, attachments,
// alarms); mutations are scoped per aggregate so permission checks can be
// applied per affected party. Please use the error values provided.
//
// The engine performs no compensation on failure: callers are expected to
// wrap one logical update in a single transaction (see WithTx in the
// sqlite implementation).
type CalendarStorage interface {
	// LoadEvent retrieves one event with all child aggregates.
	LoadEvent(ctx context.Context, eventID string) (*calendar.Event, error)
	// LoadChangeExceptions retrieves all change exceptions of a series.
	LoadChangeExceptions(ctx context.Context, seriesID string) ([]*calendar.Event, error)
	// LoadChangeException retrieves the exception overriding one occurrence.
	LoadChangeException(ctx context.Context, seriesID string, recurrenceID time.Time) (*calendar.Event, error)
	// InsertEvent persists a new event including its child aggregates.
	InsertEvent(ctx context.Context, event *calendar.Event) error
	// UpdateEvent applies the listed scalar fields of delta to a stored event.
	UpdateEvent(ctx context.Context, eventID string, delta *calendar.Event, fields []calendar.EventField) error
	// DeleteEvent removes the event row. Child aggregates must be removed
	// by the caller beforehand.
	DeleteEvent(ctx context.Context, eventID string) error
	// CountEvents returns the number of stored events, for quota checks.
	CountEvents(ctx context.Context) (int64, error)

	// SearchEventsInFolder lists up to limit events visible in a folder,
	// either parented there or held there by an attendee's personal copy.
	SearchEventsInFolder(ctx context.Context, folderID string, limit int) ([]*calendar.Event, error)
	// SearchOverlapping lists opaque events of the given attendees whose
	// time span intersects [start, end), for conflict detection.
	SearchOverlapping(ctx context.Context, start, end time.Time, attendees []calendar.Attendee) ([]*calendar.Event, error)

	InsertAttendees(ctx context.Context, eventID string, attendees []calendar.Attendee) error
	UpdateAttendee(ctx context.Context, eventID string, attendee calendar.Attendee) error
	DeleteAttendees(ctx context.Context, eventID string, attendees []calendar.Attendee) error

	// LoadAlarms retrieves one user's alarms on an event.
	LoadAlarms(ctx context.Context, eventID string, userID int) ([]calendar.Alarm, error)
	InsertAlarms(ctx context.Context, eventID string, userID int, alarms []calendar.Alarm) error
	// DeleteAlarms removes all of one user's alarms on an event.
	DeleteAlarms(ctx context.Context, eventID string, userID int) error

	// DeleteTriggers removes alarm triggers of an event. A nil user list
	// removes the triggers of every user.
	DeleteTriggers(ctx context.Context, eventID string, userIDs []int) error
	InsertTriggers(ctx context.Context, triggers []calendar.AlarmTrigger) error

	InsertConferences(ctx context.Context, eventID string, conferences []calendar.Conference) error
	UpdateConference(ctx context.Context, eventID string, conference calendar.Conference) error
	DeleteConferences(ctx context.Context, eventID string, conferenceIDs []int) error

	InsertAttachments(ctx context.Context, eventID string, attachments []calendar.Attachment) error
	DeleteAttachments(ctx context.Context, eventID string, attachmentIDs []int) error
}
