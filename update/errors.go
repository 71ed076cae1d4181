// Package update implements the recurrence-aware calendar event update
// engine: diffing client-submitted event data against stored state,
// orchestrating the resulting storage mutations for masters, occurrences
// and change exceptions, and tracking the records downstream scheduling
// needs.
package update

import "errors"

var (
	// ErrEventNotFound is returned when the addressed event doesn't exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrRecurrenceNotFound is returned when a recurrence id lies outside
	// the series' generated occurrence set or targets a delete exception.
	ErrRecurrenceNotFound = errors.New("event recurrence not found")
	// ErrInvalidRecurrenceID is returned when a recurrence id is missing
	// where one is required, or carries a malformed range.
	ErrInvalidRecurrenceID = errors.New("invalid recurrence id")
	// ErrForbiddenChange is returned when the client attempts to mutate a
	// protected field or lacks the permission a sub-step requires.
	ErrForbiddenChange = errors.New("forbidden change")
	// ErrConflict is returned when a scheduling conflict is detected
	// before persisting.
	ErrConflict = errors.New("scheduling conflict")
	// ErrStaleData is returned on an optimistic-concurrency violation:
	// the stored event is newer than the client-supplied timestamp.
	ErrStaleData = errors.New("stale event data")
	// ErrQuotaExceeded is returned when creating a change exception would
	// exceed the configured event quota.
	ErrQuotaExceeded = errors.New("event quota exceeded")
	// ErrUnexpected flags invariant violations, e.g. a split that
	// produced no master.
	ErrUnexpected = errors.New("unexpected error")
)
