package update

import (
	"context"
	"time"

	"github.com/meridiancal/groupcal/calendar"
)

// SchedulingAction classifies what kind of scheduling message, if any, an
// update implies.
type SchedulingAction int

const (
	ActionNone SchedulingAction = iota
	// ActionRequest: the organizer changed event data relevant to the
	// attendees, series-wide or for one occurrence.
	ActionRequest
	// ActionReply: an attendee answered on their own attendee record.
	ActionReply
	// ActionCancel: the event or an occurrence was removed.
	ActionCancel
)

// Scheduler receives fully computed diffs and deletion records and
// decides whether to emit scheduling messages. Implementations must not
// mutate the passed data.
type Scheduler interface {
	ProcessUpdate(ctx context.Context, session *Session, update *EventUpdate) error
	ProcessDeletion(ctx context.Context, session *Session, event *calendar.Event, at time.Time) error
}

// ClassifyUpdate derives the scheduling action of a diff: organizer-side
// reschedules and attendee-set changes request, participant answers
// reply, pure metadata changes stay silent.
func ClassifyUpdate(session *Session, update *EventUpdate) SchedulingAction {
	if update.Empty() || !update.Original.GroupScheduled() {
		return ActionNone
	}
	if update.IsReply() {
		return ActionReply
	}
	if session.ActsAsOrganizer(update.Original) &&
		(update.IsReschedule() || !update.Attendees.Empty() || update.Contains(calendar.FieldSummary) ||
			update.Contains(calendar.FieldLocation) || update.Contains(calendar.FieldDescription)) {
		return ActionRequest
	}
	return ActionNone
}

// Interceptor hooks run between diff computation and persistence; an
// error aborts the update.
type Interceptor interface {
	BeforeUpdate(ctx context.Context, session *Session, update *EventUpdate) error
}

// NopScheduler drops all scheduling work.
type NopScheduler struct{}

func (NopScheduler) ProcessUpdate(context.Context, *Session, *EventUpdate) error { return nil }
func (NopScheduler) ProcessDeletion(context.Context, *Session, *calendar.Event, time.Time) error {
	return nil
}

// RecordingScheduler captures scheduling calls for tests.
type RecordingScheduler struct {
	Updates   []*EventUpdate
	Deletions []*calendar.Event
}

func (r *RecordingScheduler) ProcessUpdate(_ context.Context, _ *Session, u *EventUpdate) error {
	r.Updates = append(r.Updates, u)
	return nil
}

func (r *RecordingScheduler) ProcessDeletion(_ context.Context, _ *Session, e *calendar.Event, _ time.Time) error {
	r.Deletions = append(r.Deletions, e)
	return nil
}
