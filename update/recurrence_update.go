package update

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/storage"
)

// updateRecurrence dispatches an update addressed at one occurrence (or
// the this-and-future tail) of a series master.
func (p *Performer) updateRecurrence(ctx context.Context, session *Session, tracker *ResultTracker, master *calendar.Event, recurrenceID calendar.RecurrenceID, updated *calendar.Event) error {
	if calendar.ContainsDate(master.DeleteExceptionDates, recurrenceID.Value) {
		return fmt.Errorf("occurrence %s is a delete exception: %w",
			recurrenceID.Value.Format(time.RFC3339), ErrRecurrenceNotFound)
	}
	contained, err := p.Recurrence.Contains(master, recurrenceID.Value)
	if err != nil {
		return fmt.Errorf("failed to validate recurrence id: %w", err)
	}
	if !contained {
		return fmt.Errorf("occurrence %s not generated by series %q: %w",
			recurrenceID.Value.Format(time.RFC3339), master.ID, ErrRecurrenceNotFound)
	}

	if recurrenceID.ThisAndFuture() {
		return p.updateThisAndFuture(ctx, session, tracker, master, recurrenceID.Value, updated)
	}

	if calendar.ContainsDate(master.ChangeExceptionDates, recurrenceID.Value) {
		return p.updateExistingException(ctx, session, tracker, master, recurrenceID.Value, updated)
	}
	return p.updateNewException(ctx, session, tracker, master, recurrenceID, updated)
}

// updateThisAndFuture splits the series at the addressed occurrence and
// applies the update to the detached head.
func (p *Performer) updateThisAndFuture(ctx context.Context, session *Session, tracker *ResultTracker, master *calendar.Event, splitPoint time.Time, updated *calendar.Event) error {
	head, tail, err := p.Splitter.Split(ctx, session, master, splitPoint)
	if err != nil {
		return fmt.Errorf("failed to split series %q at %s: %w", master.ID, splitPoint.Format(time.RFC3339), err)
	}
	if head == nil {
		return fmt.Errorf("split of series %q produced no master: %w", master.ID, ErrUnexpected)
	}
	if tail != nil {
		tracker.TrackCreation(tail)
	}

	adjusted := adjustUpdatedSeriesAfterSplit(master, head, updated)
	ignored := []calendar.EventField{
		calendar.FieldRecurrenceID,
		calendar.FieldChangeExceptionDates,
		calendar.FieldDeleteExceptionDates,
	}
	return p.updatePlain(ctx, session, tracker, head, adjusted, ignored)
}

// adjustUpdatedSeriesAfterSplit reconciles the client payload, which
// predates the split, with the already-persisted state of the updated
// series: roll back the related-to linkage so the split survives the
// diff, force a sequence bump if the split didn't produce one, and merge
// the split's COUNT adjustment into a client rule that is otherwise
// unchanged from its pre-split state. Returns a copy-with-override.
func adjustUpdatedSeriesAfterSplit(preSplit, head, updated *calendar.Event) *calendar.Event {
	adjusted := updated.Clone()
	adjusted.RelatedTo = head.RelatedTo
	if adjusted.Sequence <= preSplit.Sequence {
		if head.Sequence > preSplit.Sequence {
			adjusted.Sequence = head.Sequence
		} else {
			adjusted.Sequence = preSplit.Sequence + 1
		}
	}
	if adjusted.RecurrenceRule == preSplit.RecurrenceRule && head.RecurrenceRule != preSplit.RecurrenceRule {
		adjusted.RecurrenceRule = head.RecurrenceRule
	}
	return adjusted
}

// updateExistingException applies the update to the already persisted
// change exception and touches the series master.
func (p *Performer) updateExistingException(ctx context.Context, session *Session, tracker *ResultTracker, master *calendar.Event, recurrenceID time.Time, updated *calendar.Event) error {
	exception, err := p.Storage.LoadChangeException(ctx, master.ID, recurrenceID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("change exception %s of series %q registered but not stored: %w",
			recurrenceID.Format(time.RFC3339), master.ID, ErrUnexpected)
	} else if err != nil {
		return fmt.Errorf("failed to load change exception: %w", err)
	}
	if err := p.updatePlain(ctx, session, tracker, exception, updated, nil); err != nil {
		return err
	}
	return p.touchMaster(ctx, session, tracker, master)
}

// updateNewException materializes a change exception for a so-far
// unexceptional occurrence, then applies the update to it.
func (p *Performer) updateNewException(ctx context.Context, session *Session, tracker *ResultTracker, master *calendar.Event, recurrenceID calendar.RecurrenceID, updated *calendar.Event) error {
	if p.Config.EventQuota > 0 {
		count, err := p.Storage.CountEvents(ctx)
		if err != nil {
			return fmt.Errorf("failed to count events for quota check: %w", err)
		}
		if count >= p.Config.EventQuota {
			return fmt.Errorf("%d of %d events stored: %w", count, p.Config.EventQuota, ErrQuotaExceeded)
		}
	}

	exception := p.newChangeException(session, master, recurrenceID.Value, 0)
	if err := p.Storage.InsertEvent(ctx, exception); err != nil {
		return fmt.Errorf("failed to insert change exception: %w", err)
	}
	tracker.TrackCreation(exception)

	// The exception must not inherit master-level recurrence semantics
	// from the payload; internally organized events also keep their own
	// sequence numbering.
	ignored := []calendar.EventField{
		calendar.FieldRecurrenceID,
		calendar.FieldRecurrenceRule,
		calendar.FieldChangeExceptionDates,
		calendar.FieldDeleteExceptionDates,
	}
	if master.Organizer != nil && master.Organizer.Entity != 0 {
		ignored = append(ignored, calendar.FieldSequence)
	}
	if err := p.updatePlain(ctx, session, tracker, exception, updated, ignored); err != nil {
		return err
	}

	now := p.now()
	masterDelta := &calendar.Event{
		ChangeExceptionDates: calendar.AddDate(append([]time.Time(nil), master.ChangeExceptionDates...), recurrenceID.Value),
		LastModified:         now,
		ModifiedBy:           session.UserID,
		Timestamp:            now,
	}
	fields := []calendar.EventField{
		calendar.FieldChangeExceptionDates,
		calendar.FieldLastModified,
		calendar.FieldModifiedBy,
		calendar.FieldTimestamp,
	}
	if err := p.Storage.UpdateEvent(ctx, master.ID, masterDelta, fields); err != nil {
		return fmt.Errorf("failed to register change exception date on master %q: %w", master.ID, err)
	}
	updatedMaster := master.Clone()
	updatedMaster.ChangeExceptionDates = masterDelta.ChangeExceptionDates
	updatedMaster.LastModified = now
	updatedMaster.ModifiedBy = session.UserID
	updatedMaster.Timestamp = now
	tracker.TrackUpdate(master, updatedMaster)

	return p.resetTriggers(ctx, updatedMaster)
}

// newChangeException derives a fresh exception event from the master for
// the given occurrence, copying attendees, conferences, attachments and
// the master's per-user alarms. excludeEntity, when non-zero, drops that
// attendee (used for per-attendee occurrence removal).
func (p *Performer) newChangeException(session *Session, master *calendar.Event, recurrenceID time.Time, excludeEntity int) *calendar.Event {
	start, end := p.Recurrence.OccurrenceWindow(master, recurrenceID)
	now := p.now()

	exception := master.Clone()
	exception.ID = uuid.NewString()
	exception.SeriesID = master.ID
	exception.RecurrenceID = calendar.RecurrenceID{Value: recurrenceID}
	exception.RecurrenceRule = ""
	exception.ChangeExceptionDates = nil
	exception.DeleteExceptionDates = nil
	exception.Start = start
	exception.End = end
	exception.Created = now
	exception.CreatedBy = session.UserID
	exception.LastModified = now
	exception.ModifiedBy = session.UserID
	exception.Timestamp = now

	if excludeEntity != 0 {
		kept := exception.Attendees[:0:0]
		for _, a := range exception.Attendees {
			if a.Entity != excludeEntity {
				kept = append(kept, a)
			}
		}
		exception.Attendees = kept
		delete(exception.Alarms, excludeEntity)
	}
	return exception
}
