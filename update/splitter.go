package update

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/recurrence"
	"github.com/meridiancal/groupcal/storage"
)

// SeriesSplitter divides a series at a recurrence point into two
// independent series: the truncated original (head) and a detached tail
// starting at the split point. The tail is persisted; the head update is
// persisted; both are returned in their post-split state.
type SeriesSplitter interface {
	Split(ctx context.Context, session *Session, master *calendar.Event, splitPoint time.Time) (head, tail *calendar.Event, err error)
}

// StorageSplitter is the default SeriesSplitter implementation working
// directly against calendar storage.
type StorageSplitter struct {
	Storage    storage.CalendarStorage
	Recurrence *recurrence.Engine
	Logger     *slog.Logger

	// Now is the time source; overridable in tests.
	Now func() time.Time
}

func (s *StorageSplitter) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *StorageSplitter) Split(ctx context.Context, session *Session, master *calendar.Event, splitPoint time.Time) (*calendar.Event, *calendar.Event, error) {
	rules, err := s.Recurrence.Split(master, splitPoint)
	if err != nil {
		return nil, nil, err
	}
	now := s.now()

	tail := master.Clone()
	tail.ID = uuid.NewString()
	tail.SeriesID = tail.ID
	tail.UID = uuid.NewString()
	tail.RecurrenceRule = rules.Tail
	tail.Start, tail.End = s.Recurrence.OccurrenceWindow(master, splitPoint)
	tail.RelatedTo = master.UID
	tail.ChangeExceptionDates = datesFrom(master.ChangeExceptionDates, splitPoint)
	tail.DeleteExceptionDates = datesFrom(master.DeleteExceptionDates, splitPoint)
	tail.Created = now
	tail.CreatedBy = session.UserID
	tail.LastModified = now
	tail.ModifiedBy = session.UserID
	tail.Timestamp = now
	if err := s.Storage.InsertEvent(ctx, tail); err != nil {
		return nil, nil, fmt.Errorf("failed to insert detached series: %w", err)
	}

	// Change exceptions at or after the split point now belong to the
	// detached series.
	exceptions, err := s.Storage.LoadChangeExceptions(ctx, master.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load change exceptions of %q: %w", master.ID, err)
	}
	for _, exception := range exceptions {
		if exception.RecurrenceID.Value.Before(splitPoint) {
			continue
		}
		delta := &calendar.Event{SeriesID: tail.ID}
		if err := s.Storage.UpdateEvent(ctx, exception.ID, delta, []calendar.EventField{calendar.FieldSeriesID}); err != nil {
			return nil, nil, fmt.Errorf("failed to re-parent exception %q: %w", exception.ID, err)
		}
	}

	head := master.Clone()
	head.RecurrenceRule = rules.Head
	head.RelatedTo = tail.UID
	head.ChangeExceptionDates = datesBefore(master.ChangeExceptionDates, splitPoint)
	head.DeleteExceptionDates = datesBefore(master.DeleteExceptionDates, splitPoint)
	head.Sequence = master.Sequence + 1
	head.LastModified = now
	head.ModifiedBy = session.UserID
	head.Timestamp = now
	headFields := []calendar.EventField{
		calendar.FieldRecurrenceRule,
		calendar.FieldRelatedTo,
		calendar.FieldChangeExceptionDates,
		calendar.FieldDeleteExceptionDates,
		calendar.FieldSequence,
		calendar.FieldLastModified,
		calendar.FieldModifiedBy,
		calendar.FieldTimestamp,
	}
	if err := s.Storage.UpdateEvent(ctx, master.ID, head, headFields); err != nil {
		return nil, nil, fmt.Errorf("failed to truncate series %q: %w", master.ID, err)
	}

	if s.Logger != nil {
		s.Logger.Info("series split",
			"series_id", master.ID,
			"split_point", splitPoint,
			"tail_id", tail.ID,
			"kept", rules.Kept)
	}
	return head, tail, nil
}

func datesBefore(dates []time.Time, cutoff time.Time) []time.Time {
	var out []time.Time
	for _, d := range dates {
		if d.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out
}

func datesFrom(dates []time.Time, cutoff time.Time) []time.Time {
	var out []time.Time
	for _, d := range dates {
		if !d.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out
}
