package update

import (
	"context"
	"log/slog"
	"time"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/storage"
)

// Conflict is one scheduling collision found before persisting.
type Conflict struct {
	EventID  string
	Start    time.Time
	End      time.Time
	Attendee calendar.Attendee
	// Hard conflicts (booked resources) always reject the update.
	Hard bool
}

// ConflictChecker detects scheduling conflicts for an event about to be
// persisted, limited to the given attendee subset.
type ConflictChecker interface {
	Check(ctx context.Context, session *Session, event *calendar.Event, attendees []calendar.Attendee) ([]Conflict, error)
}

// FreeBusyChecker implements ConflictChecker against the calendar store's
// free/busy view. Transparent events and declined attendees don't count.
type FreeBusyChecker struct {
	Storage storage.CalendarStorage
	// Horizon bounds how far into the future recurring spans are checked.
	Horizon time.Duration
	Logger  *slog.Logger
}

func (c *FreeBusyChecker) Check(ctx context.Context, _ *Session, event *calendar.Event, attendees []calendar.Attendee) ([]Conflict, error) {
	if event.Transp == calendar.TransparencyTransparent {
		return nil, nil
	}
	end := event.End
	if event.IsSeriesMaster() && c.Horizon > 0 {
		end = event.Start.Add(c.Horizon)
	}
	overlapping, err := c.Storage.SearchOverlapping(ctx, event.Start, end, attendees)
	if err != nil {
		return nil, err
	}
	var conflicts []Conflict
	for _, other := range overlapping {
		if other.ID == event.ID || (event.SeriesID != "" && other.SeriesID == event.SeriesID) {
			continue
		}
		for _, candidate := range attendees {
			stored, ok := other.FindAttendee(candidate)
			if !ok || stored.PartStat == calendar.PartStatDeclined {
				continue
			}
			conflicts = append(conflicts, Conflict{
				EventID:  other.ID,
				Start:    other.Start,
				End:      other.End,
				Attendee: stored,
				Hard:     stored.CUType == calendar.CUTypeResource || stored.CUType == calendar.CUTypeRoom,
			})
		}
	}
	if len(conflicts) > 0 && c.Logger != nil {
		c.Logger.Debug("conflicts detected",
			"event_id", event.ID,
			"count", len(conflicts))
	}
	return conflicts, nil
}

// MockConflictChecker implements ConflictChecker for testing.
type MockConflictChecker struct {
	Conflicts []Conflict
	Err       error
	Calls     int
}

func (m *MockConflictChecker) Check(context.Context, *Session, *calendar.Event, []calendar.Attendee) ([]Conflict, error) {
	m.Calls++
	return m.Conflicts, m.Err
}
