package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/config"
	"github.com/meridiancal/groupcal/entity"
	"github.com/meridiancal/groupcal/recurrence"
	"github.com/meridiancal/groupcal/storage"
)

// Performer orchestrates one logical update request against a master
// event, a single occurrence, a this-and-future tail or a change
// exception, turning it into ordered storage mutations, alarm
// re-triggering and scheduling notification.
//
// The performer holds no state across calls and performs no compensation
// on failure; callers are expected to wrap one Perform call in a single
// storage transaction.
type Performer struct {
	Storage      storage.CalendarStorage
	Resolver     entity.Resolver
	Recurrence   *recurrence.Engine
	Splitter     SeriesSplitter
	Conflicts    ConflictChecker
	Scheduler    Scheduler
	Permissions  PermissionChecker
	Interceptors []Interceptor
	Config       config.Config
	Logger       *slog.Logger

	// Now is the time source; overridable in tests.
	Now func() time.Time
}

// NewPerformer creates a performer with default collaborators: an rrule
// recurrence engine, a storage-backed splitter and conflict checker, no
// scheduler and no permission restrictions.
func NewPerformer(store storage.CalendarStorage, resolver entity.Resolver, cfg config.Config, logger *slog.Logger) *Performer {
	engine := recurrence.NewEngine()
	return &Performer{
		Storage:    store,
		Resolver:   resolver,
		Recurrence: engine,
		Splitter: &StorageSplitter{
			Storage:    store,
			Recurrence: engine,
			Logger:     logger,
		},
		Conflicts: &FreeBusyChecker{
			Storage: store,
			Horizon: cfg.ConflictHorizonDuration(),
			Logger:  logger,
		},
		Scheduler:   NopScheduler{},
		Permissions: AllowAll{},
		Config:      cfg,
		Logger:      logger,
		Now:         time.Now,
	}
}

func (p *Performer) now() time.Time {
	if p.Now != nil {
		return p.Now().Truncate(time.Millisecond)
	}
	return time.Now().Truncate(time.Millisecond)
}

// Perform executes one logical update request. expectedTimestamp is the
// client's view of the event's last modification; an older value than
// stored rejects the call before any mutation.
func (p *Performer) Perform(ctx context.Context, session *Session, eventID string, recurrenceID calendar.RecurrenceID, updated *calendar.Event, expectedTimestamp time.Time) (*Result, error) {
	p.Logger.Info("update request received",
		"event_id", eventID,
		"recurrence_id", recurrenceID.Value,
		"range", string(recurrenceID.Range),
		"user_id", session.UserID,
		"folder_id", session.Folder.ID)

	original, err := p.Storage.LoadEvent(ctx, eventID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("event %q: %w", eventID, ErrEventNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load event %q: %w", eventID, err)
	}

	if original.LastModified.After(expectedTimestamp) {
		p.Logger.Warn("timestamp mismatch",
			"event_id", eventID,
			"stored", original.LastModified,
			"expected", expectedTimestamp)
		return nil, fmt.Errorf("event %q modified at %s: %w", eventID, original.LastModified.Format(time.RFC3339), ErrStaleData)
	}

	if !recurrenceID.IsZero() && recurrenceID.Range != calendar.RangeNone && !recurrenceID.ThisAndFuture() {
		return nil, fmt.Errorf("range %q: %w", recurrenceID.Range, ErrInvalidRecurrenceID)
	}

	updated = p.restoreInjectedAttendeeState(session, original, updated)

	tracker := NewResultTracker()
	switch {
	case recurrenceID.IsZero() && updated.RecurrenceID.IsZero() && !original.IsChangeException():
		err = p.updatePlain(ctx, session, tracker, original, updated, nil)
	case original.IsSeriesMaster() && !recurrenceID.IsZero():
		err = p.updateRecurrence(ctx, session, tracker, original, recurrenceID, updated)
	case original.IsChangeException() && (recurrenceID.IsZero() || recurrenceID.Value.Equal(original.RecurrenceID.Value)):
		err = p.updatePlain(ctx, session, tracker, original, updated, nil)
	default:
		err = fmt.Errorf("recurrence id %s on %s event: %w",
			recurrenceID.Value.Format(time.RFC3339), original.Flavor(), ErrInvalidRecurrenceID)
	}
	if err != nil {
		return nil, err
	}
	return tracker.Result(), nil
}

// restoreInjectedAttendeeState undoes the per-attendee state injected
// into the holder's copy of a group-scheduled event viewed from a
// non-organizer's personal folder, so a passive copy never looks actively
// edited. Returns a copy-with-override; the input is not mutated.
func (p *Performer) restoreInjectedAttendeeState(session *Session, original, updated *calendar.Event) *calendar.Event {
	if session.Folder.Public || !original.GroupScheduled() {
		return updated
	}
	if original.Organizer != nil && original.Organizer.Entity == session.Folder.Owner {
		return updated
	}
	restored := updated.Clone()
	restored.CalendarUser = original.CalendarUser
	if holder, ok := original.AttendeeByEntity(session.Folder.Owner); ok {
		for i, a := range restored.Attendees {
			if a.Entity == holder.Entity {
				restored.Attendees[i].Folder = holder.Folder
				restored.Attendees[i].Hidden = holder.Hidden
			}
		}
	}
	return restored
}

// touchMaster bumps the series master's modification stamp after one of
// its exceptions changed, and records a pass-through update for it
// without re-diffing.
func (p *Performer) touchMaster(ctx context.Context, session *Session, tracker *ResultTracker, master *calendar.Event) error {
	now := p.now()
	delta := &calendar.Event{
		LastModified: now,
		ModifiedBy:   session.UserID,
		Timestamp:    now,
	}
	fields := []calendar.EventField{calendar.FieldLastModified, calendar.FieldModifiedBy, calendar.FieldTimestamp}
	if err := p.Storage.UpdateEvent(ctx, master.ID, delta, fields); err != nil {
		return fmt.Errorf("failed to touch series master %q: %w", master.ID, err)
	}
	touched := master.Clone()
	touched.LastModified = now
	touched.ModifiedBy = session.UserID
	touched.Timestamp = now
	tracker.TrackUpdate(master, touched)
	return nil
}

// resetTriggers recomputes and reinserts the alarm triggers of an event
// from its final persisted state.
func (p *Performer) resetTriggers(ctx context.Context, event *calendar.Event) error {
	if err := p.Storage.DeleteTriggers(ctx, event.ID, nil); err != nil {
		return fmt.Errorf("failed to delete triggers of %q: %w", event.ID, err)
	}
	var triggers []calendar.AlarmTrigger
	for userID, alarms := range event.Alarms {
		for _, alarm := range alarms {
			triggers = append(triggers, calendar.AlarmTrigger{
				EventID: event.ID,
				UserID:  userID,
				AlarmID: alarm.ID,
				Time:    triggerTime(event, alarm),
			})
		}
	}
	if len(triggers) == 0 {
		return nil
	}
	if err := p.Storage.InsertTriggers(ctx, triggers); err != nil {
		return fmt.Errorf("failed to insert triggers of %q: %w", event.ID, err)
	}
	return nil
}

func triggerTime(event *calendar.Event, alarm calendar.Alarm) time.Time {
	if alarm.Trigger.DateTime != nil {
		return *alarm.Trigger.DateTime
	}
	if alarm.Trigger.Duration != nil {
		return event.Start.Add(*alarm.Trigger.Duration)
	}
	return event.Start
}
