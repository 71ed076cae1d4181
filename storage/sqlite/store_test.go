package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/storage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "groupcal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func triggerBefore(d time.Duration) calendar.Trigger {
	neg := -d
	return calendar.Trigger{Duration: &neg}
}

func sampleEvent(id string) *calendar.Event {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &calendar.Event{
		ID:             id,
		Folder:         "f-alice",
		UID:            "uid-" + id,
		Summary:        "Team planning",
		Location:       "Room 4",
		Start:          start,
		End:            start.Add(time.Hour),
		Transp:         calendar.TransparencyOpaque,
		CalendarUser:   1,
		CreatedBy:      1,
		ModifiedBy:     1,
		LastModified:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		RecurrenceRule: "FREQ=DAILY;COUNT=10",
		Organizer:      &calendar.Organizer{Entity: 1, URI: "mailto:alice@example.com", CN: "Alice Adams"},
		Attendees: []calendar.Attendee{
			{
				Entity: 1, URI: "mailto:alice@example.com", CN: "Alice Adams",
				CUType: calendar.CUTypeIndividual, Role: calendar.RoleChair,
				PartStat: calendar.PartStatAccepted, Folder: "f-alice",
			},
			{
				Entity: 2, URI: "mailto:bob@example.com", CN: "Bob Baker",
				CUType: calendar.CUTypeIndividual, Role: calendar.RoleRequired,
				PartStat: calendar.PartStatNeedsAction, RSVP: true, Folder: "f-bob",
			},
		},
		Conferences: []calendar.Conference{
			{ID: 1, URI: "https://meet.example.com/x", Label: "Video", Features: []string{"AUDIO", "VIDEO"}},
		},
		Alarms: map[int][]calendar.Alarm{
			1: {{ID: 1, UID: "a-alice", Action: "DISPLAY", Trigger: triggerBefore(15 * time.Minute)}},
		},
	}
}

func TestInsertAndLoadRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	event := sampleEvent("e1")
	require.NoError(t, store.InsertEvent(ctx, event))

	loaded, err := store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Team planning", loaded.Summary)
	assert.True(t, loaded.Start.Equal(event.Start))
	assert.Equal(t, calendar.TransparencyOpaque, loaded.Transp)
	require.NotNil(t, loaded.Organizer)
	assert.Equal(t, "Alice Adams", loaded.Organizer.CN)
	require.Len(t, loaded.Attendees, 2)
	require.Len(t, loaded.Conferences, 1)
	assert.Equal(t, []string{"AUDIO", "VIDEO"}, loaded.Conferences[0].Features)
	require.Len(t, loaded.Alarms[1], 1)
	require.NotNil(t, loaded.Alarms[1][0].Trigger.Duration)
	assert.Equal(t, -15*time.Minute, *loaded.Alarms[1][0].Trigger.Duration)

	assert.ErrorIs(t, store.InsertEvent(ctx, event), storage.ErrAlreadyExists)
	_, err = store.LoadEvent(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateEventScopedFields(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	event := sampleEvent("e1")
	require.NoError(t, store.InsertEvent(ctx, event))

	delta := &calendar.Event{Summary: "Renamed", Sequence: 4}
	require.NoError(t, store.UpdateEvent(ctx, "e1", delta,
		[]calendar.EventField{calendar.FieldSummary, calendar.FieldSequence}))

	loaded, err := store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Summary)
	assert.Equal(t, 4, loaded.Sequence)
	assert.Equal(t, "Room 4", loaded.Location, "unlisted fields stay put")

	err = store.UpdateEvent(ctx, "missing", delta, []calendar.EventField{calendar.FieldSummary})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUpdateEventOrganizerAndDates(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	event := sampleEvent("e1")
	require.NoError(t, store.InsertEvent(ctx, event))

	rid := event.Start.AddDate(0, 0, 3)
	delta := &calendar.Event{
		Organizer:            &calendar.Organizer{Entity: 2, URI: "mailto:bob@example.com", CN: "Bob Baker"},
		ChangeExceptionDates: []time.Time{rid},
	}
	require.NoError(t, store.UpdateEvent(ctx, "e1", delta,
		[]calendar.EventField{calendar.FieldOrganizer, calendar.FieldChangeExceptionDates}))

	loaded, err := store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	require.NotNil(t, loaded.Organizer)
	assert.Equal(t, 2, loaded.Organizer.Entity)
	require.Len(t, loaded.ChangeExceptionDates, 1)
	assert.True(t, loaded.ChangeExceptionDates[0].Equal(rid))

	require.NoError(t, store.UpdateEvent(ctx, "e1", &calendar.Event{},
		[]calendar.EventField{calendar.FieldOrganizer}))
	loaded, err = store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Nil(t, loaded.Organizer, "an empty delta organizer clears the field")
}

func TestChangeExceptionLookup(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	master := sampleEvent("series-1")
	require.NoError(t, store.InsertEvent(ctx, master))

	rid := master.Start.AddDate(0, 0, 2)
	exception := sampleEvent("exc-1")
	exception.UID = "uid-exc-1"
	exception.SeriesID = "series-1"
	exception.RecurrenceRule = ""
	exception.RecurrenceID = calendar.RecurrenceID{Value: rid}
	exception.Start = rid
	exception.End = rid.Add(time.Hour)
	require.NoError(t, store.InsertEvent(ctx, exception))

	exceptions, err := store.LoadChangeExceptions(ctx, "series-1")
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, "exc-1", exceptions[0].ID)

	found, err := store.LoadChangeException(ctx, "series-1", rid)
	require.NoError(t, err)
	assert.Equal(t, "exc-1", found.ID)
	assert.True(t, found.RecurrenceID.Value.Equal(rid))

	_, err = store.LoadChangeException(ctx, "series-1", rid.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearchEventsInFolder(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	parented := sampleEvent("e1")
	require.NoError(t, store.InsertEvent(ctx, parented))
	elsewhere := sampleEvent("e2")
	elsewhere.UID = "uid-e2"
	elsewhere.Folder = "f-other"
	require.NoError(t, store.InsertEvent(ctx, elsewhere))

	found, err := store.SearchEventsInFolder(ctx, "f-bob", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2, "attendee copies count as folder membership")

	found, err = store.SearchEventsInFolder(ctx, "f-other", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "e2", found[0].ID)
}

func TestSearchOverlapping(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	busy := sampleEvent("busy")
	require.NoError(t, store.InsertEvent(ctx, busy))
	transparent := sampleEvent("transparent")
	transparent.UID = "uid-transparent"
	transparent.Transp = calendar.TransparencyTransparent
	require.NoError(t, store.InsertEvent(ctx, transparent))

	bob := calendar.Attendee{Entity: 2}
	hits, err := store.SearchOverlapping(ctx, busy.Start.Add(30*time.Minute), busy.Start.Add(90*time.Minute), []calendar.Attendee{bob})
	require.NoError(t, err)
	require.Len(t, hits, 1, "transparent events never block")
	assert.Equal(t, "busy", hits[0].ID)

	hits, err = store.SearchOverlapping(ctx, busy.End, busy.End.Add(time.Hour), []calendar.Attendee{bob})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = store.SearchOverlapping(ctx, busy.Start, busy.End, []calendar.Attendee{{Entity: 9}})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestAttendeeLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	event := sampleEvent("e1")
	require.NoError(t, store.InsertEvent(ctx, event))

	carol := calendar.Attendee{
		Entity: 3, URI: "mailto:carol@example.com", CN: "Carol Clark",
		CUType: calendar.CUTypeIndividual, Role: calendar.RoleRequired,
		PartStat: calendar.PartStatNeedsAction, Folder: "f-carol",
	}
	require.NoError(t, store.InsertAttendees(ctx, "e1", []calendar.Attendee{carol}))

	carol.PartStat = calendar.PartStatAccepted
	require.NoError(t, store.UpdateAttendee(ctx, "e1", carol))

	loaded, err := store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, loaded.Attendees, 3)
	stored, ok := loaded.AttendeeByEntity(3)
	require.True(t, ok)
	assert.Equal(t, calendar.PartStatAccepted, stored.PartStat)

	require.NoError(t, store.DeleteAttendees(ctx, "e1", []calendar.Attendee{carol}))
	loaded, err = store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, loaded.Attendees, 2)

	err = store.UpdateAttendee(ctx, "e1", calendar.Attendee{Entity: 9})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlarmAndTriggerLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	event := sampleEvent("e1")
	require.NoError(t, store.InsertEvent(ctx, event))

	alarm := calendar.Alarm{ID: 1, UID: "a-bob", Action: "DISPLAY", Trigger: triggerBefore(30 * time.Minute)}
	require.NoError(t, store.InsertAlarms(ctx, "e1", 2, []calendar.Alarm{alarm}))

	alarms, err := store.LoadAlarms(ctx, "e1", 2)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	require.NotNil(t, alarms[0].Trigger.Duration)
	assert.Equal(t, -30*time.Minute, *alarms[0].Trigger.Duration)

	fireAt := event.Start.Add(-30 * time.Minute)
	require.NoError(t, store.InsertTriggers(ctx, []calendar.AlarmTrigger{
		{EventID: "e1", UserID: 2, AlarmID: 1, Time: fireAt},
		{EventID: "e1", UserID: 1, AlarmID: 1, Time: event.Start.Add(-15 * time.Minute)},
	}))

	require.NoError(t, store.DeleteTriggers(ctx, "e1", []int{2}))
	require.NoError(t, store.DeleteTriggers(ctx, "e1", nil))

	require.NoError(t, store.DeleteAlarms(ctx, "e1", 2))
	alarms, err = store.LoadAlarms(ctx, "e1", 2)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestDeleteEventCascades(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	event := sampleEvent("e1")
	require.NoError(t, store.InsertEvent(ctx, event))

	require.NoError(t, store.DeleteEvent(ctx, "e1"))
	_, err := store.LoadEvent(ctx, "e1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteEvent(ctx, "e1"), storage.ErrNotFound)

	count, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx storage.CalendarStorage) error {
		if err := tx.InsertEvent(ctx, sampleEvent("e1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.LoadEvent(ctx, "e1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, store.WithTx(ctx, func(tx storage.CalendarStorage) error {
		return tx.InsertEvent(ctx, sampleEvent("e2"))
	}))
	_, err = store.LoadEvent(ctx, "e2")
	assert.NoError(t, err)
}
