package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/storage"
)

func testEvent(id string, start time.Time) *calendar.Event {
	return &calendar.Event{
		ID:      id,
		Folder:  "f-main",
		UID:     "uid-" + id,
		Summary: "Sync",
		Start:   start,
		End:     start.Add(time.Hour),
		Transp:  calendar.TransparencyOpaque,
		Attendees: []calendar.Attendee{
			{Entity: 1, URI: "mailto:alice@example.com", Folder: "f-alice", PartStat: calendar.PartStatAccepted},
			{Entity: 2, URI: "mailto:bob@example.com", Folder: "f-bob", PartStat: calendar.PartStatNeedsAction},
		},
	}
}

func TestInsertAndLoadEvent(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	event := testEvent("e1", start)

	require.NoError(t, store.InsertEvent(ctx, event))

	// The store must hold its own copy.
	event.Summary = "mutated after insert"

	loaded, err := store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Sync", loaded.Summary)
	assert.Len(t, loaded.Attendees, 2)

	_, err = store.LoadEvent(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.InsertEvent(ctx, testEvent("e1", start))
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	err = store.InsertEvent(ctx, &calendar.Event{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUpdateEventScopedFields(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEvent(ctx, testEvent("e1", start)))

	delta := &calendar.Event{Summary: "Renamed", Location: "ignored"}
	require.NoError(t, store.UpdateEvent(ctx, "e1", delta, []calendar.EventField{calendar.FieldSummary}))

	loaded, err := store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Summary)
	assert.Empty(t, loaded.Location, "unlisted fields stay untouched")

	err = store.UpdateEvent(ctx, "missing", delta, []calendar.EventField{calendar.FieldSummary})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoadChangeExceptions(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rid := start.AddDate(0, 0, 2)

	master := testEvent("series-1", start)
	master.RecurrenceRule = "FREQ=DAILY;COUNT=10"
	require.NoError(t, store.InsertEvent(ctx, master))

	exception := testEvent("exc-1", rid)
	exception.SeriesID = "series-1"
	exception.RecurrenceID = calendar.RecurrenceID{Value: rid}
	require.NoError(t, store.InsertEvent(ctx, exception))

	exceptions, err := store.LoadChangeExceptions(ctx, "series-1")
	require.NoError(t, err)
	require.Len(t, exceptions, 1)
	assert.Equal(t, "exc-1", exceptions[0].ID)

	loaded, err := store.LoadChangeException(ctx, "series-1", rid)
	require.NoError(t, err)
	assert.Equal(t, "exc-1", loaded.ID)

	_, err = store.LoadChangeException(ctx, "series-1", rid.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSearchEventsInFolder(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.InsertEvent(ctx, testEvent("e1", start)))
	require.NoError(t, store.InsertEvent(ctx, testEvent("e2", start.Add(2*time.Hour))))
	other := testEvent("e3", start)
	other.Folder = "f-other"
	other.Attendees = nil
	require.NoError(t, store.InsertEvent(ctx, other))

	parented, err := store.SearchEventsInFolder(ctx, "f-main", 0)
	require.NoError(t, err)
	assert.Len(t, parented, 2)

	// Attendee copies count as folder membership.
	byAttendee, err := store.SearchEventsInFolder(ctx, "f-bob", 0)
	require.NoError(t, err)
	assert.Len(t, byAttendee, 2)

	limited, err := store.SearchEventsInFolder(ctx, "f-main", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestSearchOverlapping(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	bob := calendar.Attendee{Entity: 2}

	busy := testEvent("busy", start)
	require.NoError(t, store.InsertEvent(ctx, busy))

	transparent := testEvent("transparent", start)
	transparent.Transp = calendar.TransparencyTransparent
	require.NoError(t, store.InsertEvent(ctx, transparent))

	declined := testEvent("declined", start)
	declined.Attendees[1].PartStat = calendar.PartStatDeclined
	require.NoError(t, store.InsertEvent(ctx, declined))

	elsewhere := testEvent("elsewhere", start.Add(4*time.Hour))
	require.NoError(t, store.InsertEvent(ctx, elsewhere))

	hits, err := store.SearchOverlapping(ctx, start.Add(30*time.Minute), start.Add(90*time.Minute), []calendar.Attendee{bob})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "busy", hits[0].ID)
}

func TestAttendeeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEvent(ctx, testEvent("e1", start)))

	carol := calendar.Attendee{Entity: 3, URI: "mailto:carol@example.com"}
	require.NoError(t, store.InsertAttendees(ctx, "e1", []calendar.Attendee{carol}))

	err := store.InsertAttendees(ctx, "e1", []calendar.Attendee{carol})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	carol.PartStat = calendar.PartStatTentative
	require.NoError(t, store.UpdateAttendee(ctx, "e1", carol))

	loaded, err := store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	stored, ok := loaded.AttendeeByEntity(3)
	require.True(t, ok)
	assert.Equal(t, calendar.PartStatTentative, stored.PartStat)

	require.NoError(t, store.DeleteAttendees(ctx, "e1", []calendar.Attendee{carol}))
	loaded, err = store.LoadEvent(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, loaded.Attendees, 2)

	err = store.UpdateAttendee(ctx, "e1", calendar.Attendee{Entity: 99})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAlarmAndTriggerLifecycle(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEvent(ctx, testEvent("e1", start)))

	before := -15 * time.Minute
	alarm := calendar.Alarm{ID: 1, Action: "DISPLAY", Trigger: calendar.Trigger{Duration: &before}}
	require.NoError(t, store.InsertAlarms(ctx, "e1", 2, []calendar.Alarm{alarm}))

	alarms, err := store.LoadAlarms(ctx, "e1", 2)
	require.NoError(t, err)
	require.Len(t, alarms, 1)

	none, err := store.LoadAlarms(ctx, "e1", 1)
	require.NoError(t, err)
	assert.Empty(t, none)

	triggers := []calendar.AlarmTrigger{
		{EventID: "e1", UserID: 1, AlarmID: 1, Time: start},
		{EventID: "e1", UserID: 2, AlarmID: 1, Time: start.Add(before)},
	}
	require.NoError(t, store.InsertTriggers(ctx, triggers))

	require.NoError(t, store.DeleteTriggers(ctx, "e1", []int{1}))
	remaining := store.Triggers("e1")
	require.Len(t, remaining, 1)
	assert.Equal(t, 2, remaining[0].UserID)

	require.NoError(t, store.DeleteTriggers(ctx, "e1", nil))
	assert.Empty(t, store.Triggers("e1"))

	require.NoError(t, store.DeleteAlarms(ctx, "e1", 2))
	alarms, err = store.LoadAlarms(ctx, "e1", 2)
	require.NoError(t, err)
	assert.Empty(t, alarms)
}

func TestCountAndDelete(t *testing.T) {
	ctx := context.Background()
	store := New()
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.InsertEvent(ctx, testEvent("e1", start)))
	require.NoError(t, store.InsertEvent(ctx, testEvent("e2", start)))

	count, err := store.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, store.DeleteEvent(ctx, "e1"))
	count, err = store.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	err = store.DeleteEvent(ctx, "e1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
