package update

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/config"
	"github.com/meridiancal/groupcal/entity"
	"github.com/meridiancal/groupcal/storage"
	"github.com/meridiancal/groupcal/storage/memory"
)

func newUpdater(store *memory.Store) *StorageUpdater {
	resolver := entity.NewStaticResolver(
		entity.Entity{ID: 1, DisplayName: "Alice Adams", URI: "mailto:alice@example.com", DefaultFolder: "f-alice"},
		entity.Entity{ID: 2, DisplayName: "Bob Baker", URI: "mailto:bob@example.com", DefaultFolder: "f-bob"},
		entity.Entity{ID: 9, DisplayName: "Successor Smith", URI: "mailto:successor@example.com", DefaultFolder: "f-successor"},
	)
	cfg := config.Default()
	cfg.PurgeBatchSize = 3
	updater := NewStorageUpdater(store, resolver, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	updater.Now = func() time.Time { return fixedNow }
	return updater
}

func TestReplaceAttendeeSubstitutesOrganizer(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)
	event := groupEvent("e1")
	event.Organizer.SentBy = "MAILTO:Alice@Example.com"
	require.NoError(t, store.InsertEvent(context.Background(), event))

	require.NoError(t, updater.ReplaceAttendee(context.Background(), event, 1, 9))

	stored, err := store.LoadEvent(context.Background(), "e1")
	require.NoError(t, err)
	require.NotNil(t, stored.Organizer)
	assert.Equal(t, 9, stored.Organizer.Entity)
	assert.Equal(t, "mailto:successor@example.com", stored.Organizer.URI)
	assert.Equal(t, "Successor Smith", stored.Organizer.CN)
	assert.Equal(t, "mailto:successor@example.com", stored.Organizer.SentBy)
	assert.Equal(t, 9, stored.CreatedBy)
	assert.Equal(t, 9, stored.ModifiedBy)
	assert.Equal(t, 9, stored.CalendarUser)

	successor, ok := stored.AttendeeByEntity(9)
	require.True(t, ok, "the new organizer gets an attendee record")
	assert.Equal(t, calendar.RoleChair, successor.Role)
	assert.Equal(t, calendar.PartStatAccepted, successor.PartStat)
	assert.Equal(t, "f-successor", successor.Folder)

	result := updater.Result()
	require.Len(t, result.Updated, 1)
}

func TestReplaceAttendeeLeavesUnrelatedEventAlone(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)
	event := groupEvent("e1")
	require.NoError(t, store.InsertEvent(context.Background(), event))

	require.NoError(t, updater.ReplaceAttendee(context.Background(), event, 7, 9))

	stored, err := store.LoadEvent(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Organizer.Entity)
	assert.Equal(t, 1, stored.CreatedBy)
	assert.Empty(t, updater.Result().Updated)
}

func TestReplaceAttendeeUnknownReplacement(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)
	event := groupEvent("e1")
	require.NoError(t, store.InsertEvent(context.Background(), event))

	err := updater.ReplaceAttendee(context.Background(), event, 1, 42)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestReplaceAttendeeResolverFailure(t *testing.T) {
	store := memory.New()
	resolver := &entity.MockResolver{}
	boom := errors.New("directory down")
	resolver.On("ResolveByID", mock.Anything, 9).Return(mo.None[entity.Entity](), boom)
	updater := NewStorageUpdater(store, resolver, config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	event := groupEvent("e1")
	require.NoError(t, store.InsertEvent(context.Background(), event))

	err := updater.ReplaceAttendee(context.Background(), event, 1, 9)
	assert.ErrorIs(t, err, boom)
	resolver.AssertExpectations(t)
}

func TestRemoveAttendeeStripsAlarmsAndTriggers(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)
	event := groupEvent("e1")
	event.Alarms = map[int][]calendar.Alarm{
		2: {{ID: 1, UID: "a-bob", Action: "DISPLAY"}},
	}
	require.NoError(t, store.InsertEvent(context.Background(), event))
	require.NoError(t, store.InsertTriggers(context.Background(), []calendar.AlarmTrigger{
		{EventID: "e1", UserID: 2, AlarmID: 1, Time: eventStart.Add(-15 * time.Minute)},
	}))

	bob, _ := event.AttendeeByEntity(2)
	require.NoError(t, updater.RemoveAttendee(context.Background(), event, bob))

	stored, err := store.LoadEvent(context.Background(), "e1")
	require.NoError(t, err)
	_, ok := stored.AttendeeByEntity(2)
	assert.False(t, ok)
	assert.Empty(t, stored.Alarms[2])
	assert.Empty(t, store.Triggers("e1"))

	result := updater.Result()
	require.Len(t, result.Updated, 1)
	_, gone := result.Updated[0].Updated.AttendeeByEntity(2)
	assert.False(t, gone)
}

func TestRemoveAttendeeMissingIsNoop(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)
	event := groupEvent("e1")
	require.NoError(t, store.InsertEvent(context.Background(), event))

	require.NoError(t, updater.RemoveAttendee(context.Background(), event, calendar.Attendee{Entity: 7}))
	assert.Empty(t, updater.Result().Updated)
}

func TestDeleteEventRemovesChildren(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)
	event := groupEvent("e1")
	event.Conferences = []calendar.Conference{{ID: 1, URI: "https://meet.example.com/x"}}
	event.Attachments = []calendar.Attachment{{ID: 1, URI: "https://files.example.com/agenda.pdf"}}
	event.Alarms = map[int][]calendar.Alarm{
		1: {{ID: 1, UID: "a-alice", Action: "DISPLAY"}},
	}
	require.NoError(t, store.InsertEvent(context.Background(), event))

	require.NoError(t, updater.DeleteEvent(context.Background(), event))

	_, err := store.LoadEvent(context.Background(), "e1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	result := updater.Result()
	require.Len(t, result.Deleted, 1)
	assert.Equal(t, "e1", result.Deleted[0].Original.ID)
	assert.True(t, result.Deleted[0].At.Equal(fixedNow))
}

func TestRemoveEventsInFolderDrainsBatches(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)
	for i := 0; i < 7; i++ {
		event := plainEvent(fmt.Sprintf("e%d", i))
		event.Folder = "f-x"
		require.NoError(t, store.InsertEvent(context.Background(), event))
	}
	keep := plainEvent("keep")
	require.NoError(t, store.InsertEvent(context.Background(), keep))

	total, err := updater.RemoveEventsInFolder(context.Background(), Folder{ID: "f-x", Owner: 5})
	require.NoError(t, err)
	assert.Equal(t, 7, total)

	count, err := store.CountEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	_, err = store.LoadEvent(context.Background(), "keep")
	assert.NoError(t, err)
}

func TestRemoveEventsInFolderKeepsSharedCopies(t *testing.T) {
	store := memory.New()
	updater := newUpdater(store)

	shared := groupEvent("shared")
	require.NoError(t, store.InsertEvent(context.Background(), shared))
	private := plainEvent("private")
	private.Folder = "f-bob"
	private.CalendarUser = 2
	require.NoError(t, store.InsertEvent(context.Background(), private))

	total, err := updater.RemoveEventsInFolder(context.Background(), Folder{ID: "f-bob", Owner: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	stored, err := store.LoadEvent(context.Background(), "shared")
	require.NoError(t, err, "the group event survives, only bob's copy goes")
	_, ok := stored.AttendeeByEntity(2)
	assert.False(t, ok)

	_, err = store.LoadEvent(context.Background(), "private")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
