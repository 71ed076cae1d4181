package update

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/config"
	"github.com/meridiancal/groupcal/entity"
	"github.com/meridiancal/groupcal/storage"
)

// StorageUpdater performs the attendee-substitution and purge operations
// used when an internal user account is removed or merged: stripping the
// user from events, substituting a replacement identity in audit and
// organizer fields, and draining whole folders.
type StorageUpdater struct {
	Storage  storage.CalendarStorage
	Resolver entity.Resolver
	Config   config.Config
	Logger   *slog.Logger

	tracker *ResultTracker

	// Now is the time source; overridable in tests.
	Now func() time.Time
}

// NewStorageUpdater creates an updater with a fresh result tracker.
func NewStorageUpdater(store storage.CalendarStorage, resolver entity.Resolver, cfg config.Config, logger *slog.Logger) *StorageUpdater {
	return &StorageUpdater{
		Storage:  store,
		Resolver: resolver,
		Config:   cfg,
		Logger:   logger,
		tracker:  NewResultTracker(),
		Now:      time.Now,
	}
}

func (su *StorageUpdater) now() time.Time {
	if su.Now != nil {
		return su.Now()
	}
	return time.Now()
}

// Result snapshots the accumulated create/update/delete records.
func (su *StorageUpdater) Result() *Result {
	return su.tracker.Result()
}

// RemoveAttendee strips the target attendee from the event, including
// their alarms and triggers, and tracks the update.
func (su *StorageUpdater) RemoveAttendee(ctx context.Context, event *calendar.Event, attendee calendar.Attendee) error {
	stored, ok := event.FindAttendee(attendee)
	if !ok {
		return nil
	}
	if err := su.Storage.DeleteAttendees(ctx, event.ID, []calendar.Attendee{stored}); err != nil {
		return fmt.Errorf("failed to remove attendee from %q: %w", event.ID, err)
	}
	if stored.Internal() {
		if err := su.Storage.DeleteAlarms(ctx, event.ID, stored.Entity); err != nil {
			return fmt.Errorf("failed to remove alarms of attendee %d: %w", stored.Entity, err)
		}
		if err := su.Storage.DeleteTriggers(ctx, event.ID, []int{stored.Entity}); err != nil {
			return fmt.Errorf("failed to remove triggers of attendee %d: %w", stored.Entity, err)
		}
	}
	after := event.Clone()
	after.Attendees = removeAttendee(after.Attendees, stored)
	if stored.Internal() {
		delete(after.Alarms, stored.Entity)
	}
	su.tracker.TrackUpdate(event, after)
	return nil
}

// RemoveAttendeeFromAll applies RemoveAttendee to each event.
func (su *StorageUpdater) RemoveAttendeeFromAll(ctx context.Context, events []*calendar.Event, attendee calendar.Attendee) error {
	for _, event := range events {
		if err := su.RemoveAttendee(ctx, event, attendee); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEvent removes the event and all child aggregates and tracks the
// deletion with its timestamp.
func (su *StorageUpdater) DeleteEvent(ctx context.Context, event *calendar.Event) error {
	if err := su.Storage.DeleteTriggers(ctx, event.ID, nil); err != nil {
		return fmt.Errorf("failed to delete triggers of %q: %w", event.ID, err)
	}
	for userID := range event.Alarms {
		if err := su.Storage.DeleteAlarms(ctx, event.ID, userID); err != nil {
			return fmt.Errorf("failed to delete alarms of %q: %w", event.ID, err)
		}
	}
	if len(event.Attachments) > 0 {
		ids := make([]int, len(event.Attachments))
		for i, a := range event.Attachments {
			ids[i] = a.ID
		}
		if err := su.Storage.DeleteAttachments(ctx, event.ID, ids); err != nil {
			return fmt.Errorf("failed to delete attachments of %q: %w", event.ID, err)
		}
	}
	if len(event.Conferences) > 0 {
		ids := make([]int, len(event.Conferences))
		for i, c := range event.Conferences {
			ids[i] = c.ID
		}
		if err := su.Storage.DeleteConferences(ctx, event.ID, ids); err != nil {
			return fmt.Errorf("failed to delete conferences of %q: %w", event.ID, err)
		}
	}
	if len(event.Attendees) > 0 {
		if err := su.Storage.DeleteAttendees(ctx, event.ID, event.Attendees); err != nil {
			return fmt.Errorf("failed to delete attendees of %q: %w", event.ID, err)
		}
	}
	if err := su.Storage.DeleteEvent(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to delete event %q: %w", event.ID, err)
	}
	su.tracker.TrackDeletion(event, su.now())
	return nil
}

// DeleteEvents applies DeleteEvent to each event.
func (su *StorageUpdater) DeleteEvents(ctx context.Context, events []*calendar.Event) error {
	for _, event := range events {
		if err := su.DeleteEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAttendee substitutes the replacement identity wherever the
// target entity appears in the event's created-by, modified-by,
// calendar-user and organizer (including sent-by) fields. When the
// target is the organizer, the replacement becomes the new organizer and
// is guaranteed an attendee record with participation status accepted.
func (su *StorageUpdater) ReplaceAttendee(ctx context.Context, event *calendar.Event, target, replacement int) error {
	resolved, err := su.Resolver.ResolveByID(ctx, replacement)
	if err != nil {
		return fmt.Errorf("failed to resolve replacement %d: %w", replacement, err)
	}
	replacementEntity, ok := resolved.Get()
	if !ok {
		return fmt.Errorf("replacement entity %d does not resolve: %w", replacement, storage.ErrInvalidInput)
	}

	delta := &calendar.Event{}
	fields := calendar.NewFieldSet()
	after := event.Clone()

	if event.CreatedBy == target {
		delta.CreatedBy = replacement
		after.CreatedBy = replacement
		fields.Add(calendar.FieldCreatedBy)
	} else {
		delta.CreatedBy = event.CreatedBy
	}
	if event.ModifiedBy == target {
		delta.ModifiedBy = replacement
		after.ModifiedBy = replacement
		fields.Add(calendar.FieldModifiedBy)
	} else {
		delta.ModifiedBy = event.ModifiedBy
	}
	if event.CalendarUser == target {
		delta.CalendarUser = replacement
		after.CalendarUser = replacement
		fields.Add(calendar.FieldCalendarUser)
	} else {
		delta.CalendarUser = event.CalendarUser
	}

	organizerReplaced := false
	if event.Organizer != nil {
		organizer := *event.Organizer
		changed := false
		if organizer.Entity == target {
			organizer.Entity = replacement
			organizer.URI = replacementEntity.URI
			organizer.CN = replacementEntity.DisplayName
			organizerReplaced = true
			changed = true
		}
		if organizer.SentBy != "" {
			targetResolved, err := su.Resolver.ResolveByID(ctx, target)
			if err != nil {
				return fmt.Errorf("failed to resolve target %d: %w", target, err)
			}
			if targetEntity, ok := targetResolved.Get(); ok &&
				calendar.NormalizeURI(organizer.SentBy) == calendar.NormalizeURI(targetEntity.URI) {
				organizer.SentBy = replacementEntity.URI
				changed = true
			}
		}
		if changed {
			delta.Organizer = &organizer
			after.Organizer = &organizer
			fields.Add(calendar.FieldOrganizer)
		}
	}

	if len(fields) == 0 {
		return nil
	}
	if err := su.Storage.UpdateEvent(ctx, event.ID, delta, fields.Sorted()); err != nil {
		return fmt.Errorf("failed to substitute user %d on %q: %w", target, event.ID, err)
	}

	if organizerReplaced {
		if _, ok := event.AttendeeByEntity(replacement); !ok {
			folder := replacementEntity.DefaultFolder
			if folder == "" {
				folder = su.Config.FallbackFolder
			}
			attendee := calendar.Attendee{
				Entity:    replacement,
				URI:       replacementEntity.URI,
				CN:        replacementEntity.DisplayName,
				CUType:    replacementEntity.Kind.CUType(),
				Role:      calendar.RoleChair,
				PartStat:  calendar.PartStatAccepted,
				Folder:    folder,
				Timestamp: su.now(),
			}
			if err := su.Storage.InsertAttendees(ctx, event.ID, []calendar.Attendee{attendee}); err != nil {
				return fmt.Errorf("failed to insert replacement organizer attendee: %w", err)
			}
			after.Attendees = append(after.Attendees, attendee)
		}
	}

	su.tracker.TrackUpdate(event, after)
	return nil
}

// RemoveUserReferences substitutes the replacement in the audit and
// organizer fields of all given events.
func (su *StorageUpdater) RemoveUserReferences(ctx context.Context, events []*calendar.Event, target, replacement int) error {
	for _, event := range events {
		if err := su.ReplaceAttendee(ctx, event, target, replacement); err != nil {
			return err
		}
	}
	return nil
}

// RemoveEventsInFolder purges all events visible in a folder, draining
// the store in batches until no match remains. Group-scheduled events
// with remaining attendees only lose the folder owner's copy; everything
// else is fully deleted. Returns the total number of affected events.
func (su *StorageUpdater) RemoveEventsInFolder(ctx context.Context, folder Folder) (int, error) {
	batchSize := su.Config.PurgeBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	total := 0
	for {
		events, err := su.Storage.SearchEventsInFolder(ctx, folder.ID, batchSize)
		if err != nil {
			return total, fmt.Errorf("failed to search events in folder %q: %w", folder.ID, err)
		}
		if len(events) == 0 {
			return total, nil
		}
		su.Logger.Debug("purging folder batch",
			"folder_id", folder.ID,
			"batch", len(events),
			"total", total)
		for _, event := range events {
			if su.fullDelete(event, folder) {
				if err := su.DeleteEvent(ctx, event); err != nil {
					return total, err
				}
			} else {
				attendee, _ := event.AttendeeByEntity(folder.Owner)
				if err := su.RemoveAttendee(ctx, event, attendee); err != nil {
					return total, err
				}
			}
			total++
		}
	}
}

// fullDelete decides between removing the whole event and removing only
// the folder owner's attendee copy.
func (su *StorageUpdater) fullDelete(event *calendar.Event, folder Folder) bool {
	if !event.GroupScheduled() {
		return true
	}
	if event.Organizer != nil && event.Organizer.Entity == folder.Owner {
		return true
	}
	attendee, ok := event.AttendeeByEntity(folder.Owner)
	if !ok {
		// No personal copy to remove; the event is parented here.
		return true
	}
	remaining := 0
	for _, a := range event.Attendees {
		if !a.Matches(attendee) {
			remaining++
		}
	}
	return remaining == 0
}
