package update

import (
	"context"
	"fmt"
	"time"

	"github.com/meridiancal/groupcal/calendar"
)

// updatePlain is the shared mutation routine applied to plain events,
// series masters and change exceptions alike. Steps run in fixed order;
// the first failing step aborts the rest, leaving earlier writes to the
// caller's transaction boundary.
func (p *Performer) updatePlain(ctx context.Context, session *Session, tracker *ResultTracker, original, updated *calendar.Event, ignored []calendar.EventField) error {
	if !p.inFolderView(session, original) {
		return fmt.Errorf("event %q not visible in folder %q: %w", original.ID, session.Folder.ID, ErrForbiddenChange)
	}

	// Delete-exception dates contributed from one attendee's private
	// view are not a real master mutation: translate them into
	// per-attendee occurrence removal and keep them out of the diff.
	addedExDates := datesAdded(original.DeleteExceptionDates, updated.DeleteExceptionDates)
	if len(addedExDates) > 0 && !session.ActsAsOrganizer(original) && original.GroupScheduled() {
		if !original.IsSeriesMaster() {
			return fmt.Errorf("delete exception on %s event %q: %w", original.Flavor(), original.ID, ErrForbiddenChange)
		}
		for _, date := range addedExDates {
			if err := p.deleteOccurrenceForAttendee(ctx, session, tracker, original, date); err != nil {
				return err
			}
		}
		// The translation already registered the new exception dates on
		// the master; diffing the payload's stale sets would revert it.
		ignored = append(ignored, calendar.FieldDeleteExceptionDates, calendar.FieldChangeExceptionDates)
	}

	// Step 1: compute the delta, including series context.
	var exceptions []*calendar.Event
	var master *calendar.Event
	var err error
	if original.IsSeriesMaster() {
		if exceptions, err = p.Storage.LoadChangeExceptions(ctx, original.ID); err != nil {
			return fmt.Errorf("failed to load change exceptions of %q: %w", original.ID, err)
		}
	} else if original.IsChangeException() && original.SeriesID != "" {
		if master, err = p.Storage.LoadEvent(ctx, original.SeriesID); err != nil {
			p.Logger.Warn("series master of exception not loadable",
				"event_id", original.ID,
				"series_id", original.SeriesID,
				"error", err)
		}
	}
	u := NewEventUpdate(original, updated, DiffOptions{
		ActingUser: session.UserID,
		Ignored:    ignored,
		Master:     master,
		Exceptions: exceptions,
	})
	if u.Empty() {
		p.Logger.Debug("empty diff, nothing to do", "event_id", original.ID)
		return nil
	}

	effective := effectiveEvent(u)

	// Step 2: conflict detection for materially different time windows,
	// newly opaque transparency or newly added attendees.
	if p.Conflicts != nil && (u.TimeChanged() || u.BecomesOpaque() || len(u.Attendees.Added) > 0) {
		checkAttendees := u.Attendees.Added
		if u.TimeChanged() || u.BecomesOpaque() {
			checkAttendees = effective.Attendees
		}
		conflicts, err := p.Conflicts.Check(ctx, session, effective, checkAttendees)
		if err != nil {
			return fmt.Errorf("conflict check failed: %w", err)
		}
		if len(conflicts) > 0 {
			return fmt.Errorf("%d conflicting events, first %q: %w", len(conflicts), conflicts[0].EventID, ErrConflict)
		}
	}

	// Step 3: the client collapsed exception dates back into the series;
	// delete the orphaned change exceptions.
	for _, removed := range u.ChangeExceptions.Removed {
		exception := findException(exceptions, removed)
		if exception == nil {
			continue
		}
		if !p.Permissions.MayDelete(session, exception) {
			return fmt.Errorf("deletion of change exception %q: %w", exception.ID, ErrForbiddenChange)
		}
		if err := p.deleteEventCascade(ctx, session, tracker, exception); err != nil {
			return err
		}
	}

	// Step 4: pre-update interceptors.
	for _, interceptor := range p.Interceptors {
		if err := interceptor.BeforeUpdate(ctx, session, u); err != nil {
			return fmt.Errorf("interceptor rejected update: %w", err)
		}
	}

	// Step 5a: event scalar fields.
	if err := p.persistEventFields(ctx, session, u, effective); err != nil {
		return err
	}

	// Step 5b-5d: attendees, conferences, attachments, each permission
	// scoped to who is affected.
	if err := p.persistAttendees(ctx, session, u); err != nil {
		return err
	}
	if err := p.persistConferences(ctx, session, u); err != nil {
		return err
	}
	if err := p.persistAttachments(ctx, session, u); err != nil {
		return err
	}

	// Step 6: acting user's alarm changes, propagated onto sibling
	// change exceptions without attendee-specific overrides.
	if updated.Alarms != nil {
		if err := p.applyAlarmUpdate(ctx, session, original, updated, exceptions); err != nil {
			return err
		}
	}

	// Step 7: default alarms for newly added internal attendees.
	if err := p.insertDefaultAlarms(ctx, u, effective); err != nil {
		return err
	}

	// Step 8: cascade master-level attendee deltas onto exceptions that
	// did not diverge on their own.
	if original.IsSeriesMaster() {
		if err := p.cascadeToExceptions(ctx, session, tracker, u, exceptions); err != nil {
			return err
		}
	}

	// Step 9: reload and track against the final persisted state.
	reloaded, err := p.Storage.LoadEvent(ctx, original.ID)
	if err != nil {
		return fmt.Errorf("failed to reload event %q: %w", original.ID, err)
	}
	if reloaded.ID != original.ID || !reloaded.RecurrenceID.Value.Equal(original.RecurrenceID.Value) {
		tracker.TrackCreation(reloaded)
		tracker.TrackDeletion(original, p.now())
	} else {
		tracker.TrackUpdate(original, reloaded)
	}

	// Step 10: recompute alarm triggers from the final state.
	if err := p.resetTriggers(ctx, reloaded); err != nil {
		return err
	}

	if p.Scheduler != nil {
		if err := p.Scheduler.ProcessUpdate(ctx, session, u); err != nil {
			return fmt.Errorf("scheduling hook failed: %w", err)
		}
	}
	return nil
}

// inFolderView reports whether the event is visible in the session's
// folder: parented there, or held there by an attendee's personal copy.
func (p *Performer) inFolderView(session *Session, event *calendar.Event) bool {
	if session.Folder.ID == "" || event.Folder == session.Folder.ID {
		return true
	}
	for _, a := range event.Attendees {
		if a.Folder == session.Folder.ID {
			return true
		}
	}
	return false
}

// effectiveEvent materializes the post-update event state implied by the
// diff: the original with all changed scalar fields and the attendee
// partitions applied.
func effectiveEvent(u *EventUpdate) *calendar.Event {
	effective := u.Original.Clone()
	for f := range u.ChangedFields {
		calendar.CopyField(effective, u.Updated, f)
	}
	if !u.Attendees.Empty() {
		attendees := append([]calendar.Attendee(nil), u.Attendees.Retained...)
		for _, item := range u.Attendees.Updated {
			attendees = append(attendees, item.Updated)
		}
		attendees = append(attendees, u.Attendees.Added...)
		effective.Attendees = attendees
	}
	return effective
}

// persistEventFields writes the scalar-field delta, bumping the sequence
// on reschedules the client didn't bump itself.
func (p *Performer) persistEventFields(ctx context.Context, session *Session, u *EventUpdate, effective *calendar.Event) error {
	fields := calendar.NewFieldSet()
	for f := range u.ChangedFields {
		switch f {
		case calendar.FieldAttendees, calendar.FieldConferences, calendar.FieldAttachments, calendar.FieldAlarms:
			// aggregates are persisted by their own sub-steps
		default:
			fields.Add(f)
		}
	}

	scalarChange := len(fields) > 0
	if scalarChange && !u.IsReply() && !p.Permissions.MayWrite(session, u.Original) {
		return fmt.Errorf("write on event %q: %w", u.Original.ID, ErrForbiddenChange)
	}

	if u.IsReschedule() && effective.Sequence <= u.Original.Sequence {
		effective.Sequence = u.Original.Sequence + 1
		fields.Add(calendar.FieldSequence)
	}

	now := p.now()
	effective.LastModified = now
	effective.ModifiedBy = session.UserID
	effective.Timestamp = now
	fields.Add(calendar.FieldLastModified)
	fields.Add(calendar.FieldModifiedBy)
	fields.Add(calendar.FieldTimestamp)

	if err := p.Storage.UpdateEvent(ctx, u.Original.ID, effective, fields.Sorted()); err != nil {
		return fmt.Errorf("failed to update event %q: %w", u.Original.ID, err)
	}
	return nil
}

func (p *Performer) persistAttendees(ctx context.Context, session *Session, u *EventUpdate) error {
	eventID := u.Original.ID

	if len(u.Attendees.Removed) > 0 {
		for _, removed := range u.Attendees.Removed {
			// Removing only oneself requires no attendee management
			// rights.
			if removed.Entity != session.UserID && !p.Permissions.MayManageAttendees(session, u.Original) {
				return fmt.Errorf("removal of attendee %d/%s: %w", removed.Entity, removed.URI, ErrForbiddenChange)
			}
		}
		if err := p.Storage.DeleteAttendees(ctx, eventID, u.Attendees.Removed); err != nil {
			return fmt.Errorf("failed to remove attendees from %q: %w", eventID, err)
		}
		for _, removed := range u.Attendees.Removed {
			if !removed.Internal() {
				continue
			}
			if err := p.Storage.DeleteAlarms(ctx, eventID, removed.Entity); err != nil {
				return fmt.Errorf("failed to remove alarms of attendee %d: %w", removed.Entity, err)
			}
			if err := p.Storage.DeleteTriggers(ctx, eventID, []int{removed.Entity}); err != nil {
				return fmt.Errorf("failed to remove triggers of attendee %d: %w", removed.Entity, err)
			}
		}
	}

	for _, item := range u.Attendees.Updated {
		if item.Original.Entity != session.UserID && !p.Permissions.MayManageAttendees(session, u.Original) {
			return fmt.Errorf("update of attendee %d/%s: %w", item.Original.Entity, item.Original.URI, ErrForbiddenChange)
		}
		attendee := item.Updated
		attendee.Timestamp = p.now()
		if err := p.Storage.UpdateAttendee(ctx, eventID, attendee); err != nil {
			return fmt.Errorf("failed to update attendee on %q: %w", eventID, err)
		}
	}

	if len(u.Attendees.Added) > 0 {
		prepared := make([]calendar.Attendee, 0, len(u.Attendees.Added))
		for _, added := range u.Attendees.Added {
			if added.Entity != session.UserID && !p.Permissions.MayManageAttendees(session, u.Original) {
				return fmt.Errorf("addition of attendee %d/%s: %w", added.Entity, added.URI, ErrForbiddenChange)
			}
			attendee, err := p.Resolver.PrepareAttendee(ctx, added)
			if err != nil {
				return fmt.Errorf("failed to prepare attendee: %w", err)
			}
			attendee.Timestamp = p.now()
			prepared = append(prepared, attendee)
		}
		if err := p.Storage.InsertAttendees(ctx, eventID, prepared); err != nil {
			return fmt.Errorf("failed to insert attendees into %q: %w", eventID, err)
		}
	}
	return nil
}

func (p *Performer) persistConferences(ctx context.Context, session *Session, u *EventUpdate) error {
	if u.Conferences.Empty() {
		return nil
	}
	if !p.Permissions.MayWrite(session, u.Original) {
		return fmt.Errorf("conference change on %q: %w", u.Original.ID, ErrForbiddenChange)
	}
	eventID := u.Original.ID
	if len(u.Conferences.Removed) > 0 {
		ids := make([]int, len(u.Conferences.Removed))
		for i, c := range u.Conferences.Removed {
			ids[i] = c.ID
		}
		if err := p.Storage.DeleteConferences(ctx, eventID, ids); err != nil {
			return fmt.Errorf("failed to delete conferences of %q: %w", eventID, err)
		}
	}
	for _, item := range u.Conferences.Updated {
		if err := p.Storage.UpdateConference(ctx, eventID, item.Updated); err != nil {
			return fmt.Errorf("failed to update conference on %q: %w", eventID, err)
		}
	}
	if len(u.Conferences.Added) > 0 {
		if err := p.Storage.InsertConferences(ctx, eventID, u.Conferences.Added); err != nil {
			return fmt.Errorf("failed to insert conferences into %q: %w", eventID, err)
		}
	}
	return nil
}

func (p *Performer) persistAttachments(ctx context.Context, session *Session, u *EventUpdate) error {
	if u.Attachments.Empty() {
		return nil
	}
	if !p.Permissions.MayWrite(session, u.Original) {
		return fmt.Errorf("attachment change on %q: %w", u.Original.ID, ErrForbiddenChange)
	}
	eventID := u.Original.ID
	removed := append([]calendar.Attachment(nil), u.Attachments.Removed...)
	// Attachments have no in-place update: a changed attachment is
	// replaced.
	added := append([]calendar.Attachment(nil), u.Attachments.Added...)
	for _, item := range u.Attachments.Updated {
		removed = append(removed, item.Original)
		added = append(added, item.Updated)
	}
	if len(removed) > 0 {
		ids := make([]int, len(removed))
		for i, a := range removed {
			ids[i] = a.ID
		}
		if err := p.Storage.DeleteAttachments(ctx, eventID, ids); err != nil {
			return fmt.Errorf("failed to delete attachments of %q: %w", eventID, err)
		}
	}
	if len(added) > 0 {
		if err := p.Storage.InsertAttachments(ctx, eventID, added); err != nil {
			return fmt.Errorf("failed to insert attachments into %q: %w", eventID, err)
		}
	}
	return nil
}

// applyAlarmUpdate replaces the acting user's alarms when the supplied
// set differs from storage, and propagates the same change onto sibling
// change exceptions still carrying the master's alarm set.
func (p *Performer) applyAlarmUpdate(ctx context.Context, session *Session, original, updated *calendar.Event, exceptions []*calendar.Event) error {
	stored, err := p.Storage.LoadAlarms(ctx, original.ID, session.UserID)
	if err != nil {
		return fmt.Errorf("failed to load alarms of %q: %w", original.ID, err)
	}
	supplied := updated.Alarms[session.UserID]
	if alarmsEqual(stored, supplied) {
		return nil
	}
	if err := p.replaceAlarms(ctx, original.ID, session.UserID, supplied); err != nil {
		return err
	}
	if !original.IsSeriesMaster() {
		return nil
	}
	for _, exception := range exceptions {
		exceptionAlarms, err := p.Storage.LoadAlarms(ctx, exception.ID, session.UserID)
		if err != nil {
			return fmt.Errorf("failed to load alarms of exception %q: %w", exception.ID, err)
		}
		// Exceptions with attendee-specific overrides keep them.
		if !alarmsEqual(exceptionAlarms, stored) {
			continue
		}
		if err := p.replaceAlarms(ctx, exception.ID, session.UserID, supplied); err != nil {
			return err
		}
		refreshed := exception.Clone()
		if refreshed.Alarms == nil {
			refreshed.Alarms = make(map[int][]calendar.Alarm)
		}
		refreshed.Alarms[session.UserID] = append([]calendar.Alarm(nil), supplied...)
		if err := p.resetTriggers(ctx, refreshed); err != nil {
			return err
		}
	}
	return nil
}

func (p *Performer) replaceAlarms(ctx context.Context, eventID string, userID int, alarms []calendar.Alarm) error {
	if err := p.Storage.DeleteAlarms(ctx, eventID, userID); err != nil {
		return fmt.Errorf("failed to delete alarms of %q: %w", eventID, err)
	}
	if len(alarms) == 0 {
		return nil
	}
	if err := p.Storage.InsertAlarms(ctx, eventID, userID, alarms); err != nil {
		return fmt.Errorf("failed to insert alarms into %q: %w", eventID, err)
	}
	return nil
}

// insertDefaultAlarms equips newly added internal individual attendees
// with their configured default alarm, choosing the date or date-time
// variant by the event's all-day flag.
func (p *Performer) insertDefaultAlarms(ctx context.Context, u *EventUpdate, effective *calendar.Event) error {
	for _, added := range u.Attendees.Added {
		if !added.Internal() || (added.CUType != "" && added.CUType != calendar.CUTypeIndividual) {
			continue
		}
		alarms := p.Config.DefaultAlarms(effective.AllDay)
		if len(alarms) == 0 {
			continue
		}
		if err := p.Storage.InsertAlarms(ctx, u.Original.ID, added.Entity, alarms); err != nil {
			return fmt.Errorf("failed to insert default alarms for attendee %d: %w", added.Entity, err)
		}
	}
	return nil
}

// cascadeFields are the master-level data fields a change exception
// inherits as long as it has not overridden them itself. Time placement
// stays out: an exception's window belongs to its occurrence.
var cascadeFields = []calendar.EventField{
	calendar.FieldSummary,
	calendar.FieldLocation,
	calendar.FieldDescription,
	calendar.FieldTransp,
}

// cascadeToExceptions applies series-wide attendee additions and
// removals, plus inheritable field changes, to change exceptions that
// still follow the master on the affected data.
func (p *Performer) cascadeToExceptions(ctx context.Context, session *Session, tracker *ResultTracker, u *EventUpdate, exceptions []*calendar.Event) error {
	var changedFields []calendar.EventField
	for _, f := range cascadeFields {
		if u.Contains(f) {
			changedFields = append(changedFields, f)
		}
	}
	if len(u.Attendees.Added) == 0 && len(u.Attendees.Removed) == 0 && len(changedFields) == 0 {
		return nil
	}
	for _, exception := range exceptions {
		changed := false
		after := exception.Clone()

		var inherited []calendar.EventField
		for _, f := range changedFields {
			// Only exceptions still carrying the master's pre-update
			// value follow along; a diverged override wins.
			if calendar.FieldEqual(exception, u.Original, f) {
				inherited = append(inherited, f)
			}
		}
		if len(inherited) > 0 {
			delta := &calendar.Event{}
			for _, f := range inherited {
				calendar.CopyField(delta, u.Updated, f)
				calendar.CopyField(after, u.Updated, f)
			}
			if err := p.Storage.UpdateEvent(ctx, exception.ID, delta, inherited); err != nil {
				return fmt.Errorf("failed to cascade field changes to %q: %w", exception.ID, err)
			}
			changed = true
		}

		for _, removed := range u.Attendees.Removed {
			if _, ok := exception.FindAttendee(removed); !ok {
				continue
			}
			if err := p.Storage.DeleteAttendees(ctx, exception.ID, []calendar.Attendee{removed}); err != nil {
				return fmt.Errorf("failed to cascade attendee removal to %q: %w", exception.ID, err)
			}
			if removed.Internal() {
				if err := p.Storage.DeleteAlarms(ctx, exception.ID, removed.Entity); err != nil {
					return fmt.Errorf("failed to cascade alarm removal to %q: %w", exception.ID, err)
				}
				if err := p.Storage.DeleteTriggers(ctx, exception.ID, []int{removed.Entity}); err != nil {
					return fmt.Errorf("failed to cascade trigger removal to %q: %w", exception.ID, err)
				}
				delete(after.Alarms, removed.Entity)
			}
			after.Attendees = removeAttendee(after.Attendees, removed)
			changed = true
		}

		for _, added := range u.Attendees.Added {
			if _, ok := exception.FindAttendee(added); ok {
				continue
			}
			attendee, err := p.Resolver.PrepareAttendee(ctx, added)
			if err != nil {
				return fmt.Errorf("failed to prepare cascaded attendee: %w", err)
			}
			if err := p.Storage.InsertAttendees(ctx, exception.ID, []calendar.Attendee{attendee}); err != nil {
				return fmt.Errorf("failed to cascade attendee addition to %q: %w", exception.ID, err)
			}
			after.Attendees = append(after.Attendees, attendee)
			changed = true
		}

		if changed {
			tracker.TrackUpdate(exception, after)
		}
	}
	return nil
}

// deleteOccurrenceForAttendee removes one occurrence from the acting
// attendee's point of view without mutating the series for everyone
// else: an existing change exception loses the attendee's record, an
// unexceptional occurrence becomes a change exception without them.
func (p *Performer) deleteOccurrenceForAttendee(ctx context.Context, session *Session, tracker *ResultTracker, master *calendar.Event, date time.Time) error {
	attendee, ok := master.AttendeeByEntity(session.UserID)
	if !ok {
		return fmt.Errorf("user %d is no attendee of %q: %w", session.UserID, master.ID, ErrForbiddenChange)
	}

	if calendar.ContainsDate(master.ChangeExceptionDates, date) {
		exception, err := p.Storage.LoadChangeException(ctx, master.ID, date)
		if err != nil {
			return fmt.Errorf("failed to load change exception at %s: %w", date.Format(time.RFC3339), err)
		}
		if err := p.Storage.DeleteAttendees(ctx, exception.ID, []calendar.Attendee{attendee}); err != nil {
			return fmt.Errorf("failed to remove attendee from exception %q: %w", exception.ID, err)
		}
		if err := p.Storage.DeleteAlarms(ctx, exception.ID, session.UserID); err != nil {
			return fmt.Errorf("failed to remove alarms from exception %q: %w", exception.ID, err)
		}
		if err := p.Storage.DeleteTriggers(ctx, exception.ID, []int{session.UserID}); err != nil {
			return fmt.Errorf("failed to remove triggers from exception %q: %w", exception.ID, err)
		}
		after := exception.Clone()
		after.Attendees = removeAttendee(after.Attendees, attendee)
		delete(after.Alarms, session.UserID)
		tracker.TrackUpdate(exception, after)
		return nil
	}

	exception := p.newChangeException(session, master, date, session.UserID)
	if err := p.Storage.InsertEvent(ctx, exception); err != nil {
		return fmt.Errorf("failed to insert per-attendee removal exception: %w", err)
	}
	tracker.TrackCreation(exception)

	now := p.now()
	delta := &calendar.Event{
		ChangeExceptionDates: calendar.AddDate(append([]time.Time(nil), master.ChangeExceptionDates...), date),
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
	if err := p.Storage.UpdateEvent(ctx, master.ID, delta, fields); err != nil {
		return fmt.Errorf("failed to register per-attendee removal on master %q: %w", master.ID, err)
	}
	master.ChangeExceptionDates = delta.ChangeExceptionDates
	return p.resetTriggers(ctx, exception)
}

// deleteEventCascade removes an event with all child aggregates and
// tracks the deletion.
func (p *Performer) deleteEventCascade(ctx context.Context, session *Session, tracker *ResultTracker, event *calendar.Event) error {
	if err := p.Storage.DeleteTriggers(ctx, event.ID, nil); err != nil {
		return fmt.Errorf("failed to delete triggers of %q: %w", event.ID, err)
	}
	for userID := range event.Alarms {
		if err := p.Storage.DeleteAlarms(ctx, event.ID, userID); err != nil {
			return fmt.Errorf("failed to delete alarms of %q: %w", event.ID, err)
		}
	}
	if len(event.Attachments) > 0 {
		ids := make([]int, len(event.Attachments))
		for i, a := range event.Attachments {
			ids[i] = a.ID
		}
		if err := p.Storage.DeleteAttachments(ctx, event.ID, ids); err != nil {
			return fmt.Errorf("failed to delete attachments of %q: %w", event.ID, err)
		}
	}
	if len(event.Conferences) > 0 {
		ids := make([]int, len(event.Conferences))
		for i, c := range event.Conferences {
			ids[i] = c.ID
		}
		if err := p.Storage.DeleteConferences(ctx, event.ID, ids); err != nil {
			return fmt.Errorf("failed to delete conferences of %q: %w", event.ID, err)
		}
	}
	if len(event.Attendees) > 0 {
		if err := p.Storage.DeleteAttendees(ctx, event.ID, event.Attendees); err != nil {
			return fmt.Errorf("failed to delete attendees of %q: %w", event.ID, err)
		}
	}
	if err := p.Storage.DeleteEvent(ctx, event.ID); err != nil {
		return fmt.Errorf("failed to delete event %q: %w", event.ID, err)
	}
	now := p.now()
	tracker.TrackDeletion(event, now)
	if p.Scheduler != nil {
		if err := p.Scheduler.ProcessDeletion(ctx, session, event, now); err != nil {
			return fmt.Errorf("scheduling hook failed: %w", err)
		}
	}
	return nil
}

func datesAdded(original, updated []time.Time) []time.Time {
	var added []time.Time
	for _, d := range updated {
		if !calendar.ContainsDate(original, d) {
			added = append(added, d)
		}
	}
	return added
}

func findException(exceptions []*calendar.Event, recurrenceID time.Time) *calendar.Event {
	for _, e := range exceptions {
		if e.RecurrenceID.Value.Equal(recurrenceID) {
			return e
		}
	}
	return nil
}

func removeAttendee(attendees []calendar.Attendee, target calendar.Attendee) []calendar.Attendee {
	kept := attendees[:0:0]
	for _, a := range attendees {
		if !a.Matches(target) {
			kept = append(kept, a)
		}
	}
	return kept
}

func alarmsEqual(a, b []calendar.Alarm) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !alarmEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func alarmEqual(a, b calendar.Alarm) bool {
	if a.Action != b.Action || a.Description != b.Description {
		return false
	}
	switch {
	case a.Trigger.Duration != nil && b.Trigger.Duration != nil:
		return *a.Trigger.Duration == *b.Trigger.Duration
	case a.Trigger.DateTime != nil && b.Trigger.DateTime != nil:
		return a.Trigger.DateTime.Equal(*b.Trigger.DateTime)
	default:
		return a.Trigger.Duration == nil && b.Trigger.Duration == nil &&
			a.Trigger.DateTime == nil && b.Trigger.DateTime == nil
	}
}
