// Package memory provides an in-memory CalendarStorage implementation
// for testing purposes.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/storage"
)

// Store implements storage.CalendarStorage using in-memory maps.
type Store struct {
	mu       sync.RWMutex
	events   map[string]*calendar.Event         // key: event ID
	triggers map[string][]calendar.AlarmTrigger // key: event ID
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		events:   make(map[string]*calendar.Event),
		triggers: make(map[string][]calendar.AlarmTrigger),
	}
}

func (s *Store) LoadEvent(_ context.Context, eventID string) (*calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	return event.Clone(), nil
}

func (s *Store) LoadChangeExceptions(_ context.Context, seriesID string) ([]*calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*calendar.Event
	for _, event := range s.events {
		if event.SeriesID == seriesID && event.IsChangeException() {
			out = append(out, event.Clone())
		}
	}
	return out, nil
}

func (s *Store) LoadChangeException(_ context.Context, seriesID string, recurrenceID time.Time) (*calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, event := range s.events {
		if event.SeriesID == seriesID && event.IsChangeException() && event.RecurrenceID.Value.Equal(recurrenceID) {
			return event.Clone(), nil
		}
	}
	return nil, fmt.Errorf("exception %s of series %q: %w", recurrenceID.Format(time.RFC3339), seriesID, storage.ErrNotFound)
}

func (s *Store) InsertEvent(_ context.Context, event *calendar.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		return fmt.Errorf("event id must not be empty: %w", storage.ErrInvalidInput)
	}
	if _, ok := s.events[event.ID]; ok {
		return fmt.Errorf("event %q: %w", event.ID, storage.ErrAlreadyExists)
	}
	s.events[event.ID] = event.Clone()
	return nil
}

func (s *Store) UpdateEvent(_ context.Context, eventID string, delta *calendar.Event, fields []calendar.EventField) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	for _, f := range fields {
		calendar.CopyField(event, delta, f)
	}
	return nil
}

func (s *Store) DeleteEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[eventID]; !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	delete(s.events, eventID)
	delete(s.triggers, eventID)
	return nil
}

func (s *Store) CountEvents(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

func (s *Store) SearchEventsInFolder(_ context.Context, folderID string, limit int) ([]*calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*calendar.Event
	for _, event := range s.events {
		if limit > 0 && len(out) >= limit {
			break
		}
		if eventInFolder(event, folderID) {
			out = append(out, event.Clone())
		}
	}
	return out, nil
}

func eventInFolder(event *calendar.Event, folderID string) bool {
	if event.Folder == folderID {
		return true
	}
	for _, a := range event.Attendees {
		if a.Folder == folderID {
			return true
		}
	}
	return false
}

func (s *Store) SearchOverlapping(_ context.Context, start, end time.Time, attendees []calendar.Attendee) ([]*calendar.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*calendar.Event
	for _, event := range s.events {
		if event.Transp == calendar.TransparencyTransparent {
			continue
		}
		if !event.Start.Before(end) || !event.End.After(start) {
			continue
		}
		for _, candidate := range attendees {
			if stored, ok := event.FindAttendee(candidate); ok && stored.PartStat != calendar.PartStatDeclined {
				out = append(out, event.Clone())
				break
			}
		}
	}
	return out, nil
}

func (s *Store) InsertAttendees(_ context.Context, eventID string, attendees []calendar.Attendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	for _, a := range attendees {
		if _, exists := event.FindAttendee(a); exists {
			return fmt.Errorf("attendee %d/%s on event %q: %w", a.Entity, a.URI, eventID, storage.ErrAlreadyExists)
		}
		event.Attendees = append(event.Attendees, a)
	}
	return nil
}

func (s *Store) UpdateAttendee(_ context.Context, eventID string, attendee calendar.Attendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	for i, a := range event.Attendees {
		if a.Matches(attendee) {
			event.Attendees[i] = attendee
			return nil
		}
	}
	return fmt.Errorf("attendee %d/%s on event %q: %w", attendee.Entity, attendee.URI, eventID, storage.ErrNotFound)
}

func (s *Store) DeleteAttendees(_ context.Context, eventID string, attendees []calendar.Attendee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	kept := event.Attendees[:0:0]
	for _, a := range event.Attendees {
		remove := false
		for _, target := range attendees {
			if a.Matches(target) {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, a)
		}
	}
	event.Attendees = kept
	return nil
}

func (s *Store) LoadAlarms(_ context.Context, eventID string, userID int) ([]calendar.Alarm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	return append([]calendar.Alarm(nil), event.Alarms[userID]...), nil
}

func (s *Store) InsertAlarms(_ context.Context, eventID string, userID int, alarms []calendar.Alarm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	if event.Alarms == nil {
		event.Alarms = make(map[int][]calendar.Alarm)
	}
	event.Alarms[userID] = append(event.Alarms[userID], alarms...)
	return nil
}

func (s *Store) DeleteAlarms(_ context.Context, eventID string, userID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	delete(event.Alarms, userID)
	return nil
}

func (s *Store) DeleteTriggers(_ context.Context, eventID string, userIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if userIDs == nil {
		delete(s.triggers, eventID)
		return nil
	}
	kept := s.triggers[eventID][:0:0]
	for _, t := range s.triggers[eventID] {
		remove := false
		for _, id := range userIDs {
			if t.UserID == id {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, t)
		}
	}
	s.triggers[eventID] = kept
	return nil
}

func (s *Store) InsertTriggers(_ context.Context, triggers []calendar.AlarmTrigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range triggers {
		s.triggers[t.EventID] = append(s.triggers[t.EventID], t)
	}
	return nil
}

// Triggers returns the stored triggers of an event, for test assertions.
func (s *Store) Triggers(eventID string) []calendar.AlarmTrigger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]calendar.AlarmTrigger(nil), s.triggers[eventID]...)
}

func (s *Store) InsertConferences(_ context.Context, eventID string, conferences []calendar.Conference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	event.Conferences = append(event.Conferences, conferences...)
	return nil
}

func (s *Store) UpdateConference(_ context.Context, eventID string, conference calendar.Conference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	for i, c := range event.Conferences {
		if c.ID == conference.ID {
			event.Conferences[i] = conference
			return nil
		}
	}
	return fmt.Errorf("conference %d on event %q: %w", conference.ID, eventID, storage.ErrNotFound)
}

func (s *Store) DeleteConferences(_ context.Context, eventID string, conferenceIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	kept := event.Conferences[:0:0]
	for _, c := range event.Conferences {
		remove := false
		for _, id := range conferenceIDs {
			if c.ID == id {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, c)
		}
	}
	event.Conferences = kept
	return nil
}

func (s *Store) InsertAttachments(_ context.Context, eventID string, attachments []calendar.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	event.Attachments = append(event.Attachments, attachments...)
	return nil
}

func (s *Store) DeleteAttachments(_ context.Context, eventID string, attachmentIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, ok := s.events[eventID]
	if !ok {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	kept := event.Attachments[:0:0]
	for _, a := range event.Attachments {
		remove := false
		for _, id := range attachmentIDs {
			if a.ID == id {
				remove = true
				break
			}
		}
		if !remove {
			kept = append(kept, a)
		}
	}
	event.Attachments = kept
	return nil
}
