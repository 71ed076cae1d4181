package storage

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/meridiancal/groupcal/calendar"
)

// MockStorage implements the CalendarStorage interface for testing.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) LoadEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendar.Event), args.Error(1)
}

func (m *MockStorage) LoadChangeExceptions(ctx context.Context, seriesID string) ([]*calendar.Event, error) {
	args := m.Called(ctx, seriesID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*calendar.Event), args.Error(1)
}

func (m *MockStorage) LoadChangeException(ctx context.Context, seriesID string, recurrenceID time.Time) (*calendar.Event, error) {
	args := m.Called(ctx, seriesID, recurrenceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*calendar.Event), args.Error(1)
}

func (m *MockStorage) InsertEvent(ctx context.Context, event *calendar.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStorage) UpdateEvent(ctx context.Context, eventID string, delta *calendar.Event, fields []calendar.EventField) error {
	args := m.Called(ctx, eventID, delta, fields)
	return args.Error(0)
}

func (m *MockStorage) DeleteEvent(ctx context.Context, eventID string) error {
	args := m.Called(ctx, eventID)
	return args.Error(0)
}

func (m *MockStorage) CountEvents(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStorage) SearchEventsInFolder(ctx context.Context, folderID string, limit int) ([]*calendar.Event, error) {
	args := m.Called(ctx, folderID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*calendar.Event), args.Error(1)
}

func (m *MockStorage) SearchOverlapping(ctx context.Context, start, end time.Time, attendees []calendar.Attendee) ([]*calendar.Event, error) {
	args := m.Called(ctx, start, end, attendees)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*calendar.Event), args.Error(1)
}

func (m *MockStorage) InsertAttendees(ctx context.Context, eventID string, attendees []calendar.Attendee) error {
	args := m.Called(ctx, eventID, attendees)
	return args.Error(0)
}

func (m *MockStorage) UpdateAttendee(ctx context.Context, eventID string, attendee calendar.Attendee) error {
	args := m.Called(ctx, eventID, attendee)
	return args.Error(0)
}

func (m *MockStorage) DeleteAttendees(ctx context.Context, eventID string, attendees []calendar.Attendee) error {
	args := m.Called(ctx, eventID, attendees)
	return args.Error(0)
}

func (m *MockStorage) LoadAlarms(ctx context.Context, eventID string, userID int) ([]calendar.Alarm, error) {
	args := m.Called(ctx, eventID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]calendar.Alarm), args.Error(1)
}

func (m *MockStorage) InsertAlarms(ctx context.Context, eventID string, userID int, alarms []calendar.Alarm) error {
	args := m.Called(ctx, eventID, userID, alarms)
	return args.Error(0)
}

func (m *MockStorage) DeleteAlarms(ctx context.Context, eventID string, userID int) error {
	args := m.Called(ctx, eventID, userID)
	return args.Error(0)
}

func (m *MockStorage) DeleteTriggers(ctx context.Context, eventID string, userIDs []int) error {
	args := m.Called(ctx, eventID, userIDs)
	return args.Error(0)
}

func (m *MockStorage) InsertTriggers(ctx context.Context, triggers []calendar.AlarmTrigger) error {
	args := m.Called(ctx, triggers)
	return args.Error(0)
}

func (m *MockStorage) InsertConferences(ctx context.Context, eventID string, conferences []calendar.Conference) error {
	args := m.Called(ctx, eventID, conferences)
	return args.Error(0)
}

func (m *MockStorage) UpdateConference(ctx context.Context, eventID string, conference calendar.Conference) error {
	args := m.Called(ctx, eventID, conference)
	return args.Error(0)
}

func (m *MockStorage) DeleteConferences(ctx context.Context, eventID string, conferenceIDs []int) error {
	args := m.Called(ctx, eventID, conferenceIDs)
	return args.Error(0)
}

func (m *MockStorage) InsertAttachments(ctx context.Context, eventID string, attachments []calendar.Attachment) error {
	args := m.Called(ctx, eventID, attachments)
	return args.Error(0)
}

func (m *MockStorage) DeleteAttachments(ctx context.Context, eventID string, attachmentIDs []int) error {
	args := m.Called(ctx, eventID, attachmentIDs)
	return args.Error(0)
}
