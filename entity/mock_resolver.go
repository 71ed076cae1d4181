package entity

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"

	"github.com/meridiancal/groupcal/calendar"
)

// MockResolver implements the Resolver interface for testing.
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolveByID(ctx context.Context, id int) (mo.Option[Entity], error) {
	args := m.Called(ctx, id)
	return args.Get(0).(mo.Option[Entity]), args.Error(1)
}

func (m *MockResolver) ResolveURI(ctx context.Context, uri string) (mo.Option[Entity], error) {
	args := m.Called(ctx, uri)
	return args.Get(0).(mo.Option[Entity]), args.Error(1)
}

func (m *MockResolver) PrepareAttendee(ctx context.Context, attendee calendar.Attendee) (calendar.Attendee, error) {
	args := m.Called(ctx, attendee)
	return args.Get(0).(calendar.Attendee), args.Error(1)
}
