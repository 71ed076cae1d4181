package itip

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/update"
)

// Transport delivers one rendered scheduling message.
type Transport func(ctx context.Context, msg *Message) error

// Scheduler implements update.Scheduler: it classifies each diff,
// renders the matching iTIP payload and hands it to the transport.
type Scheduler struct {
	Transport Transport
	Logger    *slog.Logger
}

// NewScheduler creates a scheduler delivering through transport. A nil
// transport drops all messages.
func NewScheduler(transport Transport, logger *slog.Logger) *Scheduler {
	return &Scheduler{Transport: transport, Logger: logger}
}

func (s *Scheduler) ProcessUpdate(ctx context.Context, session *update.Session, u *update.EventUpdate) error {
	action := update.ClassifyUpdate(session, u)
	if action == update.ActionNone {
		return nil
	}
	final := finalState(u)

	var msg *Message
	switch action {
	case update.ActionRequest:
		recipients := recipientsOf(final, session.UserID)
		if len(recipients) == 0 {
			return nil
		}
		msg = BuildRequest(final, recipients)
	case update.ActionReply:
		replying, ok := final.AttendeeByEntity(session.UserID)
		if !ok {
			return nil
		}
		msg = BuildReply(final, replying)
	default:
		return nil
	}

	s.Logger.Info("scheduling message prepared",
		"method", string(msg.Method),
		"event_id", final.ID,
		"recipients", len(msg.Recipients))
	return s.deliver(ctx, msg)
}

func (s *Scheduler) ProcessDeletion(ctx context.Context, session *update.Session, event *calendar.Event, _ time.Time) error {
	if !event.GroupScheduled() || !session.ActsAsOrganizer(event) {
		return nil
	}
	recipients := recipientsOf(event, session.UserID)
	if len(recipients) == 0 {
		return nil
	}
	msg := BuildCancel(event, recipients)
	s.Logger.Info("scheduling message prepared",
		"method", string(msg.Method),
		"event_id", event.ID,
		"recipients", len(msg.Recipients))
	return s.deliver(ctx, msg)
}

func (s *Scheduler) deliver(ctx context.Context, msg *Message) error {
	if s.Transport == nil {
		return nil
	}
	if err := s.Transport(ctx, msg); err != nil {
		return fmt.Errorf("failed to deliver %s message: %w", msg.Method, err)
	}
	return nil
}

// finalState materializes the post-update event the message should
// describe.
func finalState(u *update.EventUpdate) *calendar.Event {
	final := u.Original.Clone()
	for f := range u.ChangedFields {
		calendar.CopyField(final, u.Updated, f)
	}
	if !u.Attendees.Empty() {
		attendees := append([]calendar.Attendee(nil), u.Attendees.Retained...)
		for _, item := range u.Attendees.Updated {
			attendees = append(attendees, item.Updated)
		}
		attendees = append(attendees, u.Attendees.Added...)
		final.Attendees = attendees
	}
	return final
}

// recipientsOf lists the attendees a message from actingUser goes to.
func recipientsOf(event *calendar.Event, actingUser int) []calendar.Attendee {
	var out []calendar.Attendee
	for _, a := range event.Attendees {
		if a.Entity == actingUser {
			continue
		}
		out = append(out, a)
	}
	return out
}
