package itip

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-ical"

	"github.com/meridiancal/groupcal/calendar"
)

func messageEvent() *calendar.Event {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	return &calendar.Event{
		ID:        "e1",
		UID:       "uid-e1",
		Summary:   "Team planning",
		Location:  "Room 4",
		Start:     start,
		End:       start.Add(time.Hour),
		Transp:    calendar.TransparencyOpaque,
		Sequence:  2,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Organizer: &calendar.Organizer{Entity: 1, URI: "mailto:alice@example.com", CN: "Alice Adams"},
		Attendees: []calendar.Attendee{
			{
				Entity: 1, URI: "mailto:alice@example.com", CN: "Alice Adams",
				CUType: calendar.CUTypeIndividual, Role: calendar.RoleChair,
				PartStat: calendar.PartStatAccepted,
			},
			{
				Entity: 2, URI: "MAILTO:Bob@Example.com", CN: "Bob Baker",
				CUType: calendar.CUTypeIndividual, Role: calendar.RoleRequired,
				PartStat: calendar.PartStatNeedsAction, RSVP: true,
			},
		},
	}
}

func vevent(t *testing.T, cal *ical.Calendar) *ical.Component {
	t.Helper()
	for _, child := range cal.Children {
		if child.Name == ical.CompEvent {
			return child
		}
	}
	t.Fatal("no VEVENT in calendar")
	return nil
}

func propValue(t *testing.T, comp *ical.Component, name string) string {
	t.Helper()
	prop := comp.Props.Get(name)
	require.NotNil(t, prop, name)
	return prop.Value
}

func TestBuildRequest(t *testing.T) {
	event := messageEvent()
	msg := BuildRequest(event, event.Attendees[1:])

	assert.Equal(t, MethodRequest, msg.Method)
	require.NotNil(t, msg.Calendar.Props.Get("METHOD"))
	assert.Equal(t, "REQUEST", msg.Calendar.Props.Get("METHOD").Value)
	require.Len(t, msg.Recipients, 1)
	assert.Equal(t, 2, msg.Recipients[0].Entity)

	comp := vevent(t, msg.Calendar)
	assert.Equal(t, "uid-e1", propValue(t, comp, ical.PropUID))
	assert.Equal(t, "Team planning", propValue(t, comp, ical.PropSummary))
	assert.Equal(t, "Room 4", propValue(t, comp, "LOCATION"))
	assert.Equal(t, "2", propValue(t, comp, "SEQUENCE"))
	assert.Equal(t, "OPAQUE", propValue(t, comp, "TRANSP"))

	organizer := comp.Props.Get("ORGANIZER")
	require.NotNil(t, organizer)
	assert.Equal(t, "mailto:alice@example.com", organizer.Value)
	assert.Equal(t, "Alice Adams", organizer.Params.Get("CN"))

	attendees := comp.Props.Values("ATTENDEE")
	require.Len(t, attendees, 2, "a request carries the full attendee list")
	assert.Equal(t, "mailto:bob@example.com", attendees[1].Value, "URIs are normalized")
	assert.Equal(t, "TRUE", attendees[1].Params.Get("RSVP"))
	assert.Equal(t, "NEEDS-ACTION", attendees[1].Params.Get("PARTSTAT"))
}

func TestBuildReply(t *testing.T) {
	event := messageEvent()
	event.Attendees[1].PartStat = calendar.PartStatAccepted
	msg := BuildReply(event, event.Attendees[1])

	assert.Equal(t, MethodReply, msg.Method)
	assert.Equal(t, "REPLY", msg.Calendar.Props.Get("METHOD").Value)
	require.Len(t, msg.Recipients, 1)
	assert.Equal(t, "mailto:alice@example.com", msg.Recipients[0].URI, "a reply goes to the organizer")

	comp := vevent(t, msg.Calendar)
	attendees := comp.Props.Values("ATTENDEE")
	require.Len(t, attendees, 1, "a reply carries only the answering attendee")
	assert.Equal(t, "ACCEPTED", attendees[0].Params.Get("PARTSTAT"))
}

func TestBuildCancelWithRecurrenceID(t *testing.T) {
	event := messageEvent()
	rid := event.Start.AddDate(0, 0, 3)
	event.RecurrenceID = calendar.RecurrenceID{Value: rid, Range: calendar.RangeThisAndFuture}

	msg := BuildCancel(event, event.Attendees[1:])
	assert.Equal(t, MethodCancel, msg.Method)
	assert.Equal(t, "CANCEL", msg.Calendar.Props.Get("METHOD").Value)

	comp := vevent(t, msg.Calendar)
	recurrenceID := comp.Props.Get("RECURRENCE-ID")
	require.NotNil(t, recurrenceID)
	assert.Equal(t, "THISANDFUTURE", recurrenceID.Params.Get("RANGE"))
	parsed, err := recurrenceID.DateTime(time.UTC)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(rid))
}

func TestBuildReplyWithoutOrganizer(t *testing.T) {
	event := messageEvent()
	event.Organizer = nil
	msg := BuildReply(event, event.Attendees[1])
	assert.Empty(t, msg.Recipients)
}
