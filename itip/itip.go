// Package itip renders computed event diffs into iCalendar scheduling
// message payloads (iTIP REQUEST/REPLY/CANCEL) and bridges them to a
// transport callback. Message content beyond the payload structure is
// the transport's concern.
package itip

import (
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"github.com/meridiancal/groupcal/calendar"
)

// Method is the iTIP method of a scheduling message.
type Method string

const (
	MethodRequest Method = "REQUEST"
	MethodReply   Method = "REPLY"
	MethodCancel  Method = "CANCEL"
)

const defaultProdID = "-//groupcal//scheduling//EN"

// Message is one scheduling message ready for transport.
type Message struct {
	Method     Method
	Calendar   *ical.Calendar
	Recipients []calendar.Attendee
}

// BuildRequest renders an organizer-side REQUEST for the given event
// state, addressed to the given attendees.
func BuildRequest(event *calendar.Event, recipients []calendar.Attendee) *Message {
	cal := newCalendar(MethodRequest)
	cal.Children = append(cal.Children, eventComponent(event, event.Attendees))
	return &Message{Method: MethodRequest, Calendar: cal, Recipients: recipients}
}

// BuildReply renders an attendee's REPLY carrying only their own
// attendee record, directed at the organizer.
func BuildReply(event *calendar.Event, replying calendar.Attendee) *Message {
	cal := newCalendar(MethodReply)
	cal.Children = append(cal.Children, eventComponent(event, []calendar.Attendee{replying}))
	var recipients []calendar.Attendee
	if event.Organizer != nil {
		recipients = []calendar.Attendee{{
			Entity: event.Organizer.Entity,
			URI:    event.Organizer.URI,
			CN:     event.Organizer.CN,
		}}
	}
	return &Message{Method: MethodReply, Calendar: cal, Recipients: recipients}
}

// BuildCancel renders a CANCEL for a removed event or occurrence.
func BuildCancel(event *calendar.Event, recipients []calendar.Attendee) *Message {
	cal := newCalendar(MethodCancel)
	cal.Children = append(cal.Children, eventComponent(event, event.Attendees))
	return &Message{Method: MethodCancel, Calendar: cal, Recipients: recipients}
}

func newCalendar(method Method) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText("PRODID", defaultProdID)
	cal.Props.SetText("VERSION", "2.0")
	cal.Props.SetText("METHOD", string(method))
	return cal
}

// eventComponent renders the event as a VEVENT, restricted to the given
// attendee subset.
func eventComponent(event *calendar.Event, attendees []calendar.Attendee) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	uid := event.UID
	if uid == "" {
		uid = event.ID
	}
	comp.Props.SetText(ical.PropUID, uid)
	if event.Summary != "" {
		comp.Props.SetText(ical.PropSummary, event.Summary)
	}
	if event.Location != "" {
		comp.Props.SetText("LOCATION", event.Location)
	}
	if event.Description != "" {
		comp.Props.SetText(ical.PropDescription, event.Description)
	}
	comp.Props.SetDateTime(ical.PropDateTimeStart, event.Start)
	comp.Props.SetDateTime(ical.PropDateTimeEnd, event.End)
	stamp := event.Timestamp
	if stamp.IsZero() {
		stamp = time.Now().UTC()
	}
	comp.Props.SetDateTime("DTSTAMP", stamp)
	comp.Props.SetText("SEQUENCE", strconv.Itoa(event.Sequence))
	if event.Transp != "" {
		comp.Props.SetText("TRANSP", string(event.Transp))
	}
	if event.RecurrenceRule != "" {
		comp.Props.SetText("RRULE", event.RecurrenceRule)
	}
	if !event.RecurrenceID.IsZero() {
		prop := ical.NewProp("RECURRENCE-ID")
		prop.SetDateTime(event.RecurrenceID.Value)
		if event.RecurrenceID.ThisAndFuture() {
			prop.Params.Set("RANGE", string(calendar.RangeThisAndFuture))
		}
		comp.Props.Add(prop)
	}

	if event.Organizer != nil {
		prop := ical.NewProp("ORGANIZER")
		prop.Value = mailtoURI(event.Organizer.URI)
		if event.Organizer.CN != "" {
			prop.Params.Set("CN", event.Organizer.CN)
		}
		if event.Organizer.SentBy != "" {
			prop.Params.Set("SENT-BY", mailtoURI(event.Organizer.SentBy))
		}
		comp.Props.Add(prop)
	}
	for _, attendee := range attendees {
		comp.Props.Add(attendeeProp(attendee))
	}
	return comp
}

func attendeeProp(attendee calendar.Attendee) *ical.Prop {
	prop := ical.NewProp("ATTENDEE")
	prop.Value = mailtoURI(attendee.URI)
	if attendee.CN != "" {
		prop.Params.Set("CN", attendee.CN)
	}
	if attendee.CUType != "" {
		prop.Params.Set("CUTYPE", string(attendee.CUType))
	}
	if attendee.Role != "" {
		prop.Params.Set("ROLE", string(attendee.Role))
	}
	if attendee.PartStat != "" {
		prop.Params.Set("PARTSTAT", string(attendee.PartStat))
	}
	if attendee.RSVP {
		prop.Params.Set("RSVP", "TRUE")
	}
	return prop
}

func mailtoURI(uri string) string {
	if uri == "" {
		return uri
	}
	normalized := calendar.NormalizeURI(uri)
	return "mailto:" + normalized
}
