package calendar

import (
	"sort"
	"time"
)

// EventFlavor classifies an event; every event is exactly one of these.
type EventFlavor int

const (
	FlavorNonRecurring EventFlavor = iota
	FlavorSeriesMaster
	FlavorChangeException
)

// String provides a human-readable representation of the flavor.
func (f EventFlavor) String() string {
	switch f {
	case FlavorSeriesMaster:
		return "SeriesMaster"
	case FlavorChangeException:
		return "ChangeException"
	default:
		return "NonRecurring"
	}
}

// Event is one calendar object resource instance: a plain event, a series
// master carrying a recurrence rule, or a persisted change exception
// overriding one occurrence of its series.
type Event struct {
	ID       string
	SeriesID string
	Folder   string
	UID      string

	// RecurrenceID marks change exceptions; zero otherwise.
	RecurrenceID RecurrenceID
	// RelatedTo links the two halves of a this-and-future split.
	RelatedTo string

	Summary     string
	Location    string
	Description string

	Organizer    *Organizer
	CalendarUser int
	CreatedBy    int
	ModifiedBy   int

	Created      time.Time
	LastModified time.Time
	Timestamp    time.Time

	Start  time.Time
	End    time.Time
	AllDay bool
	Transp Transparency

	Sequence int

	RecurrenceRule       string
	ChangeExceptionDates []time.Time
	DeleteExceptionDates []time.Time

	Attendees   []Attendee
	Conferences []Conference
	Attachments []Attachment

	// Alarms holds per-internal-user reminder collections.
	Alarms map[int][]Alarm
}

// Flavor classifies the event.
func (e *Event) Flavor() EventFlavor {
	switch {
	case !e.RecurrenceID.IsZero():
		return FlavorChangeException
	case e.RecurrenceRule != "":
		return FlavorSeriesMaster
	default:
		return FlavorNonRecurring
	}
}

// IsSeriesMaster reports whether the event carries a recurrence rule and
// is not itself an exception.
func (e *Event) IsSeriesMaster() bool {
	return e.Flavor() == FlavorSeriesMaster
}

// IsChangeException reports whether the event overrides one occurrence of
// a series.
func (e *Event) IsChangeException() bool {
	return e.Flavor() == FlavorChangeException
}

// GroupScheduled reports whether the event has an organizer plus at least
// one attendee besides them.
func (e *Event) GroupScheduled() bool {
	if e.Organizer == nil {
		return false
	}
	for _, a := range e.Attendees {
		if a.Entity != e.Organizer.Entity || a.Entity == 0 {
			return true
		}
	}
	return false
}

// AttendeeByEntity returns the attendee record of an internal user.
func (e *Event) AttendeeByEntity(entity int) (Attendee, bool) {
	for _, a := range e.Attendees {
		if a.Entity == entity {
			return a, true
		}
	}
	return Attendee{}, false
}

// FindAttendee returns the event's record matching the given attendee.
func (e *Event) FindAttendee(attendee Attendee) (Attendee, bool) {
	for _, a := range e.Attendees {
		if a.Matches(attendee) {
			return a, true
		}
	}
	return Attendee{}, false
}

// Duration is the event's time span.
func (e *Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.Organizer != nil {
		org := *e.Organizer
		c.Organizer = &org
	}
	c.ChangeExceptionDates = append([]time.Time(nil), e.ChangeExceptionDates...)
	c.DeleteExceptionDates = append([]time.Time(nil), e.DeleteExceptionDates...)
	c.Attendees = append([]Attendee(nil), e.Attendees...)
	c.Attachments = append([]Attachment(nil), e.Attachments...)
	c.Conferences = make([]Conference, len(e.Conferences))
	for i, conf := range e.Conferences {
		c.Conferences[i] = conf
		c.Conferences[i].Features = append([]string(nil), conf.Features...)
	}
	if e.Alarms != nil {
		c.Alarms = make(map[int][]Alarm, len(e.Alarms))
		for user, alarms := range e.Alarms {
			c.Alarms[user] = append([]Alarm(nil), alarms...)
		}
	}
	return &c
}

// ContainsDate reports whether the sorted date set contains t.
func ContainsDate(dates []time.Time, t time.Time) bool {
	for _, d := range dates {
		if d.Equal(t) {
			return true
		}
	}
	return false
}

// AddDate inserts t into the date set, keeping it sorted and free of
// duplicates.
func AddDate(dates []time.Time, t time.Time) []time.Time {
	if ContainsDate(dates, t) {
		return dates
	}
	dates = append(dates, t)
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// RemoveDate removes t from the date set if present.
func RemoveDate(dates []time.Time, t time.Time) []time.Time {
	out := dates[:0:0]
	for _, d := range dates {
		if !d.Equal(t) {
			out = append(out, d)
		}
	}
	return out
}

// DatesEqual reports whether two date sets hold the same instants,
// ignoring order.
func DatesEqual(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for _, d := range a {
		if !ContainsDate(b, d) {
			return false
		}
	}
	return true
}
