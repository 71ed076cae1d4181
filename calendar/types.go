// Package calendar defines the value types shared by the update engine,
// the storage boundary and the scheduling helpers: events, attendees,
// alarms, conferences, attachments and the recurrence identifier used to
// address single occurrences of a series.
package calendar

import (
	"strings"
	"time"
)

// Transparency controls whether an event blocks free/busy time.
type Transparency string

const (
	TransparencyOpaque      Transparency = "OPAQUE"
	TransparencyTransparent Transparency = "TRANSPARENT"
)

// ParticipationStatus is an attendee's answer to an invitation.
type ParticipationStatus string

const (
	PartStatNeedsAction ParticipationStatus = "NEEDS-ACTION"
	PartStatAccepted    ParticipationStatus = "ACCEPTED"
	PartStatDeclined    ParticipationStatus = "DECLINED"
	PartStatTentative   ParticipationStatus = "TENTATIVE"
)

// Role describes an attendee's function within the event.
type Role string

const (
	RoleChair          Role = "CHAIR"
	RoleRequired       Role = "REQ-PARTICIPANT"
	RoleOptional       Role = "OPT-PARTICIPANT"
	RoleNonParticipant Role = "NON-PARTICIPANT"
)

// CUType classifies the calendar user behind an attendee.
type CUType string

const (
	CUTypeIndividual CUType = "INDIVIDUAL"
	CUTypeGroup      CUType = "GROUP"
	CUTypeResource   CUType = "RESOURCE"
	CUTypeRoom       CUType = "ROOM"
)

// RecurrenceRange qualifies a recurrence identifier. Only the
// this-and-future range is valid when addressing an update target.
type RecurrenceRange string

const (
	RangeNone          RecurrenceRange = ""
	RangeThisAndFuture RecurrenceRange = "THISANDFUTURE"
)

// RecurrenceID addresses one occurrence of a series, optionally widened
// to "this and all future occurrences".
type RecurrenceID struct {
	Value time.Time
	Range RecurrenceRange
}

// IsZero reports whether no occurrence is addressed at all.
func (r RecurrenceID) IsZero() bool {
	return r.Value.IsZero()
}

// ThisAndFuture reports whether the identifier spans the series tail.
func (r RecurrenceID) ThisAndFuture() bool {
	return r.Range == RangeThisAndFuture
}

// Organizer is the scheduling owner of a group-scheduled event.
// Entity is 0 for externally organized events.
type Organizer struct {
	Entity int
	URI    string
	CN     string
	SentBy string
}

// Attendee identifies a calendar user on one event. Internal users carry
// a non-zero Entity; external ones are keyed by their (mailto) URI.
type Attendee struct {
	Entity    int
	URI       string
	CN        string
	CUType    CUType
	Role      Role
	PartStat  ParticipationStatus
	RSVP      bool
	Comment   string
	Folder    string
	Hidden    bool
	Timestamp time.Time
}

// Matches reports whether two attendee records refer to the same calendar
// user: by internal entity id, or by normalized URI for external ones.
func (a Attendee) Matches(other Attendee) bool {
	if a.Entity != 0 || other.Entity != 0 {
		return a.Entity == other.Entity
	}
	return NormalizeURI(a.URI) == NormalizeURI(other.URI)
}

// Internal reports whether the attendee is backed by an internal entity.
func (a Attendee) Internal() bool {
	return a.Entity != 0
}

// NormalizeURI lower-cases a calendar user address and strips an optional
// mailto: prefix so that differently spelled addresses compare equal.
func NormalizeURI(uri string) string {
	uri = strings.TrimSpace(strings.ToLower(uri))
	return strings.TrimPrefix(uri, "mailto:")
}

// Trigger describes when an alarm fires: either relative to the event
// start (Duration, negative meaning before) or at an absolute time.
type Trigger struct {
	Duration *time.Duration
	DateTime *time.Time
}

// Alarm is a reminder bound to one (event, internal user) pair.
type Alarm struct {
	ID           int
	UID          string
	Action       string
	Trigger      Trigger
	Description  string
	Acknowledged *time.Time
}

// AlarmTrigger is the materialized next fire time of an alarm, recomputed
// whenever the event's time placement changes.
type AlarmTrigger struct {
	EventID string
	UserID  int
	AlarmID int
	Time    time.Time
}

// Conference is a dial-in / meeting-link resource attached to an event.
type Conference struct {
	ID       int
	URI      string
	Label    string
	Features []string
}

// Attachment is binary or linked content attached to an event.
type Attachment struct {
	ID       int
	URI      string
	Filename string
	Format   string
	Size     int64
	Checksum string
}
