package calendar

import (
	"sort"
	"time"
)

// EventField identifies one attribute of an event for diffing and for
// field-scoped storage updates.
type EventField int

const (
	FieldID EventField = iota
	FieldSeriesID
	FieldFolder
	FieldUID
	FieldRecurrenceID
	FieldRelatedTo
	FieldSummary
	FieldLocation
	FieldDescription
	FieldOrganizer
	FieldCalendarUser
	FieldCreated
	FieldCreatedBy
	FieldLastModified
	FieldModifiedBy
	FieldTimestamp
	FieldStart
	FieldEnd
	FieldAllDay
	FieldTransp
	FieldSequence
	FieldRecurrenceRule
	FieldChangeExceptionDates
	FieldDeleteExceptionDates
	FieldAttendees
	FieldConferences
	FieldAttachments
	FieldAlarms
)

var fieldNames = map[EventField]string{
	FieldID:                   "id",
	FieldSeriesID:             "seriesId",
	FieldFolder:               "folder",
	FieldUID:                  "uid",
	FieldRecurrenceID:         "recurrenceId",
	FieldRelatedTo:            "relatedTo",
	FieldSummary:              "summary",
	FieldLocation:             "location",
	FieldDescription:          "description",
	FieldOrganizer:            "organizer",
	FieldCalendarUser:         "calendarUser",
	FieldCreated:              "created",
	FieldCreatedBy:            "createdBy",
	FieldLastModified:         "lastModified",
	FieldModifiedBy:           "modifiedBy",
	FieldTimestamp:            "timestamp",
	FieldStart:                "startDate",
	FieldEnd:                  "endDate",
	FieldAllDay:               "allDay",
	FieldTransp:               "transp",
	FieldSequence:             "sequence",
	FieldRecurrenceRule:       "recurrenceRule",
	FieldChangeExceptionDates: "changeExceptionDates",
	FieldDeleteExceptionDates: "deleteExceptionDates",
	FieldAttendees:            "attendees",
	FieldConferences:          "conferences",
	FieldAttachments:          "attachments",
	FieldAlarms:               "alarms",
}

// String provides a human-readable field name.
func (f EventField) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return "unknown"
}

// ScalarFields lists the event attributes stored on the event row itself,
// as opposed to the attendee/conference/attachment/alarm aggregates.
var ScalarFields = []EventField{
	FieldSeriesID, FieldFolder, FieldUID, FieldRecurrenceID, FieldRelatedTo,
	FieldSummary, FieldLocation, FieldDescription, FieldOrganizer,
	FieldCalendarUser, FieldCreated, FieldCreatedBy, FieldLastModified,
	FieldModifiedBy, FieldTimestamp, FieldStart, FieldEnd, FieldAllDay,
	FieldTransp, FieldSequence, FieldRecurrenceRule,
	FieldChangeExceptionDates, FieldDeleteExceptionDates,
}

// FieldSet is an unordered set of event fields.
type FieldSet map[EventField]struct{}

// NewFieldSet builds a set from the given fields.
func NewFieldSet(fields ...EventField) FieldSet {
	s := make(FieldSet, len(fields))
	for _, f := range fields {
		s[f] = struct{}{}
	}
	return s
}

// Add inserts a field into the set.
func (s FieldSet) Add(f EventField) { s[f] = struct{}{} }

// Contains reports membership.
func (s FieldSet) Contains(f EventField) bool {
	_, ok := s[f]
	return ok
}

// Sorted returns the set's members in declaration order.
func (s FieldSet) Sorted() []EventField {
	out := make([]EventField, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FieldEqual reports whether two events agree on one scalar field.
// Collection fields (attendees, conferences, attachments, alarms) are
// compared by the diff engine's partition logic, not here.
func FieldEqual(a, b *Event, f EventField) bool {
	switch f {
	case FieldID:
		return a.ID == b.ID
	case FieldSeriesID:
		return a.SeriesID == b.SeriesID
	case FieldFolder:
		return a.Folder == b.Folder
	case FieldUID:
		return a.UID == b.UID
	case FieldRecurrenceID:
		return a.RecurrenceID.Value.Equal(b.RecurrenceID.Value) && a.RecurrenceID.Range == b.RecurrenceID.Range
	case FieldRelatedTo:
		return a.RelatedTo == b.RelatedTo
	case FieldSummary:
		return a.Summary == b.Summary
	case FieldLocation:
		return a.Location == b.Location
	case FieldDescription:
		return a.Description == b.Description
	case FieldOrganizer:
		return organizerEqual(a.Organizer, b.Organizer)
	case FieldCalendarUser:
		return a.CalendarUser == b.CalendarUser
	case FieldCreated:
		return a.Created.Equal(b.Created)
	case FieldCreatedBy:
		return a.CreatedBy == b.CreatedBy
	case FieldLastModified:
		return a.LastModified.Equal(b.LastModified)
	case FieldModifiedBy:
		return a.ModifiedBy == b.ModifiedBy
	case FieldTimestamp:
		return a.Timestamp.Equal(b.Timestamp)
	case FieldStart:
		return a.Start.Equal(b.Start)
	case FieldEnd:
		return a.End.Equal(b.End)
	case FieldAllDay:
		return a.AllDay == b.AllDay
	case FieldTransp:
		return a.Transp == b.Transp
	case FieldSequence:
		return a.Sequence == b.Sequence
	case FieldRecurrenceRule:
		return a.RecurrenceRule == b.RecurrenceRule
	case FieldChangeExceptionDates:
		return DatesEqual(a.ChangeExceptionDates, b.ChangeExceptionDates)
	case FieldDeleteExceptionDates:
		return DatesEqual(a.DeleteExceptionDates, b.DeleteExceptionDates)
	default:
		return true
	}
}

// CopyField copies one scalar field from src to dst.
func CopyField(dst, src *Event, f EventField) {
	switch f {
	case FieldID:
		dst.ID = src.ID
	case FieldSeriesID:
		dst.SeriesID = src.SeriesID
	case FieldFolder:
		dst.Folder = src.Folder
	case FieldUID:
		dst.UID = src.UID
	case FieldRecurrenceID:
		dst.RecurrenceID = src.RecurrenceID
	case FieldRelatedTo:
		dst.RelatedTo = src.RelatedTo
	case FieldSummary:
		dst.Summary = src.Summary
	case FieldLocation:
		dst.Location = src.Location
	case FieldDescription:
		dst.Description = src.Description
	case FieldOrganizer:
		if src.Organizer == nil {
			dst.Organizer = nil
		} else {
			org := *src.Organizer
			dst.Organizer = &org
		}
	case FieldCalendarUser:
		dst.CalendarUser = src.CalendarUser
	case FieldCreated:
		dst.Created = src.Created
	case FieldCreatedBy:
		dst.CreatedBy = src.CreatedBy
	case FieldLastModified:
		dst.LastModified = src.LastModified
	case FieldModifiedBy:
		dst.ModifiedBy = src.ModifiedBy
	case FieldTimestamp:
		dst.Timestamp = src.Timestamp
	case FieldStart:
		dst.Start = src.Start
	case FieldEnd:
		dst.End = src.End
	case FieldAllDay:
		dst.AllDay = src.AllDay
	case FieldTransp:
		dst.Transp = src.Transp
	case FieldSequence:
		dst.Sequence = src.Sequence
	case FieldRecurrenceRule:
		dst.RecurrenceRule = src.RecurrenceRule
	case FieldChangeExceptionDates:
		dst.ChangeExceptionDates = append([]time.Time(nil), src.ChangeExceptionDates...)
	case FieldDeleteExceptionDates:
		dst.DeleteExceptionDates = append([]time.Time(nil), src.DeleteExceptionDates...)
	}
}

func organizerEqual(a, b *Organizer) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Entity == b.Entity && NormalizeURI(a.URI) == NormalizeURI(b.URI) && a.SentBy == b.SentBy
}
