package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFieldEqual(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	base := Event{
		Summary:              "Planning",
		Start:                start,
		Transp:               TransparencyOpaque,
		Organizer:            &Organizer{Entity: 1, URI: "mailto:alice@example.com"},
		ChangeExceptionDates: []time.Time{start.AddDate(0, 0, 1)},
	}

	tests := []struct {
		name   string
		field  EventField
		mutate func(*Event)
		want   bool
	}{
		{
			name:   "unchanged summary",
			field:  FieldSummary,
			mutate: func(*Event) {},
			want:   true,
		},
		{
			name:   "changed summary",
			field:  FieldSummary,
			mutate: func(e *Event) { e.Summary = "Review" },
			want:   false,
		},
		{
			name:   "changed start",
			field:  FieldStart,
			mutate: func(e *Event) { e.Start = start.Add(time.Hour) },
			want:   false,
		},
		{
			name:   "organizer uri differs only in spelling",
			field:  FieldOrganizer,
			mutate: func(e *Event) { e.Organizer = &Organizer{Entity: 1, URI: "MAILTO:Alice@example.com"} },
			want:   true,
		},
		{
			name:   "organizer removed",
			field:  FieldOrganizer,
			mutate: func(e *Event) { e.Organizer = nil },
			want:   false,
		},
		{
			name:  "exception dates reordered",
			field: FieldChangeExceptionDates,
			mutate: func(e *Event) {
				e.ChangeExceptionDates = []time.Time{start.AddDate(0, 0, 1)}
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := *base.Clone()
			tt.mutate(&other)
			assert.Equal(t, tt.want, FieldEqual(&base, &other, tt.field))
		})
	}
}

func TestCopyFieldDeepCopies(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	src := &Event{
		Organizer:            &Organizer{Entity: 1},
		DeleteExceptionDates: []time.Time{start},
	}
	dst := &Event{}

	CopyField(dst, src, FieldOrganizer)
	CopyField(dst, src, FieldDeleteExceptionDates)

	dst.Organizer.Entity = 9
	dst.DeleteExceptionDates[0] = start.AddDate(0, 0, 1)
	assert.Equal(t, 1, src.Organizer.Entity)
	assert.True(t, src.DeleteExceptionDates[0].Equal(start))
}

func TestFieldSet(t *testing.T) {
	s := NewFieldSet(FieldSummary, FieldStart)
	assert.True(t, s.Contains(FieldSummary))
	assert.False(t, s.Contains(FieldEnd))

	s.Add(FieldEnd)
	assert.Equal(t, []EventField{FieldSummary, FieldStart, FieldEnd}, s.Sorted())
}
