// Package sqlite provides a CalendarStorage implementation on top of an
// embedded SQLite database. The store opens a single write connection in
// WAL mode; callers wrap one logical update in a transaction via WithTx.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/meridiancal/groupcal/calendar"
	"github.com/meridiancal/groupcal/storage"
)

//go:embed schema.sql
var schema string

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements storage.CalendarStorage backed by SQLite.
type Store struct {
	db *sql.DB
	q  querier
}

var _ storage.CalendarStorage = (*Store)(nil)

// Open opens (creating if necessary) the database at path and applies the
// schema. SQLite allows a single writer, so the pool is capped at one
// connection.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a store bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise, so one
// Perform call and all its storage writes land atomically.
func (s *Store) WithTx(ctx context.Context, fn func(storage.CalendarStorage) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(&Store{db: s.db, q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

const eventColumns = `id, series_id, folder, uid, rid_value, rid_range, related_to,
	summary, location, description,
	org_entity, org_uri, org_cn, org_sent_by, has_organizer,
	calendar_user, created_by, modified_by,
	created, last_modified, timestamp,
	start_at, end_at, all_day, transp, sequence,
	rrule, change_ex, delete_ex`

func (s *Store) LoadEvent(ctx context.Context, eventID string) (*calendar.Event, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load event %q: %w", eventID, err)
	}
	if err := s.loadChildren(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Store) LoadChangeExceptions(ctx context.Context, seriesID string) ([]*calendar.Event, error) {
	return s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events WHERE series_id = ? AND rid_value != 0`,
		seriesID)
}

func (s *Store) LoadChangeException(ctx context.Context, seriesID string, recurrenceID time.Time) (*calendar.Event, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE series_id = ? AND rid_value = ? AND rid_value != 0`,
		seriesID, encodeTime(recurrenceID))
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("exception %s of series %q: %w",
			recurrenceID.Format(time.RFC3339), seriesID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load exception of series %q: %w", seriesID, err)
	}
	if err := s.loadChildren(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *Store) InsertEvent(ctx context.Context, event *calendar.Event) error {
	if event.ID == "" {
		return fmt.Errorf("event id must not be empty: %w", storage.ErrInvalidInput)
	}
	changeEx, err := encodeDates(event.ChangeExceptionDates)
	if err != nil {
		return fmt.Errorf("encode change exception dates: %w", err)
	}
	deleteEx, err := encodeDates(event.DeleteExceptionDates)
	if err != nil {
		return fmt.Errorf("encode delete exception dates: %w", err)
	}
	org := event.Organizer
	if org == nil {
		org = &calendar.Organizer{}
	}
	_, err = s.q.ExecContext(ctx, `INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.SeriesID, event.Folder, event.UID,
		encodeTime(event.RecurrenceID.Value), string(event.RecurrenceID.Range), event.RelatedTo,
		event.Summary, event.Location, event.Description,
		org.Entity, org.URI, org.CN, org.SentBy, event.Organizer != nil,
		event.CalendarUser, event.CreatedBy, event.ModifiedBy,
		encodeTime(event.Created), encodeTime(event.LastModified), encodeTime(event.Timestamp),
		encodeTime(event.Start), encodeTime(event.End), event.AllDay, string(event.Transp), event.Sequence,
		event.RecurrenceRule, changeEx, deleteEx)
	if err != nil {
		if isConstraintError(err) {
			return fmt.Errorf("event %q: %w", event.ID, storage.ErrAlreadyExists)
		}
		return fmt.Errorf("insert event %q: %w", event.ID, err)
	}

	if err := s.InsertAttendees(ctx, event.ID, event.Attendees); err != nil {
		return err
	}
	if err := s.InsertConferences(ctx, event.ID, event.Conferences); err != nil {
		return err
	}
	if err := s.InsertAttachments(ctx, event.ID, event.Attachments); err != nil {
		return err
	}
	for user, alarms := range event.Alarms {
		if err := s.InsertAlarms(ctx, event.ID, user, alarms); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) UpdateEvent(ctx context.Context, eventID string, delta *calendar.Event, fields []calendar.EventField) error {
	if len(fields) == 0 {
		return nil
	}
	query := `UPDATE events SET `
	var args []any
	for i, f := range fields {
		cols, vals, err := fieldColumns(delta, f)
		if err != nil {
			return err
		}
		for j, col := range cols {
			if i > 0 || j > 0 {
				query += ", "
			}
			query += col + " = ?"
		}
		args = append(args, vals...)
	}
	query += ` WHERE id = ?`
	args = append(args, eventID)

	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update event %q: %w", eventID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	return nil
}

// fieldColumns maps one scalar event field to its column assignments.
func fieldColumns(delta *calendar.Event, f calendar.EventField) ([]string, []any, error) {
	switch f {
	case calendar.FieldSeriesID:
		return []string{"series_id"}, []any{delta.SeriesID}, nil
	case calendar.FieldFolder:
		return []string{"folder"}, []any{delta.Folder}, nil
	case calendar.FieldUID:
		return []string{"uid"}, []any{delta.UID}, nil
	case calendar.FieldRecurrenceID:
		return []string{"rid_value", "rid_range"},
			[]any{encodeTime(delta.RecurrenceID.Value), string(delta.RecurrenceID.Range)}, nil
	case calendar.FieldRelatedTo:
		return []string{"related_to"}, []any{delta.RelatedTo}, nil
	case calendar.FieldSummary:
		return []string{"summary"}, []any{delta.Summary}, nil
	case calendar.FieldLocation:
		return []string{"location"}, []any{delta.Location}, nil
	case calendar.FieldDescription:
		return []string{"description"}, []any{delta.Description}, nil
	case calendar.FieldOrganizer:
		org := delta.Organizer
		if org == nil {
			org = &calendar.Organizer{}
		}
		return []string{"org_entity", "org_uri", "org_cn", "org_sent_by", "has_organizer"},
			[]any{org.Entity, org.URI, org.CN, org.SentBy, delta.Organizer != nil}, nil
	case calendar.FieldCalendarUser:
		return []string{"calendar_user"}, []any{delta.CalendarUser}, nil
	case calendar.FieldCreated:
		return []string{"created"}, []any{encodeTime(delta.Created)}, nil
	case calendar.FieldCreatedBy:
		return []string{"created_by"}, []any{delta.CreatedBy}, nil
	case calendar.FieldLastModified:
		return []string{"last_modified"}, []any{encodeTime(delta.LastModified)}, nil
	case calendar.FieldModifiedBy:
		return []string{"modified_by"}, []any{delta.ModifiedBy}, nil
	case calendar.FieldTimestamp:
		return []string{"timestamp"}, []any{encodeTime(delta.Timestamp)}, nil
	case calendar.FieldStart:
		return []string{"start_at"}, []any{encodeTime(delta.Start)}, nil
	case calendar.FieldEnd:
		return []string{"end_at"}, []any{encodeTime(delta.End)}, nil
	case calendar.FieldAllDay:
		return []string{"all_day"}, []any{delta.AllDay}, nil
	case calendar.FieldTransp:
		return []string{"transp"}, []any{string(delta.Transp)}, nil
	case calendar.FieldSequence:
		return []string{"sequence"}, []any{delta.Sequence}, nil
	case calendar.FieldRecurrenceRule:
		return []string{"rrule"}, []any{delta.RecurrenceRule}, nil
	case calendar.FieldChangeExceptionDates:
		encoded, err := encodeDates(delta.ChangeExceptionDates)
		if err != nil {
			return nil, nil, fmt.Errorf("encode change exception dates: %w", err)
		}
		return []string{"change_ex"}, []any{encoded}, nil
	case calendar.FieldDeleteExceptionDates:
		encoded, err := encodeDates(delta.DeleteExceptionDates)
		if err != nil {
			return nil, nil, fmt.Errorf("encode delete exception dates: %w", err)
		}
		return []string{"delete_ex"}, []any{encoded}, nil
	default:
		return nil, nil, fmt.Errorf("field %s is not a scalar column: %w", f, storage.ErrInvalidInput)
	}
}

func (s *Store) DeleteEvent(ctx context.Context, eventID string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID)
	if err != nil {
		return fmt.Errorf("delete event %q: %w", eventID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (s *Store) SearchEventsInFolder(ctx context.Context, folderID string, limit int) ([]*calendar.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE folder = ? OR id IN (SELECT event_id FROM attendees WHERE folder = ?)`
	args := []any{folderID, folderID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryEvents(ctx, query, args...)
}

func (s *Store) SearchOverlapping(ctx context.Context, start, end time.Time, attendees []calendar.Attendee) ([]*calendar.Event, error) {
	// Attendee matching needs URI normalization, so the time/opacity cut
	// happens in SQL and the attendee cut in Go.
	candidates, err := s.queryEvents(ctx,
		`SELECT `+eventColumns+` FROM events
		WHERE transp != ? AND start_at < ? AND end_at > ?`,
		string(calendar.TransparencyTransparent), encodeTime(end), encodeTime(start))
	if err != nil {
		return nil, err
	}
	var out []*calendar.Event
	for _, event := range candidates {
		for _, candidate := range attendees {
			if stored, ok := event.FindAttendee(candidate); ok && stored.PartStat != calendar.PartStatDeclined {
				out = append(out, event)
				break
			}
		}
	}
	return out, nil
}

func (s *Store) InsertAttendees(ctx context.Context, eventID string, attendees []calendar.Attendee) error {
	if len(attendees) == 0 {
		return nil
	}
	existing, err := s.loadAttendees(ctx, eventID)
	if err != nil {
		return err
	}
	for _, a := range attendees {
		for _, stored := range existing {
			if stored.Matches(a) {
				return fmt.Errorf("attendee %d/%s on event %q: %w", a.Entity, a.URI, eventID, storage.ErrAlreadyExists)
			}
		}
		_, err := s.q.ExecContext(ctx, `INSERT INTO attendees
			(event_id, entity, uri, cn, cutype, role, partstat, rsvp, comment, folder, hidden, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eventID, a.Entity, a.URI, a.CN, string(a.CUType), string(a.Role), string(a.PartStat),
			a.RSVP, a.Comment, a.Folder, a.Hidden, encodeTime(a.Timestamp))
		if err != nil {
			return fmt.Errorf("insert attendee on event %q: %w", eventID, err)
		}
		existing = append(existing, a)
	}
	return nil
}

func (s *Store) UpdateAttendee(ctx context.Context, eventID string, attendee calendar.Attendee) error {
	stored, ok, err := s.findStoredAttendee(ctx, eventID, attendee)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("attendee %d/%s on event %q: %w", attendee.Entity, attendee.URI, eventID, storage.ErrNotFound)
	}
	_, err = s.q.ExecContext(ctx, `UPDATE attendees SET
		entity = ?, uri = ?, cn = ?, cutype = ?, role = ?, partstat = ?,
		rsvp = ?, comment = ?, folder = ?, hidden = ?, timestamp = ?
		WHERE event_id = ? AND entity = ? AND uri = ?`,
		attendee.Entity, attendee.URI, attendee.CN, string(attendee.CUType), string(attendee.Role),
		string(attendee.PartStat), attendee.RSVP, attendee.Comment, attendee.Folder, attendee.Hidden,
		encodeTime(attendee.Timestamp),
		eventID, stored.Entity, stored.URI)
	if err != nil {
		return fmt.Errorf("update attendee on event %q: %w", eventID, err)
	}
	return nil
}

func (s *Store) DeleteAttendees(ctx context.Context, eventID string, attendees []calendar.Attendee) error {
	for _, target := range attendees {
		stored, ok, err := s.findStoredAttendee(ctx, eventID, target)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		_, err = s.q.ExecContext(ctx,
			`DELETE FROM attendees WHERE event_id = ? AND entity = ? AND uri = ?`,
			eventID, stored.Entity, stored.URI)
		if err != nil {
			return fmt.Errorf("delete attendee on event %q: %w", eventID, err)
		}
	}
	return nil
}

func (s *Store) LoadAlarms(ctx context.Context, eventID string, userID int) ([]calendar.Alarm, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT alarm_id, uid, action, trigger_rel, trigger_at, description, acknowledged
		FROM alarms WHERE event_id = ? AND user_id = ?`, eventID, userID)
	if err != nil {
		return nil, fmt.Errorf("load alarms of event %q: %w", eventID, err)
	}
	defer rows.Close()

	var out []calendar.Alarm
	for rows.Next() {
		var (
			alarm         calendar.Alarm
			rel, abs, ack sql.NullInt64
		)
		if err := rows.Scan(&alarm.ID, &alarm.UID, &alarm.Action, &rel, &abs, &alarm.Description, &ack); err != nil {
			return nil, fmt.Errorf("scan alarm of event %q: %w", eventID, err)
		}
		if rel.Valid {
			d := time.Duration(rel.Int64)
			alarm.Trigger.Duration = &d
		}
		if abs.Valid {
			t := decodeTime(abs.Int64)
			alarm.Trigger.DateTime = &t
		}
		if ack.Valid {
			t := decodeTime(ack.Int64)
			alarm.Acknowledged = &t
		}
		out = append(out, alarm)
	}
	return out, rows.Err()
}

func (s *Store) InsertAlarms(ctx context.Context, eventID string, userID int, alarms []calendar.Alarm) error {
	for _, alarm := range alarms {
		var rel, abs, ack any
		if alarm.Trigger.Duration != nil {
			rel = int64(*alarm.Trigger.Duration)
		}
		if alarm.Trigger.DateTime != nil {
			abs = encodeTime(*alarm.Trigger.DateTime)
		}
		if alarm.Acknowledged != nil {
			ack = encodeTime(*alarm.Acknowledged)
		}
		_, err := s.q.ExecContext(ctx, `INSERT INTO alarms
			(event_id, user_id, alarm_id, uid, action, trigger_rel, trigger_at, description, acknowledged)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			eventID, userID, alarm.ID, alarm.UID, alarm.Action, rel, abs, alarm.Description, ack)
		if err != nil {
			return fmt.Errorf("insert alarm on event %q: %w", eventID, err)
		}
	}
	return nil
}

func (s *Store) DeleteAlarms(ctx context.Context, eventID string, userID int) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM alarms WHERE event_id = ? AND user_id = ?`, eventID, userID); err != nil {
		return fmt.Errorf("delete alarms of event %q: %w", eventID, err)
	}
	return nil
}

func (s *Store) DeleteTriggers(ctx context.Context, eventID string, userIDs []int) error {
	if userIDs == nil {
		if _, err := s.q.ExecContext(ctx, `DELETE FROM triggers WHERE event_id = ?`, eventID); err != nil {
			return fmt.Errorf("delete triggers of event %q: %w", eventID, err)
		}
		return nil
	}
	for _, id := range userIDs {
		if _, err := s.q.ExecContext(ctx,
			`DELETE FROM triggers WHERE event_id = ? AND user_id = ?`, eventID, id); err != nil {
			return fmt.Errorf("delete triggers of event %q: %w", eventID, err)
		}
	}
	return nil
}

func (s *Store) InsertTriggers(ctx context.Context, triggers []calendar.AlarmTrigger) error {
	for _, t := range triggers {
		_, err := s.q.ExecContext(ctx,
			`INSERT INTO triggers (event_id, user_id, alarm_id, fire_at) VALUES (?, ?, ?, ?)`,
			t.EventID, t.UserID, t.AlarmID, encodeTime(t.Time))
		if err != nil {
			return fmt.Errorf("insert trigger on event %q: %w", t.EventID, err)
		}
	}
	return nil
}

func (s *Store) InsertConferences(ctx context.Context, eventID string, conferences []calendar.Conference) error {
	for _, c := range conferences {
		features, err := json.Marshal(c.Features)
		if err != nil {
			return fmt.Errorf("encode conference features: %w", err)
		}
		_, err = s.q.ExecContext(ctx,
			`INSERT INTO conferences (event_id, conf_id, uri, label, features) VALUES (?, ?, ?, ?, ?)`,
			eventID, c.ID, c.URI, c.Label, string(features))
		if err != nil {
			return fmt.Errorf("insert conference on event %q: %w", eventID, err)
		}
	}
	return nil
}

func (s *Store) UpdateConference(ctx context.Context, eventID string, conference calendar.Conference) error {
	features, err := json.Marshal(conference.Features)
	if err != nil {
		return fmt.Errorf("encode conference features: %w", err)
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE conferences SET uri = ?, label = ?, features = ? WHERE event_id = ? AND conf_id = ?`,
		conference.URI, conference.Label, string(features), eventID, conference.ID)
	if err != nil {
		return fmt.Errorf("update conference on event %q: %w", eventID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("conference %d on event %q: %w", conference.ID, eventID, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteConferences(ctx context.Context, eventID string, conferenceIDs []int) error {
	for _, id := range conferenceIDs {
		if _, err := s.q.ExecContext(ctx,
			`DELETE FROM conferences WHERE event_id = ? AND conf_id = ?`, eventID, id); err != nil {
			return fmt.Errorf("delete conference on event %q: %w", eventID, err)
		}
	}
	return nil
}

func (s *Store) InsertAttachments(ctx context.Context, eventID string, attachments []calendar.Attachment) error {
	for _, a := range attachments {
		_, err := s.q.ExecContext(ctx, `INSERT INTO attachments
			(event_id, attach_id, uri, filename, format, size, checksum) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			eventID, a.ID, a.URI, a.Filename, a.Format, a.Size, a.Checksum)
		if err != nil {
			return fmt.Errorf("insert attachment on event %q: %w", eventID, err)
		}
	}
	return nil
}

func (s *Store) DeleteAttachments(ctx context.Context, eventID string, attachmentIDs []int) error {
	for _, id := range attachmentIDs {
		if _, err := s.q.ExecContext(ctx,
			`DELETE FROM attachments WHERE event_id = ? AND attach_id = ?`, eventID, id); err != nil {
			return fmt.Errorf("delete attachment on event %q: %w", eventID, err)
		}
	}
	return nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*calendar.Event, error) {
	var (
		event                       calendar.Event
		ridValue, created, modified int64
		timestamp, start, end       int64
		ridRange, transp            string
		hasOrganizer                bool
		org                         calendar.Organizer
		changeEx, deleteEx          string
	)
	err := row.Scan(
		&event.ID, &event.SeriesID, &event.Folder, &event.UID,
		&ridValue, &ridRange, &event.RelatedTo,
		&event.Summary, &event.Location, &event.Description,
		&org.Entity, &org.URI, &org.CN, &org.SentBy, &hasOrganizer,
		&event.CalendarUser, &event.CreatedBy, &event.ModifiedBy,
		&created, &modified, &timestamp,
		&start, &end, &event.AllDay, &transp, &event.Sequence,
		&event.RecurrenceRule, &changeEx, &deleteEx)
	if err != nil {
		return nil, err
	}
	event.RecurrenceID = calendar.RecurrenceID{Value: decodeTime(ridValue), Range: calendar.RecurrenceRange(ridRange)}
	if hasOrganizer {
		event.Organizer = &org
	}
	event.Created = decodeTime(created)
	event.LastModified = decodeTime(modified)
	event.Timestamp = decodeTime(timestamp)
	event.Start = decodeTime(start)
	event.End = decodeTime(end)
	event.Transp = calendar.Transparency(transp)
	if event.ChangeExceptionDates, err = decodeDates(changeEx); err != nil {
		return nil, fmt.Errorf("decode change exception dates: %w", err)
	}
	if event.DeleteExceptionDates, err = decodeDates(deleteEx); err != nil {
		return nil, fmt.Errorf("decode delete exception dates: %w", err)
	}
	return &event, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]*calendar.Event, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []*calendar.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	for _, event := range out {
		if err := s.loadChildren(ctx, event); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadChildren(ctx context.Context, event *calendar.Event) error {
	attendees, err := s.loadAttendees(ctx, event.ID)
	if err != nil {
		return err
	}
	event.Attendees = attendees

	rows, err := s.q.QueryContext(ctx,
		`SELECT conf_id, uri, label, features FROM conferences WHERE event_id = ?`, event.ID)
	if err != nil {
		return fmt.Errorf("load conferences of event %q: %w", event.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			conf     calendar.Conference
			features string
		)
		if err := rows.Scan(&conf.ID, &conf.URI, &conf.Label, &features); err != nil {
			return fmt.Errorf("scan conference of event %q: %w", event.ID, err)
		}
		if err := json.Unmarshal([]byte(features), &conf.Features); err != nil {
			return fmt.Errorf("decode conference features: %w", err)
		}
		event.Conferences = append(event.Conferences, conf)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate conferences of event %q: %w", event.ID, err)
	}

	attRows, err := s.q.QueryContext(ctx,
		`SELECT attach_id, uri, filename, format, size, checksum FROM attachments WHERE event_id = ?`, event.ID)
	if err != nil {
		return fmt.Errorf("load attachments of event %q: %w", event.ID, err)
	}
	defer attRows.Close()
	for attRows.Next() {
		var att calendar.Attachment
		if err := attRows.Scan(&att.ID, &att.URI, &att.Filename, &att.Format, &att.Size, &att.Checksum); err != nil {
			return fmt.Errorf("scan attachment of event %q: %w", event.ID, err)
		}
		event.Attachments = append(event.Attachments, att)
	}
	if err := attRows.Err(); err != nil {
		return fmt.Errorf("iterate attachments of event %q: %w", event.ID, err)
	}

	alarmRows, err := s.q.QueryContext(ctx,
		`SELECT user_id, alarm_id, uid, action, trigger_rel, trigger_at, description, acknowledged
		FROM alarms WHERE event_id = ?`, event.ID)
	if err != nil {
		return fmt.Errorf("load alarms of event %q: %w", event.ID, err)
	}
	defer alarmRows.Close()
	for alarmRows.Next() {
		var (
			userID        int
			alarm         calendar.Alarm
			rel, abs, ack sql.NullInt64
		)
		if err := alarmRows.Scan(&userID, &alarm.ID, &alarm.UID, &alarm.Action, &rel, &abs, &alarm.Description, &ack); err != nil {
			return fmt.Errorf("scan alarm of event %q: %w", event.ID, err)
		}
		if rel.Valid {
			d := time.Duration(rel.Int64)
			alarm.Trigger.Duration = &d
		}
		if abs.Valid {
			t := decodeTime(abs.Int64)
			alarm.Trigger.DateTime = &t
		}
		if ack.Valid {
			t := decodeTime(ack.Int64)
			alarm.Acknowledged = &t
		}
		if event.Alarms == nil {
			event.Alarms = make(map[int][]calendar.Alarm)
		}
		event.Alarms[userID] = append(event.Alarms[userID], alarm)
	}
	return alarmRows.Err()
}

func (s *Store) loadAttendees(ctx context.Context, eventID string) ([]calendar.Attendee, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT entity, uri, cn, cutype, role, partstat, rsvp, comment, folder, hidden, timestamp
		FROM attendees WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("load attendees of event %q: %w", eventID, err)
	}
	defer rows.Close()

	var out []calendar.Attendee
	for rows.Next() {
		var (
			a                      calendar.Attendee
			cutype, role, partstat string
			timestamp              int64
		)
		if err := rows.Scan(&a.Entity, &a.URI, &a.CN, &cutype, &role, &partstat,
			&a.RSVP, &a.Comment, &a.Folder, &a.Hidden, &timestamp); err != nil {
			return nil, fmt.Errorf("scan attendee of event %q: %w", eventID, err)
		}
		a.CUType = calendar.CUType(cutype)
		a.Role = calendar.Role(role)
		a.PartStat = calendar.ParticipationStatus(partstat)
		a.Timestamp = decodeTime(timestamp)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) findStoredAttendee(ctx context.Context, eventID string, target calendar.Attendee) (calendar.Attendee, bool, error) {
	stored, err := s.loadAttendees(ctx, eventID)
	if err != nil {
		return calendar.Attendee{}, false, err
	}
	for _, a := range stored {
		if a.Matches(target) {
			return a, true, nil
		}
	}
	return calendar.Attendee{}, false, nil
}

func (s *Store) requireEvent(ctx context.Context, eventID string) error {
	var one int
	err := s.q.QueryRowContext(ctx, `SELECT 1 FROM events WHERE id = ?`, eventID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("event %q: %w", eventID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("look up event %q: %w", eventID, err)
	}
	return nil
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func encodeDates(dates []time.Time) (string, error) {
	ns := make([]int64, 0, len(dates))
	for _, d := range dates {
		ns = append(ns, encodeTime(d))
	}
	encoded, err := json.Marshal(ns)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func decodeDates(encoded string) ([]time.Time, error) {
	if encoded == "" {
		return nil, nil
	}
	var ns []int64
	if err := json.Unmarshal([]byte(encoded), &ns); err != nil {
		return nil, err
	}
	if len(ns) == 0 {
		return nil, nil
	}
	out := make([]time.Time, 0, len(ns))
	for _, n := range ns {
		out = append(out, decodeTime(n))
	}
	return out, nil
}
