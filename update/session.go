package update

import "github.com/meridiancal/groupcal/calendar"

// Folder is the calendar folder view an update is performed in.
type Folder struct {
	ID string
	// Owner is the entity holding the folder; 0 for public folders.
	Owner int
	// Public marks folders not bound to one user's personal calendar.
	Public bool
}

// Session is the acting principal of one update request.
type Session struct {
	UserID int
	Folder Folder
}

// ActsAsOrganizer reports whether the session user is the event's
// (internal) organizer.
func (s *Session) ActsAsOrganizer(event *calendar.Event) bool {
	return event.Organizer != nil && event.Organizer.Entity != 0 && event.Organizer.Entity == s.UserID
}

// PermissionChecker gates the engine's mutating sub-steps. Each check is
// consulted at the first sub-step that needs it, not globally up front.
type PermissionChecker interface {
	// MayWrite allows mutating the event's own fields and child
	// aggregates other than attendees.
	MayWrite(session *Session, event *calendar.Event) bool
	// MayDelete allows deleting the event.
	MayDelete(session *Session, event *calendar.Event) bool
	// MayManageAttendees allows adding or removing attendees other than
	// the session user themselves.
	MayManageAttendees(session *Session, event *calendar.Event) bool
}

// AllowAll permits every operation. It is the default when no checker is
// configured; embedders enforcing folder permissions supply their own.
type AllowAll struct{}

func (AllowAll) MayWrite(*Session, *calendar.Event) bool           { return true }
func (AllowAll) MayDelete(*Session, *calendar.Event) bool          { return true }
func (AllowAll) MayManageAttendees(*Session, *calendar.Event) bool { return true }
