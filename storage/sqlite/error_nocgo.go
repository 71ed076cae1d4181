//go:build !cgo

package sqlite

// Without cgo the go-sqlite3 driver is a stub that cannot return
// sqlite3.Error values, so no error can be a constraint violation.
func isConstraintError(err error) bool {
	return false
}
