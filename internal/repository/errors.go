// Package repository holds the MySQL data access code.  Every write that the
// booking flow depends on is a single conditional statement; callers learn
// whether the condition held from the rows-affected count, never from a
// prior read.
//
// The sentinel values below let the service layer distinguish failure
// scenarios without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoChange is returned when a conditional UPDATE matched no row because
// the guarded state no longer holds (e.g. the status moved underneath us).
var ErrNoChange = errors.New("no change")

// ErrConflict is returned when an update is refused because of dependent
// state, such as closing a room that still has scheduled screenings.
var ErrConflict = errors.New("conflict")

// ErrDuplicate is returned when an insert violates a unique key.
var ErrDuplicate = errors.New("duplicate key")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// translate maps driver errors onto the sentinels above.  Unknown errors are
// returned untouched.
func translate(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
