package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/scry-scheduler/internal/store"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MapError maps a database error to a store error, keeping the original in
// the chain. notFound and duplicate, when non-nil, replace the generic
// store.ErrNotFound and store.ErrDuplicate.
func MapError(err error, notFound, duplicate error) error {
	if err == nil {
		return nil
	}
	if notFound == nil {
		notFound = store.ErrNotFound
	}
	if duplicate == nil {
		duplicate = store.ErrDuplicate
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", notFound, err)
	}

	if IsUniqueViolation(err) {
		return fmt.Errorf("%w: %v", duplicate, err)
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}
	return err
}

// IsUniqueViolation reports whether err is a primary key or unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		// Connections without extended result codes only report the base code.
		return strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
