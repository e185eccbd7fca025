// package repositories provides persistence layer implementations for the entity store.
//
// Repositories run against a [DBTX], so the same code serves a plain connection and
// a transaction opened by the caller.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when no row matches.
	ErrNotFound = errors.New("entity not found")
	// ErrDuplicate is returned when a write would break a title uniqueness index.
	ErrDuplicate = errors.New("duplicate entity title")
)

// DBTX is the query surface shared by [sql.DB] and [sql.Tx].
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// NextSequence increments and returns the next sequence number for the given table.
//
// It runs on db as given; callers that need the increment to be atomic with an insert
// pass the transaction that performs the insert.
func NextSequence(ctx context.Context, db DBTX, table string) (int, error) {
	sequenceTable := table + "_sequence"

	_, err := db.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET value = value + 1 WHERE id = 1", sequenceTable))
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}

	var sequence int
	err = db.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE id = 1", sequenceTable)).Scan(&sequence)
	if err != nil {
		return 0, fmt.Errorf("failed to get sequence value: %w", err)
	}

	return sequence, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
