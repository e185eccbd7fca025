package shared

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// dsnOptions makes every transaction take the write lock up front (BEGIN IMMEDIATE) so a
// duplicate check and the insert that follows it cannot interleave with another writer.
const dsnOptions = "_txlock=immediate&_busy_timeout=5000&_foreign_keys=on"

// NewDatabase opens a connection to a SQLite database at the specified path.
// The path can be ":memory:" for an in-memory database.
// Returns an open database connection or an error if connection fails.
func NewDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so pin the pool to one.
	if IsMemoryPath(path) {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// ConfigureDatabase sets connection pool settings for the database.
// Recommended for production use to limit connections and improve performance.
// Non-positive values leave the driver defaults in place.
func ConfigureDatabase(db *sql.DB, maxOpenConns, maxIdleConns int) {
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
}

// IsMemoryPath reports whether path names an in-memory SQLite database.
func IsMemoryPath(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + dsnOptions
	}
	return path + "?" + dsnOptions
}
