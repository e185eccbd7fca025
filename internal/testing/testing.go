// package testing contains shared testing utilities
package testing

import (
	"database/sql"
	"errors"
	"io"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
)

// NewTestDB opens an in-memory SQLite database with migrations applied and closes it
// when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// Clock is a manual time source that advances one second per call.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock creates a [Clock] starting at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current time and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(time.Second)
	return now
}

// SampleExport returns a list export with two items, one of them done.
func SampleExport() *models.ListExport {
	at := time.Date(2025, 10, 12, 9, 0, 0, 0, time.UTC)
	return &models.ListExport{
		ID:        "list123",
		Title:     "Покупки",
		CreatedAt: at,
		Items: []models.TaskItem{
			{Index: 1, ID: "item1", Title: "Купить хлеб", Kind: models.KindTask, List: "Покупки", Label: "Покупки", State: models.StateActive, ChangedAt: at},
			{Index: 2, ID: "item2", Title: "Молоко, 2 литра", Kind: models.KindNote, List: "Покупки", Label: "Покупки", State: models.StateDone, ChangedAt: at},
		},
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
