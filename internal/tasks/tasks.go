// package tasks implements the entity store operations of the list manager.
//
// The core abstraction is Engine, which creates, resolves, mutates and lists entities on behalf of one owner at a time.
package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/repositories"
	"github.com/desertthunder/aura/internal/shared"
)

// DefaultHistoryLimit is the number of rows returned by the history views when no limit is given.
const DefaultHistoryLimit = 15

// Engine defines the operations of the entity store.
type Engine interface {
	// CreateList gets or creates the owner's list called name.
	CreateList(ctx context.Context, owner, name string, force bool) (models.CreationResult, error)
	// AddTask gets or creates a task in the list called list.
	AddTask(ctx context.Context, owner, list, title string, force bool) (models.CreationResult, error)
	// AddEntity gets or creates a child of any child kind in the list called list.
	AddEntity(ctx context.Context, owner string, kind models.Kind, list, title string, force bool) (models.CreationResult, error)

	RenameList(ctx context.Context, owner, oldName, newName string) (models.Outcome, error)
	UpdateTask(ctx context.Context, owner, list, oldTitle, newTitle string) (models.Outcome, error)
	UpdateTaskByIndex(ctx context.Context, owner, list string, index int, newTitle string) (models.Outcome, error)
	MoveEntity(ctx context.Context, owner string, kind models.Kind, title, fromList, toList string, fuzzy bool) (models.Outcome, error)
	ConvertEntity(ctx context.Context, owner, list, title string, newKind models.Kind) (models.Outcome, error)

	MarkTaskDone(ctx context.Context, owner, list, title string) (models.Outcome, error)
	MarkTaskDoneFuzzy(ctx context.Context, owner, list, pattern string) (models.Outcome, error)
	MarkTaskDoneByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error)
	DeleteTask(ctx context.Context, owner, list, title string) (models.Outcome, error)
	DeleteTaskFuzzy(ctx context.Context, owner, list, pattern string) (models.Outcome, error)
	DeleteTaskByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error)
	DeleteList(ctx context.Context, owner, name string) (models.Outcome, error)
	RestoreTask(ctx context.Context, owner, list, title string) (models.Outcome, error)
	RestoreTaskFuzzy(ctx context.Context, owner, list, pattern string) (models.Outcome, error)
	RestoreTaskByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error)

	GetAllLists(ctx context.Context, owner string) ([]*models.Entity, error)
	GetListTasks(ctx context.Context, owner, list string) ([]models.TaskItem, error)
	GetAllTasks(ctx context.Context, owner string) ([]models.TaskItem, error)
	SearchTasks(ctx context.Context, owner, pattern string) ([]models.TaskItem, error)
	GetCompletedTasks(ctx context.Context, owner string, limit int) ([]models.TaskItem, error)
	GetDeletedTasks(ctx context.Context, owner string, limit int) ([]models.TaskItem, error)
	FindSemanticDuplicate(ctx context.Context, owner, title string, kind models.Kind, parentID string) (*models.DuplicateMatch, error)
	ExportList(ctx context.Context, owner, name string) (*models.ListExport, error)

	GetUserProfile(ctx context.Context, owner string) (*models.Profile, error)
	UpdateUserProfile(ctx context.Context, owner string, fields map[string]string) (*models.Profile, error)
}

// ListEngine implements [Engine] over SQLite.
type ListEngine struct {
	db         *sql.DB
	entities   *repositories.EntityRepository
	profiles   *repositories.ProfileRepository
	scorer     matching.SimilarityScorer
	resolver   *matching.Resolver
	thresholds matching.Thresholds
	logger     *log.Logger
	now        func() time.Time
}

// Option configures a [ListEngine].
type Option func(*ListEngine)

// WithNormalizer swaps the text normalizer used by the default scorer and the resolver.
func WithNormalizer(n matching.TextNormalizer) Option {
	return func(e *ListEngine) {
		e.scorer = matching.NewJaccard(n)
		e.resolver = matching.NewResolver(n)
	}
}

// WithScorer swaps the near-duplicate scorer.
func WithScorer(s matching.SimilarityScorer) Option {
	return func(e *ListEngine) { e.scorer = s }
}

// WithThresholds sets the duplicate and auto-use thresholds.
func WithThresholds(t matching.Thresholds) Option {
	return func(e *ListEngine) { e.thresholds = t }
}

// WithLogger sets the logger used for operation logs.
func WithLogger(l *log.Logger) Option {
	return func(e *ListEngine) { e.logger = l }
}

// WithClock sets the time source for lifecycle and updated_at timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *ListEngine) { e.now = now }
}

// NewListEngine creates a new ListEngine over db, which must have migrations applied.
func NewListEngine(db *sql.DB, opts ...Option) *ListEngine {
	e := &ListEngine{
		db:         db,
		entities:   repositories.NewEntityRepository(db),
		profiles:   repositories.NewProfileRepository(db),
		scorer:     matching.NewJaccard(nil),
		resolver:   matching.NewResolver(nil),
		thresholds: matching.DefaultThresholds(),
		logger:     shared.NewLogger(nil),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.entities = e.entities.WithClock(e.now)
	e.profiles = e.profiles.WithClock(e.now)
	return e
}

// store is the set of repositories bound to one transaction.
type store struct {
	entities *repositories.EntityRepository
	profiles *repositories.ProfileRepository
}

// withTx runs fn inside a single transaction, committing when fn returns nil.
func (e *ListEngine) withTx(ctx context.Context, op string, fn func(s store) error) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return shared.NewStorageError(op, err)
	}
	defer tx.Rollback()

	if err := fn(store{entities: e.entities.WithTx(tx), profiles: e.profiles.WithTx(tx)}); err != nil {
		if isStorage(err) {
			e.logger.Error("storage failure", "op", op, "err", err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		e.logger.Error("commit failed", "op", op, "err", err)
		return shared.NewStorageError(op, err)
	}
	return nil
}

func (e *ListEngine) log(owner string, kv ...any) *log.Logger {
	return shared.WithLogger(e.logger, append([]any{"owner", owner}, kv...)...)
}

func (e *ListEngine) clock() time.Time {
	return e.now().UTC()
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%w: owner", shared.ErrMissingArgument)
	}
	return nil
}

func requireChildKind(kind models.Kind) error {
	if !kind.IsChild() {
		return fmt.Errorf("%w: %q is not a list item kind", shared.ErrInvalidArgument, kind)
	}
	return nil
}
