package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
)

// Order selects the sort order of [EntityRepository.List].
type Order int

const (
	// OrderCreated sorts by creation time, then sequence. Ordinals are positions in this order.
	OrderCreated Order = iota
	// OrderTitle sorts by case-folded title.
	OrderTitle
	// OrderRecentChange sorts by the last lifecycle change, newest first.
	OrderRecentChange
)

// Filter narrows [EntityRepository.List]. Zero-valued fields do not filter.
type Filter struct {
	Owner    string
	Kinds    []models.Kind
	States   []models.State
	ParentID string
	TitleKey string
	Order    Order
	Limit    int
}

const entityColumns = `id, owner, kind, title, content, parent_id, sequence, state, archived_from, state_changed_at, created_at, updated_at`

// EntityRepository persists [models.Entity] rows.
type EntityRepository struct {
	db  DBTX
	now func() time.Time
}

// NewEntityRepository creates a new [EntityRepository] with the given connection or transaction.
func NewEntityRepository(db DBTX) *EntityRepository {
	return &EntityRepository{db: db, now: time.Now}
}

// WithTx returns a repository bound to tx that shares r's clock.
func (r *EntityRepository) WithTx(tx *sql.Tx) *EntityRepository {
	return &EntityRepository{db: tx, now: r.now}
}

// WithClock returns a copy of r that stamps updated_at from now.
func (r *EntityRepository) WithClock(now func() time.Time) *EntityRepository {
	return &EntityRepository{db: r.db, now: now}
}

// Create inserts e with a generated ID and sequence.
//
// Returns [ErrDuplicate] when the title is already held by a live sibling or list.
func (r *EntityRepository) Create(ctx context.Context, e *models.Entity) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "entities")
	if err != nil {
		return shared.NewStorageError("generate sequence", err)
	}

	e.ID = shared.GenerateID()
	e.Sequence = sequence

	query := `
		INSERT INTO entities (
			id, owner, kind, title, title_key, content, parent_id, sequence,
			state, archived_from, state_changed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		e.ID, e.Owner, string(e.Kind), e.Title, titleKey(e), nullString(e.Content), nullString(e.ParentID), e.Sequence,
		string(e.Lifecycle.State()), nullString(e.Lifecycle.ArchivedFrom()), nullTime(e.Lifecycle.ChangedAt()),
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		e.ID = ""
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicate, e.Title)
		}
		return shared.NewStorageError("insert entity", err)
	}

	return nil
}

// Get retrieves an owner's entity by ID in any lifecycle state.
func (r *EntityRepository) Get(ctx context.Context, owner, id string) (*models.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE owner = ? AND id = ?`
	return r.scanOne(r.db.QueryRowContext(ctx, query, owner, id), "get entity")
}

// FindList returns the owner's live list whose title matches title case-insensitively.
func (r *EntityRepository) FindList(ctx context.Context, owner, title string) (*models.Entity, error) {
	lists, err := r.List(ctx, Filter{
		Owner:    owner,
		Kinds:    []models.Kind{models.KindList},
		States:   []models.State{models.StateActive},
		TitleKey: matching.TitleKey(title),
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, fmt.Errorf("%w: list %q", ErrNotFound, title)
	}
	return lists[0], nil
}

// FindChild returns the child of parentID whose title matches title case-insensitively,
// restricted to the given states (any state when none are given).
func (r *EntityRepository) FindChild(ctx context.Context, owner, parentID, title string, states ...models.State) (*models.Entity, error) {
	children, err := r.List(ctx, Filter{
		Owner:    owner,
		Kinds:    models.ChildKinds,
		States:   states,
		ParentID: parentID,
		TitleKey: matching.TitleKey(title),
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(children) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, title)
	}
	return children[0], nil
}

// Children returns the child entities of parentID in creation order.
func (r *EntityRepository) Children(ctx context.Context, owner, parentID string, states ...models.State) ([]*models.Entity, error) {
	return r.List(ctx, Filter{
		Owner:    owner,
		Kinds:    models.ChildKinds,
		States:   states,
		ParentID: parentID,
	})
}

// List retrieves the entities matching f.
func (r *EntityRepository) List(ctx context.Context, f Filter) ([]*models.Entity, error) {
	query, args := buildListQuery(`SELECT `+entityColumns+` FROM entities`, f)

	switch f.Order {
	case OrderTitle:
		query += " ORDER BY title_key ASC, created_at ASC, sequence ASC"
	case OrderRecentChange:
		query += " ORDER BY COALESCE(state_changed_at, updated_at) DESC, sequence DESC"
	default:
		query += " ORDER BY created_at ASC, sequence ASC"
	}

	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, shared.NewStorageError("query entities", err)
	}
	defer rows.Close()

	var entities []*models.Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, shared.NewStorageError("scan entity", err)
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, shared.NewStorageError("iterate entities", err)
	}

	return entities, nil
}

// Count returns the number of entities matching f. Order and Limit are ignored.
func (r *EntityRepository) Count(ctx context.Context, f Filter) (int, error) {
	query, args := buildListQuery(`SELECT COUNT(*) FROM entities`, f)

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, shared.NewStorageError("count entities", err)
	}
	return n, nil
}

// Update writes every mutable column of e and sets e.UpdatedAt from the repository clock.
//
// Returns [ErrDuplicate] when the new title, parent or state collides with a live sibling.
func (r *EntityRepository) Update(ctx context.Context, e *models.Entity) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := r.now().UTC()

	query := `
		UPDATE entities
		SET kind = ?, title = ?, title_key = ?, content = ?, parent_id = ?,
			state = ?, archived_from = ?, state_changed_at = ?, updated_at = ?
		WHERE owner = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		string(e.Kind), e.Title, titleKey(e), nullString(e.Content), nullString(e.ParentID),
		string(e.Lifecycle.State()), nullString(e.Lifecycle.ArchivedFrom()), nullTime(e.Lifecycle.ChangedAt()), now,
		e.Owner, e.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %q", ErrDuplicate, e.Title)
		}
		return shared.NewStorageError("update entity", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return shared.NewStorageError("update entity", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, e.ID)
	}

	e.UpdatedAt = now
	return nil
}

func buildListQuery(base string, f Filter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.Owner != "" {
		clauses = append(clauses, "owner = ?")
		args = append(args, f.Owner)
	}

	if len(f.Kinds) > 0 {
		clauses = append(clauses, "kind IN ("+placeholders(len(f.Kinds))+")")
		for _, k := range f.Kinds {
			args = append(args, string(k))
		}
	}

	if len(f.States) > 0 {
		clauses = append(clauses, "state IN ("+placeholders(len(f.States))+")")
		for _, s := range f.States {
			args = append(args, string(s))
		}
	}

	if f.ParentID != "" {
		clauses = append(clauses, "parent_id = ?")
		args = append(args, f.ParentID)
	}

	if f.TitleKey != "" {
		clauses = append(clauses, "title_key = ?")
		args = append(args, f.TitleKey)
	}

	if len(clauses) > 0 {
		base += " WHERE " + strings.Join(clauses, " AND ")
	}
	return base, args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *EntityRepository) scanOne(row *sql.Row, op string) (*models.Entity, error) {
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, shared.NewStorageError(op, err)
	}
	return e, nil
}

func scanEntity(row rowScanner) (*models.Entity, error) {
	var (
		e              models.Entity
		kind, state    string
		content        sql.NullString
		parentID       sql.NullString
		archivedFrom   sql.NullString
		stateChangedAt sql.NullTime
	)

	err := row.Scan(
		&e.ID, &e.Owner, &kind, &e.Title, &content, &parentID, &e.Sequence,
		&state, &archivedFrom, &stateChangedAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	changedAt := e.CreatedAt
	if stateChangedAt.Valid {
		changedAt = stateChangedAt.Time
	}

	lifecycle, err := models.RestoreLifecycle(models.State(state), archivedFrom.String, changedAt)
	if err != nil {
		return nil, err
	}

	e.Kind = models.Kind(kind)
	e.Content = content.String
	e.ParentID = parentID.String
	e.Lifecycle = lifecycle
	return &e, nil
}

func titleKey(e *models.Entity) string {
	return matching.TitleKey(e.Title)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
