package tasks

import (
	"context"
	"strings"

	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/repositories"
)

// CreateList gets or creates the owner's list called name.
//
// An existing list with the same case-insensitive title is returned as an exact duplicate.
// Unless force is set, a near-duplicate list is returned instead of creating a new one.
func (e *ListEngine) CreateList(ctx context.Context, owner, name string, force bool) (models.CreationResult, error) {
	if err := requireOwner(owner); err != nil {
		return models.CreationResult{}, err
	}

	cleaned := strings.TrimSpace(name)
	logger := e.log(owner, "list", cleaned)
	if cleaned == "" {
		logger.Info("empty list name")
		return models.CreationResult{Title: name}, nil
	}

	var result models.CreationResult
	err := e.withTx(ctx, "create list", func(s store) error {
		existing, err := s.entities.FindList(ctx, owner, cleaned)
		if err == nil {
			logger.Info("list already exists", "id", existing.ID)
			result = exactDuplicate(existing)
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		if !force {
			match, err := e.findDuplicate(ctx, s, owner, cleaned, models.KindList, "")
			if err != nil {
				return err
			}
			if match != nil {
				logger.Info("duplicate detected", "existing", match.Title, "similarity", match.Similarity)
				result = e.nearDuplicate(match)
				return nil
			}
		}

		list := e.newEntity(owner, models.KindList, cleaned, "")
		if err := s.entities.Create(ctx, list); err != nil {
			if !isDuplicate(err) {
				return err
			}
			existing, ferr := s.entities.FindList(ctx, owner, cleaned)
			if ferr != nil {
				return ferr
			}
			logger.Info("list created concurrently", "id", existing.ID)
			result = exactDuplicate(existing)
			return nil
		}

		logger.Info("created list", "id", list.ID)
		result = models.CreationResult{ID: list.ID, Title: list.Title, Created: true}
		return nil
	})
	return result, err
}

// AddTask gets or creates a task titled title in the list called list.
func (e *ListEngine) AddTask(ctx context.Context, owner, list, title string, force bool) (models.CreationResult, error) {
	return e.AddEntity(ctx, owner, models.KindTask, list, title, force)
}

// AddEntity gets or creates a child of kind titled title in the list called list.
//
// The list is resolved by exact case-insensitive title; a missing list sets MissingParent.
// A child with the same title that is active is reported as an exact duplicate, and one
// that is done or deleted is revived. Otherwise, unless force is set, near-duplicates
// among active siblings of the same kind are reported before inserting.
func (e *ListEngine) AddEntity(ctx context.Context, owner string, kind models.Kind, list, title string, force bool) (models.CreationResult, error) {
	if err := requireOwner(owner); err != nil {
		return models.CreationResult{}, err
	}
	if err := requireChildKind(kind); err != nil {
		return models.CreationResult{}, err
	}

	cleaned := strings.TrimSpace(title)
	logger := e.log(owner, "list", list, "title", cleaned)
	if cleaned == "" {
		logger.Info("empty title")
		return models.CreationResult{Title: title}, nil
	}

	var result models.CreationResult
	err := e.withTx(ctx, "add "+kind.String(), func(s store) error {
		parent, err := s.entities.FindList(ctx, owner, list)
		if isNotFound(err) {
			logger.Info("cannot add to missing list")
			result = models.CreationResult{Title: cleaned, MissingParent: true}
			return nil
		}
		if err != nil {
			return err
		}

		if active, err := s.entities.FindChild(ctx, owner, parent.ID, cleaned, models.StateActive); err == nil {
			logger.Info("already exists", "id", active.ID)
			result = exactDuplicate(active)
			return nil
		} else if !isNotFound(err) {
			return err
		}

		revived, err := e.revive(ctx, s, owner, parent.ID, cleaned)
		if err != nil {
			return err
		}
		if revived != nil {
			logger.Info("restored existing entry", "id", revived.ID, "kind", revived.Kind)
			result = models.CreationResult{ID: revived.ID, Title: revived.Title, Restored: true}
			return nil
		}

		if !force {
			match, err := e.findDuplicate(ctx, s, owner, cleaned, kind, parent.ID)
			if err != nil {
				return err
			}
			if match != nil {
				logger.Info("duplicate detected", "existing", match.Title, "similarity", match.Similarity)
				result = e.nearDuplicate(match)
				return nil
			}
		}

		child := e.newEntity(owner, kind, cleaned, parent.ID)
		if err := s.entities.Create(ctx, child); err != nil {
			if !isDuplicate(err) {
				return err
			}
			existing, ferr := s.entities.FindChild(ctx, owner, parent.ID, cleaned, models.StateActive, models.StateDone)
			if ferr != nil {
				return ferr
			}
			logger.Info("created concurrently", "id", existing.ID)
			result = exactDuplicate(existing)
			return nil
		}

		logger.Info("created", "id", child.ID, "kind", kind)
		result = models.CreationResult{ID: child.ID, Title: child.Title, Created: true}
		return nil
	})
	return result, err
}

// revive reactivates the most recent done (preferred) or deleted child of parentID titled title.
func (e *ListEngine) revive(ctx context.Context, s store, owner, parentID, title string) (*models.Entity, error) {
	for _, state := range []models.State{models.StateDone, models.StateDeleted} {
		found, err := s.entities.List(ctx, repositories.Filter{
			Owner:    owner,
			Kinds:    models.ChildKinds,
			States:   []models.State{state},
			ParentID: parentID,
			TitleKey: matching.TitleKey(title),
			Order:    repositories.OrderRecentChange,
			Limit:    1,
		})
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			continue
		}

		child := found[0]
		restored, err := child.Lifecycle.Restore(e.clock())
		if err != nil {
			return nil, err
		}
		child.Lifecycle = restored
		if err := s.entities.Update(ctx, child); err != nil {
			return nil, err
		}
		return child, nil
	}
	return nil, nil
}

// FindSemanticDuplicate returns the active entity of kind most similar to title, scoped to
// parentID when it is set, or nil when no score exceeds the duplicate threshold.
func (e *ListEngine) FindSemanticDuplicate(ctx context.Context, owner, title string, kind models.Kind, parentID string) (*models.DuplicateMatch, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if strings.TrimSpace(title) == "" {
		return nil, nil
	}

	var match *models.DuplicateMatch
	err := e.withTx(ctx, "find duplicate", func(s store) error {
		var err error
		match, err = e.findDuplicate(ctx, s, owner, strings.TrimSpace(title), kind, parentID)
		return err
	})
	return match, err
}

func (e *ListEngine) findDuplicate(ctx context.Context, s store, owner, title string, kind models.Kind, parentID string) (*models.DuplicateMatch, error) {
	candidates, err := s.entities.List(ctx, repositories.Filter{
		Owner:    owner,
		Kinds:    []models.Kind{kind},
		States:   []models.State{models.StateActive},
		ParentID: parentID,
	})
	if err != nil {
		return nil, err
	}

	idx, score := matching.BestMatch(e.scorer, title, titlesOf(candidates), e.thresholds.Duplicate)
	if idx < 0 {
		return nil, nil
	}

	best := candidates[idx]
	e.log(owner).Info("found semantically similar", "candidate", title, "existing", best.Title, "similarity", score)
	return &models.DuplicateMatch{ID: best.ID, Title: best.Title, Similarity: score}, nil
}

func (e *ListEngine) nearDuplicate(m *models.DuplicateMatch) models.CreationResult {
	return models.CreationResult{
		ID:                m.ID,
		Title:             m.Title,
		DuplicateDetected: true,
		DuplicateID:       m.ID,
		DuplicateTitle:    m.Title,
		Similarity:        m.Similarity,
		AutoUse:           e.thresholds.ShouldAutoUse(m.Similarity),
	}
}

func exactDuplicate(existing *models.Entity) models.CreationResult {
	return models.CreationResult{
		ID:                existing.ID,
		Title:             existing.Title,
		DuplicateDetected: true,
		DuplicateID:       existing.ID,
		DuplicateTitle:    existing.Title,
		Similarity:        1.0,
		AutoUse:           true,
	}
}

// newEntity builds an active entity timestamped by the engine clock.
func (e *ListEngine) newEntity(owner string, kind models.Kind, title, parentID string) *models.Entity {
	ent := models.NewChild(owner, kind, title, parentID)
	now := e.clock()
	ent.CreatedAt, ent.UpdatedAt, ent.Lifecycle = now, now, models.Active(now)
	return ent
}

func titlesOf(entities []*models.Entity) []string {
	titles := make([]string, len(entities))
	for i, ent := range entities {
		titles[i] = ent.Title
	}
	return titles
}
