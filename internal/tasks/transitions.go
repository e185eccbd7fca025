package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/repositories"
)

type transition func(l models.Lifecycle, at time.Time) (models.Lifecycle, error)

func markDone(l models.Lifecycle, at time.Time) (models.Lifecycle, error) { return l.MarkDone(at) }
func remove(l models.Lifecycle, at time.Time) (models.Lifecycle, error)   { return l.Delete(at) }

// MarkTaskDone marks the active child title of list as done.
func (e *ListEngine) MarkTaskDone(ctx context.Context, owner, list, title string) (models.Outcome, error) {
	return e.transitionActive(ctx, "mark done", owner, list, byTitle(title), markDone)
}

// MarkTaskDoneFuzzy marks the active child of list that pattern resolves to as done.
func (e *ListEngine) MarkTaskDoneFuzzy(ctx context.Context, owner, list, pattern string) (models.Outcome, error) {
	return e.transitionActive(ctx, "mark done", owner, list, e.byPattern(pattern), markDone)
}

// MarkTaskDoneByIndex marks the index-th (1-based) active child of list as done.
func (e *ListEngine) MarkTaskDoneByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error) {
	return e.transitionActive(ctx, "mark done", owner, list, byIndex(index), markDone)
}

// DeleteTask soft-deletes the active child title of list.
//
// Done children are not candidates: deleting a done task reports not found.
func (e *ListEngine) DeleteTask(ctx context.Context, owner, list, title string) (models.Outcome, error) {
	return e.transitionActive(ctx, "delete task", owner, list, byTitle(title), remove)
}

// DeleteTaskFuzzy soft-deletes the active child of list that pattern resolves to.
func (e *ListEngine) DeleteTaskFuzzy(ctx context.Context, owner, list, pattern string) (models.Outcome, error) {
	return e.transitionActive(ctx, "delete task", owner, list, e.byPattern(pattern), remove)
}

// DeleteTaskByIndex soft-deletes the index-th (1-based) active child of list.
func (e *ListEngine) DeleteTaskByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error) {
	return e.transitionActive(ctx, "delete task", owner, list, byIndex(index), remove)
}

func (e *ListEngine) transitionActive(ctx context.Context, op, owner, listName string, pick selector, apply transition) (models.Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return models.Outcome{}, err
	}

	logger := e.log(owner, "op", op, "list", listName)
	var out models.Outcome
	err := e.withTx(ctx, op, func(s store) error {
		list, err := s.entities.FindList(ctx, owner, listName)
		if isNotFound(err) {
			logger.Info("list not found")
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		candidates, err := s.entities.Children(ctx, owner, list.ID, models.StateActive)
		if err != nil {
			return err
		}
		idx := pick(candidates)
		if idx < 0 {
			logger.Info("no matching task", "candidates", len(candidates))
			out = models.NotFoundOutcome()
			return nil
		}
		target := candidates[idx]

		next, err := apply(target.Lifecycle, e.clock())
		if errors.Is(err, models.ErrInvalidTransition) {
			logger.Info("transition not allowed", "id", target.ID, "err", err)
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		target.Lifecycle = next
		if err := s.entities.Update(ctx, target); err != nil {
			return err
		}

		logger.Info("applied", "id", target.ID, "title", target.Title, "state", next)
		out = models.AppliedOutcome(target)
		return nil
	})
	return out, err
}

// DeleteList soft-deletes the owner's list called name and archives its active and done
// children. Children that were already deleted stay deleted.
func (e *ListEngine) DeleteList(ctx context.Context, owner, name string) (models.Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return models.Outcome{}, err
	}

	logger := e.log(owner, "list", name)
	var out models.Outcome
	err := e.withTx(ctx, "delete list", func(s store) error {
		list, err := s.entities.FindList(ctx, owner, name)
		if isNotFound(err) {
			logger.Info("list not found")
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		now := e.clock()
		children, err := s.entities.Children(ctx, owner, list.ID, models.StateActive, models.StateDone)
		if err != nil {
			return err
		}
		for _, child := range children {
			archived, err := child.Lifecycle.Archive(list.Title, now)
			if err != nil {
				return err
			}
			child.Lifecycle = archived
			if err := s.entities.Update(ctx, child); err != nil {
				return err
			}
		}

		deleted, err := list.Lifecycle.Delete(now)
		if err != nil {
			return err
		}
		list.Lifecycle = deleted
		if err := s.entities.Update(ctx, list); err != nil {
			return err
		}

		logger.Info("deleted list", "id", list.ID, "archived", len(children))
		out = models.AppliedOutcome(list)
		return nil
	})
	return out, err
}

// RestoreTask returns the done, deleted or archived child title of list to active.
//
// Archived children whose origin list had the same name are candidates too and move to
// list when restored. When list does not exist but an archived child with that title came
// from it, the outcome carries a suggestion to create the list first.
func (e *ListEngine) RestoreTask(ctx context.Context, owner, list, title string) (models.Outcome, error) {
	return e.restore(ctx, owner, list, byTitle(title))
}

// RestoreTaskFuzzy restores the restorable child of list that pattern resolves to.
func (e *ListEngine) RestoreTaskFuzzy(ctx context.Context, owner, list, pattern string) (models.Outcome, error) {
	return e.restore(ctx, owner, list, e.byPattern(pattern))
}

// RestoreTaskByIndex restores the index-th (1-based) restorable child of list in creation order.
func (e *ListEngine) RestoreTaskByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error) {
	return e.restore(ctx, owner, list, byIndex(index))
}

func (e *ListEngine) restore(ctx context.Context, owner, listName string, pick selector) (models.Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return models.Outcome{}, err
	}

	logger := e.log(owner, "op", "restore", "list", listName)
	var out models.Outcome
	err := e.withTx(ctx, "restore task", func(s store) error {
		archived, err := e.archivedFrom(ctx, s, owner, listName)
		if err != nil {
			return err
		}

		list, err := s.entities.FindList(ctx, owner, listName)
		if isNotFound(err) {
			out = models.NotFoundOutcome()
			if idx := pick(archived); idx >= 0 {
				out.Suggestion = restoreSuggestion(listName, archived[idx].Title)
				logger.Info("origin list missing, suggesting a new list", "title", archived[idx].Title)
			} else {
				logger.Info("list not found")
			}
			return nil
		}
		if err != nil {
			return err
		}

		own, err := s.entities.Children(ctx, owner, list.ID, models.StateDone, models.StateDeleted, models.StateArchived)
		if err != nil {
			return err
		}
		candidates := mergeByCreation(own, archived)

		idx := pick(candidates)
		if idx < 0 {
			logger.Info("no restorable task", "candidates", len(candidates))
			out = models.NotFoundOutcome()
			return nil
		}
		target := candidates[idx]

		if other, err := s.entities.FindChild(ctx, owner, list.ID, target.Title, models.StateActive, models.StateDone); err == nil && other.ID != target.ID {
			logger.Info("title taken", "id", other.ID)
			out = models.ConflictOutcome(other)
			return nil
		} else if err != nil && !isNotFound(err) {
			return err
		}

		next, err := target.Lifecycle.Restore(e.clock())
		if errors.Is(err, models.ErrInvalidTransition) {
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		target.Lifecycle = next
		target.ParentID = list.ID
		if err := s.entities.Update(ctx, target); err != nil {
			if isDuplicate(err) {
				out = models.Outcome{ID: target.ID, Title: target.Title, Conflict: true}
				return nil
			}
			return err
		}

		logger.Info("restored", "id", target.ID, "title", target.Title)
		out = models.AppliedOutcome(target)
		return nil
	})
	return out, err
}

// archivedFrom returns the owner's archived children whose origin list is called listName.
func (e *ListEngine) archivedFrom(ctx context.Context, s store, owner, listName string) ([]*models.Entity, error) {
	archived, err := s.entities.List(ctx, repositories.Filter{
		Owner:  owner,
		Kinds:  models.ChildKinds,
		States: []models.State{models.StateArchived},
	})
	if err != nil {
		return nil, err
	}

	key := matching.TitleKey(listName)
	var out []*models.Entity
	for _, a := range archived {
		if matching.TitleKey(a.Lifecycle.ArchivedFrom()) == key {
			out = append(out, a)
		}
	}
	return out, nil
}

// mergeByCreation merges candidate sets, dropping repeated IDs, in creation order.
func mergeByCreation(sets ...[]*models.Entity) []*models.Entity {
	seen := map[string]bool{}
	var out []*models.Entity
	for _, set := range sets {
		for _, ent := range set {
			if seen[ent.ID] {
				continue
			}
			seen[ent.ID] = true
			out = append(out, ent)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

func restoreSuggestion(list, title string) string {
	return fmt.Sprintf("Список «%s» удалён. Создай новый список и скажи, куда вернуть задачу «%s».", list, title)
}
