package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/shared"
)

// RenameList renames the owner's list oldName to newName.
//
// A different live list already called newName makes the outcome a conflict.
func (e *ListEngine) RenameList(ctx context.Context, owner, oldName, newName string) (models.Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return models.Outcome{}, err
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return models.Outcome{}, fmt.Errorf("%w: new list name", shared.ErrMissingArgument)
	}

	logger := e.log(owner, "list", oldName, "new", newName)
	var out models.Outcome
	err := e.withTx(ctx, "rename list", func(s store) error {
		list, err := s.entities.FindList(ctx, owner, oldName)
		if isNotFound(err) {
			logger.Info("list not found")
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		if other, err := s.entities.FindList(ctx, owner, newName); err == nil && other.ID != list.ID {
			logger.Info("list name taken", "id", other.ID)
			out = models.ConflictOutcome(other)
			return nil
		} else if err != nil && !isNotFound(err) {
			return err
		}

		previous := list.Title
		list.Title = newName
		if err := s.entities.Update(ctx, list); err != nil {
			if isDuplicate(err) {
				out = models.Outcome{Title: newName, Conflict: true}
				return nil
			}
			return err
		}

		logger.Info("renamed list", "id", list.ID)
		out = models.AppliedOutcome(list)
		out.PreviousTitle = previous
		return nil
	})
	return out, err
}

// UpdateTask retitles the active child oldTitle of list to newTitle.
func (e *ListEngine) UpdateTask(ctx context.Context, owner, list, oldTitle, newTitle string) (models.Outcome, error) {
	return e.retitle(ctx, owner, list, byTitle(oldTitle), newTitle)
}

// UpdateTaskByIndex retitles the index-th (1-based) active child of list to newTitle.
func (e *ListEngine) UpdateTaskByIndex(ctx context.Context, owner, list string, index int, newTitle string) (models.Outcome, error) {
	return e.retitle(ctx, owner, list, byIndex(index), newTitle)
}

func (e *ListEngine) retitle(ctx context.Context, owner, listName string, pick selector, newTitle string) (models.Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return models.Outcome{}, err
	}
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return models.Outcome{}, fmt.Errorf("%w: new title", shared.ErrMissingArgument)
	}

	logger := e.log(owner, "list", listName, "new", newTitle)
	var out models.Outcome
	err := e.withTx(ctx, "update task", func(s store) error {
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

		if other, err := s.entities.FindChild(ctx, owner, list.ID, newTitle, models.StateActive, models.StateDone); err == nil && other.ID != target.ID {
			logger.Info("title taken", "id", other.ID)
			out = models.ConflictOutcome(other)
			return nil
		} else if err != nil && !isNotFound(err) {
			return err
		}

		previous := target.Title
		target.Title = newTitle
		if err := s.entities.Update(ctx, target); err != nil {
			if isDuplicate(err) {
				out = models.Outcome{Title: newTitle, Conflict: true}
				return nil
			}
			return err
		}

		logger.Info("updated task", "id", target.ID, "previous", previous)
		out = models.AppliedOutcome(target)
		out.PreviousTitle = previous
		return nil
	})
	return out, err
}

// MoveEntity reparents the active child of kind matching title from fromList to toList.
//
// With fuzzy set, title is resolved as a pattern. A missing toList is created, reusing a
// near-duplicate list when one exists.
func (e *ListEngine) MoveEntity(ctx context.Context, owner string, kind models.Kind, title, fromList, toList string, fuzzy bool) (models.Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return models.Outcome{}, err
	}
	if err := requireChildKind(kind); err != nil {
		return models.Outcome{}, err
	}
	toList = strings.TrimSpace(toList)
	if toList == "" {
		return models.Outcome{}, fmt.Errorf("%w: target list", shared.ErrMissingArgument)
	}

	pick := byTitle(title)
	if fuzzy {
		pick = e.byPattern(title)
	}

	logger := e.log(owner, "from", fromList, "to", toList, "title", title)
	var out models.Outcome
	err := e.withTx(ctx, "move entity", func(s store) error {
		from, err := s.entities.FindList(ctx, owner, fromList)
		if isNotFound(err) {
			logger.Info("source list not found")
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		children, err := s.entities.Children(ctx, owner, from.ID, models.StateActive)
		if err != nil {
			return err
		}
		candidates := ofKind(kind, children)
		idx := pick(candidates)
		if idx < 0 {
			logger.Info("nothing to move", "kind", kind)
			out = models.NotFoundOutcome()
			return nil
		}
		target := candidates[idx]

		to, err := e.targetList(ctx, s, owner, toList)
		if err != nil {
			return err
		}
		if to.ID == from.ID {
			out = models.AppliedOutcome(target)
			return nil
		}

		if other, err := s.entities.FindChild(ctx, owner, to.ID, target.Title, models.StateActive, models.StateDone); err == nil {
			logger.Info("title taken in target list", "id", other.ID)
			out = models.ConflictOutcome(other)
			return nil
		} else if !isNotFound(err) {
			return err
		}

		target.ParentID = to.ID
		if err := s.entities.Update(ctx, target); err != nil {
			if isDuplicate(err) {
				out = models.Outcome{ID: target.ID, Title: target.Title, Conflict: true}
				return nil
			}
			return err
		}

		logger.Info("moved", "id", target.ID, "target", to.Title)
		out = models.AppliedOutcome(target)
		return nil
	})
	return out, err
}

// targetList finds the list called name, falls back to a near-duplicate, and creates it otherwise.
func (e *ListEngine) targetList(ctx context.Context, s store, owner, name string) (*models.Entity, error) {
	list, err := s.entities.FindList(ctx, owner, name)
	if err == nil || !isNotFound(err) {
		return list, err
	}

	match, err := e.findDuplicate(ctx, s, owner, name, models.KindList, "")
	if err != nil {
		return nil, err
	}
	if match != nil {
		return s.entities.Get(ctx, owner, match.ID)
	}

	list = e.newEntity(owner, models.KindList, name, "")
	if err := s.entities.Create(ctx, list); err != nil {
		return nil, err
	}
	e.log(owner, "list", name).Info("created list for move", "id", list.ID)
	return list, nil
}

// ConvertEntity changes the kind of the active child title in list to newKind.
func (e *ListEngine) ConvertEntity(ctx context.Context, owner, list, title string, newKind models.Kind) (models.Outcome, error) {
	if err := requireOwner(owner); err != nil {
		return models.Outcome{}, err
	}
	if err := requireChildKind(newKind); err != nil {
		return models.Outcome{}, err
	}

	logger := e.log(owner, "list", list, "title", title, "kind", newKind)
	var out models.Outcome
	err := e.withTx(ctx, "convert entity", func(s store) error {
		parent, err := s.entities.FindList(ctx, owner, list)
		if isNotFound(err) {
			logger.Info("list not found")
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		target, err := s.entities.FindChild(ctx, owner, parent.ID, title, models.StateActive)
		if isNotFound(err) {
			logger.Info("nothing to convert")
			out = models.NotFoundOutcome()
			return nil
		}
		if err != nil {
			return err
		}

		previous := target.Kind
		target.Kind = newKind
		if err := s.entities.Update(ctx, target); err != nil {
			return err
		}

		logger.Info("converted", "id", target.ID, "from", previous)
		out = models.AppliedOutcome(target)
		return nil
	})
	return out, err
}
