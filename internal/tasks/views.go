package tasks

import (
	"context"
	"strings"

	"github.com/desertthunder/aura/internal/matching"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/repositories"
)

// GetAllLists returns the owner's live lists in title order.
func (e *ListEngine) GetAllLists(ctx context.Context, owner string) ([]*models.Entity, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	var lists []*models.Entity
	err := e.withTx(ctx, "get lists", func(s store) error {
		var err error
		lists, err = liveLists(ctx, s, owner)
		return err
	})
	return lists, err
}

// GetListTasks returns the active children of list in creation order, numbered from 1.
// A missing list yields no rows.
func (e *ListEngine) GetListTasks(ctx context.Context, owner, list string) ([]models.TaskItem, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	var items []models.TaskItem
	err := e.withTx(ctx, "get list tasks", func(s store) error {
		parent, err := s.entities.FindList(ctx, owner, list)
		if isNotFound(err) {
			e.log(owner, "list", list).Info("list not found")
			return nil
		}
		if err != nil {
			return err
		}

		children, err := s.entities.Children(ctx, owner, parent.ID, models.StateActive)
		if err != nil {
			return err
		}
		items = numbered(children, parent.Title)
		return nil
	})
	return items, err
}

// GetAllTasks returns the active children of every live list, grouped by list in title
// order and numbered within each list.
func (e *ListEngine) GetAllTasks(ctx context.Context, owner string) ([]models.TaskItem, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	var items []models.TaskItem
	err := e.withTx(ctx, "get all tasks", func(s store) error {
		lists, err := liveLists(ctx, s, owner)
		if err != nil {
			return err
		}
		for _, list := range lists {
			children, err := s.entities.Children(ctx, owner, list.ID, models.StateActive)
			if err != nil {
				return err
			}
			items = append(items, numbered(children, list.Title)...)
		}
		return nil
	})
	return items, err
}

// SearchTasks returns active children of live lists whose title contains the cleaned
// pattern, case-insensitively, in creation order.
func (e *ListEngine) SearchTasks(ctx context.Context, owner, pattern string) ([]models.TaskItem, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	needle := matching.TitleKey(matching.CleanPattern(pattern))
	if needle == "" {
		e.log(owner).Info("empty search pattern")
		return nil, nil
	}

	var items []models.TaskItem
	err := e.withTx(ctx, "search tasks", func(s store) error {
		lists, err := liveLists(ctx, s, owner)
		if err != nil {
			return err
		}

		var found []*models.Entity
		titles := map[string]string{}
		for _, list := range lists {
			children, err := s.entities.Children(ctx, owner, list.ID, models.StateActive)
			if err != nil {
				return err
			}
			for _, c := range children {
				if strings.Contains(matching.TitleKey(c.Title), needle) {
					found = append(found, c)
					titles[c.ID] = list.Title
				}
			}
		}

		for _, c := range mergeByCreation(found) {
			items = append(items, item(c, titles[c.ID]))
		}
		return nil
	})

	e.log(owner).Info("searched tasks", "pattern", needle, "found", len(items))
	return items, err
}

// GetCompletedTasks returns done and archived children, most recent change first.
// Archived rows are labeled with their origin list. A limit <= 0 uses [DefaultHistoryLimit].
func (e *ListEngine) GetCompletedTasks(ctx context.Context, owner string, limit int) ([]models.TaskItem, error) {
	return e.history(ctx, "get completed tasks", owner, limit, models.StateDone, models.StateArchived)
}

// GetDeletedTasks returns deleted children, most recent deletion first.
// A limit <= 0 uses [DefaultHistoryLimit].
func (e *ListEngine) GetDeletedTasks(ctx context.Context, owner string, limit int) ([]models.TaskItem, error) {
	return e.history(ctx, "get deleted tasks", owner, limit, models.StateDeleted)
}

func (e *ListEngine) history(ctx context.Context, op, owner string, limit int, states ...models.State) ([]models.TaskItem, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var items []models.TaskItem
	err := e.withTx(ctx, op, func(s store) error {
		rows, err := s.entities.List(ctx, repositories.Filter{
			Owner:  owner,
			Kinds:  models.ChildKinds,
			States: states,
			Order:  repositories.OrderRecentChange,
			Limit:  limit,
		})
		if err != nil {
			return err
		}

		parents := map[string]string{}
		for _, row := range rows {
			list, ok := parents[row.ParentID]
			if !ok {
				parent, err := s.entities.Get(ctx, owner, row.ParentID)
				if err != nil && !isNotFound(err) {
					return err
				}
				if parent != nil {
					list = parent.Title
				}
				parents[row.ParentID] = list
			}
			items = append(items, item(row, list))
		}
		return nil
	})

	e.log(owner).Info("retrieved history", "op", op, "count", len(items))
	return items, err
}

func liveLists(ctx context.Context, s store, owner string) ([]*models.Entity, error) {
	return s.entities.List(ctx, repositories.Filter{
		Owner:  owner,
		Kinds:  []models.Kind{models.KindList},
		States: []models.State{models.StateActive},
		Order:  repositories.OrderTitle,
	})
}

func numbered(children []*models.Entity, list string) []models.TaskItem {
	items := make([]models.TaskItem, len(children))
	for i, c := range children {
		items[i] = item(c, list)
		items[i].Index = i + 1
	}
	return items
}

func item(e *models.Entity, list string) models.TaskItem {
	it := models.TaskItem{
		ID:        e.ID,
		Title:     e.Title,
		Kind:      e.Kind,
		List:      list,
		Label:     list,
		State:     e.Lifecycle.State(),
		ChangedAt: e.Lifecycle.ChangedAt(),
	}
	if e.Lifecycle.IsArchived() {
		it.List = e.Lifecycle.ArchivedFrom()
		it.Label = models.ArchiveLabel
		if it.List != "" {
			it.Label += " • " + it.List
		}
	}
	return it
}
