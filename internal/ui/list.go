package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/aura/internal/models"
)

var (
	_ list.Item = listItem{}
	_ list.Item = taskItem{}
)

// listItem wraps a list [models.Entity] to implement [list.Item].
type listItem struct {
	list *models.Entity
}

func (i listItem) FilterValue() string { return i.list.Title }
func (i listItem) Title() string       { return i.list.Title }
func (i listItem) Description() string {
	return fmt.Sprintf("created %s", i.list.CreatedAt.Local().Format("2006-01-02 15:04"))
}

// taskItem wraps [models.TaskItem] to implement [list.Item].
type taskItem struct {
	item models.TaskItem
}

func (i taskItem) FilterValue() string { return i.item.Title }
func (i taskItem) Title() string       { return fmt.Sprintf("%d. %s", i.item.Index, i.item.Title) }
func (i taskItem) Description() string {
	if i.item.Kind != "" && i.item.Kind != models.KindTask {
		return fmt.Sprintf("%s • %s", i.item.Kind, i.item.State)
	}
	return string(i.item.State)
}

func listItems(lists []*models.Entity) []list.Item {
	items := make([]list.Item, len(lists))
	for i, l := range lists {
		items[i] = listItem{list: l}
	}
	return items
}

func taskItems(tasks []models.TaskItem) []list.Item {
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{item: t}
	}
	return items
}
