package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ListsView ViewState = iota
	TasksView
	ConfirmView
	ExportView
	ResultView
)

// Engine is the subset of the list engine the TUI drives.
type Engine interface {
	GetAllLists(ctx context.Context, owner string) ([]*models.Entity, error)
	GetListTasks(ctx context.Context, owner, list string) ([]models.TaskItem, error)
	MarkTaskDoneByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error)
	DeleteTaskByIndex(ctx context.Context, owner, list string, index int) (models.Outcome, error)
	DeleteList(ctx context.Context, owner, name string) (models.Outcome, error)
	BulkExport(ctx context.Context, prog chan<- tasks.ProgressUpdate, owner string, opts tasks.BulkExportOpts) (*tasks.BulkExportResult, error)
}

type confirmKind int

const (
	confirmDeleteList confirmKind = iota
	confirmExport
)

// Model represents the TUI application state.
type Model struct {
	ctx        context.Context
	owner      string
	engine     Engine
	exportOpts tasks.BulkExportOpts
	view       ViewState
	width      int
	height     int
	listList   list.Model
	taskList   list.Model
	selected   string
	confirm    confirmKind
	target     string
	status     string
	progress   tasks.ProgressUpdate
	progressCh chan tasks.ProgressUpdate
	doneCh     chan Msg
	result     *tasks.BulkExportResult
	err        error
	help       help.Model
	keys       keyMap
}

// NewModel creates a new TUI model browsing owner's lists. opts configures the export started with "e".
func NewModel(ctx context.Context, engine Engine, owner string, opts tasks.BulkExportOpts) *Model {
	return &Model{
		ctx:        ctx,
		owner:      owner,
		engine:     engine,
		exportOpts: opts,
		view:       ListsView,
		listList:   newList("Lists", nil),
		taskList:   newList("", nil),
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	return l
}

// Init initializes the TUI by fetching the owner's lists.
func (m *Model) Init() tea.Cmd {
	return m.fetchLists()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.listList.SetSize(msg.Width-4, msg.Height-8)
		m.taskList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ListsView:
			return m.handleListKeys(msg)
		case TasksView:
			return m.handleTaskKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ExportView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgListsFetched:
		data := msg.data.(listsFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		cmd := m.listList.SetItems(listItems(data.lists))
		return m, cmd

	case MsgTasksFetched:
		data := msg.data.(tasksFetched)
		if data.err != nil {
			m.err = data.err
			m.view = ListsView
			return m, nil
		}
		m.err = nil
		m.selected = data.list
		m.taskList.Title = data.list
		cmd := m.taskList.SetItems(taskItems(data.items))
		m.view = TasksView
		return m, cmd

	case MsgMutated:
		data := msg.data.(mutated)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		switch {
		case data.outcome.Applied:
			m.status = fmt.Sprintf("%s: %s", data.verb, data.outcome.Title)
		case data.outcome.Suggestion != "":
			m.status = data.outcome.Suggestion
		default:
			m.status = "nothing changed"
		}
		if m.view == TasksView {
			return m, m.fetchTasks(m.selected)
		}
		return m, m.fetchLists()

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressCh, m.doneCh)

	case MsgExportComplete:
		data := msg.data.(exportComplete)
		m.result = data.result
		m.err = data.err
		m.progressCh = nil
		m.doneCh = nil
		m.view = ResultView
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ListsView:
		return m.renderLists()
	case TasksView:
		return m.renderTasks()
	case ConfirmView:
		return m.renderConfirm()
	case ExportView:
		return m.renderExport()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.listList.SettingFilter() {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if it, ok := m.listList.SelectedItem().(listItem); ok {
			return m, m.fetchTasks(it.list.Title)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if it, ok := m.listList.SelectedItem().(listItem); ok {
			m.confirm, m.target = confirmDeleteList, it.list.Title
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.export):
		m.confirm, m.target = confirmExport, ""
		m.view = ConfirmView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchLists()
	}

	return m.updateLists(msg)
}

func (m *Model) handleTaskKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.taskList.SettingFilter() {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ListsView
		m.status = ""
		return m, m.fetchLists()
	case key.Matches(msg, m.keys.done):
		if it, ok := m.taskList.SelectedItem().(taskItem); ok {
			return m, m.mutate("done", m.engine.MarkTaskDoneByIndex, it.item.Index)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if it, ok := m.taskList.SelectedItem().(taskItem); ok {
			return m, m.mutate("deleted", m.engine.DeleteTaskByIndex, it.item.Index)
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchTasks(m.selected)
	}

	return m.updateLists(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		if m.confirm == confirmExport {
			m.view = ExportView
			return m, m.startExport()
		}
		m.view = ListsView
		return m, m.deleteList(m.target)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.view = ListsView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = ListsView
		m.result = nil
		m.err = nil
		m.progress = tasks.ProgressUpdate{}
		return m, m.fetchLists()
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ListsView:
		m.listList, cmd = m.listList.Update(msg)
	case TasksView:
		m.taskList, cmd = m.taskList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchLists() tea.Cmd {
	return func() tea.Msg {
		lists, err := m.engine.GetAllLists(m.ctx, m.owner)
		return listsFetchedMsg(lists, err)
	}
}

func (m *Model) fetchTasks(name string) tea.Cmd {
	return func() tea.Msg {
		items, err := m.engine.GetListTasks(m.ctx, m.owner, name)
		return tasksFetchedMsg(name, items, err)
	}
}

type byIndex func(ctx context.Context, owner, list string, index int) (models.Outcome, error)

func (m *Model) mutate(verb string, fn byIndex, index int) tea.Cmd {
	list := m.selected
	return func() tea.Msg {
		out, err := fn(m.ctx, m.owner, list, index)
		return mutatedMsg(verb, out, err)
	}
}

func (m *Model) deleteList(name string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.engine.DeleteList(m.ctx, m.owner, name)
		return mutatedMsg("deleted list", out, err)
	}
}

func (m *Model) startExport() tea.Cmd {
	m.progressCh = make(chan tasks.ProgressUpdate, 50)
	m.doneCh = make(chan Msg, 1)
	prog, done := m.progressCh, m.doneCh

	go func() {
		result, err := m.engine.BulkExport(m.ctx, prog, m.owner, m.exportOpts)
		close(prog)
		done <- exportCompleteMsg(result, err)
	}()

	return waitForProgress(prog, done)
}

// waitForProgress relays the next progress update, or the completion message once the
// progress channel is closed.
func waitForProgress(prog <-chan tasks.ProgressUpdate, done <-chan Msg) tea.Cmd {
	return func() tea.Msg {
		if update, ok := <-prog; ok {
			return progressUpdateMsg(update)
		}
		return <-done
	}
}

func (m *Model) renderLists() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.remove, m.keys.export, m.keys.quit}
	return m.withStatus(m.listList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTasks() string {
	helpKeys := []key.Binding{m.keys.done, m.keys.remove, m.keys.back, m.keys.quit}
	return m.withStatus(m.taskList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) withStatus(body, helpView string) string {
	if m.status == "" {
		return fmt.Sprintf("%s\n\n%s", body, helpView)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", body, styles.status.Render(m.status), helpView)
}

func (m *Model) renderConfirm() string {
	var title, info string
	switch m.confirm {
	case confirmExport:
		format := m.exportOpts.Format
		if format == "" {
			format = "json"
		}
		title = styles.title.Render("Export every list?")
		info = fmt.Sprintf("\nFormat: %s\n", format)
	default:
		title = styles.title.Render(fmt.Sprintf("Delete list '%s'?", m.target))
		info = styles.warn.Render("\nActive and done items will be archived.\n")
	}

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderExport() string {
	title := styles.title.Render("Exporting Lists")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchLists:
		phase = "Collecting lists..."
	case tasks.FetchItems:
		phase = fmt.Sprintf("Reading lists (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ExportList:
		phase = fmt.Sprintf("Writing files (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.WriteManifest:
		phase = "Writing manifest..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Export failed: %v\n\nPress r to go back, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to go back, q to quit")
	}

	title := styles.ok.Render("✓ Export Complete!")
	info := fmt.Sprintf(
		"\nDirectory: %s\nManifest: %s\nExported: %d/%d",
		m.result.OutputDirectory,
		m.result.ManifestPath,
		m.result.SuccessfulExports,
		m.result.TotalLists,
	)

	var failed strings.Builder
	if m.result.FailedExports > 0 {
		failed.WriteString("\n\n")
		failed.WriteString(styles.warn.Render(fmt.Sprintf("Failed to export %d lists:", m.result.FailedExports)))
		for _, r := range m.result.Results {
			if !r.Success {
				fmt.Fprintf(&failed, "\n  • %s: %v", r.ListName, r.Error)
			}
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed.String(), m.help.ShortHelpView(helpKeys))
}
