package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/aura/internal/models"
	"github.com/desertthunder/aura/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgListsFetched MsgKind = iota
	MsgTasksFetched
	MsgMutated
	MsgProgressUpdate
	MsgExportComplete
)

type listsFetched struct {
	lists []*models.Entity
	err   error
}

type tasksFetched struct {
	list  string
	items []models.TaskItem
	err   error
}

type mutated struct {
	verb    string
	outcome models.Outcome
	err     error
}

type exportComplete struct {
	result *tasks.BulkExportResult
	err    error
}

// listsFetchedMsg is the constructor for [MsgListsFetched]
func listsFetchedMsg(lists []*models.Entity, err error) Msg {
	return Msg{kind: MsgListsFetched, data: listsFetched{lists, err}}
}

// tasksFetchedMsg is the constructor for [MsgTasksFetched]
func tasksFetchedMsg(list string, items []models.TaskItem, err error) Msg {
	return Msg{kind: MsgTasksFetched, data: tasksFetched{list, items, err}}
}

// mutatedMsg is the constructor for [MsgMutated]
func mutatedMsg(verb string, outcome models.Outcome, err error) Msg {
	return Msg{kind: MsgMutated, data: mutated{verb, outcome, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// exportCompleteMsg is the constructor for [MsgExportComplete]
func exportCompleteMsg(result *tasks.BulkExportResult, err error) Msg {
	return Msg{kind: MsgExportComplete, data: exportComplete{result, err}}
}
