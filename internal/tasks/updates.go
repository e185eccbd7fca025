package tasks

import (
	"fmt"

	"github.com/desertthunder/aura/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchLists Phase = iota
	FetchItems
	ExportList
	WriteManifest
)

func (p Phase) String() string {
	switch p {
	case FetchLists:
		return "fetch_lists"
	case FetchItems:
		return "fetch_items"
	case ExportList:
		return "export_list"
	case WriteManifest:
		return "write_manifest"
	default:
		return ""
	}
}

// sendProgress delivers u on prog without blocking when nobody is listening.
func (e *ListEngine) sendProgress(prog chan<- ProgressUpdate, u ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- u:
	default:
		e.logger.Debug("progress update dropped", "phase", u.Phase, "message", u.Message)
	}
}

func fetchListsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLists,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Found %d lists", total),
	}
}

func fetchItemsUpdate(step, total int, export *models.ListExport) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchItems,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d items)", step, total, export.Title, len(export.Items)),
		Data:    export,
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportList,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportList,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

func manifestUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteManifest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Manifest written to %s", path),
	}
}
