package models

import "time"

// CreationResult reports the outcome of a get-or-create operation.
//
// It is the only channel through which creation reports ambiguity: a missing parent,
// an exact or near duplicate, or a revived entity.
type CreationResult struct {
	ID                string  `json:"id,omitempty"`
	Title             string  `json:"title,omitempty"`
	Created           bool    `json:"created"`
	Restored          bool    `json:"restored"`
	DuplicateDetected bool    `json:"duplicateDetected"`
	DuplicateID       string  `json:"duplicateId,omitempty"`
	DuplicateTitle    string  `json:"duplicateTitle,omitempty"`
	Similarity        float64 `json:"similarity,omitempty"`
	AutoUse           bool    `json:"autoUse"`
	MissingParent     bool    `json:"missingParent"`
}

// Empty reports whether nothing was created, found or flagged.
func (r CreationResult) Empty() bool {
	return r.ID == "" && !r.MissingParent && !r.DuplicateDetected
}

// Outcome reports the result of a mutation addressed by title, pattern or index.
type Outcome struct {
	ID            string `json:"id,omitempty"`
	Title         string `json:"title,omitempty"`
	PreviousTitle string `json:"previousTitle,omitempty"`
	Applied       bool   `json:"applied"`
	NotFound      bool   `json:"notFound"`
	Conflict      bool   `json:"conflict"`
	Suggestion    string `json:"suggestion,omitempty"`
}

// AppliedOutcome builds an applied outcome for e.
func AppliedOutcome(e *Entity) Outcome {
	return Outcome{ID: e.ID, Title: e.Title, Applied: true}
}

// NotFoundOutcome builds a not-found outcome.
func NotFoundOutcome() Outcome {
	return Outcome{NotFound: true}
}

// ConflictOutcome builds an outcome for a title collision with e.
func ConflictOutcome(e *Entity) Outcome {
	return Outcome{ID: e.ID, Title: e.Title, Conflict: true}
}

// DuplicateMatch is the best near-duplicate found for a title.
type DuplicateMatch struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Similarity float64 `json:"similarity"`
}

// TaskItem is one row of a read view.
//
// Index is the 1-based ordinal within the list for list views and zero elsewhere.
// Label is the display name of the source list; archived rows read "Архив • <list>".
type TaskItem struct {
	Index     int       `json:"index,omitempty" yaml:"index,omitempty"`
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Kind      Kind      `json:"kind" yaml:"kind"`
	List      string    `json:"list,omitempty" yaml:"list,omitempty"`
	Label     string    `json:"label,omitempty" yaml:"label,omitempty"`
	State     State     `json:"state" yaml:"state"`
	ChangedAt time.Time `json:"changedAt" yaml:"changed_at"`
}

// ArchiveLabel is the prefix used for archived rows in the completed view.
const ArchiveLabel = "Архив"

// ListExport is a list with its active and done items, the unit written by exporters.
type ListExport struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	CreatedAt time.Time  `json:"createdAt" yaml:"created_at"`
	Items     []TaskItem `json:"items" yaml:"items"`
}
