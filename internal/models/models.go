// package models defines the data model for the aura entity store
package models

import (
	"fmt"
	"strings"
	"time"
)

// Kind discriminates the entity variants stored in the single entities table.
type Kind string

const (
	KindList        Kind = "list"
	KindTask        Kind = "task"
	KindNote        Kind = "note"
	KindReminder    Kind = "reminder"
	KindUserProfile Kind = "user_profile"
)

// ChildKinds are the kinds that live under a list.
var ChildKinds = []Kind{KindTask, KindNote, KindReminder}

// ParseKind converts a string into a [Kind], accepting any letter case.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindList, KindTask, KindNote, KindReminder, KindUserProfile:
		return true
	}
	return false
}

// IsChild reports whether entities of kind k have a parent list.
func (k Kind) IsChild() bool {
	switch k {
	case KindTask, KindNote, KindReminder:
		return true
	}
	return false
}

func (k Kind) String() string { return string(k) }

// Model defines the base interface for persistent models.
type Model interface {
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

var _ Model = (*Entity)(nil)

// Entity is the sole persisted record type.
type Entity struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Content   string    `json:"content,omitempty"`
	ParentID  string    `json:"parentId,omitempty"`
	Sequence  int       `json:"-"`
	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewEntity creates an active [Entity] with creation timestamps set to now (UTC).
//
// ID and sequence are assigned by the repository on insert.
func NewEntity(owner string, kind Kind, title string) *Entity {
	now := time.Now().UTC()
	return &Entity{
		Owner:     owner,
		Kind:      kind,
		Title:     strings.TrimSpace(title),
		Lifecycle: Active(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewChild creates an active child entity of kind under parentID.
func NewChild(owner string, kind Kind, title, parentID string) *Entity {
	e := NewEntity(owner, kind, title)
	e.ParentID = parentID
	return e
}

// Validate checks the owner, kind, title and parent invariants.
func (e *Entity) Validate() error {
	if strings.TrimSpace(e.Owner) == "" {
		return ErrMissingOwner
	}
	if !e.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, e.Kind)
	}
	if e.Kind != KindUserProfile && strings.TrimSpace(e.Title) == "" {
		return ErrEmptyTitle
	}
	if e.Kind.IsChild() && e.ParentID == "" {
		return ErrMissingParent
	}
	return nil
}

// Profile holds the free-form key/value fields stored for an owner.
type Profile struct {
	Owner     string            `json:"owner"`
	Fields    map[string]string `json:"fields"`
	UpdatedAt time.Time         `json:"updatedAt,omitzero"`
}
