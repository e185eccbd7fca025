// Package models defines the domain types of the aura entity store.
//
// Every persisted record is an [Entity]. Lists, tasks, notes, reminders and the
// per-owner profile are all entities distinguished by [Kind], and children point
// at their list through a parent reference.
//
// Lifecycle state is modeled by [Lifecycle], whose transition methods are the only
// way to move an entity between [StateActive], [StateDone], [StateDeleted] and
// [StateArchived]. Invalid transitions return [ErrInvalidTransition].
//
// Operations on the store report their result through value types rather than errors:
//   - [CreationResult] : get-or-create outcomes, including duplicate detection
//   - [Outcome] : mutation-by-reference outcomes (applied, not found, conflict)
//   - [TaskItem] : a row of a read view
package models
