// Package repositories implements SQLite persistence for the entity store.
//
// All records live in the single entities table. Deletion is never physical: the state
// column carries the lifecycle and the partial unique indexes on title_key only cover
// rows that still hold their title.
//
// Key Implementations:
//   - [EntityRepository] : lists, tasks, notes and reminders with filtered, ordered queries
//   - [ProfileRepository] : the per-owner user_profile entity holding JSON fields
//
// Writes that would break a uniqueness index return [ErrDuplicate]; missing rows return
// [ErrNotFound]. Every other driver failure is wrapped in a [shared.StorageError].
// Sequence numbers from [NextSequence] break ties between rows created in the same instant.
package repositories
