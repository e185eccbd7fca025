// Package tasks runs the list manager's operations against the entity store.
//
// # Core Operations
//
// The [Engine] interface is the capability surface of the store. [ListEngine] implements
// it on top of the SQLite repositories, running every operation in one transaction:
//
//  1. Creation: [ListEngine.CreateList], [ListEngine.AddTask], [ListEngine.AddEntity]
//     - get-or-create semantics; exact and near duplicates come back in a [models.CreationResult]
//     - done or deleted children with the same title are revived instead of duplicated
//
//  2. Mutation by reference: rename, update, move, convert, mark done, delete and restore
//     - targets are addressed by exact title, by fuzzy pattern or by 1-based ordinal
//     - results come back as a [models.Outcome]; absence and collisions are not errors
//
//  3. Views: lists, list tasks, all tasks, search, completed and deleted history
//
// # Lifecycle
//
// Deleting a list archives its active and done children. Restoring an archived child
// against a re-created list of the same name moves it there. Restoring against a list
// that does not exist yet returns a suggestion to create it.
//
// # Ordinals
//
// Ordinal addressing is recomputed on every call over the creation-ordered candidate set,
// so an ordinal shown to a user can point elsewhere after a concurrent change. Prefer
// titles and patterns where possible.
//
// # Export
//
// [ListEngine.BulkExport] writes every list to its own file through a worker pool and
// reports progress through a non-blocking channel of [ProgressUpdate].
package tasks
