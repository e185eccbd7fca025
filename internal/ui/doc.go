// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow over one owner's lists:
//  1. [ListsView] : Browse the owner's lists
//  2. [TasksView] : Browse the active items of a list, marking them done or deleting them by ordinal
//  3. [ConfirmView] : Confirm deleting a list or exporting every list
//  4. [ExportView] : Monitor real-time progress updates of a bulk export
//  5. [ResultView] : Display the export summary and failed lists
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the list engine's bulk export, providing non-blocking status reporting.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
