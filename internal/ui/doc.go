// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks one playlist through a reconcile run:
//  1. [PlaylistListView] : Browse local playlists and their connection status
//  2. [ConfirmView] : Confirm the platforms to reconcile against
//  3. [ReconcileView] : Follow per-platform progress while the engine runs
//  4. [ReportView] : Read the per-platform report, unavailable tracks included
//
// The (view) [Model] implements bubbletea's Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from [tasks.Engine.Reconcile]; a dropped update only delays the display.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, r, q) with contextual help from charmbracelet/bubbles/help.
package ui
