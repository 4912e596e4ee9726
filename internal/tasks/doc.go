// Package tasks reconciles a local playlist against its remote platform copies.
//
// # Reconcile
//
// [Engine.Reconcile] loads a playlist from a [Store] and, for each requested platform, walks the states
//
//	FetchingBoth -> Matching -> PlanningChanges -> ApplyingChanges -> Verifying -> Persisting
//
// and ends in one [Outcome] per platform: synced, partial, warning or failed. A failure on one platform
// never stops the others.
//
//  1. Local tracks already linked to a remote id are paired with the remote item by id; the rest go
//     through matching.Match.
//  2. Unmatched local tracks are added remotely. Tracks without a platform id are searched first and a
//     miss is reported as unavailable.
//  3. Unmatched remote tracks are imported into the local playlist. With [WithRemoveExtra] they are
//     removed from the remote instead, unless the removal would exceed the guard ratio of the remote
//     playlist, in which case nothing is removed and the outcome is a warning.
//  4. The remote track count is re-read and compared to the expected count. A mismatch is only logged.
//  5. The merged track list and the platform's sync state are persisted, even when the run was cancelled.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates. A nil channel disables reporting, and a
// full channel drops updates rather than stalling the run.
//
// # Bulk runs
//
// [Engine.BulkReconcile] reconciles many playlists with a bounded worker pool.
package tasks
