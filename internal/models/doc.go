// Package models defines the domain entities shared by the matcher, the reconciliation engine and the persistence layer.
//
//   - [Track] : a song as known to the local playlist or to one remote platform
//   - [Playlist] : the local playlist record with its ordered tracks and per-platform connections
//   - [SyncState] : per-platform reconciliation bookkeeping (remote playlist id, status, last sync)
//   - [MatchResult] : the three-way partition produced by the track matcher
//
// Remote payloads never reach this package; platform adapters map them into [Track] at the boundary.
package models
