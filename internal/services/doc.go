// Package services adapts remote streaming catalogs to the [Catalog] interface used by the reconciliation engine.
//
// # Catalog Interface
//
// All platforms implement a common abstraction so the engine never branches on platform-specific payloads.
// Raw responses are decoded into the platform SDK's types (zmb3/spotify for Spotify, google.golang.org/api/youtube/v3
// for YouTube) and mapped into [models.Track] immediately.
//
// # Remote Calls
//
// Every request goes through a [remote.Client], which owns quota accounting, retries, the fallback API key and the
// GET cache. Adapters tag each request with its [quota.OpType] and invalidate cached playlist reads after writes.
//
// # Credentials
//
// Bearer tokens come from a [Credentials] source. When a call fails with [shared.ErrAuthFailed] the adapter asks the
// source for a refreshed token once and repeats the call.
//
// # Error Handling
//
//   - [shared.ErrTrackNotFound] : search returned nothing close enough
//   - [shared.ErrPlaylistNotFound] : remote playlist id unknown
//   - [shared.ErrAuthFailed] : credential rejected even after refresh, reconnect the platform
//   - [shared.ErrQuotaExceeded] : platform budget exhausted
package services
