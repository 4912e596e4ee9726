// Package server is the thin HTTP layer over the reconciliation engine.
//
// # Routes
//
//	POST /api/playlists/{id}/reconcile?platform=spotify&platform=youtube  run a reconcile, returns the JSON report
//	GET  /api/playlists                                                   list local playlists
//	GET  /api/playlists/{id}                                              one playlist with tracks and connections
//	GET  /metrics                                                         prometheus collectors
//	GET  /healthz                                                         liveness
//	GET  /callback                                                        OAuth authorization code callback
//
// Routing uses chi with its RequestID, RealIP and Recoverer middleware plus [RequestLogger].
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback with PKCE. It validates the state
// parameter, exchanges the code with the PKCE verifier and sends the token through a channel. It only
// processes one callback, so `musync auth login` can start a temporary server, wait for the result and
// shut down.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
