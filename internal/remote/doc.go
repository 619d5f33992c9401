// Package remote is the HTTP client for the remote session server.
//
// The server exposes CRUD over /sessions with bearer authentication.
// Failures are mapped onto domain errors so the sync engine can decide
// between retrying, dropping and stopping:
//
//	transport error, 5xx, 429  -> ErrNetworkUnavailable
//	401                        -> ErrAuthenticationRequired
//	404 on DELETE              -> success (already gone)
//	404 on PUT                 -> ErrNotFound
//	other 4xx                  -> ErrServerRejected
package remote
