// Package httpserver provides the sessbox-agent's local HTTP endpoint.
//
// It serves liveness and readiness checks, Prometheus metrics, the sync
// engine state and an on-demand sync trigger. It is meant to listen on a
// loopback address and carries no authentication.
package httpserver
