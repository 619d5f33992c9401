// Package handler implements the sessbox-agent HTTP endpoints.
//
// JSON responses share the Response envelope; /metrics is served in the
// Prometheus exposition format by the router.
package handler
