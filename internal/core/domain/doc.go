// Package domain defines the core domain models for SessBox.
//
// Domain models are pure value objects without any IO dependencies.
// This package contains:
//
//   - Session: a saved site authentication snapshot and its identities
//   - Operation: a pending, not yet acknowledged remote mutation
//   - DomainBlocklist: domains excluded from capture
//   - Errors: domain error codes shared by the cache, queue and sync engine
package domain
