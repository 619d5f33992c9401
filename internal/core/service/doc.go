// Package service provides the local entry points for session mutations.
//
// Every mutation is applied to the local cache first and persisted; it is
// then handed to the sync engine, which either applies it remotely right
// away or queues it for the next cycle.
//
// This package contains:
//
//   - SessionService: create, update, touch, delete and query sessions
//   - BlocklistService: domains for which sessions may not be saved
package service
