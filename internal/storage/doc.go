// Package storage provides the durable key-value store SessBox persists
// its state into.
//
// The sync engine keeps three values, each a JSON document under a fixed
// key: the session cache, the pending-operation queue and the blocked
// domain list. Implementations:
//
//   - BadgerStore: embedded Badger v3 database on local disk
//   - memory.Store: process-local map, for tests and ephemeral runs
//   - SealedStore: wraps another store and encrypts values at rest
package storage
