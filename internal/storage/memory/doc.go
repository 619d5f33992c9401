// Package memory provides an in-memory KeyValueStore.
//
// It backs "storage.engine: memory" and the package tests of the cache,
// queue and sync engine, which use its fault injection to simulate a
// failing disk.
package memory
