// Package app assembles SessBox from its configuration: the local store,
// the session cache and pending queue, the remote client, the
// connectivity monitor and the sync engine. Both binaries build on it.
package app
