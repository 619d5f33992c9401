// Command sessbox is the command-line client for SessBox.
//
// It lists, inspects and edits saved browser sessions in the local store,
// shows and manages changes waiting to be synced, and runs a
// reconciliation cycle with the remote session server on demand.
package main
