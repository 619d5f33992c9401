// Package repl provides the interactive shell of the sessbox CLI.
//
// Each line is split with shell quoting rules and handed to an Executor,
// which runs it as a sessbox command against an application that stays
// open for the whole shell session:
//
//   - repl.go: the read loop and the help and history builtins
//   - completer.go: prefix matching over command names
//   - history.go: command history persisted to a private file
package repl
