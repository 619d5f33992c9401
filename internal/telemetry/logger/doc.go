// Package logger provides structured logging for SessBox.
//
// It wraps log/slog:
//
//   - logger.go: Logger interface, handlers and dynamic level
//   - context.go: context propagation with sync cycle IDs
//   - redact.go: redaction of credentials and captured browser state
//
// Session payloads carry live cookies. Anything that looks like a bearer
// credential or a cookie value is masked before it reaches the output.
package logger
