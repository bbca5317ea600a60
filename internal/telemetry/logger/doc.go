// Package logger builds the process slog.Logger.
//
//   - logger.go: handler construction and the dynamic level
//   - context.go: request ID propagation
//   - redact.go: masking of secrets, session IDs and mail addresses
package logger
