// Package logx wraps zerolog behind a small structured-logging API.
//
// The Service owns the sink configuration (console and/or JSON file) and
// can re-apply it at runtime; Loggers handed out earlier keep writing to
// the current root. The zero Logger value is a safe no-op.
package logx
