// Package logging builds the slog loggers used across echosync.
//
// It maps config values to handler construction (console text or JSON,
// level, optional log file alongside stdout), and provides small attr
// helpers plus a no-op logger for tests and optional dependencies.
package logging
