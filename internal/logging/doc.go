// Package logging assembles structured slog loggers and formatting helpers
// used across streamcap components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and provides typed attribute helpers plus standardized field names
// so supervisors, the reconciler, and dispatchers tag log lines consistently
// with target URLs, platforms, and event types. A no-op logger is available
// for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
