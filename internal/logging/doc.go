// Package logging builds slog loggers with console and JSON handlers and
// carries pipeline metadata (episode, step, track, correlation ID) through
// context so every component logs with consistent fields.
package logging
