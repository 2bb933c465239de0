// Package logging provides structured logging for the session CLI.
//
// It wraps log/slog with configured level, format and destination plus
// default service fields. Library packages accept their own minimal
// Logger interfaces; *Logger satisfies them all.
package logging
