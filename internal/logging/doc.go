// Package logging assembles the structured slog loggers tunesweep uses.
//
// Console output is a compact "time LEVEL component: message key=value" line
// on stderr so stdout stays free for reports; the same records are teed as
// JSON into the log file under the configured log directory.
package logging
