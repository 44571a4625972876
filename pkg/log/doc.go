// Package log provides the structured event trace for satlink.
//
// This package defines the Logger interface and Event types for capturing
// arbiter requests, session phase changes and datagram delivery activity.
// It is separate from operational logging (slog): the event trace is a
// complete machine-readable record for debugging and analysis.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// For production: write to binary file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/satlink/events.slog.cbor")
//
//	// Both, stamped with one session id:
//	cfg.EventLogger = log.NewSessionLogger(log.NewMultiLogger(
//	    log.NewSlogAdapter(slog.Default()),
//	    fileLogger,
//	))
//
// # File Format
//
// Log files are a stream of CBOR-encoded events with integer keys. The
// satlog CLI provides viewing, filtering and statistics.
package log
