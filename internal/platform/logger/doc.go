// Package logger provides structured logging functionality for the application.
//
// It builds on Go's standard library log/slog package. Setup installs a single
// process-wide sink that renders every record as one line on standard output
// with the fields timestamp, level, module, function and message, in that
// order, followed by any structured attributes. Lines are JSON by default or
// logfmt on request.
//
// Recognized levels are DEBUG, INFO, WARNING, ERROR and CRITICAL (with WARN
// and FATAL as aliases). An unknown level is a configuration error; once
// configured, logging never fails.
package logger
