// Package logging provides structured logging on top of log/slog.
//
// The HTTP logging middleware stores a logger enriched with request_id and
// trace_id in the request context; handlers and the relay service pick it
// up with FromContext.
//
//	logger := logging.NewLogger(os.Stdout, cfg.LogLevel)
//	slog.SetDefault(logger)
package logging
