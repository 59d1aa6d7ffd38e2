// Package logging provides structured logging for accounthub.
//
// It wraps the standard library's log/slog with configuration-driven
// format and level selection, plus default service/version attributes
// attached to every record.
//
// Usage:
//
//	log := logging.New(cfg.Logging, version)
//	log.Info("server started", "port", 8080)
//
// Components derive their own loggers with With:
//
//	authLog := log.With("component", "auth")
package logging
