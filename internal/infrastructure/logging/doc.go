// Package logging provides structured logging using uber/zap.
//
// Two output modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Components receive a *Logger and derive their own scope with Named, so
// every line carries a "component" field (transport, mirror, session, ...).
//
// Example Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	log := logger.Named("transport")
//	log.Info("connected", zap.String("url", wsURL))
//	log.Warn("send failed", zap.Error(err))
package logging
