// Package logger provides structured logging for rxrewrite using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields. Library packages accept a
// *Logger and fall back to Nop when none is given.
//
// # Configuration
//
//	logging:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	logger.RegisterComponents(base, "cli", "telemetry")
//	log := logger.Get("cli")
//	log.Debug("Running pipeline", logger.Fields(logger.FieldPipeline, name))
package logger
