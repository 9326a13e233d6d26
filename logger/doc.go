// Package logger provides structured logging for testkit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers with structured fields. Engine components log
// lifecycle transitions at debug level and unit outcomes at info level.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("runner")
//	log.Info("unit finished", logger.Fields(logger.FieldUnit, name, logger.FieldOutcome, "passed"))
package logger
