// Package logging provides structured logging for the Safehouse backend.
//
// It wraps log/slog with JSON output for production and text output for
// development. Every record carries the service name and build version.
//
// Configuration (config.yaml):
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Components that log take a narrow interface with Debug/Info/Warn/Error
// methods, which *Logger satisfies through the embedded *slog.Logger.
package logging
