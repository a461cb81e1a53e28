// Package logging provides structured logging for Gray Hearth.
//
// It wraps log/slog so every record carries the service name and version,
// and filters by the level set in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Domain packages do not import this package. They declare a small Logger
// interface (Debug, Info, Warn, Error) and main hands them a *Logger, which
// satisfies it through the embedded *slog.Logger.
//
//	logger := logging.New(cfg.Logging, version)
//	registry.SetLogger(logger.Component("stove"))
//
// Never log secrets or tokens.
package logging
