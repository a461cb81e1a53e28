package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/nerrad567/gray-hearth/internal/infrastructure/config"
)

// serviceName is attached to every record.
const serviceName = "hearth"

// Logger wraps slog.Logger with the hearth's default service fields.
//
// Every record carries service=hearth and the build version, so logs from
// authoritative and presentation servers can be told apart downstream.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Logger struct {
	*slog.Logger
}

// New creates a Logger writing to the configured output.
//
// It configures:
//   - Destination (stdout unless cfg.Output is "stderr")
//   - Format (JSON by default, "text" for local runs)
//   - Minimum level from cfg.Level
//
// Parameters:
//   - cfg: The logging section of config.yaml
//   - version: Build version attached to every record
//
// Returns:
//   - *Logger: Logger ready for use
func New(cfg config.LoggingConfig, version string) *Logger {
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "stderr":
		output = os.Stderr
	default:
		output = os.Stdout
	}
	return NewWithWriter(output, cfg, version)
}

// NewWithWriter is New with an explicit destination; cfg.Output is ignored.
//
// Parameters:
//   - w: Where records are written (tests pass a bytes.Buffer or io.Discard)
//   - cfg: Format and level settings
//   - version: Build version attached to every record
//
// Returns:
//   - *Logger: Logger writing to w
func NewWithWriter(w io.Writer, cfg config.LoggingConfig, version string) *Logger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		handler = slog.NewJSONHandler(w, opts)
	}

	handler = handler.WithAttrs([]slog.Attr{
		slog.String("service", serviceName),
		slog.String("version", version),
	})

	return &Logger{
		Logger: slog.New(handler),
	}
}

// parseLevel converts a string log level to slog.Level.
//
// Supported levels: debug, info, warn (or warning), error.
// Anything else means info.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a new Logger with additional default attributes.
//
// Parameters:
//   - args: Key-value pairs added to every record of the returned logger
//
// Returns:
//   - *Logger: Derived logger; the receiver is unchanged
//
// Example:
//
//	syncLog := logger.With("component", "stovesync")
//	syncLog.Info("subscribed") // Includes component=stovesync
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger: l.Logger.With(args...),
	}
}

// Component is shorthand for With("component", name). cmd/hearth hands one
// to each subsystem:
//
//	registry.SetLogger(log.Component("stove"))
func (l *Logger) Component(name string) *Logger {
	return l.With("component", name)
}

// Default creates a logger for use before configuration is loaded.
//
// It writes JSON to stdout at info level with version "dev". Use it only
// until config.Load has succeeded.
//
// Returns:
//   - *Logger: Bootstrap logger
func Default() *Logger {
	return New(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		Output: "stdout",
	}, "dev")
}
