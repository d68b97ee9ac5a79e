package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	routererrors "github.com/foldermind/router/internal/errors"
)

// SeverityKey is the slog attribute key carrying a RouterError's
// Severity. IncidentWriter's incident mirroring (writer.go) keys off
// this field, so it must stay in sync with the literal it scans for.
const SeverityKey = "router_severity"

// Config contains logging configuration.
type Config struct {
	// Level is the minimum log level (debug, info, warn, error).
	Level string
	// FilePath is the path to the log file. Empty means no file logging.
	FilePath string
	// MaxSizeMB is the maximum size in MB before rotation (default: 10).
	MaxSizeMB int
	// MaxFiles is the maximum number of rotated files to keep (default: 5).
	MaxFiles int
	// WriteToStderr whether to also write to stderr (default: true).
	WriteToStderr bool
}

// DefaultConfig returns sensible defaults for file logging.
func DefaultConfig() Config {
	return Config{
		Level:         "info",
		FilePath:      DefaultLogPath(),
		MaxSizeMB:     10,
		MaxFiles:      5,
		WriteToStderr: true,
	}
}

// DebugConfig returns configuration for debug mode.
func DebugConfig() Config {
	cfg := DefaultConfig()
	cfg.Level = "debug"
	return cfg
}

// Setup initializes file-based logging and returns a cleanup function.
// The cleanup function should be called to close the log file.
// Returns the configured logger and cleanup function.
func Setup(cfg Config) (*slog.Logger, func(), error) {
	// Ensure log directory exists
	if err := EnsureLogDir(); err != nil {
		return nil, nil, err
	}

	// Create the main rotating writer plus its incidents sibling.
	mainWriter, err := NewRotatingWriter(cfg.FilePath, cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		return nil, nil, err
	}
	incidentWriter, err := NewRotatingWriter(IncidentLogPath(cfg.FilePath), cfg.MaxSizeMB, cfg.MaxFiles)
	if err != nil {
		_ = mainWriter.Close()
		return nil, nil, err
	}
	writer := NewIncidentWriter(mainWriter, incidentWriter)

	// Build multi-writer if stderr is enabled
	var output io.Writer = writer
	if cfg.WriteToStderr {
		output = io.MultiWriter(writer, os.Stderr)
	}

	// Parse log level
	level := parseLevel(cfg.Level)

	// Create JSON handler for structured logging
	handler := slog.NewJSONHandler(output, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler)

	// Cleanup function
	cleanup := func() {
		_ = writer.Sync()
		_ = writer.Close()
	}

	return logger, cleanup, nil
}

// SetupDefault sets up logging with DebugConfig and sets it as the default logger.
// Returns cleanup function.
func SetupDefault() (func(), error) {
	logger, cleanup, err := Setup(DebugConfig())
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	return cleanup, nil
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LevelFromString converts string level to slog.Level (exported wrapper around parseLevel).
func LevelFromString(level string) slog.Level {
	return parseLevel(level)
}

// LogRouterError logs err against the router's own error taxonomy
// (§7): code, category, severity, stage and provider kind become
// structured attributes instead of a flattened message string, and
// Severity drives the slog level rather than a caller-chosen one.
// Fatal and Error severities log at slog.LevelError so they still
// surface when the logger's minimum level is Warn; Warning logs at
// slog.LevelWarn. A plain error (not a *routererrors.RouterError) logs
// at slog.LevelError with no structured fields beyond the message.
func LogRouterError(logger *slog.Logger, err error) {
	if logger == nil || err == nil {
		return
	}

	re, ok := err.(*routererrors.RouterError)
	if !ok {
		logger.Error(err.Error())
		return
	}

	attrs := []any{
		slog.String("code", re.Code),
		slog.String(SeverityKey, string(re.Severity)),
		slog.String("category", string(re.Category)),
	}
	if re.Stage != "" {
		attrs = append(attrs, slog.String("stage", string(re.Stage)))
	}
	if re.ProviderKind != "" {
		attrs = append(attrs, slog.String("provider_kind", string(re.ProviderKind)))
	}
	for k, v := range re.Details {
		attrs = append(attrs, slog.String("detail_"+k, v))
	}

	level := slog.LevelWarn
	if re.Severity != routererrors.SeverityWarning {
		level = slog.LevelError
	}
	logger.Log(context.Background(), level, re.Message, attrs...)
}
