package config

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.DebugContext(ctx, "Config: backend", "value", s.Backend)
	logger.DebugContext(ctx, "Config: cache_dir", "value", s.CacheDir)
	logger.DebugContext(ctx, "Config: workers", "value", s.Workers)
	if len(s.Exclude) > 0 {
		logger.DebugContext(ctx, "Config: exclude", "value", s.Exclude)
	}
	logger.DebugContext(ctx, "Config: log.verbosity", "value", s.Log.Verbosity)
	if s.Log.Timestamp != TimestampOff {
		logger.DebugContext(ctx, "Config: log.timestamp", "value", s.Log.Timestamp)
	}
}

// SettingsLogValue returns a slog.Value for Settings
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("backend", s.Backend),
		slog.String("cache_dir", s.CacheDir),
		slog.Int("workers", s.Workers),
		slog.Any("exclude", s.Exclude),
		slog.Int("verbosity", s.Log.Verbosity),
		slog.Bool("quiet", s.Log.Quiet),
		slog.String("timestamp", s.Log.Timestamp),
	)
}

// LogLevel maps verbosity and quiet mode to a slog level.
// Quiet wins over any verbosity.
func LogLevel(s LogSettings) slog.Level {
	if s.Quiet {
		return slog.LevelError
	}
	switch {
	case s.Verbosity <= 0:
		return slog.LevelWarn
	case s.Verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// NewLogHandler creates the text handler used for diagnostics.
func NewLogHandler(w io.Writer, s LogSettings) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       LogLevel(s),
		ReplaceAttr: timestampReplacer(s.Timestamp),
	})
}

// timestampReplacer drops the time attribute or truncates it to the
// requested precision.
func timestampReplacer(mode string) func([]string, slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if len(groups) > 0 || a.Key != slog.TimeKey {
			return a
		}

		t := a.Value.Time()
		switch mode {
		case TimestampSec:
			return slog.String(slog.TimeKey, t.Format("2006-01-02T15:04:05Z07:00"))
		case TimestampMilli:
			return slog.String(slog.TimeKey, t.Format("2006-01-02T15:04:05.000Z07:00"))
		case TimestampMicro:
			return slog.String(slog.TimeKey, t.Format("2006-01-02T15:04:05.000000Z07:00"))
		case TimestampNano:
			return slog.String(slog.TimeKey, t.Format(time.RFC3339Nano))
		default:
			return slog.Attr{}
		}
	}
}
