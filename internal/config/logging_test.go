package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLog(t *testing.T) {
	// Just verify it doesn't panic
	Log(validSettings())
}

func TestLogWithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := validSettings()
	s.Exclude = []string{"vendor/**"}
	s.Log.Timestamp = TimestampSec

	LogWithLogger(s, logger)

	output := buf.String()
	for _, want := range []string{"backend", "cache_dir", "workers", "exclude", "log.timestamp"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in log output, got: %s", want, output)
		}
	}
}

func TestLogWithLogger_SkipsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogWithLogger(validSettings(), logger)

	output := buf.String()
	if strings.Contains(output, "exclude") {
		t.Error("Did not expect 'exclude' in log output when no patterns are set")
	}
	if strings.Contains(output, "log.timestamp") {
		t.Error("Did not expect 'log.timestamp' in log output when timestamps are off")
	}
}

func TestSettingsLogValue(t *testing.T) {
	v := SettingsLogValue(*validSettings())
	if v.Kind() != slog.KindGroup {
		t.Fatalf("Expected group value, got %v", v.Kind())
	}

	attrs := v.Group()
	if len(attrs) != 7 {
		t.Errorf("Expected 7 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "backend" || attrs[0].Value.String() != BackendGoGit {
		t.Errorf("Unexpected first attribute: %v", attrs[0])
	}
}

func TestLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		settings LogSettings
		want     slog.Level
	}{
		{"default", LogSettings{}, slog.LevelWarn},
		{"verbose", LogSettings{Verbosity: 1}, slog.LevelInfo},
		{"very verbose", LogSettings{Verbosity: 2}, slog.LevelDebug},
		{"extra verbose", LogSettings{Verbosity: 5}, slog.LevelDebug},
		{"quiet", LogSettings{Quiet: true}, slog.LevelError},
		{"quiet wins", LogSettings{Quiet: true, Verbosity: 3}, slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LogLevel(tt.settings); got != tt.want {
				t.Errorf("LogLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewLogHandler_TimestampOff(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(&buf, LogSettings{Timestamp: TimestampOff}))

	logger.Warn("hello")

	output := buf.String()
	if strings.Contains(output, "time=") {
		t.Errorf("Expected no time attribute, got: %s", output)
	}
	if !strings.Contains(output, "msg=hello") {
		t.Errorf("Expected message in output, got: %s", output)
	}
}

func TestNewLogHandler_TimestampModes(t *testing.T) {
	for _, mode := range []string{TimestampSec, TimestampMilli, TimestampMicro, TimestampNano} {
		t.Run(mode, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(NewLogHandler(&buf, LogSettings{Timestamp: mode}))

			logger.Warn("hello")

			if !strings.Contains(buf.String(), "time=") {
				t.Errorf("Expected time attribute for mode %s, got: %s", mode, buf.String())
			}
		})
	}
}

func TestNewLogHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLogHandler(&buf, LogSettings{Timestamp: TimestampOff}))

	logger.Info("hidden")
	logger.Warn("shown")

	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("Info message should be filtered at default verbosity")
	}
	if !strings.Contains(output, "shown") {
		t.Error("Warn message should be logged at default verbosity")
	}
}
