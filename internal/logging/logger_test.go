package logging_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"partmix/internal/config"
	"partmix/internal/logging"
	"partmix/internal/services"
)

func newFileLogger(t *testing.T, format, level string) (*slog.Logger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "partmix.log")
	logger, err := logging.New(logging.Options{
		Format:      format,
		Level:       level,
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	return string(content)
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("hello")

	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "partmix.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	logger, path := newFileLogger(t, "console", "info")
	logger.Info("message without caller")

	if content := readLog(t, path); strings.Contains(content, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logger, path := newFileLogger(t, "console", "debug")
	logger.Info("message with caller")

	if content := readLog(t, path); !strings.Contains(content, "logger_test.go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerRendersSubject(t *testing.T) {
	logger, path := newFileLogger(t, "console", "info")
	logger = logging.NewComponentLogger(logger, "batch")
	logger.Info("job completed", logging.String(logging.FieldItem, "a.mp3"), logging.Int("bytes", 12))

	content := readLog(t, path)
	if !strings.Contains(content, "INFO batch [a.mp3]: job completed") {
		t.Fatalf("expected subject prefix, got %q", content)
	}
	if !strings.Contains(content, "bytes=12") {
		t.Fatalf("expected attribute, got %q", content)
	}
	if strings.Contains(content, "component=") {
		t.Fatalf("component should be folded into the subject, got %q", content)
	}
}

func TestConsoleLoggerHoistsWorker(t *testing.T) {
	logger, path := newFileLogger(t, "console", "info")
	ctx := services.WithWorker(services.WithItem(context.Background(), "b.mp3"), 2)
	logging.WithContext(ctx, logging.NewComponentLogger(logger, "batch")).Info("job progress")

	content := readLog(t, path)
	if !strings.Contains(content, "INFO batch w2 [b.mp3]: job progress") {
		t.Fatalf("expected worker in subject, got %q", content)
	}
	if strings.Contains(content, "worker=") {
		t.Fatalf("worker should be folded into the subject, got %q", content)
	}
}

func TestJSONLoggerFields(t *testing.T) {
	logger, path := newFileLogger(t, "json", "info")
	logger.Warn("engine slow", logging.String("cause", "disk"))

	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(readLog(t, path))), &payload); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("level = %v, want warn", payload["level"])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatalf("expected ts key in %v", payload)
	}
	if payload["cause"] != "disk" {
		t.Fatalf("cause = %v", payload["cause"])
	}
}

func TestWithContextAddsFields(t *testing.T) {
	logger, path := newFileLogger(t, "json", "info")

	ctx := services.WithBatchID(context.Background(), "batch-1")
	ctx = services.WithWorker(ctx, 3)
	ctx = services.WithItem(ctx, "b.mp3")
	logging.WithContext(ctx, logger).Info("staged")

	content := readLog(t, path)
	for _, fragment := range []string{`"batch_id":"batch-1"`, `"worker":3`, `"item":"b.mp3"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %s in %q", fragment, content)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	logger, path := newFileLogger(t, "json", "info")
	logging.WarnWithContext(logger, "release failed", "release_failed", logging.String(logging.FieldImpact, "scratch space not reclaimed"))

	content := readLog(t, path)
	for _, fragment := range []string{`"event_type":"release_failed"`, `"error_hint":"check logs for details"`, `"impact":"scratch space not reclaimed"`} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %s in %q", fragment, content)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for input, want := range cases {
		if got := logging.ParseLevel(input); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should not be enabled")
	}
	logging.ErrorWithContext(nil, "ignored", "noop")
}
