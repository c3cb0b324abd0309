package logging_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"clustersync/internal/logging"
)

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestTeeHandlerHonorsSinkLevels(t *testing.T) {
	var console, file bytes.Buffer
	logger := slog.New(logging.TeeHandler(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		nil,
		slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)).With(logging.String(logging.FieldStage, "upload"))

	logger.Debug("receipt written")
	logger.Warn("catalog deferred")

	if strings.Contains(console.String(), "receipt written") {
		t.Fatalf("console sink accepted a debug record: %q", console.String())
	}
	for _, out := range []string{console.String(), file.String()} {
		if !strings.Contains(out, "catalog deferred") || !strings.Contains(out, "stage=upload") {
			t.Fatalf("expected warning with stage attr, got %q", out)
		}
	}
	if !strings.Contains(file.String(), "receipt written") {
		t.Fatalf("file sink missed the debug record: %q", file.String())
	}
}

func TestTeeHandlerKeepsWritingAfterSinkError(t *testing.T) {
	var console bytes.Buffer
	broken := failingHandler{slog.NewTextHandler(&bytes.Buffer{}, nil)}
	handler := logging.TeeHandler(broken, slog.NewTextHandler(&console, nil))

	record := slog.NewRecord(time.Now(), slog.LevelInfo, "stage finished", 0)
	if err := handler.Handle(context.Background(), record); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected sink error, got %v", err)
	}
	if !strings.Contains(console.String(), "stage finished") {
		t.Fatalf("second sink skipped after first failed: %q", console.String())
	}
}

func TestTeeHandlerSingleSinkPassesThrough(t *testing.T) {
	base := slog.NewTextHandler(&bytes.Buffer{}, nil)
	if got := logging.TeeHandler(nil, base); got != slog.Handler(base) {
		t.Fatalf("expected the lone handler back, got %T", got)
	}
}
