package log

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newCaptureLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}), &buf
}

func TestLoggerAttachesComponent(t *testing.T) {
	logger, buf := newCaptureLogger(ComponentHTTP)

	logger.Info("request served", FieldStatusCode, 200)

	out := buf.String()
	if !strings.Contains(out, "component=http") {
		t.Fatalf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "status_code=200") {
		t.Fatalf("expected caller attributes to survive, got %q", out)
	}
	if logger.Component() != ComponentHTTP {
		t.Fatalf("Component() = %q, want %q", logger.Component(), ComponentHTTP)
	}
}

func TestLoggerWithComponent(t *testing.T) {
	logger, buf := newCaptureLogger(ComponentApp)

	logger.WithComponent(ComponentWorker).Warn("sync lagging")

	if !strings.Contains(buf.String(), "component=worker") {
		t.Fatalf("expected rebound component, got %q", buf.String())
	}
}

func TestLoggerWithKeepsComponent(t *testing.T) {
	logger, buf := newCaptureLogger(ComponentStorage)

	logger.With("db", "growahead.db").Error("query failed")

	out := buf.String()
	if !strings.Contains(out, "db=growahead.db") {
		t.Fatalf("expected bound attribute, got %q", out)
	}
	if !strings.Contains(out, "component=storage") {
		t.Fatalf("With must preserve the component, got %q", out)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Component != ComponentApp {
		t.Fatalf("default component = %q, want %q", cfg.Component, ComponentApp)
	}
	if cfg.Handler == nil {
		t.Fatalf("default config must carry a handler")
	}
}

func TestLogFieldsToSlice(t *testing.T) {
	fields := NewFields().
		WithComponent(ComponentRoundUp).
		WithRequestID("req-42").
		WithOperation("ingest").
		WithTransaction("coffee", 432, 68, "dining")

	slice := fields.ToSlice()
	if len(slice) != len(fields)*2 {
		t.Fatalf("ToSlice length = %d, want %d", len(slice), len(fields)*2)
	}

	want := map[string]any{
		FieldComponent:    ComponentRoundUp,
		FieldRequestID:    "req-42",
		FieldOperation:    "ingest",
		FieldDescription:  "coffee",
		FieldAmountCents:  int64(432),
		FieldRoundUpCents: int64(68),
		FieldCategory:     "dining",
	}
	for k, v := range want {
		if fields[k] != v {
			t.Fatalf("fields[%q] = %v, want %v", k, fields[k], v)
		}
	}
}

func TestLogFieldsWithError(t *testing.T) {
	fields := NewFields().WithError(nil)
	if _, ok := fields[FieldError]; ok {
		t.Fatalf("nil error must not add a field: %v", fields)
	}

	fields = fields.WithError(errors.New("broker down"))
	if fields[FieldError] != "broker down" {
		t.Fatalf("fields[error] = %v, want broker down", fields[FieldError])
	}
}
