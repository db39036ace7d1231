package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// captureLogOutput captures log output for testing by temporarily
// redirecting the logger to write to a buffer
func captureLogOutput(f func()) string {
	var buf bytes.Buffer

	oldLogger := defaultLogger

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	defaultLogger = slog.New(handler)

	f()

	defaultLogger = oldLogger

	return buf.String()
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("debug msg", "k", "v") }, `"msg":"debug msg"`},
		{"info", func() { Info("info msg") }, `"msg":"info msg"`},
		{"warn", func() { Warn("warn msg") }, `"msg":"warn msg"`},
		{"error", func() { Error("error msg") }, `"msg":"error msg"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureLogOutput(tt.log)
			if !strings.Contains(out, tt.want) {
				t.Errorf("output %q should contain %q", out, tt.want)
			}
		})
	}
}

func TestRunIDContext(t *testing.T) {
	id := NewRunID()
	if id == "" {
		t.Fatal("NewRunID() returned empty string")
	}
	if id == NewRunID() {
		t.Error("run IDs should be unique")
	}

	ctx := WithRunID(context.Background(), id)
	if got := GetRunID(ctx); got != id {
		t.Errorf("GetRunID() = %q, want %q", got, id)
	}
	if got := GetRunID(context.Background()); got != "" {
		t.Errorf("GetRunID() on bare context = %q, want empty", got)
	}

	out := captureLogOutput(func() {
		InfoContext(ctx, "converting")
	})
	if !strings.Contains(out, id) {
		t.Errorf("output %q should carry the run ID %q", out, id)
	}
}

func TestDomainHelpers(t *testing.T) {
	ctx := WithRunID(context.Background(), "run-77")

	out := captureLogOutput(func() {
		SchemaInferred(ctx, "template.xml", 12, 42*time.Millisecond)
	})
	if !strings.Contains(out, `"schema_inferred"`) || !strings.Contains(out, `"fields":12`) {
		t.Errorf("unexpected schema_inferred output %q", out)
	}
	if !strings.Contains(out, "run-77") {
		t.Errorf("schema_inferred output %q should carry the run ID", out)
	}

	out = captureLogOutput(func() {
		DocumentFailed(ctx, "data.xml", errors.New("boom"))
	})
	if !strings.Contains(out, `"document_failed"`) || !strings.Contains(out, "boom") {
		t.Errorf("unexpected document_failed output %q", out)
	}

	out = captureLogOutput(func() {
		FilterDropped(ctx, "R.Missing")
	})
	if !strings.Contains(out, `"filter_entry_dropped"`) || !strings.Contains(out, "R.Missing") {
		t.Errorf("unexpected filter_entry_dropped output %q", out)
	}

	out = captureLogOutput(func() {
		TrackedField(ctx, 3, "R.Row.Id", "R.Row", "1..1", "integer")
	})
	if !strings.Contains(out, `"tracked_field"`) || !strings.Contains(out, `"column":3`) {
		t.Errorf("unexpected tracked_field output %q", out)
	}
}

func TestGetLogger(t *testing.T) {
	if GetLogger() == nil {
		t.Fatal("GetLogger() returned nil")
	}
}
