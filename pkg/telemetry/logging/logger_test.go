package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "json", config: Config{Level: "info", Format: "json"}},
		{name: "text", config: Config{Level: "debug", Format: "text"}},
		{name: "defaults", config: Config{}},
		{name: "upper case level", config: Config{Level: "WARN"}},
		{name: "invalid level", config: Config{Level: "loud"}, wantErr: true},
		{name: "invalid format", config: Config{Format: "xml"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Writer = &bytes.Buffer{}
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Level: "warn", Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "shown") {
		t.Error("warn message missing")
	}
}

func TestNew_ErrorKeyNormalised(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Format: "json", Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Error("write failed", "error", errors.New("disk full"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["err"] != "disk full" {
		t.Errorf("expected err key, got %v", entry)
	}
	if _, ok := entry["error"]; ok {
		t.Error("error key should be renamed")
	}
}

func TestNew_Redaction(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := New(Config{Format: "json", Redact: true, Writer: buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("request",
		"authorization", "Bearer abc.def",
		"note", "contact nurse@example.org",
		"action", "shape.create",
	)

	out := buf.String()
	if strings.Contains(out, "abc.def") || strings.Contains(out, "nurse@example.org") {
		t.Errorf("sensitive values leaked: %s", out)
	}
	if !strings.Contains(out, "shape.create") {
		t.Error("ordinary values should pass through")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, _ := New(Config{Format: "json", Writer: buf})

	ctx := WithSessionID(WithRequestID(context.Background(), "req-1"), "sess-9")
	FromContext(ctx, logger).Info("evaluating")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if entry["request_id"] != "req-1" || entry["session_id"] != "sess-9" {
		t.Errorf("missing context fields: %v", entry)
	}

	if FromContext(context.Background(), logger) != logger {
		t.Error("empty context should return the same logger")
	}
	if GetRequestID(context.Background()) != "" {
		t.Error("expected empty request ID")
	}
}
