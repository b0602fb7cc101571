package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var m map[string]any
	line := bytes.TrimSpace(b)
	if err := json.Unmarshal(line, &m); err != nil {
		t.Fatalf("not json: %q: %v", line, err)
	}
	return m
}

func TestBuild_FieldNames(t *testing.T) {
	var buf bytes.Buffer
	l := Build(Config{Level: "info", Service: "locator", Component: "http"}, &buf)
	l.Info().Msg("hello")

	m := decodeLine(t, buf.Bytes())
	if m["msg"] != "hello" || m["level"] != "info" {
		t.Fatalf("unexpected fields: %v", m)
	}
	if m["service"] != "locator" || m["component"] != "http" {
		t.Fatalf("missing static fields: %v", m)
	}
	if _, ok := m["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", m)
	}
}

func TestBuild_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := Build(Config{Level: "warn"}, &buf)
	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}
	l.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn not written: %q", buf.String())
	}

	// another logger's level does not leak into this one
	var other bytes.Buffer
	d := Build(Config{Level: "debug"}, &other)
	d.Debug().Msg("debug kept")
	if !strings.Contains(other.String(), "debug kept") {
		t.Fatalf("debug not written: %q", other.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"trace":   zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestFromContext_AddsFields(t *testing.T) {
	var buf bytes.Buffer
	root := Build(Config{Level: "info"}, &buf)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithLayer(ctx, "campus")
	ctx = WithComponent(ctx, "registry")
	ctx = WithRevision(ctx, 7)
	FromContext(ctx, &root).Info().Msg("x")

	m := decodeLine(t, buf.Bytes())
	if m["request_id"] != "req-1" || m["layer"] != "campus" || m["component"] != "registry" {
		t.Fatalf("context fields missing: %v", m)
	}
	if m["revision"] != float64(7) {
		t.Fatalf("revision missing: %v", m)
	}
	if RequestID(ctx) != "req-1" {
		t.Fatalf("RequestID=%q", RequestID(ctx))
	}
}

func TestWithRequestID_GeneratesID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := RequestID(ctx); len(id) != 16 {
		t.Fatalf("generated id %q", id)
	}
	if WithLayer(context.Background(), "") != context.Background() {
		t.Fatal("empty layer should not wrap the context")
	}
}

func TestNewSlog_BridgesAttrs(t *testing.T) {
	var buf bytes.Buffer
	root := Build(Config{Level: "debug"}, &buf)
	sl := NewSlog(&root).With("slabs", 4)
	sl.InfoContext(WithLayer(context.Background(), "campus"), "built", "ok", true)

	m := decodeLine(t, buf.Bytes())
	if m["msg"] != "built" || m["layer"] != "campus" {
		t.Fatalf("unexpected: %v", m)
	}
	if m["slabs"] != float64(4) || m["ok"] != true {
		t.Fatalf("attrs not bridged: %v", m)
	}
}

func TestNewSlog_RevisionGroupsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	root := Build(Config{Level: "info"}, &buf)
	sl := NewSlog(&root)

	ctx := WithRevision(WithLayer(context.Background(), "campus"), 3)
	sl.WithGroup("store").WarnContext(ctx, "persist failed",
		slog.Uint64("attempt", 2),
		slog.Duration("timeout", 2*time.Second),
		slog.Any("err", errors.New("boom")))

	m := decodeLine(t, buf.Bytes())
	if m["level"] != "warn" || m["layer"] != "campus" || m["revision"] != float64(3) {
		t.Fatalf("context fields missing: %v", m)
	}
	if m["store.attempt"] != float64(2) || m["store.err"] != "boom" {
		t.Fatalf("grouped attrs wrong: %v", m)
	}
	if _, ok := m["store.timeout"]; !ok {
		t.Fatalf("duration missing: %v", m)
	}
}

func TestNewSlog_EnabledFollowsLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	root := Build(Config{Level: "warn"}, &buf)
	sl := NewSlog(&root)

	if sl.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatal("info should be disabled at warn")
	}
	sl.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn: %q", buf.String())
	}
	sl.Error("kept")
	if m := decodeLine(t, buf.Bytes()); m["level"] != "error" {
		t.Fatalf("unexpected: %v", m)
	}
}
