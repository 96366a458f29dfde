package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"log/slog"
)

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   formatKV,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)

	log := slog.New(handler).With("component", "flow")
	LogEvent(ctx, log, slog.LevelInfo, "flow.step",
		slog.String("status", "ok"),
		slog.String("step", "awaiting_phone"),
	)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log line")
	}
	tokens := strings.Split(line, " ")
	if len(tokens) < 6 {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	expected := []string{"ts=", "level=INFO", "component=flow", "event=flow.step", "status=ok", "rid=rid-123"}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
}

func TestStructuredHandlerJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	handler := newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   formatJSON,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	})
	ctx := WithRID(Background(), "11:22:33")
	ctx = WithUpdateMeta(ctx, 11, 33, 22)

	log := slog.New(handler).With("component", "provider")
	LogEvent(ctx, log, slog.LevelError, "provider.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
		slog.String("err_code", "PROVIDER_FAIL"),
	)
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if !strings.HasPrefix(line, "{") {
		t.Fatalf("expected JSON, got %s", line)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(line), &decoded); err != nil {
		t.Fatalf("invalid JSON line: %v", err)
	}
	if decoded["component"] != "provider" {
		t.Fatalf("component = %v", decoded["component"])
	}
	if decoded["event"] != "provider.failed" {
		t.Fatalf("event = %v", decoded["event"])
	}
	if decoded["err_code"] != "PROVIDER_FAIL" {
		t.Fatalf("err_code = %v", decoded["err_code"])
	}
	// Compact RID keeps the raw value under rid_full in JSON output.
	if decoded["rid_full"] != "11:22:33" {
		t.Fatalf("rid_full = %v", decoded["rid_full"])
	}
}

func TestCompactRID(t *testing.T) {
	cases := map[string]string{
		"10:10:10": "a.a.a",
		"":         "",
		"abc":      "abc",
		"1:2":      "1:2",
	}
	for in, want := range cases {
		if got := CompactRID(in); got != want {
			t.Errorf("CompactRID(%q) = %q, want %q", in, got, want)
		}
	}
}
