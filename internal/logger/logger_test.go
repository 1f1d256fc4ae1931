package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for ln := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if ln == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(ln), &m); err != nil {
			t.Fatalf("log line is not json: %q: %v", ln, err)
		}
		out = append(out, m)
	}
	return out
}

func TestSlogBridge_ContextFieldsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Component: "cli"}, &buf)
	log := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "abc123")
	ctx = WithOperation(ctx, "GetFeature")
	ctx = WithTypeName(ctx, "topp:states")
	log.InfoContext(ctx, "fetch done",
		"status", 200,
		"duration", 1500*time.Millisecond,
		"err", errors.New("none"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("lines=%d want 1", len(lines))
	}
	got := lines[0]
	want := map[string]any{
		"msg":        "fetch done",
		"level":      "info",
		"component":  "cli",
		"request_id": "abc123",
		"operation":  "GetFeature",
		"typename":   "topp:states",
		"status":     float64(200),
		"err":        "none",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("field %q=%v want %v (line=%v)", k, got[k], v, got)
		}
	}
	if _, ok := got["timestamp"]; !ok {
		t.Fatalf("missing timestamp: %v", got)
	}
}

func TestSlogBridge_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	log := NewSlog(&zl)

	log.Debug("hidden")
	log.Info("hidden")
	log.Warn("shown")
	log.Error("shown too")

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("lines=%d want 2: %s", len(lines), buf.String())
	}
}

func TestSlogBridge_WithGroupAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "info"}, &buf)
	log := NewSlog(&zl).With("endpoint", "http://x/wfs").WithGroup("bbox")
	log.Info("query", "minx", 1.5)

	got := decodeLines(t, &buf)[0]
	if got["endpoint"] != "http://x/wfs" {
		t.Fatalf("endpoint=%v", got["endpoint"])
	}
	if got["bbox.minx"] != 1.5 {
		t.Fatalf("bbox.minx=%v", got["bbox.minx"])
	}
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 16 || a == b {
		t.Fatalf("ids %q %q", a, b)
	}
}

func TestParseLevel_Default(t *testing.T) {
	if ParseLevel("bogus").String() != "info" {
		t.Fatal("unknown level must default to info")
	}
}
