package observe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("failed to parse log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestLogger_IncludesCallFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter("info", &buf)
	if err != nil {
		t.Fatalf("NewLoggerWithWriter() error = %v", err)
	}

	logger.WithCall(CallMeta{Component: "jikan", Name: "anime", Version: "v4"}).
		Info(context.Background(), "fetched", F("id", 1))

	entries := decodeLines(t, &buf)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	entry := entries[0]

	want := map[string]any{
		"msg":            "fetched",
		"level":          "info",
		"call.id":        "jikan.anime",
		"call.name":      "anime",
		"call.component": "jikan",
		"call.version":   "v4",
		"id":             float64(1),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("expected timestamp field")
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	logger.Debug(ctx, "debug")
	logger.Info(ctx, "info")
	logger.Warn(ctx, "warn")
	logger.Error(ctx, "error")

	entries := decodeLines(t, &buf)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries at warn level, got %d", len(entries))
	}
	if entries[0]["level"] != "warn" || entries[1]["level"] != "error" {
		t.Errorf("unexpected levels: %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLoggerWithWriter("debug", &buf)

	logger.Info(context.Background(), "request",
		F("token", "abc"),
		F("api_key", "xyz"),
		F("url", "https://api.jikan.moe/v4/anime/1"),
	)

	entry := decodeLines(t, &buf)[0]
	if entry["token"] != "[REDACTED]" || entry["api_key"] != "[REDACTED]" {
		t.Errorf("sensitive fields not redacted: %v", entry)
	}
	if entry["url"] != "https://api.jikan.moe/v4/anime/1" {
		t.Errorf("url = %v, want passthrough", entry["url"])
	}
}

func TestLogger_AttachesSpanContext(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLoggerWithWriter("info", &buf)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.Info(ctx, "inside span")
	span.End()

	entry := decodeLines(t, &buf)[0]
	if entry["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("trace_id = %v, want %s", entry["trace_id"], span.SpanContext().TraceID())
	}
}

func TestLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLoggerWithWriter("loud", &bytes.Buffer{}); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("NewLoggerWithWriter(loud) error = %v, want %v", err, ErrInvalidLogLevel)
	}
}

func TestLogger_ConcurrentWrites(t *testing.T) {
	var buf syncBuffer
	logger, _ := NewLoggerWithWriter("info", &buf)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.Info(context.Background(), "concurrent", F("i", i))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Errorf("expected 20 lines, got %d", len(lines))
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = (%v, %v), want %v", tt.in, got, err, tt.want)
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
