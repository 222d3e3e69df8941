package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromZap(zap.New(core))

	logger.Info("register", "username", "alice", "password", "hunter2", "PasswordHash", "$2a$...")
	logger.With("api_token", "abc").Warn("child")

	entries := logs.AllUntimed()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["username"] != "alice" {
		t.Fatalf("expected username kept, got %v", fields["username"])
	}
	if fields["password"] != redacted || fields["PasswordHash"] != redacted {
		t.Fatalf("expected credentials redacted, got %v", fields)
	}
	if entries[1].ContextMap()["api_token"] != redacted || entries[1].Level != zapcore.WarnLevel {
		t.Fatalf("expected redacted child field at warn, got %+v", entries[1])
	}
}

func TestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewLoggerFromZap(zap.New(core))
	logger.Debug("d")
	logger.Info("i")
	logger.Warn("w")
	logger.Error("e")
	want := []zapcore.Level{zapcore.DebugLevel, zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel}
	for i, entry := range logs.AllUntimed() {
		if entry.Level != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], entry.Level)
		}
	}
	if NewLoggerFromZap(nil) == nil {
		t.Fatalf("expected nop-backed logger for nil input")
	}
}

func TestNewLoggerModes(t *testing.T) {
	for _, mode := range []string{"prod", "development", ""} {
		logger, err := NewLogger(mode)
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		logger.Debug("hello", "mode", mode)
	}
}

func TestPrometheusRecorder(t *testing.T) {
	rec := NewPrometheusRecorder()
	ctx := context.Background()
	rec.Observe(ctx, "create_tree", true, 3*time.Millisecond)
	rec.Observe(ctx, "create_tree", true, time.Millisecond)
	rec.Observe(ctx, "create_tree", false, time.Millisecond)

	if got := testutil.ToFloat64(rec.calls.WithLabelValues("create_tree", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.calls.WithLabelValues("create_tree", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`treeregistry_operations_total{operation="create_tree",result="success"} 2`,
		`treeregistry_operation_duration_seconds_count{operation="create_tree"} 3`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in scrape output", want)
		}
	}
	if rec.Registry() == nil {
		t.Fatalf("expected registry")
	}
}

func TestSanitizeKeepsDanglingKey(t *testing.T) {
	out := sanitize([]any{"token", "abc", "dangling"})
	if len(out) != 3 || out[1] != redacted || out[2] != "dangling" {
		t.Fatalf("unexpected sanitized pairs %v", out)
	}
}
