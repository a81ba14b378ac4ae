package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewJSONIncludesComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Component: ComponentSuggest, Output: &buf})
	logger.Info("hello", FieldUserID, "u1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentSuggest || rec[FieldUserID] != "u1" {
		t.Fatalf("unexpected record %v", rec)
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Fatalf("component repeated: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"nope":  slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).InfoContext(r.Context(), "inside")
		}),
	))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("request id missing: %s", buf.String())
	}
}

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger")
	}
}

func TestStructuredLoggerTransactionAndError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))

	sl.LogTransaction(context.Background(), OpWithdraw, "u1", "tx1", "withdrawal", 5000, 95000)
	sl.LogError(context.Background(), "boom", errors.New("disk full"), OpDeposit, ErrorTypeDatabase, NewFields().WithUser("u1", "alice"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 records, got %d: %s", len(lines), buf.String())
	}
	var tx, failure map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &tx); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &failure); err != nil {
		t.Fatal(err)
	}
	if tx[FieldOperation] != OpWithdraw || tx[FieldAmountCents] != float64(5000) || tx[FieldBalanceCents] != float64(95000) {
		t.Fatalf("unexpected transaction record %v", tx)
	}
	if failure[FieldError] != "disk full" || failure[FieldErrorType] != ErrorTypeDatabase || failure[FieldUsername] != "alice" {
		t.Fatalf("unexpected error record %v", failure)
	}
}
