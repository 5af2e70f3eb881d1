package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferLogger(buf *bytes.Buffer, component string) *Logger {
	return New(Config{Level: slog.LevelDebug, Component: component, Output: buf})
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentDashboard)
	l.Info("hello", FieldOwner, "user-1")

	out := buf.String()
	if !strings.Contains(out, "component=dashboard") || !strings.Contains(out, "owner_id=user-1") {
		t.Fatalf("unexpected output %q", out)
	}

	buf.Reset()
	l.WithComponent(ComponentHTTP).Warn("again")
	if !strings.Contains(buf.String(), "component=http") || strings.Contains(buf.String(), "component=dashboard") {
		t.Fatalf("component not replaced: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentCache)
	if FromContext(NewContext(context.Background(), l)) != l {
		t.Fatal("expected stored logger")
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf, ComponentHTTP)

	h := Middleware(l)(RequestIDMiddleware(func(context.Context) string { return "req_abc" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			FromContext(r.Context()).Info("inside")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/goals", nil))

	if !strings.Contains(buf.String(), "request_id=req_abc") {
		t.Fatalf("request id missing: %q", buf.String())
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(newBufferLogger(&buf, ComponentHTTP))
	r := httptest.NewRequest(http.MethodDelete, "/api/transactions/tx1", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusBadGateway, 12, "10.0.0.1", "req_1")
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "status_code=502") {
		t.Fatalf("unexpected end log: %q", buf.String())
	}

	buf.Reset()
	sl.LogRecordAction(context.Background(), OpDelete, "transaction", "user-1", "tx1")
	for _, want := range []string{"operation=delete", "record_kind=transaction", "record_id=tx1"} {
		if !strings.Contains(buf.String(), want) {
			t.Fatalf("missing %q in %q", want, buf.String())
		}
	}

	buf.Reset()
	sl.LogError(context.Background(), "failed", errors.New("boom"), OpCreate, nil)
	if !strings.Contains(buf.String(), "error=boom") {
		t.Fatalf("unexpected error log: %q", buf.String())
	}
}

func TestFieldsToSliceIsSorted(t *testing.T) {
	got := NewFields().WithOperation(OpUpdate).WithRecord("goal", "user-1", "").WithError(nil).ToSlice()
	want := []any{FieldOperation, OpUpdate, FieldOwner, "user-1", FieldRecordKind, "goal"}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice() = %v, want %v", got, want)
		}
	}
}
