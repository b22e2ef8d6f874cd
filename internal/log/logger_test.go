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

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{" WARN ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewJSONFormatCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentSession, Output: &buf})

	logger.Info("Expense added", FieldCategory, "Food")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentSession {
		t.Errorf("component = %v, want %s", rec[FieldComponent], ComponentSession)
	}
	if rec[FieldCategory] != "Food" {
		t.Errorf("category = %v, want Food", rec[FieldCategory])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug record written at info level: %s", buf.String())
	}
}

func TestWithComponentDoesNotDuplicate(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Format: "text", Output: &buf}).WithComponent(ComponentWorker)

	logger.Info("tick")
	if n := strings.Count(buf.String(), "component="); n != 1 {
		t.Errorf("component appears %d times in %q", n, buf.String())
	}
	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("missing component in %q", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithExpense("coffee", "3.50", "Food").
		WithRow(4).
		WithError(nil).
		WithRequestID("")

	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not add a field")
	}
	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id should not add a field")
	}
	if f[FieldAmount] != "3.50" || f[FieldRow] != 4 {
		t.Errorf("unexpected fields: %v", f)
	}
	f.WithError(errors.New("boom"))
	if f[FieldError] != "boom" {
		t.Errorf("error field = %v", f[FieldError])
	}
	if got := len(f.ToSlice()); got != len(f)*2 {
		t.Errorf("ToSlice length = %d, want %d", got, len(f)*2)
	}
}

func TestMiddlewareChain(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "text", Output: &buf})

	type idKey struct{}
	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(ctx context.Context) string {
		id, _ := ctx.Value(idKey{}).(string)
		return id
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = FromContext(r.Context())
		got.Info("inside")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), idKey{}, "req_1"))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if got == nil {
		t.Fatal("handler did not run")
	}
	if !strings.Contains(buf.String(), "request_id=req_1") {
		t.Errorf("request id missing from %q", buf.String())
	}
}

func TestFromContextFallback(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil || l.Logger == nil {
		t.Fatal("expected fallback logger")
	}
	if l.Component() != "unknown" {
		t.Errorf("component = %q, want unknown", l.Component())
	}
}
