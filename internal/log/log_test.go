package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"debug", "INFO", "warn", "warning", "error"} {
		if _, err := ParseLevel(s); err != nil {
			t.Errorf("ParseLevel(%q): %v", s, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentHTTP, Output: &buf})
	logger.Info("hello", FieldUserID, "u1")
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not json: %v", err)
	}
	if rec[FieldComponent] != ComponentHTTP || rec[FieldUserID] != "u1" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentApp, Output: &buf})

	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger without context value")
	}

	ctx := NewContext(context.Background(), base)
	ctx = Enrich(ctx, FieldRequestID, "req_1")
	FromContext(ctx).Info("enriched")
	if !strings.Contains(buf.String(), `"request_id":"req_1"`) {
		t.Fatalf("request id missing from %q", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithRequestID("").
		WithUser("u1").
		WithTransaction("t1", "w1", "-10.00").
		WithHTTPResponse(404, 3)
	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id must be omitted")
	}
	if f[FieldSuccess] != false || f[FieldAmount] != "-10.00" {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != len(f)*2 {
		t.Error("slice must alternate keys and values")
	}
}

func TestRedactQuery(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"from=2025-01-01&to=2025-02-01", "from=2025-01-01&to=2025-02-01"},
		{"token=eyJhbGciOi.secret.sig&format=xlsx", "format=xlsx&token=REDACTED"},
		{"access_token=abc", "access_token=REDACTED"},
		{"token=%zz&x=1", "x=1"},
	}
	for _, tt := range tests {
		if got := RedactQuery(tt.raw); got != tt.want {
			t.Errorf("RedactQuery(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}

	f := NewFields().WithHTTPRequest("GET", "/wallets/w1/export", "", "token=secret-jwt", "")
	if f[FieldQuery] != "token=REDACTED" {
		t.Errorf("query field = %v", f[FieldQuery])
	}
}
