package backend

import (
	"context"
	"io"
	"strings"
	"testing"

	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/sheets/memory"
)

func discardLogger() *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Output = io.Discard
	return log.New(cfg)
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{MirrorBackend: "sqlite"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		MirrorBackend:        "sheets",
		GoogleSpreadsheetID:  "sid",
		GoogleSheetName:      "Transactions",
		GoogleOAuthTokenJSON: "{}",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.GoogleSpreadsheetID != "sid" || cfg.GoogleOAuthTokenJSON != "{}" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"unknown", Config{Type: "ftp"}, "invalid backend type"},
		{"sheets without id", Config{Type: SheetsBackend, GoogleSheetName: "T"}, "Spreadsheet ID"},
		{"sheets without client", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x", GoogleSheetName: "T", GoogleOAuthTokenJSON: "{}"}, "GoogleOAuthClient"},
		{"sheets without token", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x", GoogleSheetName: "T", GoogleOAuthClientJSON: "{}"}, "GoogleOAuthToken"},
		{"sheets complete", Config{Type: SheetsBackend, GoogleSpreadsheetID: "x", GoogleSheetName: "T", GoogleOAuthClientJSON: "{}", GoogleOAuthTokenJSON: "{}"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateMirror(t *testing.T) {
	f := NewFactory(discardLogger())

	res, err := f.CreateMirror(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("memory mirror: %v", err)
	}
	if _, ok := res.Mirror.(*memory.Store); !ok {
		t.Fatalf("expected *memory.Store, got %T", res.Mirror)
	}

	_, err = f.CreateMirror(context.Background(), Config{
		Type:                  SheetsBackend,
		GoogleSpreadsheetID:   "sid",
		GoogleSheetName:       "T",
		GoogleOAuthClientJSON: "not json",
		GoogleOAuthTokenJSON:  "{}",
	})
	if err == nil || !strings.Contains(err.Error(), "oauth config") {
		t.Fatalf("expected oauth config error, got %v", err)
	}
}
