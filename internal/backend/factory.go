package backend

import (
	"context"
	"fmt"

	"ledger/internal/log"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentSheets)}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		cli, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   config.GoogleSpreadsheetID,
			SheetName:       config.GoogleSheetName,
			OAuthClientJSON: config.GoogleOAuthClientJSON,
			OAuthClientFile: config.GoogleOAuthClientFile,
			OAuthTokenJSON:  config.GoogleOAuthTokenJSON,
			OAuthTokenFile:  config.GoogleOAuthTokenFile,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror",
			"spreadsheet_id", config.GoogleSpreadsheetID,
			"sheet", config.GoogleSheetName)
		return &MirrorResult{Mirror: cli}, nil

	case MemoryBackend:
		f.logger.InfoContext(ctx, "Initialized memory mirror")
		return &MirrorResult{Mirror: memory.New()}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
