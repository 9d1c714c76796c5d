package backend

import (
	"context"
	"fmt"
	"log/slog"

	applog "fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new mirror factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsMirror(ctx, config)
	case MemoryBackend:
		return f.createMemoryMirror()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsMirror(ctx context.Context, config Config) (*MirrorResult, error) {
	client, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
		Logger:          f.logger.With(applog.FieldComponent, applog.ComponentSheets),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	if err := client.EnsureHeader(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare sheet header: %w", err)
	}

	f.logger.Info("Initialized Google Sheets mirror",
		"spreadsheet_id", config.GoogleSpreadsheetID,
		"sheet", config.GoogleSheetName)

	return &MirrorResult{Mirror: client, Type: SheetsBackend}, nil
}

func (f *DefaultFactory) createMemoryMirror() (*MirrorResult, error) {
	f.logger.Warn("Initialized memory mirror; rows are not persisted")
	return &MirrorResult{Mirror: memory.New(), Type: MemoryBackend}, nil
}
