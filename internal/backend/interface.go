package backend

import (
	"context"

	"fintrack/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// MirrorResult contains the mirror instance and optional cleanup function
type MirrorResult struct {
	Mirror  sheets.LedgerMirror
	Type    BackendType
	Cleanup CleanupFunc
}

// Factory creates ledger mirrors based on configuration
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (*MirrorResult, error)
}

// Config holds what every mirror backend may need.
type Config struct {
	Type BackendType

	// Google Sheets specific
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of mirror backend
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
