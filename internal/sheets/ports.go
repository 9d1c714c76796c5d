package sheets

import (
	"context"

	"fintrack/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerMirror keeps an external copy of the ledger, one row per
	// transaction keyed by its ID.
	LedgerMirror interface {
		// Upsert writes t, replacing the existing row for t.ID if any.
		Upsert(ctx context.Context, t core.Transaction) error
		// Remove clears the row for id. Removing an unknown id is not an error.
		Remove(ctx context.Context, id int64) error
	}
)

// Header is the first row of a mirrored ledger sheet.
var Header = []string{"ID", "Date", "Description", "Category", "Amount", "Type"}
