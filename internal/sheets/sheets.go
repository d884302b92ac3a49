// Package sheets defines the outbound port for mirroring transactions into a
// spreadsheet.
package sheets

import (
	"context"

	"fintrack/internal/core"
)

// TransactionExporter keeps one row per transaction in an external sheet.
type TransactionExporter interface {
	// UpsertTransaction writes tx, replacing its existing row if present.
	UpsertTransaction(ctx context.Context, tx core.Transaction) error
	// RemoveTransaction blanks the row of the given transaction. A missing
	// row is not an error.
	RemoveTransaction(ctx context.Context, transactionID string) error
}
