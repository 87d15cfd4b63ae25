package sheets

import (
	"context"

	"ledger/internal/core"
	"ledger/internal/export"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps one spreadsheet row per transaction, keyed by
	// the transaction id in the first column.
	TransactionMirror interface {
		// Upsert rewrites the transaction's row, appending it when absent.
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
		// Delete clears the row. A missing row is not an error.
		Delete(ctx context.Context, transactionID string) error
	}
)

// Columns is the mirror header. The export columns follow the two ids.
var Columns = append([]string{"id", "wallet_id"}, export.Header...)

// AmountColumn is the index of the amount within Columns.
const AmountColumn = 4

// RowValues flattens t in Columns order.
func RowValues(t core.Transaction) []string {
	r := export.Rows([]core.Transaction{t})[0]
	return append([]string{t.ID, t.WalletID}, r.Values()...)
}
