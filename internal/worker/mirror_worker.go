package worker

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/sheets"
)

// TransactionReader loads a transaction regardless of its owner.
type TransactionReader interface {
	GetTransactionUnscoped(ctx context.Context, id string) (core.Transaction, error)
}

// TransactionLister walks every stored transaction for a backfill.
type TransactionLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
	ListWallets(ctx context.Context, userID string) ([]core.WalletWithBalance, error)
	ListTransactions(ctx context.Context, walletID, userID string, from, to time.Time) ([]core.Transaction, error)
}

// MirrorWorker copies committed transactions into a spreadsheet mirror.
// Events carry ids only, so every upsert reads the current row.
type MirrorWorker struct {
	source TransactionReader
	mirror sheets.TransactionMirror
	logger *log.Logger
}

func NewMirrorWorker(source TransactionReader, mirror sheets.TransactionMirror, logger *log.Logger) *MirrorWorker {
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleEvent applies one event. A created or updated event whose
// transaction is already gone clears the row, since a delete event follows
// or was handled first.
func (w *MirrorWorker) HandleEvent(ctx context.Context, event amqp.TransactionEvent) error {
	logger := w.logger.With(
		log.FieldEventType, event.Type,
		log.FieldTransactionID, event.TransactionID,
		log.FieldWalletID, event.WalletID,
	)

	if event.Type == amqp.EventDeleted {
		return w.clear(ctx, logger, event.TransactionID)
	}

	t, err := w.source.GetTransactionUnscoped(ctx, event.TransactionID)
	if core.IsNotFound(err) {
		logger.InfoContext(ctx, "Transaction no longer exists, clearing mirror row")
		return w.clear(ctx, logger, event.TransactionID)
	}
	if err != nil {
		return fmt.Errorf("load transaction %s: %w", event.TransactionID, err)
	}

	ref, err := w.mirror.Upsert(ctx, t)
	if err != nil {
		return fmt.Errorf("mirror transaction %s: %w", t.ID, err)
	}
	logger.InfoContext(ctx, "Mirrored transaction",
		log.FieldOperation, log.OpMirror,
		"row", ref,
		log.FieldAmount, core.FormatAmount(t.Amount))
	return nil
}

func (w *MirrorWorker) clear(ctx context.Context, logger *log.Logger, id string) error {
	if err := w.mirror.Delete(ctx, id); err != nil {
		return fmt.Errorf("clear mirror row %s: %w", id, err)
	}
	logger.InfoContext(ctx, "Cleared mirror row", log.FieldOperation, log.OpDelete)
	return nil
}

// BackfillResult counts what a backfill touched.
type BackfillResult struct {
	Total  int
	Synced int
	Errors int
}

// Backfill upserts every stored transaction. It recovers rows missed while
// the worker was down; individual failures are counted, not fatal.
func (w *MirrorWorker) Backfill(ctx context.Context, lister TransactionLister) (BackfillResult, error) {
	var res BackfillResult

	users, err := lister.ListUserIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("list users: %w", err)
	}

	from := time.Unix(0, 0).UTC()
	to := time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, userID := range users {
		wallets, err := lister.ListWallets(ctx, userID)
		if err != nil {
			return res, fmt.Errorf("list wallets for %s: %w", userID, err)
		}
		for _, wallet := range wallets {
			txs, err := lister.ListTransactions(ctx, wallet.ID, userID, from, to)
			if err != nil {
				return res, fmt.Errorf("list transactions for wallet %s: %w", wallet.ID, err)
			}
			for _, t := range txs {
				if err := ctx.Err(); err != nil {
					return res, err
				}
				res.Total++
				if _, err := w.mirror.Upsert(ctx, t); err != nil {
					w.logger.ErrorContext(ctx, "Failed to mirror transaction during backfill",
						log.FieldTransactionID, t.ID, log.FieldError, err)
					res.Errors++
					continue
				}
				res.Synced++
			}
		}
	}

	w.logger.InfoContext(ctx, "Backfill completed",
		"total", res.Total,
		"synced", res.Synced,
		"errors", res.Errors)
	return res, nil
}
