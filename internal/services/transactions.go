package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/storage"
)

type TransactionService struct {
	store     *storage.Store
	publisher Publisher
	now       func() time.Time
}

// NewTransactionService wires the service; publisher may be nil, in which
// case no events are sent.
func NewTransactionService(store *storage.Store, publisher Publisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher, now: time.Now}
}

// List returns the wallet's transactions dated inside period, newest first.
func (s *TransactionService) List(ctx context.Context, walletID, userID string, period core.Period) ([]core.Transaction, error) {
	if _, err := s.store.GetWallet(ctx, walletID, userID); err != nil {
		return nil, err
	}
	from, to := period.Bounds()
	return s.store.ListTransactions(ctx, walletID, userID, from, to)
}

func (s *TransactionService) Get(ctx context.Context, id, userID string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id, userID)
}

// Create records a transaction in the wallet. A zero Date means now.
func (s *TransactionService) Create(ctx context.Context, walletID, userID string, in core.TransactionInput) (core.Transaction, error) {
	now := s.now().UTC().Truncate(time.Second)
	in = normalizeTransaction(in, now)
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	wallet, err := s.store.GetWallet(ctx, walletID, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := checkCurrency(in.Currency, wallet.Currency); err != nil {
		return core.Transaction{}, err
	}

	t := core.Transaction{
		ID:        uuid.NewString(),
		WalletID:  wallet.ID,
		CreatedBy: userID,
		Note:      in.Note,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Date:      in.Date,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := resolveLabels(ctx, q, userID, in, nil, &t); err != nil {
			return err
		}
		return q.InsertTransaction(ctx, t)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.publish(ctx, amqp.EventCreated, t.ID, t.WalletID, userID)
	return s.store.GetTransaction(ctx, t.ID, userID)
}

// Update replaces every mutable field of the transaction. Labels already
// attached may stay even if archived since; newly attached ones must be
// active.
func (s *TransactionService) Update(ctx context.Context, id, userID string, in core.TransactionInput) (core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, id, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	now := s.now().UTC().Truncate(time.Second)
	in = normalizeTransaction(in, current.Date)
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	wallet, err := s.store.GetWallet(ctx, current.WalletID, userID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := checkCurrency(in.Currency, wallet.Currency); err != nil {
		return core.Transaction{}, err
	}

	t := current
	t.Note = in.Note
	t.Amount = in.Amount
	t.Currency = in.Currency
	t.Date = in.Date
	t.UpdatedAt = now
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := resolveLabels(ctx, q, userID, in, &current, &t); err != nil {
			return err
		}
		return q.UpdateTransaction(ctx, t, userID)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.publish(ctx, amqp.EventUpdated, t.ID, t.WalletID, userID)
	return s.store.GetTransaction(ctx, t.ID, userID)
}

func (s *TransactionService) Delete(ctx context.Context, id, userID string) error {
	current, err := s.store.GetTransaction(ctx, id, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id, userID); err != nil {
		return err
	}
	s.publish(ctx, amqp.EventDeleted, id, current.WalletID, userID)
	return nil
}

// publish runs after commit. The write already succeeded, so failures are
// logged and swallowed.
func (s *TransactionService) publish(ctx context.Context, typ amqp.EventType, txID, walletID, userID string) {
	if s.publisher == nil {
		return
	}
	event := amqp.NewTransactionEvent(typ, txID, walletID, userID)
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"type", typ,
			"transaction_id", txID,
			"error", err)
	}
}

func normalizeTransaction(in core.TransactionInput, defaultDate time.Time) core.TransactionInput {
	in.Note = strings.TrimSpace(in.Note)
	if c, ok := core.ParseCurrency(string(in.Currency)); ok {
		in.Currency = c
	}
	if in.Date.IsZero() {
		in.Date = defaultDate
	}
	in.Date = in.Date.UTC().Truncate(time.Second)
	return in
}

func checkCurrency(got, want core.Currency) error {
	if got != want {
		return core.NewValidationError("currency", fmt.Sprintf("must match the wallet currency (%s)", want))
	}
	return nil
}

// resolveLabels loads the requested category and tags for userID and stores
// them on t. Labels of other users read as missing.
func resolveLabels(ctx context.Context, q *storage.Queries, userID string, in core.TransactionInput, current *core.Transaction, t *core.Transaction) error {
	verr := &core.ValidationError{}
	kept := map[string]bool{}
	if current != nil {
		if id := current.CategoryID(); id != nil {
			kept[*id] = true
		}
		for _, id := range current.TagIDs() {
			kept[id] = true
		}
	}

	t.Category = nil
	if in.CategoryID != nil {
		cat, err := q.GetLabel(ctx, core.KindCategory, *in.CategoryID, userID)
		switch {
		case core.IsNotFound(err):
			verr.Add("category_id", "does not exist")
		case err != nil:
			return err
		case !cat.Assignable() && !kept[cat.ID]:
			verr.Add("category_id", "is archived")
		default:
			t.Category = &cat
		}
	}

	t.Tags = []core.Label{}
	if len(in.TagIDs) > 0 {
		found, err := q.GetLabelsByIDs(ctx, core.KindTag, userID, in.TagIDs)
		if err != nil {
			return err
		}
		for _, id := range in.TagIDs {
			tag, ok := found[id]
			switch {
			case !ok:
				verr.Add("tag_ids", fmt.Sprintf("tag %s does not exist", id))
			case !tag.Assignable() && !kept[id]:
				verr.Add("tag_ids", fmt.Sprintf("tag %s is archived", id))
			default:
				t.Tags = append(t.Tags, tag)
			}
		}
	}
	return verr.OrNil()
}
