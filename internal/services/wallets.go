package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// WalletSummary is the monthly report for one wallet.
type WalletSummary struct {
	Wallet     core.WalletWithBalance
	Period     core.Period
	Totals     core.Totals
	Categories []core.Share
	Tags       []core.Share
}

type WalletService struct {
	store *storage.Store
	now   func() time.Time
}

func NewWalletService(store *storage.Store) *WalletService {
	return &WalletService{store: store, now: time.Now}
}

func (s *WalletService) List(ctx context.Context, userID string) ([]core.WalletWithBalance, error) {
	return s.store.ListWallets(ctx, userID)
}

func (s *WalletService) Get(ctx context.Context, id, userID string) (core.WalletWithBalance, error) {
	return s.store.GetWallet(ctx, id, userID)
}

func (s *WalletService) Create(ctx context.Context, userID string, in core.WalletInput) (core.WalletWithBalance, error) {
	in = normalizeWallet(in)
	if err := in.Validate(); err != nil {
		return core.WalletWithBalance{}, err
	}
	now := s.now().UTC()
	w := core.Wallet{
		ID:           uuid.NewString(),
		UserID:       userID,
		Name:         in.Name,
		Currency:     in.Currency,
		InitialValue: in.InitialValue,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.InsertWallet(ctx, w); err != nil {
		return core.WalletWithBalance{}, err
	}
	return s.store.GetWallet(ctx, w.ID, userID)
}

// Update replaces name, currency and initial value. The currency is frozen
// once the wallet holds transactions, since their amounts are denominated in
// it.
func (s *WalletService) Update(ctx context.Context, id, userID string, in core.WalletInput) (core.WalletWithBalance, error) {
	in = normalizeWallet(in)
	if err := in.Validate(); err != nil {
		return core.WalletWithBalance{}, err
	}
	current, err := s.store.GetWallet(ctx, id, userID)
	if err != nil {
		return core.WalletWithBalance{}, err
	}
	if in.Currency != current.Currency && current.TransactionCount > 0 {
		return core.WalletWithBalance{}, core.NewValidationError("currency", "cannot change while the wallet has transactions")
	}

	w := current.Wallet
	w.Name = in.Name
	w.Currency = in.Currency
	w.InitialValue = in.InitialValue
	w.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateWallet(ctx, w); err != nil {
		return core.WalletWithBalance{}, err
	}
	return s.store.GetWallet(ctx, id, userID)
}

// Delete removes the wallet and its transactions.
func (s *WalletService) Delete(ctx context.Context, id, userID string) error {
	return s.store.DeleteWallet(ctx, id, userID)
}

// Summary reports the wallet's all-time balance alongside totals and
// breakdowns for the transactions dated inside period.
func (s *WalletService) Summary(ctx context.Context, id, userID string, period core.Period) (WalletSummary, error) {
	w, err := s.store.GetWallet(ctx, id, userID)
	if err != nil {
		return WalletSummary{}, err
	}
	from, to := period.Bounds()
	txs, err := s.store.ListTransactions(ctx, id, userID, from, to)
	if err != nil {
		return WalletSummary{}, err
	}
	return WalletSummary{
		Wallet:     w,
		Period:     period,
		Totals:     core.ComputeTotals(txs),
		Categories: core.CategoryBreakdown(txs),
		Tags:       core.TagBreakdown(txs),
	}, nil
}

func normalizeWallet(in core.WalletInput) core.WalletInput {
	in.Name = strings.TrimSpace(in.Name)
	if c, ok := core.ParseCurrency(string(in.Currency)); ok {
		in.Currency = c
	}
	return in
}
