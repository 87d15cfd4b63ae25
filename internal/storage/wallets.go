package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger/internal/core"
)

// Balance is derived from the transaction set on every read.
const walletSelect = `
SELECT w.id, w.user_id, w.name, w.currency, w.initial_minor, w.created_at, w.updated_at,
       CAST(COALESCE((SELECT SUM(t.amount_minor) FROM transactions t WHERE t.wallet_id = w.id), 0) AS BIGINT),
       (SELECT COUNT(*) FROM transactions t WHERE t.wallet_id = w.id)
FROM wallets w`

var errWalletNotFound = &core.NotFoundError{Resource: "wallet"}

func scanWallet(row interface{ Scan(...any) error }) (core.WalletWithBalance, error) {
	var (
		w                core.WalletWithBalance
		currency         string
		initial, sum     int64
		created, updated int64
	)
	if err := row.Scan(&w.ID, &w.UserID, &w.Name, &currency, &initial, &created, &updated, &sum, &w.TransactionCount); err != nil {
		return core.WalletWithBalance{}, err
	}
	w.Currency = core.Currency(currency)
	w.InitialValue = core.FromMinor(initial)
	w.CreatedAt = unixTime(created)
	w.UpdatedAt = unixTime(updated)
	w.Balance = core.FromMinor(initial + sum)
	return w, nil
}

func (q *Queries) ListWallets(ctx context.Context, userID string) ([]core.WalletWithBalance, error) {
	rows, err := q.query(ctx, walletSelect+` WHERE w.user_id = ? ORDER BY w.created_at, w.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list wallets: %w", err)
	}
	defer rows.Close()

	out := []core.WalletWithBalance{}
	for rows.Next() {
		w, err := scanWallet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetWallet returns the wallet only when userID owns it.
func (q *Queries) GetWallet(ctx context.Context, id, userID string) (core.WalletWithBalance, error) {
	w, err := scanWallet(q.queryRow(ctx, walletSelect+` WHERE w.id = ? AND w.user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.WalletWithBalance{}, errWalletNotFound
	}
	if err != nil {
		return core.WalletWithBalance{}, fmt.Errorf("get wallet: %w", err)
	}
	return w, nil
}

func (q *Queries) InsertWallet(ctx context.Context, w core.Wallet) error {
	_, err := q.exec(ctx, `
INSERT INTO wallets (id, user_id, name, currency, initial_minor, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Name, string(w.Currency), core.ToMinor(w.InitialValue), w.CreatedAt.Unix(), w.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

func (q *Queries) UpdateWallet(ctx context.Context, w core.Wallet) error {
	res, err := q.exec(ctx, `
UPDATE wallets SET name = ?, currency = ?, initial_minor = ?, updated_at = ?
WHERE id = ? AND user_id = ?`,
		w.Name, string(w.Currency), core.ToMinor(w.InitialValue), w.UpdatedAt.Unix(), w.ID, w.UserID)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	return requireAffected(res, errWalletNotFound)
}

// DeleteWallet removes the wallet and, by cascade, its transactions.
func (q *Queries) DeleteWallet(ctx context.Context, id, userID string) error {
	res, err := q.exec(ctx, `DELETE FROM wallets WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete wallet: %w", err)
	}
	return requireAffected(res, errWalletNotFound)
}
