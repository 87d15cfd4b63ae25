package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ledger/internal/core"
)

const txSelect = `
SELECT t.id, t.wallet_id, t.created_by, t.note, t.amount_minor, t.currency, t.occurred_at, t.created_at, t.updated_at,
       c.id, c.user_id, c.name, c.icon, c.color, c.is_visible, c.state
FROM transactions t
JOIN wallets w ON w.id = t.wallet_id
LEFT JOIN categories c ON c.id = t.category_id`

// tagChunk keeps IN lists well under SQLite's bound-variable limit.
const tagChunk = 500

var errTransactionNotFound = &core.NotFoundError{Resource: "transaction"}

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		t                          core.Transaction
		currency                   string
		amount                     int64
		occurred, created, updated int64
		catID, catUser, catName    sql.NullString
		catIcon, catColor          sql.NullString
		catState                   sql.NullString
		catVisible                 sql.NullBool
	)
	err := row.Scan(&t.ID, &t.WalletID, &t.CreatedBy, &t.Note, &amount, &currency, &occurred, &created, &updated,
		&catID, &catUser, &catName, &catIcon, &catColor, &catVisible, &catState)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.FromMinor(amount)
	t.Currency = core.Currency(currency)
	t.Date = unixTime(occurred)
	t.CreatedAt = unixTime(created)
	t.UpdatedAt = unixTime(updated)
	if catID.Valid {
		t.Category = &core.Label{
			ID:        catID.String,
			UserID:    catUser.String,
			Kind:      core.KindCategory,
			Name:      catName.String,
			Icon:      catIcon.String,
			Color:     catColor.String,
			IsVisible: catVisible.Bool,
			State:     core.LabelState(catState.String),
		}
	}
	t.Tags = []core.Label{}
	return t, nil
}

func (q *Queries) collectTransactions(ctx context.Context, rows *sql.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	rows.Close()
	if err := q.attachTags(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTransactions returns the wallet's transactions dated in [from, to),
// newest first. The wallet must belong to userID or the result is empty.
func (q *Queries) ListTransactions(ctx context.Context, walletID, userID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := q.query(ctx, txSelect+`
WHERE t.wallet_id = ? AND w.user_id = ? AND t.occurred_at >= ? AND t.occurred_at < ?
ORDER BY t.occurred_at DESC, t.created_at DESC, t.id`,
		walletID, userID, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return q.collectTransactions(ctx, rows)
}

func (q *Queries) GetTransaction(ctx context.Context, id, userID string) (core.Transaction, error) {
	return q.getTransaction(ctx, txSelect+` WHERE t.id = ? AND w.user_id = ?`, id, userID)
}

// GetTransactionUnscoped is for background jobs acting on behalf of the
// system, such as the spreadsheet mirror. Request paths use GetTransaction.
func (q *Queries) GetTransactionUnscoped(ctx context.Context, id string) (core.Transaction, error) {
	return q.getTransaction(ctx, txSelect+` WHERE t.id = ?`, id)
}

func (q *Queries) getTransaction(ctx context.Context, query string, args ...any) (core.Transaction, error) {
	t, err := scanTransaction(q.queryRow(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, errTransactionNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	txs := []core.Transaction{t}
	if err := q.attachTags(ctx, txs); err != nil {
		return core.Transaction{}, err
	}
	return txs[0], nil
}

// InsertTransaction writes the row and its tag links. Callers run it inside
// Store.WithTx so both land together.
func (q *Queries) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.exec(ctx, `
INSERT INTO transactions (id, wallet_id, created_by, note, amount_minor, currency, occurred_at, category_id, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.WalletID, t.CreatedBy, t.Note, core.ToMinor(t.Amount), string(t.Currency), t.Date.Unix(),
		nullableID(t.CategoryID()), t.CreatedAt.Unix(), t.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return q.SetTransactionTags(ctx, t.ID, t.TagIDs())
}

// UpdateTransaction rewrites the mutable columns and the tag set of a
// transaction in a wallet owned by userID.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction, userID string) error {
	res, err := q.exec(ctx, `
UPDATE transactions SET note = ?, amount_minor = ?, currency = ?, occurred_at = ?, category_id = ?, updated_at = ?
WHERE id = ? AND wallet_id IN (SELECT id FROM wallets WHERE user_id = ?)`,
		t.Note, core.ToMinor(t.Amount), string(t.Currency), t.Date.Unix(), nullableID(t.CategoryID()), t.UpdatedAt.Unix(),
		t.ID, userID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if err := requireAffected(res, errTransactionNotFound); err != nil {
		return err
	}
	return q.SetTransactionTags(ctx, t.ID, t.TagIDs())
}

func (q *Queries) DeleteTransaction(ctx context.Context, id, userID string) error {
	res, err := q.exec(ctx, `
DELETE FROM transactions WHERE id = ? AND wallet_id IN (SELECT id FROM wallets WHERE user_id = ?)`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireAffected(res, errTransactionNotFound)
}

// SetTransactionTags replaces the tag set of a transaction.
func (q *Queries) SetTransactionTags(ctx context.Context, txID string, tagIDs []string) error {
	if _, err := q.exec(ctx, `DELETE FROM transaction_tags WHERE transaction_id = ?`, txID); err != nil {
		return fmt.Errorf("clear transaction tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := q.exec(ctx, `INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)`, txID, tagID); err != nil {
			return fmt.Errorf("link tag %s: %w", tagID, err)
		}
	}
	return nil
}

func (q *Queries) attachTags(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	index := make(map[string]int, len(txs))
	for i := range txs {
		index[txs[i].ID] = i
	}

	for start := 0; start < len(txs); start += tagChunk {
		end := min(start+tagChunk, len(txs))
		args := make([]any, 0, end-start)
		for _, t := range txs[start:end] {
			args = append(args, t.ID)
		}
		rows, err := q.query(ctx, `
SELECT tt.transaction_id, g.id, g.user_id, g.name, g.icon, g.color, g.is_visible, g.state
FROM transaction_tags tt
JOIN tags g ON g.id = tt.tag_id
WHERE tt.transaction_id IN (`+placeholders(len(args))+`)
ORDER BY g.name`, args...)
		if err != nil {
			return fmt.Errorf("load transaction tags: %w", err)
		}
		for rows.Next() {
			var (
				txID  string
				tag   core.Label
				state string
			)
			if err := rows.Scan(&txID, &tag.ID, &tag.UserID, &tag.Name, &tag.Icon, &tag.Color, &tag.IsVisible, &state); err != nil {
				rows.Close()
				return fmt.Errorf("scan transaction tag: %w", err)
			}
			tag.Kind = core.KindTag
			tag.State = core.LabelState(state)
			i := index[txID]
			txs[i].Tags = append(txs[i].Tags, tag)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterate transaction tags: %w", err)
		}
	}
	return nil
}

func nullableID(id *string) any {
	if id == nil {
		return nil
	}
	return *id
}
