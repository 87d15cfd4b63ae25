package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger/internal/core"
)

func (q *Queries) GetUser(ctx context.Context, id string) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	err := q.queryRow(ctx, `SELECT id, email, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Email, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, &core.NotFoundError{Resource: "user"}
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = unixTime(created)
	return u, nil
}

// InsertUser creates the user unless it already exists and reports whether a
// row was written.
func (q *Queries) InsertUser(ctx context.Context, u core.User) (bool, error) {
	res, err := q.exec(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		u.ID, u.Email, u.CreatedAt.Unix())
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// DeleteUser removes the user; wallets, transactions, categories and tags
// follow through ON DELETE CASCADE.
func (q *Queries) DeleteUser(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireAffected(res, &core.NotFoundError{Resource: "user"})
}

func (q *Queries) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.query(ctx, `SELECT id FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
