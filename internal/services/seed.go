package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledger/internal/core"
	"ledger/internal/storage"
)

// SeedDefaultCategories inserts the default categories the user does not
// already have and returns how many were added. Running it twice is a no-op.
func SeedDefaultCategories(ctx context.Context, q *storage.Queries, userID string, now time.Time) (int, error) {
	added := 0
	for _, d := range core.DefaultCategories {
		created, err := q.InsertLabelIfAbsent(ctx, core.Label{
			ID:        uuid.NewString(),
			UserID:    userID,
			Kind:      core.KindCategory,
			Name:      d.Name,
			Icon:      d.Icon,
			Color:     d.Color,
			IsVisible: true,
			State:     core.StateActive,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return added, fmt.Errorf("seed category %q: %w", d.Name, err)
		}
		if created {
			added++
		}
	}
	return added, nil
}

// SeedAllUsers runs SeedDefaultCategories for every known user, each in its
// own database transaction.
func SeedAllUsers(ctx context.Context, store *storage.Store) (int, error) {
	ids, err := store.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range ids {
		n, err := SeedUser(ctx, store, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// SeedUser seeds one existing user.
func SeedUser(ctx context.Context, store *storage.Store, userID string) (int, error) {
	if _, err := store.GetUser(ctx, userID); err != nil {
		return 0, err
	}
	var added int
	err := store.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		added, err = SeedDefaultCategories(ctx, q, userID, time.Now().UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	slog.InfoContext(ctx, "Seeded default categories", "user_id", userID, "added", added)
	return added, nil
}
