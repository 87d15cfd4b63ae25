package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/storage"
)

// UserService maps token subjects to local users, creating them on first
// sight.
type UserService struct {
	store *storage.Store
	cache cache.Cache[core.User]
	group singleflight.Group
	now   func() time.Time
}

// NewUserService wires the resolver; a nil cache disables caching.
func NewUserService(store *storage.Store, c cache.Cache[core.User]) *UserService {
	return &UserService{store: store, cache: c, now: time.Now}
}

// Resolve returns the user named by subject. The first call for a new
// subject creates the row and seeds the default categories in one database
// transaction; concurrent first calls share that work.
func (s *UserService) Resolve(ctx context.Context, subject string) (core.User, error) {
	if subject == "" {
		return core.User{}, errors.New("empty subject")
	}
	if s.cache != nil {
		if u, ok := s.cache.Get(ctx, subject); ok {
			return u, nil
		}
	}

	v, err, _ := s.group.Do(subject, func() (any, error) {
		return s.getOrCreate(ctx, subject)
	})
	if err != nil {
		return core.User{}, err
	}
	u := v.(core.User)
	if s.cache != nil {
		s.cache.Set(ctx, subject, u)
	}
	return u, nil
}

func (s *UserService) getOrCreate(ctx context.Context, subject string) (core.User, error) {
	u, err := s.store.GetUser(ctx, subject)
	if err == nil {
		return u, nil
	}
	if !core.IsNotFound(err) {
		return core.User{}, err
	}

	now := s.now().UTC()
	err = s.store.WithTx(ctx, func(q *storage.Queries) error {
		created, err := q.InsertUser(ctx, core.User{ID: subject, CreatedAt: now})
		if err != nil {
			return err
		}
		if !created {
			return nil
		}
		n, err := SeedDefaultCategories(ctx, q, subject, now)
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Created user", "user_id", subject, "seeded_categories", n)
		return nil
	})
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return s.store.GetUser(ctx, subject)
}

// Delete removes the user and everything they own.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, userID)
	}
	return nil
}
