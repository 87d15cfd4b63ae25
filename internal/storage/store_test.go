package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedUser(t *testing.T, s *Store, id string) {
	t.Helper()
	if _, err := s.InsertUser(context.Background(), core.User{ID: id, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("insert user: %v", err)
	}
}

func seedWallet(t *testing.T, s *Store, id, userID, initial string) {
	t.Helper()
	now := time.Now()
	err := s.InsertWallet(context.Background(), core.Wallet{
		ID: id, UserID: userID, Name: "Main", Currency: core.USD,
		InitialValue: decimal.RequireFromString(initial), CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("insert wallet: %v", err)
	}
}

func seedTx(t *testing.T, s *Store, id, walletID, userID, amount string, date time.Time, cat *core.Label, tags ...core.Label) {
	t.Helper()
	now := time.Now()
	err := s.WithTx(context.Background(), func(q *Queries) error {
		return q.InsertTransaction(context.Background(), core.Transaction{
			ID: id, WalletID: walletID, CreatedBy: userID, Note: "n",
			Amount: decimal.RequireFromString(amount), Currency: core.USD, Date: date,
			Category: cat, Tags: tags, CreatedAt: now, UpdatedAt: now,
		})
	})
	if err != nil {
		t.Fatalf("insert transaction: %v", err)
	}
}

func TestRebind(t *testing.T) {
	pg := &Queries{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b IN (?, ?)"); got != "a = $1 AND b IN ($2, $3)" {
		t.Fatalf("unexpected postgres rebind %q", got)
	}
	lite := &Queries{dialect: DialectSQLite}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Fatalf("sqlite query must be unchanged, got %q", got)
	}
	if placeholders(3) != "?, ?, ?" || placeholders(0) != "" {
		t.Fatalf("unexpected placeholders")
	}
}

func TestInsertUserIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created, err := s.InsertUser(ctx, core.User{ID: "u1", CreatedAt: time.Now()})
	if err != nil || !created {
		t.Fatalf("first insert: created=%v err=%v", created, err)
	}
	created, err = s.InsertUser(ctx, core.User{ID: "u1", CreatedAt: time.Now()})
	if err != nil || created {
		t.Fatalf("second insert: created=%v err=%v", created, err)
	}
}

func TestWalletBalanceAndOwnership(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedUser(t, s, "bob")
	seedWallet(t, s, "w1", "alice", "1000.00")

	d := time.Date(2025, 12, 3, 12, 0, 0, 0, time.UTC)
	seedTx(t, s, "t1", "w1", "alice", "-150.50", d, nil)
	seedTx(t, s, "t2", "w1", "alice", "5000.00", d, nil)
	seedTx(t, s, "t3", "w1", "alice", "-42.00", d, nil)

	w, err := s.GetWallet(ctx, "w1", "alice")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if core.FormatAmount(w.Balance) != "5807.50" {
		t.Fatalf("expected balance 5807.50, got %s", core.FormatAmount(w.Balance))
	}
	if w.TransactionCount != 3 {
		t.Fatalf("expected 3 transactions, got %d", w.TransactionCount)
	}

	if _, err := s.GetWallet(ctx, "w1", "bob"); !core.IsNotFound(err) {
		t.Fatalf("expected not found for foreign wallet, got %v", err)
	}
	if _, err := s.GetWallet(ctx, "missing", "bob"); !core.IsNotFound(err) {
		t.Fatalf("expected not found for missing wallet, got %v", err)
	}
	if err := s.DeleteWallet(ctx, "w1", "bob"); !core.IsNotFound(err) {
		t.Fatalf("foreign delete must be not found, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, "t1", "bob"); !core.IsNotFound(err) {
		t.Fatalf("foreign transaction must be not found, got %v", err)
	}
}

func TestListTransactionsUsesCalendarMonth(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedWallet(t, s, "w1", "alice", "0")

	seedTx(t, s, "nov", "w1", "alice", "-1.00", time.Date(2025, 11, 30, 23, 59, 59, 0, time.UTC), nil)
	seedTx(t, s, "dec", "w1", "alice", "-2.00", time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), nil)

	from, to := core.Period{Year: 2025, Month: time.December}.Bounds()
	txs, err := s.ListTransactions(ctx, "w1", "alice", from, to)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 || txs[0].ID != "dec" {
		t.Fatalf("expected only the December transaction, got %+v", txs)
	}

	other, err := s.ListTransactions(ctx, "w1", "bob", from, to)
	if err != nil || len(other) != 0 {
		t.Fatalf("foreign listing must be empty, got %d (err=%v)", len(other), err)
	}
}

func TestLabelsAndTags(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedWallet(t, s, "w1", "alice", "0")
	now := time.Now()

	food := core.Label{ID: "c1", UserID: "alice", Kind: core.KindCategory, Name: "Food", Color: "#F97316", IsVisible: true, State: core.StateActive, CreatedAt: now, UpdatedAt: now}
	if err := s.InsertLabel(ctx, food); err != nil {
		t.Fatalf("insert category: %v", err)
	}
	dup := food
	dup.ID = "c2"
	if err := s.InsertLabel(ctx, dup); !core.IsConflict(err) {
		t.Fatalf("expected conflict on duplicate name, got %v", err)
	}
	dup.Name = "food"
	if err := s.InsertLabel(ctx, dup); !core.IsConflict(err) {
		t.Fatalf("expected conflict on a name differing only in case, got %v", err)
	}
	dup.Name = "FOOD"
	if created, err := s.InsertLabelIfAbsent(ctx, dup); err != nil || created {
		t.Fatalf("seeding must skip an existing name in another case, got created=%v err=%v", created, err)
	}
	if taken, err := s.LabelNameTaken(ctx, core.KindCategory, "alice", "fOOd", ""); err != nil || !taken {
		t.Fatalf("LabelNameTaken = %v, %v", taken, err)
	}

	trip := core.Label{ID: "g1", UserID: "alice", Kind: core.KindTag, Name: "trip", Color: core.DefaultTagColor, IsVisible: true, State: core.StateActive, CreatedAt: now, UpdatedAt: now}
	work := trip
	work.ID, work.Name = "g2", "work"
	for _, l := range []core.Label{trip, work} {
		if err := s.InsertLabel(ctx, l); err != nil {
			t.Fatalf("insert tag: %v", err)
		}
	}

	d := time.Date(2025, 12, 3, 0, 0, 0, 0, time.UTC)
	seedTx(t, s, "t1", "w1", "alice", "-10.00", d, &food, trip, work)

	got, err := s.GetTransaction(ctx, "t1", "alice")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Category == nil || got.Category.Name != "Food" {
		t.Fatalf("expected Food category, got %+v", got.Category)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(got.Tags))
	}

	got.Tags = []core.Label{work}
	got.Category = nil
	got.UpdatedAt = time.Now()
	if err := s.WithTx(ctx, func(q *Queries) error { return q.UpdateTransaction(ctx, got, "alice") }); err != nil {
		t.Fatalf("update transaction: %v", err)
	}
	got, _ = s.GetTransaction(ctx, "t1", "alice")
	if got.Category != nil || len(got.Tags) != 1 || got.Tags[0].Name != "work" {
		t.Fatalf("update did not replace category/tags: %+v", got)
	}

	food.IsVisible = false
	food.UpdatedAt = time.Now()
	if err := s.UpdateLabel(ctx, food); err != nil {
		t.Fatalf("hide category: %v", err)
	}
	visible, _ := s.ListLabels(ctx, core.KindCategory, "alice", LabelFilter{})
	if len(visible) != 0 {
		t.Fatalf("hidden category must not be listed by default, got %d", len(visible))
	}
	all, _ := s.ListLabels(ctx, core.KindCategory, "alice", LabelFilter{IncludeHidden: true})
	if len(all) != 1 {
		t.Fatalf("expected hidden category with include_hidden, got %d", len(all))
	}

	tags, err := s.ListLabels(ctx, core.KindTag, "alice", LabelFilter{})
	if err != nil {
		t.Fatalf("list tags: %v", err)
	}
	counts := map[string]int64{}
	for _, tg := range tags {
		counts[tg.Name] = tg.TransactionCount
	}
	if counts["work"] != 1 || counts["trip"] != 0 {
		t.Fatalf("unexpected tag counts %v", counts)
	}
}

func TestRollbackLeavesNoPartialWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedWallet(t, s, "w1", "alice", "0")
	now := time.Now()

	err := s.WithTx(ctx, func(q *Queries) error {
		return q.InsertTransaction(ctx, core.Transaction{
			ID: "t1", WalletID: "w1", CreatedBy: "alice", Note: "n",
			Amount: decimal.RequireFromString("-1"), Currency: core.USD, Date: now,
			Tags:      []core.Label{{ID: "no-such-tag"}},
			CreatedAt: now, UpdatedAt: now,
		})
	})
	if err == nil {
		t.Fatalf("expected foreign key failure for unknown tag")
	}
	w, err := s.GetWallet(ctx, "w1", "alice")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.TransactionCount != 0 {
		t.Fatalf("transaction row must roll back with its tags, found %d", w.TransactionCount)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedWallet(t, s, "w1", "alice", "0")
	seedTx(t, s, "t1", "w1", "alice", "-1.00", time.Now(), nil)

	if err := s.DeleteUser(ctx, "alice"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if _, err := s.GetTransactionUnscoped(ctx, "t1"); !core.IsNotFound(err) {
		t.Fatalf("transaction should cascade away, got %v", err)
	}
	if err := s.DeleteUser(ctx, "alice"); !core.IsNotFound(err) {
		t.Fatalf("second delete must be not found, got %v", err)
	}
}

func TestDeleteWalletCascades(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "alice")
	seedWallet(t, s, "w1", "alice", "0")
	seedTx(t, s, "t1", "w1", "alice", "-1.00", time.Now(), nil)

	if err := s.DeleteWallet(ctx, "w1", "alice"); err != nil {
		t.Fatalf("delete wallet: %v", err)
	}
	if _, err := s.GetTransactionUnscoped(ctx, "t1"); !core.IsNotFound(err) {
		t.Fatalf("transaction should cascade with its wallet, got %v", err)
	}
}
