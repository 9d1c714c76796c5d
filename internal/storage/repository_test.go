package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func lunch() core.TransactionInput {
	return core.TransactionInput{
		Amount:      core.MustAmount("50.0"),
		Category:    "food",
		Description: "lunch",
		IsIncome:    false,
		Date:        "2024-01-01",
	}
}

func TestCreateAndGetTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, lunch())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Fatalf("expected id 1, got %d", created.ID)
	}

	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := lunch()
	if !got.Amount.Equal(want.Amount) || got.Category != want.Category || got.Description != want.Description ||
		got.IsIncome != want.IsIncome || got.Date != want.Date {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := repo.GetTransaction(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTransactionsPagination(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := repo.CreateTransaction(ctx, lunch()); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	all, err := repo.ListTransactions(ctx, 0, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(all))
	}
	for i, tx := range all {
		if tx.ID != int64(i+1) {
			t.Fatalf("rows not in id order: %v", all)
		}
	}

	page, err := repo.ListTransactions(ctx, 1, 2)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 2 || page[0].ID != 2 || page[1].ID != 3 {
		t.Fatalf("unexpected page: %+v", page)
	}

	empty, err := repo.ListTransactions(ctx, 10, 100)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil page, got %v (err=%v)", empty, err)
	}
}

func TestUpdateTransactionReplacesAllFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, lunch())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := core.TransactionInput{
		Amount:      core.MustAmount("1200"),
		Category:    "salary",
		Description: "",
		IsIncome:    true,
		Date:        "not a date",
	}
	updated, err := repo.UpdateTransaction(ctx, created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != created.ID || !updated.Amount.Equal(in.Amount) || updated.Category != "salary" ||
		updated.Description != "" || !updated.IsIncome || updated.Date != "not a date" {
		t.Fatalf("unexpected updated row: %+v", updated)
	}

	if _, err := repo.UpdateTransaction(ctx, 42, in); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTransaction(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created, err := repo.CreateTransaction(ctx, lunch())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	// ids are never reused after a delete
	next, err := repo.CreateTransaction(ctx, lunch())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if next.ID == created.ID {
		t.Fatalf("id %d reused", next.ID)
	}
}

func TestSummary(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	empty, err := repo.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !empty.Income.IsZero() || !empty.Expense.IsZero() || !empty.Balance.IsZero() {
		t.Fatalf("expected zero summary, got %+v", empty)
	}

	inputs := []core.TransactionInput{
		{Amount: core.MustAmount("0.1"), IsIncome: true},
		{Amount: core.MustAmount("0.2"), IsIncome: true},
		{Amount: core.MustAmount("50.0"), IsIncome: false},
	}
	for _, in := range inputs {
		if _, err := repo.CreateTransaction(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	s, err := repo.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !s.Income.Equal(core.MustAmount("0.3")) || !s.Expense.Equal(core.MustAmount("50")) ||
		!s.Balance.Equal(core.MustAmount("-49.7")) {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestCreateUserRejectsDuplicateEmail(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, err := repo.CreateUser(ctx, "a@example.com", "hash-1")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == 0 || u.Email != "a@example.com" || u.PasswordHash != "hash-1" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := repo.CreateUser(ctx, "a@example.com", "hash-2"); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	stored, err := repo.queries.GetUserByEmail(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if stored.PasswordHash != "hash-1" {
		t.Fatalf("duplicate create overwrote the hash")
	}
}

func TestCreateUserConcurrentDuplicates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		others    []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.CreateUser(ctx, "race@example.com", "h")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, core.ErrConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	if created != 1 {
		t.Fatalf("expected exactly one user created, got %d (conflicts=%d, errors=%v)", created, conflicts, others)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	if isUniqueViolation(nil) {
		t.Fatalf("nil is not a violation")
	}
	if isUniqueViolation(errors.New("UNIQUE constraint failed")) {
		t.Fatalf("plain errors are not driver errors")
	}
}
