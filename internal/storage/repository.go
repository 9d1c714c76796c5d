package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fintrack/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// DSN builds the connection string for dbPath with the pragmas every
// connection in the pool needs. Transactions take the write lock up front
// (_txlock=immediate) so a read-then-write unit of work waits on busy_timeout
// instead of failing when another writer commits first.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn inside a single database transaction. The transaction is
// rolled back unless fn returns nil and the commit succeeds.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.WarnContext(ctx, "Transaction rollback failed", "error", err)
		}
	}()

	if err := fn(r.queries.WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Amount:      in.Amount.String(),
		Category:    in.Category,
		Description: in.Description,
		IsIncome:    in.IsIncome,
		Date:        in.Date,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"amount", row.Amount,
		"category", row.Category,
		"is_income", row.IsIncome)

	return toCoreTransaction(row)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %d: %w", id, err)
	}
	return toCoreTransaction(row)
}

// ListTransactions returns a page of transactions in ascending id order.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, skip, limit int) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, ListTransactionsParams{
		Limit:  int64(limit),
		Offset: int64(skip),
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toCoreTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// UpdateTransaction overwrites every field of transaction id.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		Amount:      in.Amount.String(),
		Category:    in.Category,
		Description: in.Description,
		IsIncome:    in.IsIncome,
		Date:        in.Date,
		ID:          id,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %d: %w", id, err)
	}
	return toCoreTransaction(row)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete transaction %d: %w", id, core.ErrNotFound)
	}
	return nil
}

// Summary totals income and expense across the whole ledger.
func (r *SQLiteRepository) Summary(ctx context.Context) (core.Summary, error) {
	income, err := r.amountsByKind(ctx, true)
	if err != nil {
		return core.Summary{}, err
	}
	expense, err := r.amountsByKind(ctx, false)
	if err != nil {
		return core.Summary{}, err
	}
	return core.Summarize(income, expense), nil
}

func (r *SQLiteRepository) amountsByKind(ctx context.Context, isIncome bool) ([]core.Amount, error) {
	raw, err := r.queries.ListAmountsByKind(ctx, isIncome)
	if err != nil {
		return nil, fmt.Errorf("list amounts (is_income=%t): %w", isIncome, err)
	}
	amounts := make([]core.Amount, len(raw))
	for i, s := range raw {
		a, err := core.ParseAmount(s)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", s, err)
		}
		amounts[i] = a
	}
	return amounts, nil
}

// CreateUser inserts a user unless the email is already registered.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	var created User
	err := r.withTx(ctx, func(q *Queries) error {
		_, err := q.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			return fmt.Errorf("create user %q: %w", email, core.ErrConflict)
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("lookup user by email: %w", err)
		}

		created, err = q.CreateUser(ctx, CreateUserParams{Email: email, PasswordHash: passwordHash})
		if isUniqueViolation(err) {
			return fmt.Errorf("create user %q: %w", email, core.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "User saved to SQLite", "id", created.ID)
	return core.User{ID: created.ID, Email: created.Email, PasswordHash: created.PasswordHash}, nil
}

func toCoreTransaction(row Transaction) (core.Transaction, error) {
	amount, err := core.ParseAmount(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount of transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Amount:      amount,
		Category:    row.Category,
		Description: row.Description,
		IsIncome:    row.IsIncome,
		Date:        row.Date,
	}, nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return false
}
