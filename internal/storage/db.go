package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{
		db: tx,
	}
}

// Transaction is the transactions table row.
type Transaction struct {
	ID          int64
	Amount      string
	Category    string
	Description string
	IsIncome    bool
	Date        string
}

// User is the users table row.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
}
