package storage

import (
	"context"
)

const transactionColumns = `id, amount, category, description, is_income, date`

const createTransaction = `
INSERT INTO transactions (amount, category, description, is_income, date)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + transactionColumns

type CreateTransactionParams struct {
	Amount      string
	Category    string
	Description string
	IsIncome    bool
	Date        string
}

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Amount,
		arg.Category,
		arg.Description,
		arg.IsIncome,
		arg.Date,
	)
	var i Transaction
	err := row.Scan(&i.ID, &i.Amount, &i.Category, &i.Description, &i.IsIncome, &i.Date)
	return i, err
}

const getTransaction = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i Transaction
	err := row.Scan(&i.ID, &i.Amount, &i.Category, &i.Description, &i.IsIncome, &i.Date)
	return i, err
}

const listTransactions = `
SELECT ` + transactionColumns + `
FROM transactions
ORDER BY id
LIMIT ? OFFSET ?`

type ListTransactionsParams struct {
	Limit  int64
	Offset int64
}

func (q *Queries) ListTransactions(ctx context.Context, arg ListTransactionsParams) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Transaction{}
	for rows.Next() {
		var i Transaction
		if err := rows.Scan(&i.ID, &i.Amount, &i.Category, &i.Description, &i.IsIncome, &i.Date); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateTransaction = `
UPDATE transactions
SET amount = ?, category = ?, description = ?, is_income = ?, date = ?
WHERE id = ?
RETURNING ` + transactionColumns

type UpdateTransactionParams struct {
	Amount      string
	Category    string
	Description string
	IsIncome    bool
	Date        string
	ID          int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (Transaction, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction,
		arg.Amount,
		arg.Category,
		arg.Description,
		arg.IsIncome,
		arg.Date,
		arg.ID,
	)
	var i Transaction
	err := row.Scan(&i.ID, &i.Amount, &i.Category, &i.Description, &i.IsIncome, &i.Date)
	return i, err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listAmountsByKind = `
SELECT amount
FROM transactions
WHERE is_income = ?`

func (q *Queries) ListAmountsByKind(ctx context.Context, isIncome bool) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listAmountsByKind, isIncome)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var amount string
		if err := rows.Scan(&amount); err != nil {
			return nil, err
		}
		items = append(items, amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createUser = `
INSERT INTO users (email, password_hash)
VALUES (?, ?)
RETURNING id, email, password_hash`

type CreateUserParams struct {
	Email        string
	PasswordHash string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser, arg.Email, arg.PasswordHash)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash)
	return i, err
}

const getUserByEmail = `
SELECT id, email, password_hash
FROM users
WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(&i.ID, &i.Email, &i.PasswordHash)
	return i, err
}
