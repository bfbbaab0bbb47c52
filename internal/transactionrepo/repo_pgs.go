// Package transactionrepo manages repository layer of ledger transactions.
package transactionrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/dbpkg"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

const transactionColumns = `id, account_id, type, amount, balance_after, description, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var t domain.Transaction

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Type,
		&t.Amount,
		&t.BalanceAfter,
		&t.Description,
		&t.CreatedAt,
	)

	return t, err
}

// CreateParams is the input data to record a ledger entry.
type CreateParams struct {
	AccountID    int32
	Type         domain.TransactionType
	Amount       string
	BalanceAfter string
	Description  string
}

const createQuery = `
INSERT INTO
    transactions (account_id, type, amount, balance_after, description)
VALUES
    ($1, $2, $3, $4, $5)
RETURNING ` + transactionColumns

// Create records the transaction and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg CreateParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.AccountID,
		string(arg.Type),
		arg.Amount,
		arg.BalanceAfter,
		arg.Description,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		switch dbpkg.ConstraintOf(err) {
		case "transactions_account_id_fkey":
			return domain.Transaction{}, domain.ErrAccountNotFound
		case "transactions_amount_check":
			return domain.Transaction{}, domain.ErrNonPositiveAmount
		}

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

const getQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = $1
`

// ErrTransactionNotFound indicates that the transaction is not found.
var ErrTransactionNotFound = errors.New("transaction not found")

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	t, err := scanTransaction(r.db.QueryRowContext(ctx, getQuery, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Transaction{}, ErrTransactionNotFound
		}

		l.Error().Err(err).Send()

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return t, nil
}

const listQuery = `
SELECT ` + transactionColumns + `
FROM transactions
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`

// List returns at most limit transactions of the account, newest first.
func (r *RepoPGS) List(ctx context.Context, accountID int32, limit int32) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, accountID, limit)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
