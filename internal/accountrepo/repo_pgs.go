// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/dbpkg"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, owner, account_number, balance, currency, status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.Owner,
		&a.AccountNumber,
		&a.Balance,
		&a.Currency,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}

const createQuery = `
INSERT INTO 
    accounts (owner, account_number, currency)
VALUES
    ($1, $2, $3)
RETURNING ` + accountColumns

// Create creates the account with zero balance and active status and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, arg.Owner, arg.AccountNumber, arg.Currency)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx, %+v)", arg)

		switch dbpkg.ConstraintOf(err) {
		case "accounts_owner_fkey":
			return domain.Account{}, domain.ErrOwnerNotFound
		case "accounts_account_number_key":
			return domain.Account{}, domain.ErrAccountNumberExists
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

// Get returns the account with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int32) (domain.Account, error) {
	return r.get(ctx, getQuery, id)
}

const getForUpdateQuery = getQuery + `FOR UPDATE`

// GetForUpdate returns the account with the given id and locks its row until the
// surrounding transaction ends. It must run on a *sql.Tx.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id int32) (domain.Account, error) {
	return r.get(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) get(ctx context.Context, query string, id int32) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Int32("account_id", id).Send()

		if dbpkg.CodeOf(err) == dbpkg.CodeLockNotAvailable {
			return domain.Account{}, domain.ErrLockTimeout
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE owner = $1
ORDER BY id
LIMIT $2 OFFSET $3
`

// List returns the specified number of accounts for the given user.
func (r *RepoPGS) List(ctx context.Context, owner string, limit, offset int32) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, owner, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
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

const addBalanceQuery = `
UPDATE accounts
SET balance = balance + $1, updated_at = now()
WHERE id = $2
RETURNING ` + accountColumns

// AddBalance changes the account's balance by the signed amount and returns the changed account.
func (r *RepoPGS) AddBalance(ctx context.Context, amount string, id int32) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, addBalanceQuery, amount, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Str("amount", amount).Int32("account_id", id).Send()

		if dbpkg.ConstraintOf(err) == "accounts_balance_check" {
			return domain.Account{}, domain.ErrInsufficientBalance
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const updateStatusQuery = `
UPDATE accounts
SET status = $1, updated_at = now()
WHERE id = $2
RETURNING ` + accountColumns

// UpdateStatus sets the account's status and returns the changed account.
func (r *RepoPGS) UpdateStatus(ctx context.Context, id int32, status domain.AccountStatus) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, updateStatusQuery, string(status), id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Int32("account_id", id).Send()

		if dbpkg.ConstraintOf(err) == "accounts_status_check" {
			return domain.Account{}, domain.ErrInvalidStatus
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}
