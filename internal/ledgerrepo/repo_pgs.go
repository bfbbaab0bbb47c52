// Package ledgerrepo performs balance mutations together with their audit entries.
package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-petr/bank-ledger/internal/accountrepo"
	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/internal/transactionrepo"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RepoPGS facilitates ledger repository layer logic.
type RepoPGS struct {
	conn        *sql.DB
	lockTimeout time.Duration
}

// NewRepoPGS returns ledger RepoPGS with connection to start transactions.
//
// A positive lockTimeout bounds how long a mutation waits for the account row lock.
func NewRepoPGS(db *sql.DB, lockTimeout time.Duration) *RepoPGS {
	return &RepoPGS{
		conn:        db,
		lockTimeout: lockTimeout,
	}
}

// Deposit increases the account balance and records a deposit entry within a single
// db transaction.
func (r *RepoPGS) Deposit(ctx context.Context, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error) {
	return r.post(ctx, domain.TransactionTypeDeposit, arg)
}

// Withdraw decreases the account balance and records a withdrawal entry within a single
// db transaction. The balance check and the decrement happen under the same row lock.
func (r *RepoPGS) Withdraw(ctx context.Context, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error) {
	return r.post(ctx, domain.TransactionTypeWithdrawal, arg)
}

func (r *RepoPGS) post(ctx context.Context, typ domain.TransactionType, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error) {
	l := zerolog.Ctx(ctx)

	var result domain.LedgerEntryResult

	normalized, err := domain.NormalizeAmount(arg.Amount)
	if err != nil {
		return result, err
	}

	amount := decimal.RequireFromString(normalized)

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return result, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			l.Error().Err(err).Send()
		}
	}()

	if r.lockTimeout > 0 {
		// SET does not accept bind parameters.
		q := fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, q); err != nil {
			l.Error().Err(err).Send()
			return result, errorspkg.ErrInternal
		}
	}

	accountRepo := accountrepo.NewRepoPGS(tx)
	transactionRepo := transactionrepo.NewRepoPGS(tx)

	locked, err := accountRepo.GetForUpdate(ctx, arg.AccountID)
	if err != nil {
		return result, err
	}

	if locked.Status != domain.AccountStatusActive {
		return result, domain.ErrAccountInactive
	}

	delta := amount

	if typ == domain.TransactionTypeWithdrawal {
		balance, err := decimal.NewFromString(locked.Balance)
		if err != nil {
			l.Error().Err(err).Str("balance", locked.Balance).Send()
			return result, errorspkg.ErrInternal
		}

		if balance.LessThan(amount) {
			return result, domain.ErrInsufficientBalance
		}

		delta = amount.Neg()
	}

	result.Account, err = accountRepo.AddBalance(ctx, delta.StringFixed(domain.AmountScale), arg.AccountID)
	if err != nil {
		return result, err
	}

	result.Transaction, err = transactionRepo.Create(ctx, transactionrepo.CreateParams{
		AccountID:    arg.AccountID,
		Type:         typ,
		Amount:       normalized,
		BalanceAfter: result.Account.Balance,
		Description:  arg.Description,
	})
	if err != nil {
		return domain.LedgerEntryResult{}, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.LedgerEntryResult{}, errorspkg.ErrInternal
	}

	return result, nil
}
