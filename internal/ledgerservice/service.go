// Package ledgerservice manages business logic layer of deposits, withdrawals and transaction history.
package ledgerservice

import (
	"context"
	"time"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/rs/zerolog"
)

// Transaction list limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

const publishTimeout = 2 * time.Second

// Repo applies balance changes together with their ledger entries.
//
//go:generate mockgen -source service.go -destination service_mock.go -package ledgerservice
type Repo interface {
	Deposit(ctx context.Context, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error)
	Withdraw(ctx context.Context, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error)
}

// TransactionRepo reads the ledger entries of an account.
type TransactionRepo interface {
	List(ctx context.Context, accountID int32, limit int32) ([]domain.Transaction, error)
}

// AccountService provides the accounts the ledger operates on.
type AccountService interface {
	Get(ctx context.Context, id int32) (domain.Account, error)
}

// Invalidator evicts cached views of an account.
type Invalidator interface {
	InvalidateAccount(ctx context.Context, owner string, accountID int32)
}

// Publisher announces committed ledger entries.
type Publisher interface {
	Publish(ctx context.Context, result domain.LedgerEntryResult) error
}

// Service facilitates ledger service layer logic.
type Service struct {
	repo           Repo
	transactions   TransactionRepo
	accountService AccountService
	cache          Invalidator
	publisher      Publisher
}

// New returns ledger service struct to manage deposits and withdrawals.
func New(lr Repo, tr TransactionRepo, as AccountService, cache Invalidator, p Publisher) *Service {
	return &Service{
		repo:           lr,
		transactions:   tr,
		accountService: as,
		cache:          cache,
		publisher:      p,
	}
}

// Deposit credits the owner's account.
func (s *Service) Deposit(ctx context.Context, owner string, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error) {
	return s.post(ctx, owner, domain.TransactionTypeDeposit, arg)
}

// Withdraw debits the owner's account. The balance never goes below zero.
func (s *Service) Withdraw(ctx context.Context, owner string, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error) {
	return s.post(ctx, owner, domain.TransactionTypeWithdrawal, arg)
}

func (s *Service) ownedAccount(ctx context.Context, owner string, id int32) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	account, err := s.accountService.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	if account.Owner != owner {
		l.Info().Str("owner", owner).Int32("account_id", id).Msg("access to foreign account")
		return domain.Account{}, domain.ErrAccountOwnerMismatch
	}

	return account, nil
}

func (s *Service) post(ctx context.Context, owner string, typ domain.TransactionType, arg domain.LedgerEntryParams) (domain.LedgerEntryResult, error) {
	l := zerolog.Ctx(ctx)

	amount, err := domain.NormalizeAmount(arg.Amount)
	if err != nil {
		l.Info().Err(err).Str("amount", arg.Amount).Send()
		return domain.LedgerEntryResult{}, err
	}

	arg.Amount = amount

	if arg.Description == "" {
		arg.Description = typ.DefaultDescription()
	}

	account, err := s.ownedAccount(ctx, owner, arg.AccountID)
	if err != nil {
		return domain.LedgerEntryResult{}, err
	}

	// Rechecked under the row lock.
	if account.Status != domain.AccountStatusActive {
		return domain.LedgerEntryResult{}, domain.ErrAccountInactive
	}

	var result domain.LedgerEntryResult

	switch typ {
	case domain.TransactionTypeWithdrawal:
		result, err = s.repo.Withdraw(ctx, arg)
	default:
		result, err = s.repo.Deposit(ctx, arg)
	}

	if err != nil {
		return domain.LedgerEntryResult{}, err
	}

	s.cache.InvalidateAccount(ctx, owner, arg.AccountID)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, result); err != nil {
		l.Warn().Err(err).Int64("transaction_id", result.Transaction.ID).Msg("publishing ledger event")
	}

	return result, nil
}

// ListTransactions returns the newest ledger entries of the owner's account, newest first.
// A non-positive limit means DefaultLimit, limits above MaxLimit are capped.
func (s *Service) ListTransactions(ctx context.Context, owner string, accountID, limit int32) ([]domain.Transaction, error) {
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	if _, err := s.ownedAccount(ctx, owner, accountID); err != nil {
		return nil, err
	}

	transactions, err := s.transactions.List(ctx, accountID, limit)
	if err != nil {
		return nil, err
	}

	return transactions, nil
}
