// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"
	"errors"
	"time"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/currencypkg"
	"github.com/go-petr/bank-ledger/pkg/randompkg"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error)
	Get(ctx context.Context, id int32) (domain.Account, error)
	List(ctx context.Context, owner string, limit, offset int32) ([]domain.Account, error)
	UpdateStatus(ctx context.Context, id int32, status domain.AccountStatus) (domain.Account, error)
}

// Owners checks that an account owner is registered.
type Owners interface {
	Exists(ctx context.Context, username string) error
}

// Invalidator evicts cached account views after committed changes.
type Invalidator interface {
	InvalidateAccount(ctx context.Context, owner string, accountID int32)
	InvalidateOwner(ctx context.Context, owner string)
}

// Service facilitates account service layer logic.
type Service struct {
	repo          Repo
	owners        Owners
	cache         Invalidator
	accountNumber func() string
}

// New returns account service struct to manage account bussines logic.
func New(ar Repo, owners Owners, cache Invalidator) *Service {
	return &Service{
		repo:   ar,
		owners: owners,
		cache:  cache,
		accountNumber: func() string {
			return randompkg.AccountNumber(time.Now())
		},
	}
}

// Create creates and returns an active account with zero balance for the given owner and currency.
// A colliding account number is regenerated once.
func (s *Service) Create(ctx context.Context, owner, currency string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !currencypkg.IsSupportedCurrency(currency) {
		return domain.Account{}, domain.ErrInvalidCurrency
	}

	if err := s.owners.Exists(ctx, owner); err != nil {
		return domain.Account{}, err
	}

	arg := domain.CreateAccountParams{
		Owner:         owner,
		AccountNumber: s.accountNumber(),
		Currency:      currency,
	}

	account, err := s.repo.Create(ctx, arg)
	if errors.Is(err, domain.ErrAccountNumberExists) {
		l.Warn().Str("account_number", arg.AccountNumber).Msg("account number collision, retrying")

		arg.AccountNumber = s.accountNumber()
		account, err = s.repo.Create(ctx, arg)
	}

	if err != nil {
		return domain.Account{}, err
	}

	s.cache.InvalidateOwner(ctx, owner)

	return account, nil
}

// Get returns account for the given account ID.
func (s *Service) Get(ctx context.Context, id int32) (domain.Account, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return account, err
	}

	return account, nil
}

// List returns accounts that are owned by the given user.
func (s *Service) List(ctx context.Context, owner string, pageSize, pageID int32) ([]domain.Account, error) {
	limit := pageSize
	offset := (pageID - 1) * pageSize

	accounts, err := s.repo.List(ctx, owner, limit, offset)
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

// UpdateStatus moves the owner's account to the given status.
func (s *Service) UpdateStatus(ctx context.Context, owner string, id int32, status domain.AccountStatus) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if !status.Valid() {
		return domain.Account{}, domain.ErrInvalidStatus
	}

	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Account{}, err
	}

	if account.Owner != owner {
		l.Info().Str("owner", owner).Int32("account_id", id).Msg("status change of foreign account")
		return domain.Account{}, domain.ErrAccountOwnerMismatch
	}

	if !account.Status.CanTransitionTo(status) {
		return domain.Account{}, domain.ErrInvalidStatus
	}

	account, err = s.repo.UpdateStatus(ctx, id, status)
	if err != nil {
		return domain.Account{}, err
	}

	s.cache.InvalidateAccount(ctx, owner, id)

	return account, nil
}
