// Package userservice registers account owners and checks their credentials.
package userservice

import (
	"context"
	"errors"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/go-petr/bank-ledger/pkg/passpkg"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Create(ctx context.Context, arg domain.RegisterOwnerParams) (domain.Owner, error)
	Get(ctx context.Context, username string) (domain.Owner, error)
	Exists(ctx context.Context, username string) (bool, error)
}

// Service facilitates owner service layer logic.
type Service struct {
	repo Repo
}

// New returns user service struct to manage owners.
func New(ur Repo) *Service {
	return &Service{
		repo: ur,
	}
}

// Register stores a new owner with a hashed password.
func (s *Service) Register(ctx context.Context, username, password, email string) (domain.OwnerProfile, error) {
	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		return domain.OwnerProfile{}, errorspkg.ErrInternal
	}

	owner, err := s.repo.Create(ctx, domain.RegisterOwnerParams{
		Username:       username,
		HashedPassword: hashedPassword,
		Email:          email,
	})
	if err != nil {
		return domain.OwnerProfile{}, err
	}

	return owner.Profile(), nil
}

// Authenticate returns the owner when the password matches.
// Unknown usernames and wrong passwords both give ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (domain.OwnerProfile, error) {
	l := zerolog.Ctx(ctx)

	owner, err := s.repo.Get(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrOwnerNotFound) {
			l.Info().Str("username", username).Msg("login of unknown owner")
			return domain.OwnerProfile{}, domain.ErrInvalidCredentials
		}

		return domain.OwnerProfile{}, err
	}

	if err := passpkg.Check(password, owner.HashedPassword); err != nil {
		l.Warn().Err(err).Str("username", username).Msg("wrong password")
		return domain.OwnerProfile{}, domain.ErrInvalidCredentials
	}

	return owner.Profile(), nil
}

// Exists returns ErrOwnerNotFound unless the owner is registered.
// Tokens outlive owners, so accounts are only opened for owners that still exist.
func (s *Service) Exists(ctx context.Context, username string) error {
	exists, err := s.repo.Exists(ctx, username)
	if err != nil {
		return err
	}

	if !exists {
		return domain.ErrOwnerNotFound
	}

	return nil
}
