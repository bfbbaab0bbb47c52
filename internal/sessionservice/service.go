// Package sessionservice manages service layer of sessions.
package sessionservice

import (
	"context"
	"errors"
	"time"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/configpkg"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/go-petr/bank-ledger/pkg/tokenpkg"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by session service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package sessionservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateSessionParams) (domain.Session, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Session, error)
	Block(ctx context.Context, id uuid.UUID) (domain.Session, error)
}

// Service facilitates session service layer logic.
type Service struct {
	repo                 Repo
	tokenMaker           tokenpkg.Maker
	accessTokenDuration  time.Duration
	refreshTokenDuration time.Duration
}

// New returns session service.
func New(sr Repo, config configpkg.Config, tm tokenpkg.Maker) (*Service, error) {
	if config.AccessTokenDuration <= 0 || config.RefreshTokenDuration <= 0 {
		return nil, errors.New("token durations must be positive")
	}

	return &Service{
		repo:                 sr,
		tokenMaker:           tm,
		accessTokenDuration:  config.AccessTokenDuration,
		refreshTokenDuration: config.RefreshTokenDuration,
	}, nil
}

// Create issues an access token and a refresh token for the user and stores the refresh
// token as a new session.
func (s *Service) Create(ctx context.Context, arg domain.CreateSessionParams) (string, time.Time, domain.Session, error) {
	l := zerolog.Ctx(ctx)

	accessToken, accessPayload, err := s.tokenMaker.CreateToken(arg.Username, s.accessTokenDuration)
	if err != nil {
		l.Error().Err(err).Str("username", arg.Username).Msg("creating access token")
		return "", time.Time{}, domain.Session{}, errorspkg.ErrInternal
	}

	refreshToken, refreshPayload, err := s.tokenMaker.CreateToken(arg.Username, s.refreshTokenDuration)
	if err != nil {
		l.Error().Err(err).Str("username", arg.Username).Msg("creating refresh token")
		return "", time.Time{}, domain.Session{}, errorspkg.ErrInternal
	}

	arg.ID = refreshPayload.ID
	arg.RefreshToken = refreshToken
	arg.ExpiresAt = refreshPayload.ExpiredAt

	session, err := s.repo.Create(ctx, arg)
	if err != nil {
		return "", time.Time{}, domain.Session{}, err
	}

	return accessToken, accessPayload.ExpiredAt, session, nil
}

// session returns the active session the refresh token belongs to.
func (s *Service) session(ctx context.Context, refreshToken string) (domain.Session, error) {
	payload, err := s.tokenMaker.VerifyToken(refreshToken)
	if err != nil {
		return domain.Session{}, err
	}

	session, err := s.repo.Get(ctx, payload.ID)
	if err != nil {
		return domain.Session{}, err
	}

	switch {
	case session.IsBlocked:
		return domain.Session{}, domain.ErrBlockedSession
	case session.Username != payload.Username:
		return domain.Session{}, domain.ErrSessionUserMismatch
	case session.RefreshToken != refreshToken:
		return domain.Session{}, domain.ErrMismatchedRefreshToken
	case time.Now().After(session.ExpiresAt):
		return domain.Session{}, domain.ErrExpiredSession
	}

	return session, nil
}

// RenewAccessToken issues a new access token for a valid refresh token.
func (s *Service) RenewAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	session, err := s.session(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}

	accessToken, payload, err := s.tokenMaker.CreateToken(session.Username, s.accessTokenDuration)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("username", session.Username).Msg("creating access token")
		return "", time.Time{}, errorspkg.ErrInternal
	}

	return accessToken, payload.ExpiredAt, nil
}

// Revoke blocks the session of the refresh token.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	session, err := s.session(ctx, refreshToken)
	if err != nil {
		return err
	}

	_, err = s.repo.Block(ctx, session.ID)

	return err
}
