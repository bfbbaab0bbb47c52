package sessionservice

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/pkg/configpkg"
	"github.com/go-petr/bank-ledger/pkg/errorspkg"
	"github.com/go-petr/bank-ledger/pkg/randompkg"
	"github.com/go-petr/bank-ledger/pkg/tokenpkg"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
)

var config configpkg.Config

func TestMain(m *testing.M) {
	config = configpkg.Config{
		TokenSymmetricKey:    randompkg.String(32),
		AccessTokenDuration:  time.Minute,
		RefreshTokenDuration: time.Minute,
	}

	os.Exit(m.Run())
}

func TestCreate(t *testing.T) {
	t.Parallel()

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) failed: %v", config.TokenSymmetricKey, err)
	}

	username := randompkg.Owner()
	want := domain.Session{
		Username: username,
	}

	testCases := []struct {
		name          string
		arg           domain.CreateSessionParams
		buildStubs    func(repo *MockRepo)
		checkResponse func(accessToken string, accessTokenExpiresAt time.Time, sess domain.Session)
		wantError     error
	}{
		{
			name: "OK",
			arg: domain.CreateSessionParams{
				Username: username,
			},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Create(gomock.Any(), gomock.AssignableToTypeOf(domain.CreateSessionParams{})).
					Times(1).
					DoAndReturn(func(_ context.Context, arg domain.CreateSessionParams) (domain.Session, error) {
						payload, err := tokenMaker.VerifyToken(arg.RefreshToken)
						if err != nil {
							t.Errorf("refresh token is not valid: %v", err)
							return domain.Session{}, errorspkg.ErrInternal
						}

						if payload.ID != arg.ID || payload.Username != username {
							t.Errorf("refresh token payload %+v does not match session params %+v", payload, arg)
						}

						if !arg.ExpiresAt.Equal(payload.ExpiredAt) {
							t.Errorf("arg.ExpiresAt = %v, want %v", arg.ExpiresAt, payload.ExpiredAt)
						}

						return want, nil
					})
			},
			checkResponse: func(accessToken string, accessTokenExpiresAt time.Time, got domain.Session) {
				if accessToken == "" {
					t.Error(`accessToken = "", want non empty`)
				}

				if accessTokenExpiresAt.IsZero() {
					t.Error(`accessTokenExpiresAt is zero, want non zero`)
				}

				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("session returned unexpected diff: %s", diff)
				}
			},
		},
		{
			name: "RepoInternalError",
			arg: domain.CreateSessionParams{
				Username: username,
			},
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Create(gomock.Any(), gomock.AssignableToTypeOf(domain.CreateSessionParams{})).
					Times(1).
					Return(domain.Session{}, errorspkg.ErrInternal)
			},
			wantError: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sessionRepoMock := NewMockRepo(ctrl)
			sessionService, err := New(sessionRepoMock, config, tokenMaker)
			if err != nil {
				t.Fatalf("New(%v, %v, %v) failed: %v", sessionRepoMock, config, tokenMaker, err)
			}

			tc.buildStubs(sessionRepoMock)

			accessToken, accessTokenExpiresAt, sess, err := sessionService.Create(context.Background(), tc.arg)
			if err != nil {
				if err == tc.wantError {
					return
				}

				t.Fatalf("sessionService.Create(context.Background(), %v) returned unexpected error: %v",
					tc.arg, err)
			}

			tc.checkResponse(accessToken, accessTokenExpiresAt, sess)
		})
	}
}

func TestRenewAccessToken(t *testing.T) {
	t.Parallel()

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) failed: %v", config.TokenSymmetricKey, err)
	}

	username := randompkg.Owner()

	token1, payload1, err := tokenMaker.CreateToken(username, config.RefreshTokenDuration)
	if err != nil {
		t.Fatalf("tokenpkg.CreateToken(%v, %v) failed: %v",
			username, config.RefreshTokenDuration, err)
	}

	expired, _, err := tokenMaker.CreateToken(username, time.Nanosecond)
	if err != nil {
		t.Fatalf("tokenpkg.CreateToken(%v, %v) failed: %v",
			username, time.Nanosecond, err)
	}

	unauthUsername := randompkg.Owner()

	token2, payload2, err := tokenMaker.CreateToken(unauthUsername, config.RefreshTokenDuration)
	if err != nil {
		t.Fatalf("tokenpkg.CreateToken(%v, %v) failed: %v",
			username, config.RefreshTokenDuration, err)
	}

	testCases := []struct {
		name          string
		token         string
		buildStubs    func(repo *MockRepo)
		checkResponse func(t *testing.T, accessToken string, accessTokenExpiresAt time.Time)
		wantError     error
	}{
		{
			name:  "OK",
			token: token1,
			buildStubs: func(repo *MockRepo) {
				s := domain.Session{
					Username:     username,
					RefreshToken: token1,
					ExpiresAt:    payload1.ExpiredAt,
				}
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(payload1.ID)).
					Times(1).
					Return(s, nil)
			},
			checkResponse: func(t *testing.T, accessToken string, accessTokenExpiresAt time.Time) {
				if accessToken == "" {
					t.Error(`accessToken = "", want non empty`)
				}

				if accessTokenExpiresAt.IsZero() {
					t.Error(`accessTokenExpiresAt is zero, want non zero`)
				}
			},
		},
		{
			name:  "ErrExpiredToken",
			token: expired,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantError: tokenpkg.ErrExpiredToken,
		},
		{
			name:  "ErrInvalidToken",
			token: "invalid",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Any()).
					Times(0)
			},
			wantError: tokenpkg.ErrInvalidToken,
		},
		{
			name:  "ErrSessionNotFound",
			token: token1,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(payload1.ID)).
					Times(1).
					Return(domain.Session{}, domain.ErrSessionNotFound)
			},
			wantError: domain.ErrSessionNotFound,
		},
		{
			name:  "ErrBlockedSession",
			token: token1,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(payload1.ID)).
					Times(1).
					Return(domain.Session{IsBlocked: true}, nil)
			},
			wantError: domain.ErrBlockedSession,
		},
		{
			name:  "ErrSessionUserMismatch",
			token: token2,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(payload2.ID)).
					Times(1).
					Return(domain.Session{Username: username}, nil)
			},
			wantError: domain.ErrSessionUserMismatch,
		},
		{
			name:  "ErrMismatchedRefreshToken",
			token: token1,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(payload1.ID)).
					Times(1).
					Return(domain.Session{Username: username, RefreshToken: token2}, nil)
			},
			wantError: domain.ErrMismatchedRefreshToken,
		},
		{
			name:  "ErrExpiredSession",
			token: token1,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), gomock.Eq(payload1.ID)).
					Times(1).
					Return(domain.Session{
						Username:     username,
						RefreshToken: token1,
						ExpiresAt:    time.Now().Add(-time.Hour),
					}, nil)
			},
			wantError: domain.ErrExpiredSession,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sessionRepoMock := NewMockRepo(ctrl)
			sessionService, err := New(sessionRepoMock, config, tokenMaker)
			if err != nil {
				t.Fatalf("New(%v, %v, %v) failed: %v", sessionRepoMock, config, tokenMaker, err)
			}

			tc.buildStubs(sessionRepoMock)

			accessToken, expires, err := sessionService.RenewAccessToken(context.Background(), tc.token)
			if tc.wantError != nil {
				if !errors.Is(err, tc.wantError) {
					t.Fatalf("sessionService.RenewAccessToken(context.Background(), %v) returned error: %v, want %v",
						tc.token, err, tc.wantError)
				}
				return
			}

			if err != nil {
				t.Fatalf("sessionService.RenewAccessToken(context.Background(), %v) failed: %v", tc.token, err)
			}

			tc.checkResponse(t, accessToken, expires)
		})
	}
}

func TestNew(t *testing.T) {
	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) failed: %v", config.TokenSymmetricKey, err)
	}

	bad := config
	bad.RefreshTokenDuration = 0

	if _, err := New(nil, bad, tokenMaker); err == nil {
		t.Error("New(nil, config, tokenMaker) with zero refresh duration returned nil error")
	}
}

func TestRevoke(t *testing.T) {
	t.Parallel()

	tokenMaker, err := tokenpkg.NewPasetoMaker(config.TokenSymmetricKey)
	if err != nil {
		t.Fatalf("tokenpkg.NewPasetoMaker(%v) failed: %v", config.TokenSymmetricKey, err)
	}

	username := randompkg.Owner()

	token, payload, err := tokenMaker.CreateToken(username, config.RefreshTokenDuration)
	if err != nil {
		t.Fatalf("tokenpkg.CreateToken(%v, %v) failed: %v", username, config.RefreshTokenDuration, err)
	}

	active := domain.Session{
		ID:           payload.ID,
		Username:     username,
		RefreshToken: token,
		ExpiresAt:    payload.ExpiredAt,
	}

	testCases := []struct {
		name       string
		buildStubs func(repo *MockRepo)
		wantError  error
	}{
		{
			name: "OK",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), gomock.Eq(payload.ID)).Times(1).Return(active, nil)
				repo.EXPECT().Block(gomock.Any(), gomock.Eq(payload.ID)).Times(1).Return(active, nil)
			},
		},
		{
			name: "AlreadyBlocked",
			buildStubs: func(repo *MockRepo) {
				blocked := active
				blocked.IsBlocked = true

				repo.EXPECT().Get(gomock.Any(), gomock.Eq(payload.ID)).Times(1).Return(blocked, nil)
				repo.EXPECT().Block(gomock.Any(), gomock.Any()).Times(0)
			},
			wantError: domain.ErrBlockedSession,
		},
		{
			name: "BlockInternalError",
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), gomock.Eq(payload.ID)).Times(1).Return(active, nil)
				repo.EXPECT().Block(gomock.Any(), gomock.Eq(payload.ID)).Times(1).Return(domain.Session{}, errorspkg.ErrInternal)
			},
			wantError: errorspkg.ErrInternal,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			sessionRepoMock := NewMockRepo(ctrl)
			sessionService, err := New(sessionRepoMock, config, tokenMaker)
			if err != nil {
				t.Fatalf("New(%v, %v, %v) failed: %v", sessionRepoMock, config, tokenMaker, err)
			}

			tc.buildStubs(sessionRepoMock)

			err = sessionService.Revoke(context.Background(), token)
			if !errors.Is(err, tc.wantError) {
				t.Errorf("sessionService.Revoke(context.Background(), token) returned error: %v, want %v", err, tc.wantError)
			}
		})
	}
}
