package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSessionNotFound indicates that the session is not found.
	ErrSessionNotFound = errors.New("session not found")
	// ErrBlockedSession indicates that the session was blocked and cannot renew tokens.
	ErrBlockedSession = errors.New("blocked session")
	// ErrSessionUserMismatch indicates that the refresh token was issued to another user.
	ErrSessionUserMismatch = errors.New("incorrect session user")
	// ErrMismatchedRefreshToken indicates that the refresh token differs from the stored one.
	ErrMismatchedRefreshToken = errors.New("mismatched session token")
	// ErrExpiredSession indicates that the session has expired.
	ErrExpiredSession = errors.New("expired session")
)

// Session is a refresh token issued on sign up or login.
type Session struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateSessionParams is the input data for a new session.
// ID, RefreshToken and ExpiresAt are filled by the session service.
type CreateSessionParams struct {
	ID           uuid.UUID
	Username     string
	RefreshToken string
	UserAgent    string
	ClientIP     string
	IsBlocked    bool
	ExpiresAt    time.Time
}
