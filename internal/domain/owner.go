package domain

import (
	"errors"
	"time"
)

var (
	// ErrUsernameTaken indicates that an owner with the given username is already registered.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailTaken indicates that an owner with the given email is already registered.
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidCredentials indicates an unknown username or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// Owner is a registered account holder. Accounts and sessions refer to it by Username,
// which is also the subject of its access tokens.
type Owner struct {
	Username          string
	HashedPassword    string
	Email             string
	PasswordChangedAt time.Time
	CreatedAt         time.Time
}

// RegisterOwnerParams is the input data to register an owner.
type RegisterOwnerParams struct {
	Username       string
	HashedPassword string
	Email          string
}

// OwnerProfile is the public view of an owner.
type OwnerProfile struct {
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile drops the credentials.
func (o Owner) Profile() OwnerProfile {
	return OwnerProfile{
		Username:  o.Username,
		Email:     o.Email,
		CreatedAt: o.CreatedAt,
	}
}
