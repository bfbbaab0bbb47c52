// Package domain provides definitions of all entities.
package domain

import (
	"errors"
	"time"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountNumberExists indicates that the generated account number is already taken.
	ErrAccountNumberExists = errors.New("account number already exists")
	// ErrOwnerNotFound indicates that the owner for the account is not found.
	ErrOwnerNotFound = errors.New("owner not found")
	// ErrAccountOwnerMismatch indicates that the account does not belong to the user.
	ErrAccountOwnerMismatch = errors.New("account doesn't belong to the authenticated user")
	// ErrAccountInactive indicates a mutation attempt on a frozen or closed account.
	ErrAccountInactive = errors.New("account is not active")
	// ErrInvalidCurrency indicates that the currency is not a supported 3-letter code.
	ErrInvalidCurrency = errors.New("currency is not supported")
	// ErrInvalidStatus indicates an unknown status or a forbidden status transition.
	ErrInvalidStatus = errors.New("invalid account status")
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

// Account statuses. Only active accounts accept deposits and withdrawals.
const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusActive, AccountStatusFrozen, AccountStatusClosed:
		return true
	}

	return false
}

// CanTransitionTo reports whether the status may change to next.
// Closed accounts stay closed.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	if !next.Valid() || s == AccountStatusClosed {
		return false
	}

	return s != next
}

// Account holds user balance data for specific currency.
type Account struct {
	ID            int32         `json:"id"`
	Owner         string        `json:"owner"`
	AccountNumber string        `json:"account_number"`
	Balance       string        `json:"balance"`
	Currency      string        `json:"currency"`
	Status        AccountStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// CreateAccountParams is the input data to create an account.
type CreateAccountParams struct {
	Owner         string
	AccountNumber string
	Currency      string
}
