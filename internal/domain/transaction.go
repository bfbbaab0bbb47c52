package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates an unparsable amount or one with more than 2 decimal places.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrNonPositiveAmount indicates zero or negative amount.
	ErrNonPositiveAmount = errors.New("amount must be positive")
	// ErrInsufficientBalance indicates that the account does not have sufficient balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrLockTimeout indicates that the account stayed locked by other writers for too long.
	ErrLockTimeout = errors.New("account is busy, try again later")
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

// Transaction types.
const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
)

// DefaultDescription returns the description used when the caller gives none.
func (t TransactionType) DefaultDescription() string {
	if t == TransactionTypeWithdrawal {
		return "Withdrawal"
	}

	return "Deposit"
}

// Transaction is an immutable ledger entry recorded together with a balance change.
type Transaction struct {
	ID           int64           `json:"id"`
	AccountID    int32           `json:"account_id"`
	Type         TransactionType `json:"type"`
	Amount       string          `json:"amount"` // always positive
	BalanceAfter string          `json:"balance_after"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

// LedgerEntryParams is the input data for a deposit or a withdrawal.
type LedgerEntryParams struct {
	AccountID   int32
	Amount      string
	Description string
}

// LedgerEntryResult is the result of a committed deposit or withdrawal.
type LedgerEntryResult struct {
	Account     Account     `json:"account"`
	Transaction Transaction `json:"transaction"`
}

// AmountScale is the number of decimal places money amounts are stored with.
const AmountScale = 2

// NormalizeAmount validates a positive money amount with at most two decimal places
// and returns it in canonical form, e.g. "100.5" becomes "100.50".
func NormalizeAmount(amount string) (string, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", ErrInvalidAmount
	}

	if !d.IsPositive() {
		return "", ErrNonPositiveAmount
	}

	if !d.Equal(d.Round(AmountScale)) {
		return "", ErrInvalidAmount
	}

	return d.StringFixed(AmountScale), nil
}
