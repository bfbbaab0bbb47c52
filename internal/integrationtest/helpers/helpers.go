// Package helpers provides random entities and db seeding shared by tests.
package helpers

import (
	"context"
	"testing"
	"time"

	"github.com/go-petr/bank-ledger/internal/accountrepo"
	"github.com/go-petr/bank-ledger/internal/domain"
	"github.com/go-petr/bank-ledger/internal/transactionrepo"
	"github.com/go-petr/bank-ledger/internal/userrepo"
	"github.com/go-petr/bank-ledger/pkg/dbpkg"
	"github.com/go-petr/bank-ledger/pkg/passpkg"
	"github.com/go-petr/bank-ledger/pkg/randompkg"
)

// RandomAccount returns random active account owned by the given owner.
func RandomAccount(owner string) domain.Account {
	now := time.Now().Truncate(time.Second).UTC()

	return domain.Account{
		ID:            randompkg.IntBetween(1, 100),
		Owner:         owner,
		AccountNumber: randompkg.AccountNumber(now),
		Balance:       randompkg.MoneyAmountBetween(1000, 10_000),
		Currency:      randompkg.Currency(),
		Status:        domain.AccountStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RandomTransaction returns random deposit recorded for the account.
func RandomTransaction(account domain.Account) domain.Transaction {
	return domain.Transaction{
		ID:           int64(randompkg.IntBetween(1, 1000)),
		AccountID:    account.ID,
		Type:         domain.TransactionTypeDeposit,
		Amount:       randompkg.MoneyAmountBetween(1, 100),
		BalanceAfter: account.Balance,
		Description:  domain.TransactionTypeDeposit.DefaultDescription(),
		CreatedAt:    time.Now().Truncate(time.Second).UTC(),
	}
}

// SeedOwner registers a random owner inside a test transaction.
func SeedOwner(t *testing.T, tx dbpkg.SQLInterface) domain.Owner {
	t.Helper()

	hashedPassword, err := passpkg.Hash(randompkg.String(32))
	if err != nil {
		t.Fatalf("passpkg.Hash(randompkg.String(32)) returned error: %v", err)
	}

	arg := domain.RegisterOwnerParams{
		Username:       randompkg.Owner(),
		HashedPassword: hashedPassword,
		Email:          randompkg.Email(),
	}

	owner, err := userrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("userRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return owner
}

// SeedAccount creates an empty active account inside a test transaction.
func SeedAccount(t *testing.T, tx dbpkg.SQLInterface, owner, currency string) domain.Account {
	t.Helper()

	arg := domain.CreateAccountParams{
		Owner:         owner,
		AccountNumber: randompkg.AccountNumber(time.Now()),
		Currency:      currency,
	}

	account, err := accountrepo.NewRepoPGS(tx).Create(context.Background(), arg)
	if err != nil {
		t.Fatalf("accountRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
	}

	return account
}

// SeedAccountWithBalance creates an account and credits it with balance without a ledger entry.
func SeedAccountWithBalance(t *testing.T, tx dbpkg.SQLInterface, owner, currency, balance string) domain.Account {
	t.Helper()

	account := SeedAccount(t, tx, owner, currency)

	account, err := accountrepo.NewRepoPGS(tx).AddBalance(context.Background(), balance, account.ID)
	if err != nil {
		t.Fatalf("accountRepo.AddBalance(context.Background(), %v, %v) returned error: %v", balance, account.ID, err)
	}

	return account
}

// SeedTransactions records count deposits of amount for the account inside a test transaction.
// The account balance is not changed.
func SeedTransactions(t *testing.T, tx dbpkg.SQLInterface, accountID int32, count int, amount string) []domain.Transaction {
	t.Helper()

	repo := transactionrepo.NewRepoPGS(tx)
	transactions := make([]domain.Transaction, count)

	for i := range transactions {
		arg := transactionrepo.CreateParams{
			AccountID:    accountID,
			Type:         domain.TransactionTypeDeposit,
			Amount:       amount,
			BalanceAfter: amount,
			Description:  domain.TransactionTypeDeposit.DefaultDescription(),
		}

		created, err := repo.Create(context.Background(), arg)
		if err != nil {
			t.Fatalf("transactionRepo.Create(context.Background(), %+v) returned error: %v", arg, err)
		}

		transactions[i] = created
	}

	return transactions
}
