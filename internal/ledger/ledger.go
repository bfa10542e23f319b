// Package ledger owns account balances, including overdraft credit lines, and
// writes every balance mutation through the transaction journal atomically.
package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/journal"
)

// AccountType enumerates supported account kinds.
type AccountType string

const (
	TypeChecking   AccountType = "checking"
	TypeSavings    AccountType = "savings"
	TypeCash       AccountType = "cash"
	TypeInvestment AccountType = "investment"
	TypeOverdraft  AccountType = "overdraft"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case TypeChecking, TypeSavings, TypeCash, TypeInvestment, TypeOverdraft:
		return true
	}
	return false
}

// DefaultCurrency is used when an account is opened without a currency.
const DefaultCurrency = "TRY"

// Account is an immutable snapshot of an account row. Operations return fresh
// snapshots; callers replace their copy instead of expecting it to change.
//
// For overdraft accounts Balance is always zero and the exposure lives in
// OverdraftUsed, bounded by OverdraftLimit.
type Account struct {
	ID             string
	OwnerID        string
	Name           string
	Type           AccountType
	Balance        decimal.Decimal
	OverdraftLimit decimal.Decimal
	OverdraftUsed  decimal.Decimal
	Currency       string
	Active         bool
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsOverdraft reports whether the account is backed by a credit line.
func (a Account) IsOverdraft() bool { return a.Type == TypeOverdraft }

// DisplayedBalance is the balance shown to users: always zero on overdraft
// accounts.
func (a Account) DisplayedBalance() decimal.Decimal {
	if a.IsOverdraft() {
		return decimal.Zero
	}
	return a.Balance
}

// AvailableCredit is the unused part of an overdraft line.
func (a Account) AvailableCredit() decimal.Decimal {
	if !a.IsOverdraft() {
		return decimal.Zero
	}
	return a.OverdraftLimit.Sub(a.OverdraftUsed)
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	IncludeInactive bool
	Type            AccountType
	Page            int
	Limit           int
}

// MutationResult is returned by Credit and Debit.
type MutationResult struct {
	Account     Account
	Transaction journal.Transaction
}

// TransferResult holds both account snapshots and both journal legs.
type TransferResult struct {
	Source      Account
	Destination Account
	Outgoing    journal.Transaction
	Incoming    journal.Transaction
}

// DeleteResult reports whether an account was removed or only deactivated.
type DeleteResult struct {
	Deleted     bool
	Deactivated bool
}

// Store is the storage collaborator of the ledger. WithinTx runs fn as one
// all-or-nothing unit: when fn returns an error nothing it wrote is visible.
//
// The ledger performs read-modify-write on balances, so implementations must
// serialize concurrent mutations of the same account, either with row locks
// taken by Tx.LockAccount or with an optimistic version check in
// Tx.UpdateAccount (failing with errs.ErrConcurrentUpdate).
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetAccount(ctx context.Context, id string) (Account, error)
	ListAccounts(ctx context.Context, ownerID string, f AccountFilter) ([]Account, error)
}

// Tx is the set of statements available inside a storage transaction.
type Tx interface {
	// LockAccount loads an account and holds it until the transaction ends.
	// Unknown accounts yield errs.ErrNotFound.
	LockAccount(ctx context.Context, id string) (Account, error)
	InsertAccount(ctx context.Context, a Account) error
	// UpdateAccount writes a and bumps its version; a.Version must match the
	// stored version.
	UpdateAccount(ctx context.Context, a Account) (Account, error)
	DeleteAccount(ctx context.Context, id string) error
	CountAccountTransactions(ctx context.Context, accountID string) (int, error)
	AppendTransaction(ctx context.Context, tx journal.Transaction) error
}
