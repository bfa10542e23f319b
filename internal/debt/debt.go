// Package debt models credit cards, installment purchases and land payment
// plans behind one uniform instrument shape used by the payment scheduler.
package debt

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/journal"
)

// Kind tags the concrete instrument behind the uniform shape.
type Kind string

const (
	KindCreditCard  Kind = "credit_card"
	KindInstallment Kind = "installment"
	KindLand        Kind = "land"
)

// Valid reports whether k is a known instrument kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCreditCard, KindInstallment, KindLand:
		return true
	}
	return false
}

// DefaultCurrency is used when an instrument is created without a currency.
const DefaultCurrency = "TRY"

// Instrument is a snapshot of a debt obligation.
type Instrument struct {
	ID               string
	OwnerID          string
	Kind             Kind
	Name             string
	Issuer           string
	Currency         string
	TotalAmount      decimal.Decimal
	RemainingBalance decimal.Decimal
	PeriodicPayment  decimal.Decimal
	InterestRate     decimal.Decimal
	NextDueDate      time.Time
	TotalPeriods     int
	PaidPeriods      int
	Active           bool
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RemainingPeriods is the number of unpaid periods, or zero for revolving
// instruments without a fixed term.
func (i Instrument) RemainingPeriods() int {
	if i.TotalPeriods <= i.PaidPeriods {
		return 0
	}
	return i.TotalPeriods - i.PaidPeriods
}

// CompletionPercent is the share of the original amount already repaid,
// rounded to a whole percent.
func (i Instrument) CompletionPercent() int64 {
	if !i.TotalAmount.IsPositive() {
		return 0
	}
	paid := i.TotalAmount.Sub(i.RemainingBalance)
	return paid.Mul(decimal.NewFromInt(100)).Div(i.TotalAmount).Round(0).IntPart()
}

// Store persists instruments. WithinTx has the same all-or-nothing contract
// as the ledger store.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetInstrument(ctx context.Context, id string) (Instrument, error)
	ListInstruments(ctx context.Context, ownerID string, includeInactive bool) ([]Instrument, error)
	// OwnersWithOpenBalances lists owners holding an active instrument with a
	// positive remaining balance.
	OwnersWithOpenBalances(ctx context.Context) ([]string, error)
}

// Tx is the set of statements available inside an instrument transaction.
type Tx interface {
	LockInstrument(ctx context.Context, id string) (Instrument, error)
	InsertInstrument(ctx context.Context, inst Instrument) error
	UpdateInstrument(ctx context.Context, inst Instrument) (Instrument, error)
	DeleteInstrument(ctx context.Context, id string) error
	CountInstrumentTransactions(ctx context.Context, instrumentID string) (int, error)
	AppendTransaction(ctx context.Context, tx journal.Transaction) error
}
