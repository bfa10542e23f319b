package journal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
)

// Type classifies a money movement.
type Type string

const (
	TypeIncome   Type = "income"
	TypeExpense  Type = "expense"
	TypeTransfer Type = "transfer"
	TypePayment  Type = "payment"
)

// Types lists every transaction type in display order.
var Types = []Type{TypeIncome, TypeExpense, TypeTransfer, TypePayment}

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool {
	switch t {
	case TypeIncome, TypeExpense, TypeTransfer, TypePayment:
		return true
	}
	return false
}

// Direction tags the two legs of a transfer.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
)

// Transaction is an immutable journal entry. Exactly one of AccountID and
// InstrumentID is set.
type Transaction struct {
	ID           string
	OwnerID      string
	AccountID    string
	InstrumentID string
	Type         Type
	Direction    Direction
	Amount       decimal.Decimal
	Description  string
	Category     string
	Date         time.Time
	CreatedAt    time.Time
}

// Validate checks the structural invariants of an entry.
func (t Transaction) Validate() error {
	if t.OwnerID == "" {
		return errs.Invalid("owner_id", "is required")
	}
	hasAccount, hasInstrument := t.AccountID != "", t.InstrumentID != ""
	if hasAccount == hasInstrument {
		return errs.Invalid("reference", "exactly one of account or debt instrument must be set")
	}
	if !t.Type.Valid() {
		return errs.Invalid("type", "unknown transaction type "+string(t.Type))
	}
	if !t.Amount.IsPositive() {
		return errs.Invalid("amount", "must be positive")
	}
	if t.Direction != DirectionNone && t.Type != TypeTransfer {
		return errs.Invalid("direction", "only transfers carry a direction")
	}
	return nil
}

// Filter narrows journal queries. Zero values leave a dimension unfiltered.
// Date bounds are inclusive calendar days.
type Filter struct {
	From         time.Time
	To           time.Time
	Type         Type
	Category     string
	AccountID    string
	InstrumentID string
	Search       string

	Page  int
	Limit int
}

// Matches reports whether tx satisfies every non-pagination field of f.
// Stores without a query language use it to stay consistent with SQL stores.
func (f Filter) Matches(tx Transaction) bool {
	if !f.From.IsZero() && tx.Date.Before(Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && tx.Date.After(Day(f.To)) {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Category != "" && !containsFold(tx.Category, f.Category) {
		return false
	}
	if f.AccountID != "" && tx.AccountID != f.AccountID {
		return false
	}
	if f.InstrumentID != "" && tx.InstrumentID != f.InstrumentID {
		return false
	}
	if f.Search != "" && !containsFold(tx.Description, f.Search) && !containsFold(tx.Category, f.Search) {
		return false
	}
	return true
}

// Offset returns the number of rows to skip for the filter's page.
func (f Filter) Offset() int {
	if f.Limit <= 0 || f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// Less orders transactions by date descending, then creation time descending.
func Less(a, b Transaction) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// MonthOf truncates t to the first day of its UTC month.
func MonthOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// Store persists journal entries.
type Store interface {
	// Append stores one entry.
	Append(ctx context.Context, tx Transaction) error
	// Find returns the owner's entries matching f in journal order along with
	// the total number of matches. A zero Limit returns every match.
	Find(ctx context.Context, ownerID string, f Filter) ([]Transaction, int, error)
}
