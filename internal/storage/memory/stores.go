package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/ledger"
)

var (
	errDuplicateKey = errors.New("duplicate key")
	errForeignKey   = errors.New("referenced row does not exist")
)

// AccountStore implements ledger.Store.
type AccountStore struct{ db *DB }

// NewAccountStore returns an account store backed by db.
func NewAccountStore(db *DB) *AccountStore { return &AccountStore{db: db} }

// WithinTx runs fn as one all-or-nothing unit.
func (s *AccountStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.db.withinTx(ctx, func(ctx context.Context, u *unit) error { return fn(ctx, u) })
}

// GetAccount returns the committed account.
func (s *AccountStore) GetAccount(_ context.Context, id string) (ledger.Account, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return ledger.Account{}, errs.NotFound("account", id)
	}
	return a, nil
}

// ListAccounts returns the owner's accounts, newest first.
func (s *AccountStore) ListAccounts(_ context.Context, ownerID string, f ledger.AccountFilter) ([]ledger.Account, error) {
	s.db.mu.Lock()
	var out []ledger.Account
	for _, a := range s.db.accounts {
		if a.OwnerID != ownerID || (!a.Active && !f.IncludeInactive) {
			continue
		}
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		out = append(out, a)
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return paginate(out, f.Page, f.Limit), nil
}

// InstrumentStore implements debt.Store.
type InstrumentStore struct{ db *DB }

// NewInstrumentStore returns an instrument store backed by db.
func NewInstrumentStore(db *DB) *InstrumentStore { return &InstrumentStore{db: db} }

// WithinTx runs fn as one all-or-nothing unit.
func (s *InstrumentStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx debt.Tx) error) error {
	return s.db.withinTx(ctx, func(ctx context.Context, u *unit) error { return fn(ctx, u) })
}

// GetInstrument returns the committed instrument.
func (s *InstrumentStore) GetInstrument(_ context.Context, id string) (debt.Instrument, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	inst, ok := s.db.instruments[id]
	if !ok {
		return debt.Instrument{}, errs.NotFound("instrument", id)
	}
	return inst, nil
}

// ListInstruments returns the owner's instruments ordered by due date.
func (s *InstrumentStore) ListInstruments(_ context.Context, ownerID string, includeInactive bool) ([]debt.Instrument, error) {
	s.db.mu.Lock()
	var out []debt.Instrument
	for _, inst := range s.db.instruments {
		if inst.OwnerID == ownerID && (inst.Active || includeInactive) {
			out = append(out, inst)
		}
	}
	s.db.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].NextDueDate.Equal(out[j].NextDueDate) {
			return out[i].NextDueDate.Before(out[j].NextDueDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// OwnersWithOpenBalances lists owners with an active, unpaid instrument.
func (s *InstrumentStore) OwnersWithOpenBalances(_ context.Context) ([]string, error) {
	s.db.mu.Lock()
	seen := make(map[string]bool)
	for _, inst := range s.db.instruments {
		if inst.Active && inst.RemainingBalance.IsPositive() {
			seen[inst.OwnerID] = true
		}
	}
	s.db.mu.Unlock()

	owners := make([]string, 0, len(seen))
	for owner := range seen {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners, nil
}

// JournalStore implements journal.Store.
type JournalStore struct{ db *DB }

// NewJournalStore returns a journal store backed by db.
func NewJournalStore(db *DB) *JournalStore { return &JournalStore{db: db} }

// Append stores one entry outside any account or instrument transaction.
func (s *JournalStore) Append(ctx context.Context, tx journal.Transaction) error {
	return s.db.withinTx(ctx, func(ctx context.Context, u *unit) error {
		return u.AppendTransaction(ctx, tx)
	})
}

// Find returns the owner's entries matching f in journal order.
func (s *JournalStore) Find(_ context.Context, ownerID string, f journal.Filter) ([]journal.Transaction, int, error) {
	s.db.mu.Lock()
	var matched []entry
	for _, e := range s.db.entries {
		if e.tx.OwnerID == ownerID && f.Matches(e.tx) {
			matched = append(matched, e)
		}
	}
	s.db.mu.Unlock()

	sortEntries(matched)
	out := make([]journal.Transaction, len(matched))
	for i, e := range matched {
		out[i] = e.tx
	}
	total := len(out)
	if f.Limit <= 0 {
		return out, total, nil
	}
	return paginate(out, f.Page, f.Limit), total, nil
}

func paginate[T any](list []T, page, limit int) []T {
	if limit <= 0 {
		return list
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start >= len(list) {
		return []T{}
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}
