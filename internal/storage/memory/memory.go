// Package memory is an in-process store for tests and development mode.
// Transactions are serialized under one mutex and stage their writes until
// commit, so a failed transaction leaves nothing behind.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/ledger"
)

type entry struct {
	seq int64
	tx  journal.Transaction
}

// DB holds every table. Stores built on the same DB share data and
// transactions.
type DB struct {
	mu          sync.Mutex
	accounts    map[string]ledger.Account
	instruments map[string]debt.Instrument
	entries     []entry
	seq         int64
}

// New creates an empty database.
func New() *DB {
	return &DB{
		accounts:    make(map[string]ledger.Account),
		instruments: make(map[string]debt.Instrument),
	}
}

// unit is one transaction's staged writes. It implements both ledger.Tx and
// debt.Tx.
type unit struct {
	db          *DB
	accounts    map[string]ledger.Account
	instruments map[string]debt.Instrument
	deleted     map[string]bool
	appended    []journal.Transaction
}

// withinTx runs fn with the database locked. Calling back into any store
// from fn deadlocks; use the Tx instead.
func (db *DB) withinTx(ctx context.Context, fn func(ctx context.Context, u *unit) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	db.mu.Lock()
	defer db.mu.Unlock()

	u := &unit{
		db:          db,
		accounts:    make(map[string]ledger.Account),
		instruments: make(map[string]debt.Instrument),
		deleted:     make(map[string]bool),
	}
	if err := fn(ctx, u); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.commit()
	return nil
}

func (u *unit) commit() {
	db := u.db
	for id := range u.deleted {
		delete(db.accounts, id)
		delete(db.instruments, id)
	}
	for id, a := range u.accounts {
		db.accounts[id] = a
	}
	for id, inst := range u.instruments {
		db.instruments[id] = inst
	}
	for _, tx := range u.appended {
		db.seq++
		db.entries = append(db.entries, entry{seq: db.seq, tx: tx})
	}
}

func (u *unit) LockAccount(_ context.Context, id string) (ledger.Account, error) {
	if u.deleted[id] {
		return ledger.Account{}, errs.NotFound("account", id)
	}
	if a, ok := u.accounts[id]; ok {
		return a, nil
	}
	if a, ok := u.db.accounts[id]; ok {
		return a, nil
	}
	return ledger.Account{}, errs.NotFound("account", id)
}

func (u *unit) InsertAccount(ctx context.Context, a ledger.Account) error {
	if _, err := u.LockAccount(ctx, a.ID); err == nil {
		return errs.Operation("memory.insert_account", errDuplicateKey)
	}
	delete(u.deleted, a.ID)
	u.accounts[a.ID] = a
	return nil
}

func (u *unit) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	current, err := u.LockAccount(ctx, a.ID)
	if err != nil {
		return ledger.Account{}, err
	}
	if current.Version != a.Version {
		return ledger.Account{}, errs.ErrConcurrentUpdate
	}
	a.Version++
	u.accounts[a.ID] = a
	return a, nil
}

func (u *unit) DeleteAccount(ctx context.Context, id string) error {
	if _, err := u.LockAccount(ctx, id); err != nil {
		return err
	}
	delete(u.accounts, id)
	u.deleted[id] = true
	return nil
}

func (u *unit) CountAccountTransactions(_ context.Context, accountID string) (int, error) {
	return u.count(func(tx journal.Transaction) bool { return tx.AccountID == accountID }), nil
}

func (u *unit) LockInstrument(_ context.Context, id string) (debt.Instrument, error) {
	if u.deleted[id] {
		return debt.Instrument{}, errs.NotFound("instrument", id)
	}
	if inst, ok := u.instruments[id]; ok {
		return inst, nil
	}
	if inst, ok := u.db.instruments[id]; ok {
		return inst, nil
	}
	return debt.Instrument{}, errs.NotFound("instrument", id)
}

func (u *unit) InsertInstrument(ctx context.Context, inst debt.Instrument) error {
	if _, err := u.LockInstrument(ctx, inst.ID); err == nil {
		return errs.Operation("memory.insert_instrument", errDuplicateKey)
	}
	delete(u.deleted, inst.ID)
	u.instruments[inst.ID] = inst
	return nil
}

func (u *unit) UpdateInstrument(ctx context.Context, inst debt.Instrument) (debt.Instrument, error) {
	current, err := u.LockInstrument(ctx, inst.ID)
	if err != nil {
		return debt.Instrument{}, err
	}
	if current.Version != inst.Version {
		return debt.Instrument{}, errs.ErrConcurrentUpdate
	}
	inst.Version++
	u.instruments[inst.ID] = inst
	return inst, nil
}

func (u *unit) DeleteInstrument(ctx context.Context, id string) error {
	if _, err := u.LockInstrument(ctx, id); err != nil {
		return err
	}
	delete(u.instruments, id)
	u.deleted[id] = true
	return nil
}

func (u *unit) CountInstrumentTransactions(_ context.Context, instrumentID string) (int, error) {
	return u.count(func(tx journal.Transaction) bool { return tx.InstrumentID == instrumentID }), nil
}

func (u *unit) AppendTransaction(ctx context.Context, tx journal.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.AccountID != "" {
		if _, err := u.LockAccount(ctx, tx.AccountID); err != nil {
			return errs.Operation("memory.append_transaction", errForeignKey)
		}
	}
	if tx.InstrumentID != "" {
		if _, err := u.LockInstrument(ctx, tx.InstrumentID); err != nil {
			return errs.Operation("memory.append_transaction", errForeignKey)
		}
	}
	u.appended = append(u.appended, tx)
	return nil
}

func (u *unit) count(match func(journal.Transaction) bool) int {
	n := 0
	for _, e := range u.db.entries {
		if match(e.tx) {
			n++
		}
	}
	for _, tx := range u.appended {
		if match(tx) {
			n++
		}
	}
	return n
}

// sortEntries orders entries newest first; insertion order breaks ties
// between identical timestamps.
func sortEntries(list []entry) {
	sort.SliceStable(list, func(a, b int) bool {
		ta, tb := list[a].tx, list[b].tx
		if !ta.Date.Equal(tb.Date) || !ta.CreatedAt.Equal(tb.CreatedAt) {
			return journal.Less(ta, tb)
		}
		return list[a].seq > list[b].seq
	})
}
