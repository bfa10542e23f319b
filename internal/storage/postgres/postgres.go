// Package postgres persists accounts, debt instruments and the transaction
// journal in PostgreSQL through pgx.
//
// Mutations run inside one pgx transaction. Rows are read with SELECT ... FOR
// UPDATE and written back with a version compare, so a lost race surfaces as
// errs.ErrConcurrentUpdate instead of a silent overwrite.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/ledger"
)

//go:embed schema.sql
var schema string

// Schema returns the bootstrap DDL.
func Schema() string { return schema }

// EnsureSchema creates missing tables and indexes. It is safe to run on every
// start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// DB wraps a pool shared by the per-domain stores.
type DB struct {
	pool *pgxpool.Pool
}

// New wraps pool.
func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

// unit implements ledger.Tx and debt.Tx over one pgx transaction.
type unit struct {
	tx pgx.Tx
}

func (db *DB) withinTx(ctx context.Context, fn func(ctx context.Context, u *unit) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if err := fn(ctx, &unit{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const accountColumns = `id, owner_id, name, type, balance, overdraft_limit, overdraft_used,
	currency, active, version, created_at, updated_at`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var typ string
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &typ, &a.Balance, &a.OverdraftLimit, &a.OverdraftUsed,
		&a.Currency, &a.Active, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	a.Type = ledger.AccountType(typ)
	return a, err
}

func (u *unit) LockAccount(ctx context.Context, id string) (ledger.Account, error) {
	row := u.tx.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.NotFound("account", id)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("lock account: %w", err)
	}
	return a, nil
}

func (u *unit) InsertAccount(ctx context.Context, a ledger.Account) error {
	_, err := u.tx.Exec(ctx, `INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.OwnerID, a.Name, string(a.Type), a.Balance, a.OverdraftLimit, a.OverdraftUsed,
		a.Currency, a.Active, a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (u *unit) UpdateAccount(ctx context.Context, a ledger.Account) (ledger.Account, error) {
	tag, err := u.tx.Exec(ctx, `UPDATE accounts
		SET name = $3, balance = $4, overdraft_limit = $5, overdraft_used = $6,
		    currency = $7, active = $8, updated_at = $9, version = version + 1
		WHERE id = $1 AND version = $2`,
		a.ID, a.Version, a.Name, a.Balance, a.OverdraftLimit, a.OverdraftUsed, a.Currency, a.Active, a.UpdatedAt)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.Account{}, errs.ErrConcurrentUpdate
	}
	a.Version++
	return a, nil
}

func (u *unit) DeleteAccount(ctx context.Context, id string) error {
	if _, err := u.tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

func (u *unit) CountAccountTransactions(ctx context.Context, accountID string) (int, error) {
	var n int
	if err := u.tx.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE account_id = $1`, accountID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count account transactions: %w", err)
	}
	return n, nil
}

const instrumentColumns = `id, owner_id, kind, name, issuer, currency, total_amount, remaining_amount,
	periodic_payment, interest_rate, next_due_date, total_periods, paid_periods, active,
	version, created_at, updated_at`

func scanInstrument(row pgx.Row) (debt.Instrument, error) {
	var inst debt.Instrument
	var kind string
	err := row.Scan(&inst.ID, &inst.OwnerID, &kind, &inst.Name, &inst.Issuer, &inst.Currency, &inst.TotalAmount,
		&inst.RemainingBalance, &inst.PeriodicPayment, &inst.InterestRate, &inst.NextDueDate,
		&inst.TotalPeriods, &inst.PaidPeriods, &inst.Active, &inst.Version, &inst.CreatedAt, &inst.UpdatedAt)
	inst.Kind = debt.Kind(kind)
	return inst, err
}

func (u *unit) LockInstrument(ctx context.Context, id string) (debt.Instrument, error) {
	row := u.tx.QueryRow(ctx, `SELECT `+instrumentColumns+` FROM debt_instruments WHERE id = $1 FOR UPDATE`, id)
	inst, err := scanInstrument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return debt.Instrument{}, errs.NotFound("instrument", id)
	}
	if err != nil {
		return debt.Instrument{}, fmt.Errorf("lock instrument: %w", err)
	}
	return inst, nil
}

func (u *unit) InsertInstrument(ctx context.Context, inst debt.Instrument) error {
	_, err := u.tx.Exec(ctx, `INSERT INTO debt_instruments (`+instrumentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		inst.ID, inst.OwnerID, string(inst.Kind), inst.Name, inst.Issuer, inst.Currency, inst.TotalAmount,
		inst.RemainingBalance, inst.PeriodicPayment, inst.InterestRate, inst.NextDueDate,
		inst.TotalPeriods, inst.PaidPeriods, inst.Active, inst.Version, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert instrument: %w", err)
	}
	return nil
}

func (u *unit) UpdateInstrument(ctx context.Context, inst debt.Instrument) (debt.Instrument, error) {
	tag, err := u.tx.Exec(ctx, `UPDATE debt_instruments
		SET remaining_amount = $3, next_due_date = $4, paid_periods = $5, active = $6,
		    updated_at = $7, version = version + 1
		WHERE id = $1 AND version = $2`,
		inst.ID, inst.Version, inst.RemainingBalance, inst.NextDueDate, inst.PaidPeriods, inst.Active, inst.UpdatedAt)
	if err != nil {
		return debt.Instrument{}, fmt.Errorf("update instrument: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return debt.Instrument{}, errs.ErrConcurrentUpdate
	}
	inst.Version++
	return inst, nil
}

func (u *unit) DeleteInstrument(ctx context.Context, id string) error {
	if _, err := u.tx.Exec(ctx, `DELETE FROM debt_instruments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete instrument: %w", err)
	}
	return nil
}

func (u *unit) CountInstrumentTransactions(ctx context.Context, instrumentID string) (int, error) {
	var n int
	err := u.tx.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE debt_instrument_id = $1`, instrumentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count instrument transactions: %w", err)
	}
	return n, nil
}

func (u *unit) AppendTransaction(ctx context.Context, tx journal.Transaction) error {
	return insertTransaction(ctx, u.tx, tx)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
