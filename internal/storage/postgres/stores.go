package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/ledger"
)

// AccountStore implements ledger.Store.
type AccountStore struct{ db *DB }

// NewAccountStore returns an account store on db.
func NewAccountStore(db *DB) *AccountStore { return &AccountStore{db: db} }

// WithinTx runs fn inside one database transaction.
func (s *AccountStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ledger.Tx) error) error {
	return s.db.withinTx(ctx, func(ctx context.Context, u *unit) error { return fn(ctx, u) })
}

// GetAccount loads an account by primary key.
func (s *AccountStore) GetAccount(ctx context.Context, id string) (ledger.Account, error) {
	a, err := scanAccount(s.db.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.NotFound("account", id)
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// ListAccounts pages through the owner's accounts, newest first.
func (s *AccountStore) ListAccounts(ctx context.Context, ownerID string, f ledger.AccountFilter) ([]ledger.Account, error) {
	w := where{}
	w.add("owner_id = ?", ownerID)
	if !f.IncludeInactive {
		w.add("active = ?", true)
	}
	if f.Type != "" {
		w.add("type = ?", string(f.Type))
	}
	query := `SELECT ` + accountColumns + ` FROM accounts` + w.sql() + ` ORDER BY created_at DESC, id`
	query, args := w.page(query, f.Page, f.Limit)

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []ledger.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InstrumentStore implements debt.Store.
type InstrumentStore struct{ db *DB }

// NewInstrumentStore returns an instrument store on db.
func NewInstrumentStore(db *DB) *InstrumentStore { return &InstrumentStore{db: db} }

// WithinTx runs fn inside one database transaction.
func (s *InstrumentStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx debt.Tx) error) error {
	return s.db.withinTx(ctx, func(ctx context.Context, u *unit) error { return fn(ctx, u) })
}

// GetInstrument loads an instrument by primary key.
func (s *InstrumentStore) GetInstrument(ctx context.Context, id string) (debt.Instrument, error) {
	inst, err := scanInstrument(s.db.pool.QueryRow(ctx, `SELECT `+instrumentColumns+` FROM debt_instruments WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return debt.Instrument{}, errs.NotFound("instrument", id)
	}
	if err != nil {
		return debt.Instrument{}, fmt.Errorf("get instrument: %w", err)
	}
	return inst, nil
}

// ListInstruments returns the owner's instruments by due date.
func (s *InstrumentStore) ListInstruments(ctx context.Context, ownerID string, includeInactive bool) ([]debt.Instrument, error) {
	query := `SELECT ` + instrumentColumns + ` FROM debt_instruments WHERE owner_id = $1`
	if !includeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY next_due_date, id`

	rows, err := s.db.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list instruments: %w", err)
	}
	defer rows.Close()

	var out []debt.Instrument
	for rows.Next() {
		inst, err := scanInstrument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// OwnersWithOpenBalances lists owners with an active, unpaid instrument.
func (s *InstrumentStore) OwnersWithOpenBalances(ctx context.Context) ([]string, error) {
	rows, err := s.db.pool.Query(ctx, `SELECT DISTINCT owner_id FROM debt_instruments
		WHERE active AND remaining_amount > 0 ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan owners: %w", err)
	}
	return owners, nil
}

// JournalStore implements journal.Store.
type JournalStore struct{ db *DB }

// NewJournalStore returns a journal store on db.
func NewJournalStore(db *DB) *JournalStore { return &JournalStore{db: db} }

// Append inserts one entry in its own statement.
func (s *JournalStore) Append(ctx context.Context, tx journal.Transaction) error {
	return insertTransaction(ctx, s.db.pool, tx)
}

const transactionColumns = `id, owner_id, COALESCE(account_id, ''), COALESCE(debt_instrument_id, ''),
	type, direction, amount, description, category, transaction_date, created_at`

// Find filters the owner's entries in SQL. It mirrors journal.Filter.Matches.
func (s *JournalStore) Find(ctx context.Context, ownerID string, f journal.Filter) ([]journal.Transaction, int, error) {
	w := where{}
	w.add("owner_id = ?", ownerID)
	if !f.From.IsZero() {
		w.add("transaction_date >= ?", journal.Day(f.From))
	}
	if !f.To.IsZero() {
		w.add("transaction_date <= ?", journal.Day(f.To))
	}
	if f.Type != "" {
		w.add("type = ?", string(f.Type))
	}
	if f.Category != "" {
		w.add("category ILIKE ?", likePattern(f.Category))
	}
	if f.AccountID != "" {
		w.add("account_id = ?", f.AccountID)
	}
	if f.InstrumentID != "" {
		w.add("debt_instrument_id = ?", f.InstrumentID)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		w.add("(description ILIKE ? OR category ILIKE ?)", pattern, pattern)
	}

	var total int
	if err := s.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions` + w.sql() +
		` ORDER BY transaction_date DESC, created_at DESC, id DESC`
	query, args := w.page(query, f.Page, f.Limit)

	rows, err := s.db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []journal.Transaction
	for rows.Next() {
		var tx journal.Transaction
		var typ, direction string
		if err := rows.Scan(&tx.ID, &tx.OwnerID, &tx.AccountID, &tx.InstrumentID, &typ, &direction,
			&tx.Amount, &tx.Description, &tx.Category, &tx.Date, &tx.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Type, tx.Direction = journal.Type(typ), journal.Direction(direction)
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func insertTransaction(ctx context.Context, db execer, tx journal.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := db.Exec(ctx, `INSERT INTO transactions
		(id, owner_id, account_id, debt_instrument_id, type, direction, amount, description, category, transaction_date, created_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.OwnerID, tx.AccountID, tx.InstrumentID, string(tx.Type), string(tx.Direction),
		tx.Amount, tx.Description, tx.Category, journal.Day(tx.Date), tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// where accumulates AND-ed conditions written with ? placeholders and
// numbers them for pgx.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// page appends LIMIT/OFFSET when limit is positive.
func (w *where) page(query string, page, limit int) (string, []any) {
	args := append([]any(nil), w.args...)
	if limit <= 0 {
		return query, args
	}
	if page < 1 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	return query + fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
