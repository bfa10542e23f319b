// Package journal implements the append-only transaction journal and the
// read models built on top of it.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Journal records and queries transactions.
type Journal struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// New builds a journal over the provided store.
func New(store Store, logger *slog.Logger) *Journal {
	return &Journal{store: store, logger: logger, now: time.Now}
}

// Page is one page of query results.
type Page struct {
	Transactions []Transaction
	Page         int
	Limit        int
	Total        int
}

// Record appends a standalone entry. Identity and timestamps are assigned
// when missing.
func (j *Journal) Record(ctx context.Context, tx Transaction) (Transaction, error) {
	now := j.now().UTC()
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.Date.IsZero() {
		tx.Date = now
	}
	tx.Date = Day(tx.Date)
	if err := tx.Validate(); err != nil {
		return Transaction{}, err
	}
	if err := j.store.Append(ctx, tx); err != nil {
		return Transaction{}, j.fail("journal.record", err)
	}
	return tx, nil
}

// Query returns one page of the owner's transactions, newest first.
func (j *Journal) Query(ctx context.Context, ownerID string, f Filter) (Page, error) {
	if ownerID == "" {
		return Page{}, errs.Invalid("owner_id", "is required")
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	txs, total, err := j.store.Find(ctx, ownerID, f)
	if err != nil {
		return Page{}, j.fail("journal.query", err)
	}
	return Page{Transactions: txs, Page: f.Page, Limit: f.Limit, Total: total}, nil
}

// Totals summarizes a set of transactions.
type Totals struct {
	Count   int
	Total   decimal.Decimal
	Average decimal.Decimal
}

// MonthlySummary totals one calendar month by transaction type.
type MonthlySummary struct {
	Year              int
	Month             time.Month
	ByType            map[Type]Totals
	NetIncome         decimal.Decimal
	TotalTransactions int
}

// MonthlySummary totals the owner's transactions for the given month. Every
// type is present in the result, with zero totals when idle.
func (j *Journal) MonthlySummary(ctx context.Context, ownerID string, year int, month time.Month) (MonthlySummary, error) {
	if month < time.January || month > time.December {
		return MonthlySummary{}, errs.Invalid("month", "must be between 1 and 12")
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	txs, err := j.all(ctx, ownerID, Filter{From: from, To: to})
	if err != nil {
		return MonthlySummary{}, err
	}

	summary := MonthlySummary{Year: year, Month: month, ByType: make(map[Type]Totals, len(Types))}
	sums := make(map[Type]decimal.Decimal, len(Types))
	counts := make(map[Type]int, len(Types))
	for _, tx := range txs {
		sums[tx.Type] = sums[tx.Type].Add(tx.Amount)
		counts[tx.Type]++
	}
	for _, t := range Types {
		summary.ByType[t] = totals(counts[t], sums[t])
		summary.TotalTransactions += counts[t]
	}
	summary.NetIncome = summary.ByType[TypeIncome].Total.Sub(summary.ByType[TypeExpense].Total)
	return summary, nil
}

// MaxMonths bounds the window of trend and statistics queries.
const MaxMonths = 120

func checkMonths(months int) error {
	if months < 1 || months > MaxMonths {
		return errs.Invalid("months", fmt.Sprintf("must be between 1 and %d", MaxMonths))
	}
	return nil
}

// MonthTrend is income and expense activity for one month.
type MonthTrend struct {
	Month        time.Time
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Net          decimal.Decimal
	IncomeCount  int
	ExpenseCount int
}

// SpendingTrend buckets income and expense over the last months calendar
// months (the current one included), newest first. Months without activity
// are absent; see FillMonths.
func (j *Journal) SpendingTrend(ctx context.Context, ownerID string, months int) ([]MonthTrend, error) {
	if err := checkMonths(months); err != nil {
		return nil, err
	}
	from := MonthOf(j.now()).AddDate(0, -(months - 1), 0)

	txs, err := j.all(ctx, ownerID, Filter{From: from})
	if err != nil {
		return nil, err
	}

	byMonth := make(map[time.Time]*MonthTrend)
	for _, tx := range txs {
		if tx.Type != TypeIncome && tx.Type != TypeExpense {
			continue
		}
		key := MonthOf(tx.Date)
		m, ok := byMonth[key]
		if !ok {
			m = &MonthTrend{Month: key}
			byMonth[key] = m
		}
		if tx.Type == TypeIncome {
			m.Income = m.Income.Add(tx.Amount)
			m.IncomeCount++
		} else {
			m.Expense = m.Expense.Add(tx.Amount)
			m.ExpenseCount++
		}
	}

	trend := make([]MonthTrend, 0, len(byMonth))
	for _, m := range byMonth {
		m.Net = m.Income.Sub(m.Expense)
		trend = append(trend, *m)
	}
	sort.Slice(trend, func(a, b int) bool { return trend[a].Month.After(trend[b].Month) })
	return trend, nil
}

// FillMonths returns a dense copy of trend covering every month between from
// and to (inclusive), newest first, inserting zero entries for idle months.
// At most MaxMonths entries are produced, counting back from to.
func FillMonths(trend []MonthTrend, from, to time.Time) []MonthTrend {
	present := make(map[time.Time]MonthTrend, len(trend))
	for _, m := range trend {
		present[MonthOf(m.Month)] = m
	}
	var out []MonthTrend
	for m := MonthOf(to); !m.Before(MonthOf(from)) && len(out) < MaxMonths; m = m.AddDate(0, -1, 0) {
		if existing, ok := present[m]; ok {
			out = append(out, existing)
			continue
		}
		out = append(out, MonthTrend{Month: m})
	}
	return out
}

// PaymentStatistics groups debt payments by month over the last months
// calendar months.
func (j *Journal) PaymentStatistics(ctx context.Context, ownerID string, months int) ([]Group, error) {
	if err := checkMonths(months); err != nil {
		return nil, err
	}
	from := MonthOf(j.now()).AddDate(0, -(months - 1), 0)
	return j.Aggregate(ctx, ownerID, Filter{From: from, Type: TypePayment}, GroupByMonth, 0)
}

// all loads every matching transaction without pagination.
func (j *Journal) all(ctx context.Context, ownerID string, f Filter) ([]Transaction, error) {
	if ownerID == "" {
		return nil, errs.Invalid("owner_id", "is required")
	}
	f.Page, f.Limit = 0, 0
	txs, _, err := j.store.Find(ctx, ownerID, f)
	if err != nil {
		return nil, j.fail("journal.scan", err)
	}
	return txs, nil
}

func (j *Journal) fail(op string, err error) error {
	if errs.IsBusiness(err) {
		return err
	}
	j.logger.Error("journal storage failure", slog.String("op", op), slog.Any("error", err))
	return errs.Operation(op, err)
}

func totals(count int, sum decimal.Decimal) Totals {
	t := Totals{Count: count, Total: sum}
	if count > 0 {
		t.Average = sum.Div(decimal.NewFromInt(int64(count))).Round(2)
	}
	return t
}
