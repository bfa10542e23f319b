package journal

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/middleware"
)

// Handler exposes read-only journal endpoints.
type Handler struct {
	journal *Journal
}

// NewHandler builds a journal HTTP handler.
func NewHandler(j *Journal) *Handler {
	return &Handler{journal: j}
}

type transactionResponse struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"account_id,omitempty"`
	InstrumentID string          `json:"debt_instrument_id,omitempty"`
	Type         Type            `json:"type"`
	Direction    Direction       `json:"direction,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description"`
	Category     string          `json:"category,omitempty"`
	Date         string          `json:"date"`
	CreatedAt    time.Time       `json:"created_at"`
}

type groupResponse struct {
	Key     string          `json:"key"`
	Count   int             `json:"count"`
	Sum     decimal.Decimal `json:"sum"`
	Average decimal.Decimal `json:"average"`
	Percent decimal.Decimal `json:"percent"`
}

type totalsResponse struct {
	Count   int             `json:"count"`
	Total   decimal.Decimal `json:"total"`
	Average decimal.Decimal `json:"average"`
}

func filterFrom(c *fiber.Ctx) (Filter, error) {
	f := Filter{
		Type:         Type(c.Query("type")),
		Category:     c.Query("category"),
		AccountID:    c.Query("account_id"),
		InstrumentID: c.Query("debt_instrument_id"),
		Search:       c.Query("search"),
		Page:         c.QueryInt("page", 1),
		Limit:        c.QueryInt("limit", defaultPageSize),
	}
	var err error
	if v := c.Query("from"); v != "" {
		if f.From, err = time.Parse(time.DateOnly, v); err != nil {
			return Filter{}, errs.Invalid("from", "expected YYYY-MM-DD")
		}
	}
	if v := c.Query("to"); v != "" {
		if f.To, err = time.Parse(time.DateOnly, v); err != nil {
			return Filter{}, errs.Invalid("to", "expected YYYY-MM-DD")
		}
	}
	if f.Type != "" && !f.Type.Valid() {
		return Filter{}, errs.Invalid("type", "unknown transaction type "+string(f.Type))
	}
	return f, nil
}

// Query lists transactions.
func (h *Handler) Query(c *fiber.Ctx) error {
	f, err := filterFrom(c)
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	page, err := h.journal.Query(c.UserContext(), middleware.Owner(c), f)
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	out := make([]transactionResponse, 0, len(page.Transactions))
	for _, tx := range page.Transactions {
		out = append(out, transactionResponse{
			ID:           tx.ID,
			AccountID:    tx.AccountID,
			InstrumentID: tx.InstrumentID,
			Type:         tx.Type,
			Direction:    tx.Direction,
			Amount:       tx.Amount,
			Description:  tx.Description,
			Category:     tx.Category,
			Date:         tx.Date.Format(time.DateOnly),
			CreatedAt:    tx.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"transactions": out,
		"pagination":   fiber.Map{"page": page.Page, "limit": page.Limit, "total": page.Total},
	})
}

// Aggregate groups transactions by ?group_by (type, category, month, account).
func (h *Handler) Aggregate(c *fiber.Ctx) error {
	f, err := filterFrom(c)
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	groups, err := h.journal.Aggregate(c.UserContext(), middleware.Owner(c), f, GroupBy(c.Query("group_by", string(GroupByCategory))), c.QueryInt("top", 0))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"groups": toGroups(groups)})
}

// MonthlySummary totals /:year/:month by type.
func (h *Handler) MonthlySummary(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid year")
	}
	month, err := strconv.Atoi(c.Params("month"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid month")
	}
	summary, err := h.journal.MonthlySummary(c.UserContext(), middleware.Owner(c), year, time.Month(month))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	byType := make(map[Type]totalsResponse, len(summary.ByType))
	for t, tot := range summary.ByType {
		byType[t] = totalsResponse{Count: tot.Count, Total: tot.Total, Average: tot.Average}
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"year":               summary.Year,
		"month":              int(summary.Month),
		"by_type":            byType,
		"net_income":         summary.NetIncome,
		"total_transactions": summary.TotalTransactions,
	})
}

// Trends returns income and expense per month for ?months (default 6).
// ?fill=true adds zero entries for idle months.
func (h *Handler) Trends(c *fiber.Ctx) error {
	months := c.QueryInt("months", 6)
	trend, err := h.journal.SpendingTrend(c.UserContext(), middleware.Owner(c), months)
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	if c.QueryBool("fill") {
		now := h.journal.now()
		trend = FillMonths(trend, MonthOf(now).AddDate(0, -(months-1), 0), now)
	}
	out := make([]fiber.Map, 0, len(trend))
	for _, m := range trend {
		out = append(out, fiber.Map{
			"month":         m.Month.Format("2006-01"),
			"income":        m.Income,
			"expense":       m.Expense,
			"net":           m.Net,
			"income_count":  m.IncomeCount,
			"expense_count": m.ExpenseCount,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"trends": out})
}

// PaymentStatistics returns debt payments per month for ?months (default 12).
func (h *Handler) PaymentStatistics(c *fiber.Ctx) error {
	groups, err := h.journal.PaymentStatistics(c.UserContext(), middleware.Owner(c), c.QueryInt("months", 12))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"months": toGroups(groups)})
}

func toGroups(groups []Group) []groupResponse {
	out := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, groupResponse{Key: g.Key, Count: g.Count, Sum: g.Sum, Average: g.Average, Percent: g.Percent})
	}
	return out
}
