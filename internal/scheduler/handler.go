package scheduler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/middleware"
)

// Handler exposes scheduling endpoints.
type Handler struct {
	prioritizer *Prioritizer
}

// NewHandler builds a scheduler HTTP handler.
func NewHandler(p *Prioritizer) *Handler {
	return &Handler{prioritizer: p}
}

type paymentResponse struct {
	InstrumentID     string          `json:"instrument_id"`
	Kind             string          `json:"kind"`
	Name             string          `json:"name"`
	Issuer           string          `json:"issuer,omitempty"`
	DueDate          string          `json:"due_date"`
	DaysUntil        int             `json:"days_until"`
	State            DueState        `json:"state"`
	Priority         Priority        `json:"priority"`
	MinimumPayment   decimal.Decimal `json:"minimum_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
}

// Upcoming lists payments due within ?horizon days (default 30).
func (h *Handler) Upcoming(c *fiber.Ctx) error {
	horizon := c.QueryInt("horizon", 30)
	payments, err := h.prioritizer.ListUpcoming(c.UserContext(), middleware.Owner(c), horizon)
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	out := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, paymentResponse{
			InstrumentID:     p.InstrumentID,
			Kind:             string(p.Kind),
			Name:             p.Name,
			Issuer:           p.Issuer,
			DueDate:          p.DueDate.Format(time.DateOnly),
			DaysUntil:        p.DaysUntil,
			State:            p.State,
			Priority:         p.Priority,
			MinimumPayment:   p.MinimumPayment,
			RemainingBalance: p.RemainingBalance,
			InterestRate:     p.InterestRate,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"payments": out})
}

// Reminders returns this week's reminders.
func (h *Handler) Reminders(c *fiber.Ctx) error {
	reminders, err := h.prioritizer.Reminders(c.UserContext(), middleware.Owner(c))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	out := make([]fiber.Map, 0, len(reminders))
	for _, r := range reminders {
		out = append(out, fiber.Map{
			"instrument_id": r.InstrumentID,
			"severity":      r.Severity,
			"priority":      r.Priority,
			"title":         r.Title,
			"message":       r.Message,
			"amount":        r.Amount,
			"due_date":      r.DueDate.Format(time.DateOnly),
			"days_until":    r.DaysUntil,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"reminders": out})
}

// Calendar returns the payment calendar for /:year/:month.
func (h *Handler) Calendar(c *fiber.Ctx) error {
	year, err := strconv.Atoi(c.Params("year"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid year")
	}
	month, err := strconv.Atoi(c.Params("month"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid month")
	}
	cal, err := h.prioritizer.MonthlyCalendar(c.UserContext(), middleware.Owner(c), year, time.Month(month))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	days := make([]fiber.Map, 0, len(cal.Days))
	for _, d := range cal.Days {
		entries := make([]fiber.Map, 0, len(d.Payments))
		for _, e := range d.Payments {
			entries = append(entries, fiber.Map{
				"instrument_id":     e.InstrumentID,
				"kind":              e.Kind,
				"name":              e.Name,
				"minimum_payment":   e.MinimumPayment,
				"remaining_balance": e.RemainingBalance,
			})
		}
		days = append(days, fiber.Map{"day": d.Day, "date": d.Date.Format(time.DateOnly), "payments": entries})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"year":                   cal.Year,
		"month":                  int(cal.Month),
		"days":                   days,
		"total_minimum_payments": cal.TotalMinimumPayments,
		"payment_count":          cal.PaymentCount,
	})
}

type distributeRequest struct {
	TotalAvailable decimal.Decimal `json:"total_available"`
}

// Distribute splits the posted amount across the owner's open debts.
func (h *Handler) Distribute(c *fiber.Ctx) error {
	var req distributeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	dist, err := h.prioritizer.Distribute(c.UserContext(), middleware.Owner(c), req.TotalAvailable)
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	allocs := make([]fiber.Map, 0, len(dist.Allocations))
	for _, a := range dist.Allocations {
		allocs = append(allocs, fiber.Map{
			"instrument_id":     a.InstrumentID,
			"name":              a.Name,
			"interest_rate":     a.InterestRate,
			"remaining_balance": a.RemainingBalance,
			"minimum":           a.Minimum,
			"extra":             a.Extra,
			"total":             a.Total,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"allocations": allocs,
		"summary": fiber.Map{
			"total_available": dist.Summary.TotalAvailable,
			"total_minimum":   dist.Summary.TotalMinimum,
			"total_extra":     dist.Summary.TotalExtra,
			"unallocated":     dist.Summary.Unallocated,
		},
	})
}
