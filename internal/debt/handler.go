package debt

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/middleware"
)

// Handler exposes debt instrument endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a debt HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Kind             string          `json:"kind"`
	Name             string          `json:"name"`
	Issuer           string          `json:"issuer"`
	Currency         string          `json:"currency"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PeriodicPayment  decimal.Decimal `json:"periodic_payment"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	NextDueDate      string          `json:"next_due_date"`
	TotalPeriods     int             `json:"total_periods"`
}

type instrumentResponse struct {
	ID                string          `json:"id"`
	Kind              Kind            `json:"kind"`
	Name              string          `json:"name"`
	Issuer            string          `json:"issuer,omitempty"`
	Currency          string          `json:"currency"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	RemainingBalance  decimal.Decimal `json:"remaining_balance"`
	PeriodicPayment   decimal.Decimal `json:"periodic_payment"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	NextDueDate       string          `json:"next_due_date"`
	TotalPeriods      int             `json:"total_periods"`
	PaidPeriods       int             `json:"paid_periods"`
	RemainingPeriods  int             `json:"remaining_periods"`
	CompletionPercent int64           `json:"completion_percent"`
	Active            bool            `json:"active"`
}

func toResponse(i Instrument) instrumentResponse {
	return instrumentResponse{
		ID:                i.ID,
		Kind:              i.Kind,
		Name:              i.Name,
		Issuer:            i.Issuer,
		Currency:          i.Currency,
		TotalAmount:       i.TotalAmount,
		RemainingBalance:  i.RemainingBalance,
		PeriodicPayment:   i.PeriodicPayment,
		InterestRate:      i.InterestRate,
		NextDueDate:       i.NextDueDate.Format(time.DateOnly),
		TotalPeriods:      i.TotalPeriods,
		PaidPeriods:       i.PaidPeriods,
		RemainingPeriods:  i.RemainingPeriods(),
		CompletionPercent: i.CompletionPercent(),
		Active:            i.Active,
	}
}

// Create registers an instrument for the calling owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	var due time.Time
	if req.NextDueDate != "" {
		var err error
		if due, err = time.Parse(time.DateOnly, req.NextDueDate); err != nil {
			return fiber.NewError(http.StatusBadRequest, "next_due_date: expected YYYY-MM-DD")
		}
	}
	inst, err := h.service.Create(c.UserContext(), CreateInput{
		OwnerID:          middleware.Owner(c),
		Kind:             Kind(req.Kind),
		Name:             req.Name,
		Issuer:           req.Issuer,
		Currency:         req.Currency,
		TotalAmount:      req.TotalAmount,
		RemainingBalance: req.RemainingBalance,
		PeriodicPayment:  req.PeriodicPayment,
		InterestRate:     req.InterestRate,
		NextDueDate:      due,
		TotalPeriods:     req.TotalPeriods,
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusCreated).JSON(toResponse(inst))
}

// List returns the owner's instruments.
func (h *Handler) List(c *fiber.Ctx) error {
	list, err := h.service.List(c.UserContext(), middleware.Owner(c), c.QueryBool("include_inactive"))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	out := make([]instrumentResponse, 0, len(list))
	for _, inst := range list {
		out = append(out, toResponse(inst))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"instruments": out})
}

// Get returns one instrument.
func (h *Handler) Get(c *fiber.Ctx) error {
	inst, err := h.service.Instrument(c.UserContext(), middleware.Owner(c), c.Params("instrumentId"))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusOK).JSON(toResponse(inst))
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

// Pay records a payment against an instrument.
func (h *Handler) Pay(c *fiber.Ctx) error {
	var req paymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.RecordPayment(c.UserContext(), PaymentInput{
		OwnerID:      middleware.Owner(c),
		InstrumentID: c.Params("instrumentId"),
		Amount:       req.Amount,
		Description:  req.Description,
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"instrument":     toResponse(res.Instrument),
		"transaction_id": res.Transaction.ID,
		"amount":         res.Transaction.Amount,
	})
}

// Delete removes or deactivates an instrument.
func (h *Handler) Delete(c *fiber.Ctx) error {
	deleted, deactivated, err := h.service.Delete(c.UserContext(), middleware.Owner(c), c.Params("instrumentId"))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"deleted": deleted, "deactivated": deactivated})
}
