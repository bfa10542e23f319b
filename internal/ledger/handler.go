package ledger

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/middleware"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	OverdraftLimit decimal.Decimal `json:"overdraft_limit"`
	Currency       string          `json:"currency"`
}

type accountResponse struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Type            AccountType     `json:"type"`
	Balance         decimal.Decimal `json:"balance"`
	OverdraftLimit  decimal.Decimal `json:"overdraft_limit"`
	OverdraftUsed   decimal.Decimal `json:"overdraft_used"`
	AvailableCredit decimal.Decimal `json:"available_credit"`
	Currency        string          `json:"currency"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toResponse(a Account) accountResponse {
	return accountResponse{
		ID:              a.ID,
		Name:            a.Name,
		Type:            a.Type,
		Balance:         a.DisplayedBalance(),
		OverdraftLimit:  a.OverdraftLimit,
		OverdraftUsed:   a.OverdraftUsed,
		AvailableCredit: a.AvailableCredit(),
		Currency:        a.Currency,
		Active:          a.Active,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type entryResponse struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Type        journal.Type      `json:"type"`
	Direction   journal.Direction `json:"direction,omitempty"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	Category    string            `json:"category,omitempty"`
	Date        string            `json:"date"`
}

func toEntry(tx journal.Transaction) entryResponse {
	return entryResponse{
		ID:          tx.ID,
		AccountID:   tx.AccountID,
		Type:        tx.Type,
		Direction:   tx.Direction,
		Amount:      tx.Amount,
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.Format(time.DateOnly),
	}
}

// Create opens an account for the calling owner.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, err := h.service.CreateAccount(c.UserContext(), CreateAccountInput{
		OwnerID:        middleware.Owner(c),
		Name:           req.Name,
		Type:           AccountType(req.Type),
		InitialBalance: req.InitialBalance,
		OverdraftLimit: req.OverdraftLimit,
		Currency:       req.Currency,
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusCreated).JSON(toResponse(acc))
}

// List returns the owner's accounts.
func (h *Handler) List(c *fiber.Ctx) error {
	accounts, err := h.service.Accounts(c.UserContext(), middleware.Owner(c), AccountFilter{
		IncludeInactive: c.QueryBool("include_inactive"),
		Type:            AccountType(c.Query("type")),
		Page:            c.QueryInt("page", 1),
		Limit:           c.QueryInt("limit", defaultAccountPageSize),
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toResponse(a))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": out})
}

// Get returns one account.
func (h *Handler) Get(c *fiber.Ctx) error {
	acc, err := h.service.Account(c.UserContext(), middleware.Owner(c), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusOK).JSON(toResponse(acc))
}

type updateRequest struct {
	Name           *string          `json:"name"`
	Currency       *string          `json:"currency"`
	OverdraftLimit *decimal.Decimal `json:"overdraft_limit"`
}

// Update changes an account's name, currency or credit line.
func (h *Handler) Update(c *fiber.Ctx) error {
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	acc, err := h.service.UpdateAccount(c.UserContext(), UpdateAccountInput{
		OwnerID:        middleware.Owner(c),
		AccountID:      c.Params("accountId"),
		Name:           req.Name,
		Currency:       req.Currency,
		OverdraftLimit: req.OverdraftLimit,
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusOK).JSON(toResponse(acc))
}

type typeSummaryResponse struct {
	Count    int                        `json:"count"`
	Balances map[string]decimal.Decimal `json:"balances"`
}

// Summary returns balance totals and the accounts that need attention.
func (h *Handler) Summary(c *fiber.Ctx) error {
	sum, err := h.service.Summary(c.UserContext(), middleware.Owner(c))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	byType := make(map[AccountType]typeSummaryResponse, len(sum.ByType))
	for t, ts := range sum.ByType {
		byType[t] = typeSummaryResponse{Count: ts.Count, Balances: ts.Balances}
	}
	views := func(list []Account) []accountResponse {
		out := make([]accountResponse, 0, len(list))
		for _, a := range list {
			out = append(out, toResponse(a))
		}
		return out
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"balances":             sum.Balances,
		"overdraft_used":       sum.OverdraftUsed,
		"accounts_by_type":     byType,
		"low_balance_accounts": views(sum.LowBalance),
		"overdrawn_accounts":   views(sum.Overdrawn),
	})
}

// Delete removes or deactivates an account.
func (h *Handler) Delete(c *fiber.Ctx) error {
	res, err := h.service.DeleteAccount(c.UserContext(), middleware.Owner(c), c.Params("accountId"))
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"deleted": res.Deleted, "deactivated": res.Deactivated})
}

type movementRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	AllowNegative bool            `json:"allow_negative"`
}

// Credit records income on an account.
func (h *Handler) Credit(c *fiber.Ctx) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Credit(c.UserContext(), CreditInput{
		OwnerID:     middleware.Owner(c),
		AccountID:   c.Params("accountId"),
		Amount:      req.Amount,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"account": toResponse(res.Account), "transaction": toEntry(res.Transaction)})
}

// Debit records an expense on an account.
func (h *Handler) Debit(c *fiber.Ctx) error {
	var req movementRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Debit(c.UserContext(), DebitInput{
		OwnerID:       middleware.Owner(c),
		AccountID:     c.Params("accountId"),
		Amount:        req.Amount,
		Description:   req.Description,
		Category:      req.Category,
		AllowNegative: req.AllowNegative,
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"account": toResponse(res.Account), "transaction": toEntry(res.Transaction)})
}

type transferRequest struct {
	SourceID      string          `json:"source_account_id"`
	DestinationID string          `json:"destination_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
}

// Transfer moves money between two accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		OwnerID:       middleware.Owner(c),
		SourceID:      req.SourceID,
		DestinationID: req.DestinationID,
		Amount:        req.Amount,
		Description:   req.Description,
	})
	if err != nil {
		return fiber.NewError(errs.Status(err), errs.Message(err))
	}
	body := fiber.Map{
		"source":      toResponse(res.Source),
		"destination": fiber.Map{"id": res.Destination.ID},
		"outgoing":    toEntry(res.Outgoing),
	}
	// Another owner's balance and journal leg stay private.
	if res.Destination.OwnerID == res.Source.OwnerID {
		body["destination"] = toResponse(res.Destination)
		body["incoming"] = toEntry(res.Incoming)
	}
	return c.Status(http.StatusCreated).JSON(body)
}
