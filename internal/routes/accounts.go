package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerly/ledgerly/internal/ledger"
)

// RegisterAccountRoutes wires account and balance endpoints.
func RegisterAccountRoutes(r fiber.Router, h *ledger.Handler) {
	r.Post("/accounts", h.Create)
	r.Get("/accounts", h.List)
	r.Get("/accounts/summary", h.Summary)
	r.Get("/accounts/:accountId", h.Get)
	r.Put("/accounts/:accountId", h.Update)
	r.Delete("/accounts/:accountId", h.Delete)
	r.Post("/accounts/:accountId/credits", h.Credit)
	r.Post("/accounts/:accountId/debits", h.Debit)
	r.Post("/transfers", h.Transfer)
}
