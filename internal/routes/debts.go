package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerly/ledgerly/internal/debt"
)

// RegisterDebtRoutes wires debt instrument endpoints.
func RegisterDebtRoutes(r fiber.Router, h *debt.Handler) {
	r.Post("/debts", h.Create)
	r.Get("/debts", h.List)
	r.Get("/debts/:instrumentId", h.Get)
	r.Delete("/debts/:instrumentId", h.Delete)
	r.Post("/debts/:instrumentId/payments", h.Pay)
}
