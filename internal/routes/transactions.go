package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerly/ledgerly/internal/journal"
)

// RegisterTransactionRoutes wires journal queries and reports.
func RegisterTransactionRoutes(r fiber.Router, h *journal.Handler) {
	r.Get("/transactions", h.Query)
	r.Get("/transactions/aggregate", h.Aggregate)
	r.Get("/transactions/summary/:year/:month", h.MonthlySummary)
	r.Get("/transactions/trends", h.Trends)
	r.Get("/transactions/payment-statistics", h.PaymentStatistics)
}
