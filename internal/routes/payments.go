package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ledgerly/ledgerly/internal/scheduler"
)

// RegisterPaymentRoutes wires payment scheduling endpoints.
func RegisterPaymentRoutes(r fiber.Router, h *scheduler.Handler) {
	r.Get("/payments/upcoming", h.Upcoming)
	r.Get("/payments/reminders", h.Reminders)
	r.Get("/payments/calendar/:year/:month", h.Calendar)
	r.Post("/payments/distribute", h.Distribute)
}
