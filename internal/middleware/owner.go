package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	ownerIDHeader = "X-Owner-ID"
	ownerIDLocal  = "owner_id"
)

// OwnerID scopes the request to the owner named in the X-Owner-ID header.
// Identity is asserted by the upstream gateway; this service does not
// authenticate callers.
func OwnerID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		owner := strings.TrimSpace(c.Get(ownerIDHeader))
		if owner == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing "+ownerIDHeader+" header")
		}
		c.Locals(ownerIDLocal, owner)
		return c.Next()
	}
}

// Owner returns the owner set by OwnerID, or "" outside owner-scoped routes.
func Owner(c *fiber.Ctx) string {
	owner, _ := c.Locals(ownerIDLocal).(string)
	return owner
}
