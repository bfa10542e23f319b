package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ledgerly/ledgerly/internal/errs"
)

// Audit logs one structured line per request. Business rejections are logged
// at warn level; only server faults are errors.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		}
		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
		}
		if id := RequestIDFrom(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if owner := Owner(c); owner != "" {
			attrs = append(attrs, slog.String("owner_id", owner))
		}

		switch {
		case err == nil:
			logger.Info("request completed", attrs...)
		case status < fiber.StatusInternalServerError:
			attrs = append(attrs, slog.String("reason", err.Error()))
			logger.Warn("request rejected", attrs...)
		default:
			attrs = append(attrs, slog.Any("error", err), slog.String("kind", string(errs.KindOf(err))))
			logger.Error("request failed", attrs...)
		}
		return err
	}
}
