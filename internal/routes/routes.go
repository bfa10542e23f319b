package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/ledgerly/ledgerly/internal/config"
	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/journal"
	"github.com/ledgerly/ledgerly/internal/ledger"
	"github.com/ledgerly/ledgerly/internal/middleware"
	"github.com/ledgerly/ledgerly/internal/scheduler"
	"github.com/ledgerly/ledgerly/internal/storage/memory"
	"github.com/ledgerly/ledgerly/internal/storage/postgres"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Services are the domain services behind the HTTP API.
type Services struct {
	Ledger      *ledger.Service
	Journal     *journal.Journal
	Debts       *debt.Service
	Prioritizer *scheduler.Prioritizer
}

// NewServices builds the domain services on Postgres, or on the in-memory
// store when no pool is given.
func NewServices(d Deps) Services {
	var (
		accounts    ledger.Store
		instruments debt.Store
		entries     journal.Store
	)
	if d.DB != nil {
		db := postgres.New(d.DB)
		accounts, instruments, entries = postgres.NewAccountStore(db), postgres.NewInstrumentStore(db), postgres.NewJournalStore(db)
	} else {
		db := memory.New()
		accounts, instruments, entries = memory.NewAccountStore(db), memory.NewInstrumentStore(db), memory.NewJournalStore(db)
	}
	debts := debt.NewService(instruments, d.Logger).WithCurrency(d.Cfg.DefaultCurrency)
	return Services{
		Ledger:      ledger.NewService(accounts, d.Logger, d.Cfg.DefaultCurrency),
		Journal:     journal.New(entries, d.Logger),
		Debts:       debts,
		Prioritizer: scheduler.NewPrioritizer(debts, d.Logger, d.Cfg.ReminderLocale),
	}
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	svc := NewServices(d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	owned := api.Group("", middleware.OwnerID())
	if d.Cache != nil {
		owned.Use(middleware.OwnerRateLimit(d.Cache, d.Cfg.MutationRateLimit))
		owned.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterAccountRoutes(owned, ledger.NewHandler(svc.Ledger))
	RegisterTransactionRoutes(owned, journal.NewHandler(svc.Journal))
	RegisterDebtRoutes(owned, debt.NewHandler(svc.Debts))
	RegisterPaymentRoutes(owned, scheduler.NewHandler(svc.Prioritizer))

	return nil
}
