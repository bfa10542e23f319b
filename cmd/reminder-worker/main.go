package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ledgerly/ledgerly/internal/config"
	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/infra"
	"github.com/ledgerly/ledgerly/internal/logging"
	"github.com/ledgerly/ledgerly/internal/notification"
	"github.com/ledgerly/ledgerly/internal/scheduler"
	"github.com/ledgerly/ledgerly/internal/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker reads instruments written by the API, so it needs the shared
	// database even in development.
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required for the reminder worker")
		os.Exit(1)
	}
	db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName+"-reminders")
	if err != nil {
		logger.Error("connect postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	debts := debt.NewService(postgres.NewInstrumentStore(postgres.New(db)), logger)
	prioritizer := scheduler.NewPrioritizer(debts, logger, cfg.ReminderLocale)

	var claims notification.Claimer
	if cfg.RedisURL != "" {
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer cache.Close()
		claims = notification.NewReminderStore(cache)
	} else {
		logger.Warn("REDIS_URL not set, reminders are not de-duplicated across passes")
	}

	var notifier notification.Notifier = notification.NewLoggerNotifier(logger)
	if cfg.AMQPURL != "" {
		conn, err := infra.NewAMQPConnection(cfg.AMQPURL)
		if err != nil {
			logger.Error("connect amqp", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		amqpNotifier, err := notification.NewAMQPNotifier(conn, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("setup amqp notifier", "error", err)
			os.Exit(1)
		}
		defer amqpNotifier.Close()
		notifier = amqpNotifier
	}

	dispatcher := notification.NewDispatcher(prioritizer, claims, notifier, logger)
	worker := notification.NewWorker(debts, dispatcher, logger, cfg.ReminderConcurrency)

	logger.Info("reminder worker started", "interval", cfg.ReminderInterval.String(), "locale", cfg.ReminderLocale)
	if err := worker.Run(ctx, cfg.ReminderInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("reminder worker stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("reminder worker exited cleanly")
}
