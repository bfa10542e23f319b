package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName             = "Ledgerly"
	defaultAppEnv              = "development"
	defaultPort                = "8080"
	defaultLogLevel            = "info"
	defaultShutdownDelay       = 10 * time.Second
	defaultIdempotencyTTL      = 24 * time.Hour
	defaultAMQPExchange        = "ledgerly"
	defaultAMQPQueue           = "payment-reminders"
	defaultReminderInterval    = 15 * time.Minute
	defaultReminderLocale      = "tr"
	defaultReminderConcurrency = 4
	defaultCurrency            = "TRY"
	defaultMutationRateLimit   = 60
	idemTTLSecondsEnvVar       = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar           = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar      = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar     = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	// AMQPURL enables the broker notifier; reminders are logged when empty.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	ReminderInterval    time.Duration
	ReminderLocale      string
	ReminderConcurrency int

	DefaultCurrency   string
	MutationRateLimit int
}

// Load reads configuration values from the environment and populates a Config instance.
// DATABASE_URL and REDIS_URL are required unless APP_ENV is a development environment.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,

		AMQPURL:      os.Getenv("AMQP_URL"),
		AMQPExchange: getEnv("AMQP_EXCHANGE", defaultAMQPExchange),
		AMQPQueue:    getEnv("AMQP_QUEUE", defaultAMQPQueue),

		ReminderLocale:  getEnv("REMINDER_LOCALE", defaultReminderLocale),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", defaultCurrency)),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ReminderInterval, err = durationEnv("", "REMINDER_INTERVAL", defaultReminderInterval); err != nil {
		return Config{}, err
	}
	if cfg.ReminderConcurrency, err = intEnv("REMINDER_CONCURRENCY", defaultReminderConcurrency); err != nil {
		return Config{}, err
	}
	if cfg.MutationRateLimit, err = intEnv("MUTATION_RATE_LIMIT", defaultMutationRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.ReminderInterval <= 0 {
		return Config{}, fmt.Errorf("REMINDER_INTERVAL must be positive")
	}
	if cfg.ReminderConcurrency <= 0 {
		return Config{}, fmt.Errorf("REMINDER_CONCURRENCY must be positive")
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs in a local environment where
// missing backing services fall back to in-memory replacements.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv prefers a whole-seconds variable over a Go duration string.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
