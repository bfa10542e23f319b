// Package notification delivers payment reminders. Reminders are claimed in
// Redis per owner, instrument and calendar day before they are sent, so a
// worker running every few minutes notifies at most once a day.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// KindPaymentReminder tags reminder messages.
const KindPaymentReminder = "payment_reminder"

// Message describes a notification payload.
type Message struct {
	Kind         string          `json:"kind"`
	Destination  string          `json:"owner_id"`
	InstrumentID string          `json:"instrument_id,omitempty"`
	Severity     string          `json:"severity,omitempty"`
	Title        string          `json:"title"`
	Body         string          `json:"body"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	DueDate      string          `json:"due_date,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. It is used in
// development and whenever no broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(ctx context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.InfoContext(ctx, "notification",
		slog.String("kind", message.Kind),
		slog.String("owner_id", message.Destination),
		slog.String("instrument_id", message.InstrumentID),
		slog.String("severity", message.Severity),
		slog.String("title", message.Title),
		slog.String("body", message.Body),
	)
	return nil
}
