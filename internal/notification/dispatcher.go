package notification

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/multierr"

	"github.com/ledgerly/ledgerly/internal/scheduler"
)

// ReminderSource builds an owner's current reminders.
type ReminderSource interface {
	Reminders(ctx context.Context, ownerID string) ([]scheduler.Reminder, error)
}

// Claimer de-duplicates reminders per owner, instrument and day.
type Claimer interface {
	Claim(ctx context.Context, ownerID, instrumentID string, day time.Time) (bool, error)
	Release(ctx context.Context, ownerID, instrumentID string, day time.Time) error
}

// Dispatcher sends each owner's reminders at most once per calendar day.
type Dispatcher struct {
	source   ReminderSource
	claims   Claimer
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewDispatcher wires a dispatcher. A nil claimer disables de-duplication.
func NewDispatcher(source ReminderSource, claims Claimer, notifier Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{source: source, claims: claims, notifier: notifier, logger: logger, now: time.Now}
}

// Dispatch sends the owner's unsent reminders and returns how many went out.
// A failed send releases its claim and does not stop the remaining ones.
func (d *Dispatcher) Dispatch(ctx context.Context, ownerID string) (int, error) {
	reminders, err := d.source.Reminders(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	today := d.now().UTC()

	var sent int
	var errs error
	for _, r := range reminders {
		if d.claims != nil {
			fresh, err := d.claims.Claim(ctx, ownerID, r.InstrumentID, today)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if !fresh {
				continue
			}
		}

		msg := Message{
			Kind:         KindPaymentReminder,
			Destination:  ownerID,
			InstrumentID: r.InstrumentID,
			Severity:     string(r.Severity),
			Title:        r.Title,
			Body:         r.Message,
			Amount:       r.Amount,
			Currency:     r.Currency,
			DueDate:      r.DueDate.Format(time.DateOnly),
			CreatedAt:    today,
		}
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.logger.Warn("reminder delivery failed",
				slog.String("owner_id", ownerID),
				slog.String("instrument_id", r.InstrumentID),
				slog.Any("error", err),
			)
			errs = multierr.Append(errs, err)
			if d.claims != nil {
				errs = multierr.Append(errs, d.claims.Release(ctx, ownerID, r.InstrumentID, today))
			}
			continue
		}
		sent++
	}
	return sent, errs
}
