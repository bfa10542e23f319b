package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/message"

	"github.com/ledgerly/ledgerly/internal/debt"
	"github.com/ledgerly/ledgerly/internal/errs"
)

// InstrumentSource supplies an owner's active instruments.
type InstrumentSource interface {
	ActiveInstruments(ctx context.Context, ownerID string) ([]debt.Instrument, error)
}

// Prioritizer answers scheduling questions for one owner at a time.
type Prioritizer struct {
	source  InstrumentSource
	logger  *slog.Logger
	printer *message.Printer
	now     func() time.Time
}

// NewPrioritizer builds a Prioritizer rendering reminders in locale.
func NewPrioritizer(source InstrumentSource, logger *slog.Logger, locale string) *Prioritizer {
	return &Prioritizer{
		source:  source,
		logger:  logger,
		printer: NewPrinter(locale),
		now:     time.Now,
	}
}

// WithClock replaces the clock. It is meant for tests and batch tools that
// evaluate schedules at a fixed instant.
func (p *Prioritizer) WithClock(now func() time.Time) *Prioritizer {
	cp := *p
	cp.now = now
	return &cp
}

// ListUpcoming returns the owner's payments that are overdue or due within
// horizonDays.
func (p *Prioritizer) ListUpcoming(ctx context.Context, ownerID string, horizonDays int) ([]Payment, error) {
	if horizonDays < 0 {
		return nil, errs.Invalid("horizon_days", "must not be negative")
	}
	instruments, err := p.instruments(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return Upcoming(instruments, p.now(), horizonDays), nil
}

// Reminders returns localized reminders for the next week.
func (p *Prioritizer) Reminders(ctx context.Context, ownerID string) ([]Reminder, error) {
	payments, err := p.ListUpcoming(ctx, ownerID, ReminderHorizonDays)
	if err != nil {
		return nil, err
	}
	return BuildReminders(payments, p.printer), nil
}

// MonthlyCalendar lays out the owner's obligations for a month.
func (p *Prioritizer) MonthlyCalendar(ctx context.Context, ownerID string, year int, month time.Month) (Calendar, error) {
	if month < time.January || month > time.December {
		return Calendar{}, errs.Invalid("month", "must be between 1 and 12")
	}
	instruments, err := p.instruments(ctx, ownerID)
	if err != nil {
		return Calendar{}, err
	}
	return BuildCalendar(instruments, year, month), nil
}

// Distribute allocates total across the owner's open instruments.
func (p *Prioritizer) Distribute(ctx context.Context, ownerID string, total decimal.Decimal) (Distribution, error) {
	instruments, err := p.instruments(ctx, ownerID)
	if err != nil {
		return Distribution{}, err
	}
	open := instruments[:0:0]
	for _, inst := range instruments {
		if inst.Active && inst.RemainingBalance.IsPositive() {
			open = append(open, inst)
		}
	}
	return Allocate(open, total)
}

func (p *Prioritizer) instruments(ctx context.Context, ownerID string) ([]debt.Instrument, error) {
	if ownerID == "" {
		return nil, errs.Invalid("owner_id", "is required")
	}
	instruments, err := p.source.ActiveInstruments(ctx, ownerID)
	if err != nil {
		if errs.IsBusiness(err) {
			return nil, err
		}
		p.logger.Error("load instruments failed", slog.String("owner_id", ownerID), slog.Any("error", err))
		return nil, errs.Operation("scheduler.instruments", err)
	}
	return instruments, nil
}
