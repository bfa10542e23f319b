package debt

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/errs"
	"github.com/ledgerly/ledgerly/internal/journal"
)

// Service manages debt instruments and records payments against them.
type Service struct {
	store    Store
	logger   *slog.Logger
	currency string
	now      func() time.Time
}

// NewService builds an instrument service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger, currency: DefaultCurrency, now: time.Now}
}

// WithCurrency sets the currency of instruments created without one.
func (s *Service) WithCurrency(code string) *Service {
	if code = strings.ToUpper(strings.TrimSpace(code)); code != "" {
		s.currency = code
	}
	return s
}

// CreateInput captures a new obligation. A zero RemainingBalance defaults to
// TotalAmount.
type CreateInput struct {
	OwnerID          string
	Kind             Kind
	Name             string
	Issuer           string
	Currency         string
	TotalAmount      decimal.Decimal
	RemainingBalance decimal.Decimal
	PeriodicPayment  decimal.Decimal
	InterestRate     decimal.Decimal
	NextDueDate      time.Time
	TotalPeriods     int
}

// Create registers an instrument.
func (s *Service) Create(ctx context.Context, in CreateInput) (Instrument, error) {
	switch {
	case strings.TrimSpace(in.OwnerID) == "":
		return Instrument{}, errs.Invalid("owner_id", "is required")
	case !in.Kind.Valid():
		return Instrument{}, errs.Invalid("kind", "unknown instrument kind "+string(in.Kind))
	case strings.TrimSpace(in.Name) == "":
		return Instrument{}, errs.Invalid("name", "is required")
	case !in.TotalAmount.IsPositive():
		return Instrument{}, errs.Invalid("total_amount", "must be positive")
	case !in.PeriodicPayment.IsPositive():
		return Instrument{}, errs.Invalid("periodic_payment", "must be positive")
	case in.InterestRate.IsNegative():
		return Instrument{}, errs.Invalid("interest_rate", "must not be negative")
	case in.NextDueDate.IsZero():
		return Instrument{}, errs.Invalid("next_due_date", "is required")
	case in.TotalPeriods < 0:
		return Instrument{}, errs.Invalid("total_periods", "must not be negative")
	}
	for _, m := range []struct {
		field string
		value decimal.Decimal
	}{
		{"total_amount", in.TotalAmount},
		{"remaining_balance", in.RemainingBalance},
		{"periodic_payment", in.PeriodicPayment},
	} {
		if err := errs.CheckScale(m.field, m.value); err != nil {
			return Instrument{}, err
		}
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.currency
	}
	if len(currency) != 3 || strings.Trim(currency, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return Instrument{}, errs.Invalid("currency", "must be a three-letter ISO code")
	}
	remaining := in.RemainingBalance
	if remaining.IsZero() {
		remaining = in.TotalAmount
	}
	if remaining.IsNegative() || remaining.GreaterThan(in.TotalAmount) {
		return Instrument{}, errs.Invalid("remaining_balance", "must be between zero and the total amount")
	}

	now := s.now().UTC()
	inst := Instrument{
		ID:               uuid.NewString(),
		OwnerID:          in.OwnerID,
		Kind:             in.Kind,
		Name:             strings.TrimSpace(in.Name),
		Issuer:           strings.TrimSpace(in.Issuer),
		Currency:         currency,
		TotalAmount:      in.TotalAmount,
		RemainingBalance: remaining,
		PeriodicPayment:  in.PeriodicPayment,
		InterestRate:     in.InterestRate,
		NextDueDate:      journal.Day(in.NextDueDate),
		TotalPeriods:     in.TotalPeriods,
		Active:           true,
		Version:          1,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertInstrument(ctx, inst)
	})
	if err != nil {
		return Instrument{}, s.fail("debt.create", err)
	}
	return inst, nil
}

// PaymentInput records money paid toward an instrument.
type PaymentInput struct {
	OwnerID      string
	InstrumentID string
	Amount       decimal.Decimal
	Description  string
}

// PaymentResult is the updated instrument and the journal entry written.
type PaymentResult struct {
	Instrument  Instrument
	Transaction journal.Transaction
}

// RecordPayment reduces the remaining balance and appends a payment entry in
// the same storage transaction. A payment covering the periodic amount, or
// clearing the debt, closes the period and moves the due date one month on.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (PaymentResult, error) {
	if !in.Amount.IsPositive() {
		return PaymentResult{}, errs.Invalid("amount", "must be positive")
	}
	if err := errs.CheckScale("amount", in.Amount); err != nil {
		return PaymentResult{}, err
	}

	var res PaymentResult
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		inst, err := s.lockOwned(ctx, tx, in.OwnerID, in.InstrumentID)
		if err != nil {
			return err
		}
		if !inst.Active {
			return errs.Invalid("instrument_id", "instrument is inactive")
		}
		if in.Amount.GreaterThan(inst.RemainingBalance) {
			return errs.Overpayment("amount", inst.RemainingBalance)
		}

		inst.RemainingBalance = inst.RemainingBalance.Sub(in.Amount)
		if in.Amount.GreaterThanOrEqual(inst.PeriodicPayment) || inst.RemainingBalance.IsZero() {
			if inst.TotalPeriods == 0 || inst.PaidPeriods < inst.TotalPeriods {
				inst.PaidPeriods++
			}
			inst.NextDueDate = AddMonth(inst.NextDueDate)
		}

		now := s.now().UTC()
		inst.UpdatedAt = now
		updated, err := tx.UpdateInstrument(ctx, inst)
		if err != nil {
			return err
		}

		description := strings.TrimSpace(in.Description)
		if description == "" {
			description = "Payment: " + updated.Name
		}
		entry := journal.Transaction{
			ID:           uuid.NewString(),
			OwnerID:      updated.OwnerID,
			InstrumentID: updated.ID,
			Type:         journal.TypePayment,
			Amount:       in.Amount,
			Description:  description,
			Category:     string(updated.Kind),
			Date:         journal.Day(now),
			CreatedAt:    now,
		}
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}
		res = PaymentResult{Instrument: updated, Transaction: entry}
		return nil
	})
	if err != nil {
		return PaymentResult{}, s.fail("debt.record_payment", err)
	}
	return res, nil
}

// Delete removes an instrument without payment history and deactivates one
// with history.
func (s *Service) Delete(ctx context.Context, ownerID, instrumentID string) (deleted, deactivated bool, err error) {
	err = s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		inst, err := s.lockOwned(ctx, tx, ownerID, instrumentID)
		if err != nil {
			return err
		}
		count, err := tx.CountInstrumentTransactions(ctx, inst.ID)
		if err != nil {
			return err
		}
		if count == 0 {
			deleted = true
			return tx.DeleteInstrument(ctx, inst.ID)
		}
		deactivated = true
		if !inst.Active {
			return nil
		}
		inst.Active = false
		inst.UpdatedAt = s.now().UTC()
		_, err = tx.UpdateInstrument(ctx, inst)
		return err
	})
	if err != nil {
		return false, false, s.fail("debt.delete", err)
	}
	return deleted, deactivated, nil
}

// Instrument returns one of the owner's instruments.
func (s *Service) Instrument(ctx context.Context, ownerID, instrumentID string) (Instrument, error) {
	inst, err := s.store.GetInstrument(ctx, instrumentID)
	if err != nil {
		return Instrument{}, s.fail("debt.get", err)
	}
	if ownerID != "" && inst.OwnerID != ownerID {
		return Instrument{}, errs.NotFound("instrument", instrumentID)
	}
	return inst, nil
}

// List returns the owner's instruments.
func (s *Service) List(ctx context.Context, ownerID string, includeInactive bool) ([]Instrument, error) {
	if ownerID == "" {
		return nil, errs.Invalid("owner_id", "is required")
	}
	list, err := s.store.ListInstruments(ctx, ownerID, includeInactive)
	if err != nil {
		return nil, s.fail("debt.list", err)
	}
	return list, nil
}

// ActiveInstruments returns the owner's active instruments. It lets the
// service act as the scheduler's instrument source.
func (s *Service) ActiveInstruments(ctx context.Context, ownerID string) ([]Instrument, error) {
	return s.List(ctx, ownerID, false)
}

// OwnersWithOpenBalances lists owners that still owe money on an active
// instrument.
func (s *Service) OwnersWithOpenBalances(ctx context.Context) ([]string, error) {
	owners, err := s.store.OwnersWithOpenBalances(ctx)
	if err != nil {
		return nil, s.fail("debt.owners", err)
	}
	return owners, nil
}

func (s *Service) lockOwned(ctx context.Context, tx Tx, ownerID, instrumentID string) (Instrument, error) {
	inst, err := tx.LockInstrument(ctx, instrumentID)
	if err != nil {
		return Instrument{}, err
	}
	if ownerID != "" && inst.OwnerID != ownerID {
		return Instrument{}, errs.NotFound("instrument", instrumentID)
	}
	return inst, nil
}

func (s *Service) fail(op string, err error) error {
	if errs.IsBusiness(err) {
		return err
	}
	s.logger.Error("debt storage failure", slog.String("op", op), slog.Any("error", err))
	return errs.Operation(op, err)
}

// AddMonth moves t one calendar month forward, clamping the day to the last
// day of the target month.
func AddMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+1, 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
