package scheduler

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReminderHorizonDays is how far ahead reminders look.
const ReminderHorizonDays = 7

// Severity grades a reminder.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Reminder is a localized notice about one upcoming or missed payment.
type Reminder struct {
	OwnerID      string
	InstrumentID string
	Name         string
	Severity     Severity
	Priority     Priority
	Title        string
	Message      string
	Amount       decimal.Decimal
	Currency     string
	DueDate      time.Time
	DaysUntil    int
}

const (
	titleOverdue  = "Overdue payment!"
	titleReminder = "Payment reminder"
	titleUpcoming = "Upcoming payment"

	msgOverdue  = "%[1]s payment is overdue! Minimum payment: %[2]s"
	msgToday    = "%[1]s payment is due today! Minimum payment: %[2]s"
	msgInDays   = "%[1]s payment is due in %[3]d days. Minimum payment: %[2]s"
	msgTomorrow = "%[1]s payment is due tomorrow. Minimum payment: %[2]s"
)

// Supported lists the locales with a reminder catalog.
var Supported = []language.Tag{language.English, language.Turkish}

func init() {
	tr := language.Turkish
	_ = message.SetString(tr, titleOverdue, "Geciken Ödeme!")
	_ = message.SetString(tr, titleReminder, "Ödeme Hatırlatması")
	_ = message.SetString(tr, titleUpcoming, "Yaklaşan Ödeme")
	_ = message.SetString(tr, msgOverdue, "%[1]s ödemesi gecikmiş! Minimum ödeme: %[2]s")
	_ = message.SetString(tr, msgToday, "%[1]s ödemesi bugün! Minimum ödeme: %[2]s")
	_ = message.SetString(tr, msgInDays, "%[1]s ödemesi %[3]d gün sonra. Minimum ödeme: %[2]s")
	_ = message.SetString(tr, msgTomorrow, "%[1]s ödemesi yarın. Minimum ödeme: %[2]s")
}

// NewPrinter returns a printer for locale, falling back to English for
// unknown or unsupported locales.
func NewPrinter(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	matched, _, _ := language.NewMatcher(Supported).Match(tag)
	base, _ := matched.Base()
	return message.NewPrinter(language.Make(base.String()))
}

// SeverityOf grades a payment. The second result is false for payments
// beyond the reminder horizon.
func SeverityOf(p Payment) (Severity, bool) {
	switch {
	case p.Overdue():
		return SeverityError, true
	case p.DaysUntil <= 3:
		return SeverityWarning, true
	case p.DaysUntil <= ReminderHorizonDays:
		return SeverityInfo, true
	}
	return "", false
}

// BuildReminders renders one reminder per payment within the reminder
// horizon, keeping the order of payments.
func BuildReminders(payments []Payment, p *message.Printer) []Reminder {
	out := make([]Reminder, 0, len(payments))
	for _, pay := range payments {
		severity, ok := SeverityOf(pay)
		if !ok {
			continue
		}
		amount := formatMoney(pay.MinimumPayment, pay.Currency)

		var title, text string
		switch {
		case pay.Overdue():
			title = p.Sprintf(titleOverdue)
			text = p.Sprintf(msgOverdue, pay.Name, amount)
		case pay.DaysUntil == 0:
			title = p.Sprintf(titleReminder)
			text = p.Sprintf(msgToday, pay.Name, amount)
		case pay.DaysUntil == 1:
			title = p.Sprintf(titleReminder)
			text = p.Sprintf(msgTomorrow, pay.Name, amount)
		default:
			title = p.Sprintf(titleUpcoming)
			if severity == SeverityWarning {
				title = p.Sprintf(titleReminder)
			}
			text = p.Sprintf(msgInDays, pay.Name, amount, pay.DaysUntil)
		}

		out = append(out, Reminder{
			OwnerID:      pay.OwnerID,
			InstrumentID: pay.InstrumentID,
			Name:         pay.Name,
			Severity:     severity,
			Priority:     pay.Priority,
			Title:        title,
			Message:      text,
			Amount:       pay.MinimumPayment,
			Currency:     pay.Currency,
			DueDate:      pay.DueDate,
			DaysUntil:    pay.DaysUntil,
		})
	}
	return out
}

func formatMoney(amount decimal.Decimal, currency string) string {
	if currency == "" {
		return amount.StringFixed(2)
	}
	return amount.StringFixed(2) + " " + currency
}
