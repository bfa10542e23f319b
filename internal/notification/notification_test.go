package notification

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ledgerly/ledgerly/internal/logging"
	"github.com/ledgerly/ledgerly/internal/scheduler"
)

func newReminderStore(t *testing.T) (*ReminderStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})
	return NewReminderStore(cache), mr
}

func TestReminderClaimIsOncePerDay(t *testing.T) {
	store, mr := newReminderStore(t)
	ctx := context.Background()
	day := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)

	for i, want := range []bool{true, false} {
		ok, err := store.Claim(ctx, "owner-1", "card-1", day)
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		if ok != want {
			t.Fatalf("claim %d = %v, want %v", i, ok, want)
		}
	}
	if ok, _ := store.Claim(ctx, "owner-1", "card-1", day.AddDate(0, 0, 1)); !ok {
		t.Fatal("next day must be claimable")
	}
	if ok, _ := store.Claim(ctx, "owner-1", "card-2", day); !ok {
		t.Fatal("other instrument must be claimable")
	}
	if ttl := mr.TTL(reminderKey("owner-1", "card-1", day)); ttl != reminderClaimTTL {
		t.Fatalf("ttl %s, want %s", ttl, reminderClaimTTL)
	}

	if err := store.Release(ctx, "owner-1", "card-1", day); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := store.Claim(ctx, "owner-1", "card-1", day); !ok {
		t.Fatal("released reminder must be claimable again")
	}
}

type fakeSource []scheduler.Reminder

func (f fakeSource) Reminders(context.Context, string) ([]scheduler.Reminder, error) { return f, nil }

type recordingNotifier struct {
	sent []Message
	fail map[string]bool
}

func (n *recordingNotifier) Send(_ context.Context, m Message) error {
	if n.fail[m.InstrumentID] {
		return errors.New("broker unavailable")
	}
	n.sent = append(n.sent, m)
	return nil
}

func TestDispatcherSkipsAlreadySentReminders(t *testing.T) {
	store, _ := newReminderStore(t)
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	source := fakeSource{
		{InstrumentID: "card-1", Severity: scheduler.SeverityError, Title: "Overdue payment!", Amount: decimal.NewFromInt(100), DueDate: now.AddDate(0, 0, -2)},
		{InstrumentID: "loan-1", Severity: scheduler.SeverityInfo, Title: "Upcoming payment", Amount: decimal.NewFromInt(50), DueDate: now.AddDate(0, 0, 5)},
	}
	notifier := &recordingNotifier{}
	d := NewDispatcher(source, store, notifier, logging.Discard())
	d.now = func() time.Time { return now }

	sent, err := d.Dispatch(context.Background(), "owner-1")
	if err != nil || sent != 2 {
		t.Fatalf("first dispatch sent %d err %v", sent, err)
	}
	sent, err = d.Dispatch(context.Background(), "owner-1")
	if err != nil || sent != 0 {
		t.Fatalf("second dispatch sent %d err %v", sent, err)
	}

	got := make([]string, 0, len(notifier.sent))
	for _, m := range notifier.sent {
		got = append(got, m.InstrumentID+"/"+m.Severity+"/"+m.DueDate)
	}
	want := []string{"card-1/error/2024-05-08", "loan-1/info/2024-05-15"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("sent messages (-want +got):\n%s", diff)
	}
}

func TestDispatcherReleasesClaimOnFailure(t *testing.T) {
	store, _ := newReminderStore(t)
	now := time.Date(2024, 5, 10, 8, 0, 0, 0, time.UTC)
	source := fakeSource{{InstrumentID: "card-1"}, {InstrumentID: "card-2"}}
	notifier := &recordingNotifier{fail: map[string]bool{"card-1": true}}
	d := NewDispatcher(source, store, notifier, logging.Discard())
	d.now = func() time.Time { return now }

	sent, err := d.Dispatch(context.Background(), "owner-1")
	if err == nil || sent != 1 {
		t.Fatalf("expected one send and an error, got %d, %v", sent, err)
	}

	notifier.fail = nil
	sent, err = d.Dispatch(context.Background(), "owner-1")
	if err != nil || sent != 1 {
		t.Fatalf("retry sent %d err %v", sent, err)
	}
	if last := notifier.sent[len(notifier.sent)-1]; last.InstrumentID != "card-1" {
		t.Fatalf("retry delivered %s", last.InstrumentID)
	}
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return nil
}

func TestAMQPNotifierPublishesPersistentJSON(t *testing.T) {
	pub := &fakePublisher{}
	n := &AMQPNotifier{pub: pub, exchange: "ledgerly", queue: "reminders", logger: logging.Discard()}

	msg := Message{Kind: KindPaymentReminder, Destination: "owner-1", InstrumentID: "card-1", Amount: decimal.RequireFromString("125.50"), Title: "t", Body: "b"}
	if err := n.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if pub.exchange != "ledgerly" || pub.key != "reminders" {
		t.Fatalf("routed to %s/%s", pub.exchange, pub.key)
	}
	if pub.msg.DeliveryMode != amqp.Persistent || pub.msg.ContentType != "application/json" {
		t.Fatalf("unexpected publishing %+v", pub.msg)
	}

	var decoded map[string]any
	if err := json.Unmarshal(pub.msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded["owner_id"] != "owner-1" || decoded["amount"] != "125.5" {
		t.Fatalf("unexpected body %s", pub.msg.Body)
	}
}
