package notification

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// OwnerSource lists the owners that may have reminders due.
type OwnerSource interface {
	OwnersWithOpenBalances(ctx context.Context) ([]string, error)
}

// Worker periodically dispatches reminders for every owner with open debt.
type Worker struct {
	owners      OwnerSource
	dispatcher  *Dispatcher
	logger      *slog.Logger
	concurrency int
}

// NewWorker builds a worker dispatching for up to concurrency owners at once.
func NewWorker(owners OwnerSource, dispatcher *Dispatcher, logger *slog.Logger, concurrency int) *Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{owners: owners, dispatcher: dispatcher, logger: logger, concurrency: concurrency}
}

// RunOnce performs a single pass over all owners. One owner's failure does
// not stop the others; every failure is returned.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	owners, err := w.owners.OwnersWithOpenBalances(ctx)
	if err != nil {
		return 0, err
	}

	var (
		sent   atomic.Int64
		mu     sync.Mutex
		errAll error
	)
	g := new(errgroup.Group)
	g.SetLimit(w.concurrency)
	for _, owner := range owners {
		owner := owner
		g.Go(func() error {
			n, err := w.dispatcher.Dispatch(ctx, owner)
			sent.Add(int64(n))
			if err != nil {
				w.logger.Warn("reminder pass failed for owner", slog.String("owner_id", owner), slog.Any("error", err))
				mu.Lock()
				errAll = multierr.Append(errAll, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(sent.Load()), errAll
}

// Run calls RunOnce immediately and then every interval until ctx ends.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		start := time.Now()
		sent, err := w.RunOnce(ctx)
		attrs := []any{slog.Int("sent", sent), slog.Duration("duration", time.Since(start))}
		if err != nil {
			attrs = append(attrs, slog.Int("failures", len(multierr.Errors(err))))
		}
		w.logger.Info("reminder pass finished", attrs...)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
