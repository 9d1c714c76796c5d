package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

const (
	reconcilePageSize    = 200
	reconcileConcurrency = 4
)

// TransactionLister pages through the ledger in id order.
type TransactionLister interface {
	ListTransactions(ctx context.Context, skip, limit int) ([]core.Transaction, error)
}

// MirrorWorker applies transaction events to a ledger mirror.
type MirrorWorker struct {
	mirror sheets.LedgerMirror
	source TransactionLister
	logger *slog.Logger
}

// NewMirrorWorker returns a worker writing to mirror. source is optional and
// only needed for Reconcile.
func NewMirrorWorker(mirror sheets.LedgerMirror, source TransactionLister, logger *slog.Logger) *MirrorWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &MirrorWorker{
		mirror: mirror,
		source: source,
		logger: logger.With(applog.FieldComponent, applog.ComponentWorker),
	}
}

// HandleEvent mirrors a single transaction event. A returned error makes the
// consumer requeue the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	switch event.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		if event.Transaction == nil {
			return fmt.Errorf("%s event for %d has no transaction", event.Type, event.ID)
		}
		if err := w.mirror.Upsert(ctx, *event.Transaction); err != nil {
			return fmt.Errorf("mirror transaction %d: %w", event.ID, err)
		}
	case amqp.EventDeleted:
		if err := w.mirror.Remove(ctx, event.ID); err != nil {
			return fmt.Errorf("remove mirrored transaction %d: %w", event.ID, err)
		}
	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}

	w.logger.InfoContext(ctx, "Transaction mirrored",
		applog.FieldEventType, event.Type,
		applog.FieldTxID, event.ID,
		applog.FieldOperation, applog.OpMirror)
	return nil
}

// Reconcile upserts every stored transaction into the mirror. It recovers
// rows whose events were lost while the worker was down; rows deleted in
// that window stay in the mirror until their delete event is replayed.
func (w *MirrorWorker) Reconcile(ctx context.Context) (int, error) {
	if w.source == nil {
		return 0, fmt.Errorf("reconcile: no transaction source configured")
	}

	total := 0
	for skip := 0; ; skip += reconcilePageSize {
		page, err := w.source.ListTransactions(ctx, skip, reconcilePageSize)
		if err != nil {
			return total, fmt.Errorf("reconcile: list transactions: %w", err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reconcileConcurrency)
		for _, t := range page {
			g.Go(func() error {
				if err := w.mirror.Upsert(gctx, t); err != nil {
					return fmt.Errorf("reconcile transaction %d: %w", t.ID, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return total, err
		}
		total += len(page)

		if len(page) < reconcilePageSize {
			break
		}
	}

	w.logger.InfoContext(ctx, "Mirror reconciled", "count", total)
	return total, nil
}
