// Package services holds the business operations behind the HTTP API.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/amqp"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
)

const (
	publishTimeout   = 10 * time.Second
	publishQueueSize = 256
)

// TransactionStore is the persistence the ledger operations need.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, skip, limit int) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id int64) error
	Summary(ctx context.Context) (core.Summary, error)
}

// EventPublisher receives a notification for every committed ledger write.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

// TransactionService orchestrates ledger writes, the summary cache and
// change events.
type TransactionService struct {
	store     TransactionStore
	summaries cache.Cache[core.Summary]
	versions  cache.Versioner
	publisher EventPublisher
	logger    *slog.Logger

	group singleflight.Group

	// writeMu orders committed writes with their events, so events for one
	// id are queued in commit order.
	writeMu sync.Mutex

	queueMu   sync.RWMutex
	queue     chan queuedEvent
	closed    bool
	drained   chan struct{}
	closeOnce sync.Once
}

type queuedEvent struct {
	ctx   context.Context
	event *amqp.TransactionEvent
}

// TransactionServiceOption customises a TransactionService.
type TransactionServiceOption func(*TransactionService)

// WithSummaryCache caches summaries in c, keyed by the ledger version from v.
func WithSummaryCache(c cache.Cache[core.Summary], v cache.Versioner) TransactionServiceOption {
	return func(s *TransactionService) {
		s.summaries = c
		s.versions = v
	}
}

// WithPublisher sends change events to p after each committed write.
func WithPublisher(p EventPublisher) TransactionServiceOption {
	return func(s *TransactionService) {
		s.publisher = p
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) TransactionServiceOption {
	return func(s *TransactionService) {
		s.logger = l
	}
}

func NewTransactionService(store TransactionStore, opts ...TransactionServiceOption) *TransactionService {
	s := &TransactionService{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(applog.FieldComponent, applog.ComponentTransaction)

	s.drained = make(chan struct{})
	if s.publisher != nil {
		s.queue = make(chan queuedEvent, publishQueueSize)
		go s.publishLoop()
	} else {
		close(s.drained)
	}
	return s
}

func (s *TransactionService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	t, err := s.store.CreateTransaction(ctx, in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction created",
		applog.NewFields().WithTransaction(t.ID, t.Amount.String(), t.Category, t.IsIncome).ToSlice()...)

	s.afterWrite(ctx, amqp.NewTransactionEvent(amqp.EventCreated, t))
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

// List returns up to limit transactions after skipping skip, in id order.
func (s *TransactionService) List(ctx context.Context, skip, limit int) ([]core.Transaction, error) {
	var fields []core.FieldError
	if skip < 0 {
		fields = append(fields, core.FieldError{Field: "skip", Message: "must be greater than or equal to 0", Type: "greater_than_equal"})
	}
	if limit < 0 {
		fields = append(fields, core.FieldError{Field: "limit", Message: "must be greater than or equal to 0", Type: "greater_than_equal"})
	}
	if len(fields) > 0 {
		return nil, core.NewValidationError("invalid pagination", fields...)
	}
	if limit == 0 {
		return []core.Transaction{}, nil
	}
	return s.store.ListTransactions(ctx, skip, limit)
}

// Update replaces every field of transaction id.
func (s *TransactionService) Update(ctx context.Context, id int64, in core.TransactionInput) (core.Transaction, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	t, err := s.store.UpdateTransaction(ctx, id, in)
	if err != nil {
		return core.Transaction{}, err
	}
	s.logger.InfoContext(ctx, "Transaction updated",
		applog.NewFields().WithTransaction(t.ID, t.Amount.String(), t.Category, t.IsIncome).ToSlice()...)

	s.afterWrite(ctx, amqp.NewTransactionEvent(amqp.EventUpdated, t))
	return t, nil
}

func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTxID, id)

	s.afterWrite(ctx, amqp.NewDeletedEvent(id))
	return nil
}

// Summary returns ledger totals. Cached values are keyed by the ledger
// version, which every write bumps, so a summary never predates a write
// that completed before the call.
func (s *TransactionService) Summary(ctx context.Context) (core.Summary, error) {
	if s.summaries == nil || s.versions == nil {
		return s.store.Summary(ctx)
	}

	version, err := s.versions.Version(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger version unavailable, bypassing summary cache", applog.FieldError, err)
		return s.store.Summary(ctx)
	}
	key := summaryKey(version)

	if sum, ok := s.summaries.Get(ctx, key); ok {
		return sum, nil
	}

	v, err, shared := s.group.Do(key, func() (any, error) {
		sum, err := s.store.Summary(ctx)
		if err != nil {
			return core.Summary{}, err
		}
		s.summaries.Set(ctx, key, sum)
		return sum, nil
	})
	if err != nil {
		return core.Summary{}, fmt.Errorf("compute summary: %w", err)
	}
	if shared {
		s.logger.DebugContext(ctx, "Summary computation shared", "key", key)
	}
	return v.(core.Summary), nil
}

func summaryKey(version int64) string {
	return "summary:" + strconv.FormatInt(version, 10)
}

func (s *TransactionService) afterWrite(ctx context.Context, event *amqp.TransactionEvent) {
	if s.versions != nil {
		if err := s.versions.Bump(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Failed to bump ledger version", applog.FieldError, err)
			s.dropCachedSummary(ctx)
		}
	}
	if s.publisher == nil {
		return
	}

	s.queueMu.RLock()
	defer s.queueMu.RUnlock()
	if s.closed {
		s.logger.WarnContext(ctx, "Service stopped, transaction event not published",
			applog.FieldEventType, event.Type,
			applog.FieldTxID, event.ID)
		return
	}
	// the write is committed; delivery must not depend on the request lifetime
	s.queue <- queuedEvent{ctx: context.WithoutCancel(ctx), event: event}
}

// dropCachedSummary removes the summary cached under the current version
// when the version could not be bumped.
func (s *TransactionService) dropCachedSummary(ctx context.Context) {
	if s.summaries == nil {
		return
	}
	version, err := s.versions.Version(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger version unavailable, cached summary not dropped", applog.FieldError, err)
		return
	}
	s.summaries.Delete(ctx, summaryKey(version))
}

// publishLoop sends queued events one at a time, in queue order.
func (s *TransactionService) publishLoop() {
	defer close(s.drained)
	for q := range s.queue {
		pubCtx, cancel := context.WithTimeout(q.ctx, publishTimeout)
		if err := s.publisher.PublishTransactionEvent(pubCtx, q.event); err != nil {
			s.logger.ErrorContext(pubCtx, "Failed to publish transaction event",
				applog.FieldEventType, q.event.Type,
				applog.FieldTxID, q.event.ID,
				applog.FieldError, err)
		}
		cancel()
	}
}

// Wait stops accepting events and blocks until every queued event has been
// published. It is safe to call more than once.
func (s *TransactionService) Wait() {
	s.closeOnce.Do(func() {
		s.queueMu.Lock()
		s.closed = true
		if s.queue != nil {
			close(s.queue)
		}
		s.queueMu.Unlock()
	})
	<-s.drained
}
