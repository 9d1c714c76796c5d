package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Cache defines a generic cache interface. Implementations treat backend
// failures as misses so callers can always fall back to the source of truth.
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(ctx context.Context, key string) (T, bool)

	// Set stores a value in the cache
	Set(ctx context.Context, key string, data T)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)
}

// Manager handles cache lifecycle and cleanup
type Manager struct {
	caches      []Cleaner
	logger      *slog.Logger
	running     atomic.Bool
	stopOnce    sync.Once
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// NewManager creates a new cache manager
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		caches:      make([]Cleaner, 0),
		logger:      logger,
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache to the manager for cleanup
func (m *Manager) Register(cache Cleaner) {
	m.caches = append(m.caches, cache)
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	if m.running.CompareAndSwap(false, true) {
		go m.cleanup(interval)
	}
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			totalCleaned := 0
			for _, cache := range m.caches {
				totalCleaned += cache.CleanExpired()
			}
			if totalCleaned > 0 {
				m.logger.Debug("Expired cache entries removed", "count", totalCleaned)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop stops the cleanup routine. It is safe to call more than once and
// before StartCleanup.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		if m.running.Load() {
			<-m.cleanupDone
		}
	})
}
