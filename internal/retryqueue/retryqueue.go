// Package retryqueue buffers transiently unresolvable names in memory,
// flushes them to persistence on a threshold or timer, and runs the
// periodic sweep that retries, purges, or gives up on them.
package retryqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ctwarden/ctwarden/internal/resolver"
	"github.com/ctwarden/ctwarden/internal/storage"
)

// Config tunes batching and sweep behavior (spec.md §4.H defaults). The
// give-up condition is retry_count alone (BatchPurgeAge is the only
// age-based cutoff, applied to every row regardless of retry outcome);
// there is no separate per-row TTL.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	SweepInterval time.Duration
	SweepLimit    int
	MaxRetries    int
	BatchPurgeAge time.Duration // BATCH_PURGE_AGE
}

// DefaultConfig mirrors spec.md §4.H defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     100,
		FlushInterval: 10 * time.Second,
		SweepInterval: 3 * time.Hour,
		SweepLimit:    1000,
		MaxRetries:    10,
		BatchPurgeAge: 3 * 24 * time.Hour,
	}
}

// Resolved is called for every row that resolves to a public IP during a
// sweep, so the caller can run the notify/fingerprint/persist path.
type Resolved func(ctx context.Context, domain, ip, wildcardRef string)

// Queue batches insertions in memory and periodically sweeps the
// persisted backlog through the Resolver.
type Queue struct {
	cfg      Config
	logger   *slog.Logger
	db       *storage.DB
	resolver *resolver.Resolver
	resolved Resolved

	mu     sync.Mutex
	buffer []storage.UnresolvableDomain
}

// New builds a Queue.
func New(cfg Config, logger *slog.Logger, db *storage.DB, res *resolver.Resolver, resolved Resolved) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{cfg: cfg, logger: logger, db: db, resolver: res, resolved: resolved}
}

// Enqueue buffers one unresolvable domain, flushing immediately if the
// batch threshold is reached.
func (q *Queue) Enqueue(domain, wildcardRef string) {
	q.mu.Lock()
	q.buffer = append(q.buffer, storage.UnresolvableDomain{Domain: domain, WildcardRef: wildcardRef})
	full := len(q.buffer) >= q.cfg.BatchSize
	q.mu.Unlock()

	if full {
		q.Flush()
	}
}

// Flush copies the buffer out under the lock and writes outside it
// (spec.md §5: "flush path copies out under the lock, writes outside").
func (q *Queue) Flush() {
	q.mu.Lock()
	if len(q.buffer) == 0 {
		q.mu.Unlock()
		return
	}
	batch := q.buffer
	q.buffer = nil
	q.mu.Unlock()

	if err := q.db.BatchInsertUnresolvable(batch); err != nil {
		q.logger.Error("retry queue batch flush failed", "rows", len(batch), "error", err)
	}
}

// Run drives the 10s flush timer and the sweep ticker until ctx is
// cancelled.
func (q *Queue) Run(ctx context.Context) {
	flushTicker := time.NewTicker(q.cfg.FlushInterval)
	defer flushTicker.Stop()
	sweepTicker := time.NewTicker(q.cfg.SweepInterval)
	defer sweepTicker.Stop()

	q.sweep(ctx) // run once at start, mirroring the orchestrator's startup ordering

	for {
		select {
		case <-ctx.Done():
			q.Flush()
			return
		case <-flushTicker.C:
			q.Flush()
		case <-sweepTicker.C:
			q.sweep(ctx)
		}
	}
}

// sweep implements spec.md §4.H's per-sweep algorithm: purge stale rows,
// select the next batch by retry_count ascending, and for each either
// give up, resolve-and-clear, or bump retry_count.
func (q *Queue) sweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("retry queue sweep panicked", "recover", r)
		}
	}()

	if purged, err := q.db.PurgeOlderThan(q.cfg.BatchPurgeAge); err != nil {
		q.logger.Error("retry queue purge failed", "error", err)
	} else if purged > 0 {
		q.logger.Info("retry queue purged stale rows", "count", purged)
	}

	rows, err := q.db.SelectForRetry(q.cfg.SweepLimit)
	if err != nil {
		q.logger.Error("retry queue select failed", "error", err)
		return
	}

	for _, row := range rows {
		q.retryOne(ctx, row)
	}
}

func (q *Queue) retryOne(ctx context.Context, row storage.UnresolvableDomain) {
	if row.RetryCount > q.cfg.MaxRetries {
		if err := q.db.DeleteUnresolvable(row.Domain); err != nil {
			q.logger.Error("retry queue delete failed", "domain", row.Domain, "error", err)
		}
		return
	}

	ip, kind := q.resolver.Resolve(ctx, row.Domain)
	switch {
	case ip != "" && kind == resolver.ErrNone:
		q.resolved(ctx, row.Domain, ip, row.WildcardRef)
		if err := q.db.DeleteUnresolvable(row.Domain); err != nil {
			q.logger.Error("retry queue delete after resolve failed", "domain", row.Domain, "error", err)
		}
	case kind == resolver.ErrPrivateOnly:
		if err := q.db.DeleteUnresolvable(row.Domain); err != nil {
			q.logger.Error("retry queue delete after private-only resolve failed", "domain", row.Domain, "error", err)
		}
	default:
		if err := q.db.IncrementRetry(row.Domain); err != nil {
			q.logger.Error("retry queue increment failed", "domain", row.Domain, "error", err)
		}
	}
}
