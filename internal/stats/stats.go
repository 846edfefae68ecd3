// Package stats collects thread-safe pipeline counters and gauges and
// periodically reports them to the console and a webhook.
package stats

import (
	"sync/atomic"
	"time"
)

// Stats holds the monotonic counters and point-in-time gauges named in
// spec.md §4.I, implements pipeline.Recorder, and backs both the
// console/webhook reporters and the read-only HTTP surface.
type Stats struct {
	startedAt time.Time

	totalProcessed     atomic.Uint64
	matched            atomic.Uint64
	dedupHit           atomic.Uint64
	dnsResolved        atomic.Uint64
	dnsFailed          atomic.Uint64
	privateIP          atomic.Uint64
	httpActive         atomic.Uint64
	httpTimeout        atomic.Uint64
	fingerprinterSent  atomic.Uint64
	fingerprinterError atomic.Uint64

	queueSize    atomic.Int64
	workerCount  atomic.Int64
	dedupSize    atomic.Int64
	wildcardSize atomic.Int64
}

// New builds a Stats collector with its uptime clock started now.
func New() *Stats {
	return &Stats{startedAt: time.Now()}
}

// counterNames used by Inc; unknown names are ignored rather than
// panicking, since a typo at a call site shouldn't crash a worker.
const (
	CounterTotalProcessed     = "total_processed"
	CounterMatched            = "matched"
	CounterDedupHit           = "dedup_hit"
	CounterDNSResolved        = "dns_resolved"
	CounterDNSFailed          = "dns_failed"
	CounterPrivateIP          = "private_ip"
	CounterHTTPActive         = "http_active"
	CounterHTTPTimeout        = "http_timeout"
	CounterFingerprinterSent  = "fingerprinter_sent"
	CounterFingerprinterError = "fingerprinter_failed"

	GaugeQueueSize    = "queue_size"
	GaugeWorkerCount  = "worker_count"
	GaugeDedupSize    = "dedup_size"
	GaugeWildcardSize = "wildcard_count"
)

// Inc implements pipeline.Recorder.
func (s *Stats) Inc(counter string) {
	switch counter {
	case CounterTotalProcessed:
		s.totalProcessed.Add(1)
	case CounterMatched:
		s.matched.Add(1)
	case CounterDedupHit:
		s.dedupHit.Add(1)
	case CounterDNSResolved:
		s.dnsResolved.Add(1)
	case CounterDNSFailed:
		s.dnsFailed.Add(1)
	case CounterPrivateIP:
		s.privateIP.Add(1)
	case CounterHTTPActive:
		s.httpActive.Add(1)
	case CounterHTTPTimeout:
		s.httpTimeout.Add(1)
	case CounterFingerprinterSent:
		s.fingerprinterSent.Add(1)
	case CounterFingerprinterError:
		s.fingerprinterError.Add(1)
	}
}

// Gauge implements pipeline.Recorder.
func (s *Stats) Gauge(gauge string, v float64) {
	switch gauge {
	case GaugeQueueSize:
		s.queueSize.Store(int64(v))
	case GaugeWorkerCount:
		s.workerCount.Store(int64(v))
	case GaugeDedupSize:
		s.dedupSize.Store(int64(v))
	case GaugeWildcardSize:
		s.wildcardSize.Store(int64(v))
	}
}

// Snapshot is a point-in-time read of every counter, gauge, and derived
// rate, used by the console/webhook reporters and the HTTP surface.
type Snapshot struct {
	TotalProcessed     uint64
	Matched            uint64
	DedupHit           uint64
	DNSResolved        uint64
	DNSFailed          uint64
	PrivateIP          uint64
	HTTPActive         uint64
	HTTPTimeout        uint64
	FingerprinterSent  uint64
	FingerprinterError uint64

	QueueSize    int64
	WorkerCount  int64
	DedupSize    int64
	WildcardSize int64

	UptimeSeconds float64
	MatchRate     float64
	ResolveRate   float64
	DomainsPerSec float64
}

// Snapshot computes the current counters plus the derived rates.
func (s *Stats) Snapshot() Snapshot {
	uptime := time.Since(s.startedAt).Seconds()
	total := s.totalProcessed.Load()
	matched := s.matched.Load()
	resolved := s.dnsResolved.Load()
	failed := s.dnsFailed.Load()

	snap := Snapshot{
		TotalProcessed:     total,
		Matched:            matched,
		DedupHit:           s.dedupHit.Load(),
		DNSResolved:        resolved,
		DNSFailed:          failed,
		PrivateIP:          s.privateIP.Load(),
		HTTPActive:         s.httpActive.Load(),
		HTTPTimeout:        s.httpTimeout.Load(),
		FingerprinterSent:  s.fingerprinterSent.Load(),
		FingerprinterError: s.fingerprinterError.Load(),
		QueueSize:          s.queueSize.Load(),
		WorkerCount:        s.workerCount.Load(),
		DedupSize:          s.dedupSize.Load(),
		WildcardSize:       s.wildcardSize.Load(),
		UptimeSeconds:      uptime,
	}

	if total > 0 {
		snap.MatchRate = float64(matched) / float64(total)
	}
	if resolved+failed > 0 {
		snap.ResolveRate = float64(resolved) / float64(resolved+failed)
	}
	if uptime > 0 {
		snap.DomainsPerSec = float64(total) / uptime
	}
	return snap
}
