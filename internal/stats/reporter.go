package stats

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/ctwarden/ctwarden/internal/notify"
)

// HostSnapshot is a gopsutil sample of process-host resource usage,
// grounded on the teacher's handlers.Stats CPU/mem sampling.
type HostSnapshot struct {
	CPUPercent     float64
	MemUsedMB      float64
	MemTotalMB     float64
	MemUsedPercent float64
}

// SampleHost takes a short CPU sample; best-effort, never fatal.
func SampleHost() HostSnapshot {
	var snap HostSnapshot
	if pct, err := cpu.Percent(200*time.Millisecond, false); err == nil && len(pct) > 0 {
		snap.CPUPercent = pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemUsedMB = float64(vm.Used) / 1024 / 1024
		snap.MemTotalMB = float64(vm.Total) / 1024 / 1024
		snap.MemUsedPercent = vm.UsedPercent
	}
	return snap
}

// Reporter drives the console (every 10 min) and webhook (every
// STATS_INTERVAL, default 3h) reports. Both are best-effort per
// spec.md §4.I and never block pipeline progress.
type Reporter struct {
	stats    *Stats
	logger   *slog.Logger
	notifier *notify.Notifier

	consoleInterval time.Duration
	webhookInterval time.Duration
}

// NewReporter builds a Reporter. notifier may be nil to disable the
// webhook leg.
func NewReporter(s *Stats, logger *slog.Logger, notifier *notify.Notifier, webhookInterval time.Duration) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if webhookInterval <= 0 {
		webhookInterval = 3 * time.Hour
	}
	return &Reporter{stats: s, logger: logger, notifier: notifier, consoleInterval: 10 * time.Minute, webhookInterval: webhookInterval}
}

// Run drives both tickers until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) {
	console := time.NewTicker(r.consoleInterval)
	defer console.Stop()
	webhook := time.NewTicker(r.webhookInterval)
	defer webhook.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-console.C:
			r.reportConsole()
		case <-webhook.C:
			r.reportWebhook(ctx)
		}
	}
}

func (r *Reporter) reportConsole() {
	snap := r.stats.Snapshot()
	host := SampleHost()
	r.logger.Info("stats report",
		"total_processed", snap.TotalProcessed,
		"matched", snap.Matched,
		"match_rate", snap.MatchRate,
		"resolve_rate", snap.ResolveRate,
		"domains_per_sec", snap.DomainsPerSec,
		"queue_size", snap.QueueSize,
		"worker_count", snap.WorkerCount,
		"uptime_s", int64(snap.UptimeSeconds),
		"cpu_percent", host.CPUPercent,
		"mem_used_percent", host.MemUsedPercent,
	)
}

func (r *Reporter) reportWebhook(ctx context.Context) {
	if r.notifier == nil {
		return
	}
	snap := r.stats.Snapshot()
	desc := fmtStatsDescription(snap)
	if err := r.notifier.Ops(ctx, "Periodic stats report", desc); err != nil {
		r.logger.Error("stats webhook report failed", "error", err)
	}
}

func fmtStatsDescription(s Snapshot) string {
	itoa := func(v uint64) string { return strconv.FormatUint(v, 10) }
	return "processed=" + itoa(s.TotalProcessed) +
		" matched=" + itoa(s.Matched) +
		" dns_resolved=" + itoa(s.DNSResolved) +
		" dns_failed=" + itoa(s.DNSFailed) +
		" private_ip=" + itoa(s.PrivateIP) +
		" fingerprinter_sent=" + itoa(s.FingerprinterSent)
}
