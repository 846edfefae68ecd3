package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector adapts a Stats snapshot to the Prometheus exposition format,
// additive to the console/webhook reporters spec.md requires.
type Collector struct {
	stats *Stats

	totalProcessed *prometheus.Desc
	matched        *prometheus.Desc
	dnsResolved    *prometheus.Desc
	dnsFailed      *prometheus.Desc
	queueSize      *prometheus.Desc
	workerCount    *prometheus.Desc
	dedupSize      *prometheus.Desc
	wildcardSize   *prometheus.Desc
}

// NewCollector builds a prometheus.Collector backed by s.
func NewCollector(s *Stats) *Collector {
	ns := "ctwarden"
	return &Collector{
		stats:          s,
		totalProcessed: prometheus.NewDesc(ns+"_total_processed", "Names seen from the ingest stream", nil, nil),
		matched:        prometheus.NewDesc(ns+"_matched", "Names that matched a wildcard pattern", nil, nil),
		dnsResolved:    prometheus.NewDesc(ns+"_dns_resolved", "DNS lookups that returned a public IP", nil, nil),
		dnsFailed:      prometheus.NewDesc(ns+"_dns_failed", "DNS lookups that failed", nil, nil),
		queueSize:      prometheus.NewDesc(ns+"_queue_size", "Current worker pool queue depth", nil, nil),
		workerCount:    prometheus.NewDesc(ns+"_worker_count", "Current worker pool size", nil, nil),
		dedupSize:      prometheus.NewDesc(ns+"_dedup_size", "Entries currently held by the deduplicator", nil, nil),
		wildcardSize:   prometheus.NewDesc(ns+"_wildcard_count", "Patterns currently active in the wildcard index", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalProcessed
	ch <- c.matched
	ch <- c.dnsResolved
	ch <- c.dnsFailed
	ch <- c.queueSize
	ch <- c.workerCount
	ch <- c.dedupSize
	ch <- c.wildcardSize
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.Snapshot()
	ch <- prometheus.MustNewConstMetric(c.totalProcessed, prometheus.CounterValue, float64(snap.TotalProcessed))
	ch <- prometheus.MustNewConstMetric(c.matched, prometheus.CounterValue, float64(snap.Matched))
	ch <- prometheus.MustNewConstMetric(c.dnsResolved, prometheus.CounterValue, float64(snap.DNSResolved))
	ch <- prometheus.MustNewConstMetric(c.dnsFailed, prometheus.CounterValue, float64(snap.DNSFailed))
	ch <- prometheus.MustNewConstMetric(c.queueSize, prometheus.GaugeValue, float64(snap.QueueSize))
	ch <- prometheus.MustNewConstMetric(c.workerCount, prometheus.GaugeValue, float64(snap.WorkerCount))
	ch <- prometheus.MustNewConstMetric(c.dedupSize, prometheus.GaugeValue, float64(snap.DedupSize))
	ch <- prometheus.MustNewConstMetric(c.wildcardSize, prometheus.GaugeValue, float64(snap.WildcardSize))
}

// Handler builds a /metrics http.Handler backed by a dedicated registry
// holding only this Collector, so exposition never picks up the Go
// runtime/process collectors registered against prometheus.DefaultRegisterer
// by other packages.
func Handler(s *Stats) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(s))
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
