// Package orchestrator wires every component into the running pipeline
// and drives startup ordering, signal handling, and graceful shutdown
// (spec.md §4.J).
package orchestrator

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ctwarden/ctwarden/internal/api"
	"github.com/ctwarden/ctwarden/internal/config"
	"github.com/ctwarden/ctwarden/internal/dedup"
	"github.com/ctwarden/ctwarden/internal/fingerprint"
	"github.com/ctwarden/ctwarden/internal/ingest"
	"github.com/ctwarden/ctwarden/internal/notify"
	"github.com/ctwarden/ctwarden/internal/pipeline"
	"github.com/ctwarden/ctwarden/internal/prober"
	"github.com/ctwarden/ctwarden/internal/resolver"
	"github.com/ctwarden/ctwarden/internal/retryqueue"
	"github.com/ctwarden/ctwarden/internal/secrets"
	"github.com/ctwarden/ctwarden/internal/stats"
	"github.com/ctwarden/ctwarden/internal/storage"
	"github.com/ctwarden/ctwarden/internal/wildcard"
)

// Orchestrator owns every component's lifetime and is the only place
// that wires them together — components take only the capabilities they
// consume (spec.md §9's explicit-construction design note).
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger

	db       *storage.DB
	index    *wildcard.Index
	refresh  *wildcard.Refresher
	dd       *dedup.Deduplicator
	st       *stats.Stats
	reporter *stats.Reporter
	res      *resolver.Resolver
	prb      *prober.Prober
	notifier *notify.Notifier
	fp       *fingerprint.Client
	rq       *retryqueue.Queue
	pool     *pipeline.Pool
	client   *ingest.Client
	apiSrv   *api.Server
	metrics  *http.Server
}

// New builds every component from cfg but starts nothing yet.
func New(cfg *config.Config, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := storage.Open(cfg.Database.Path, cfg.Concurrency.Max)
	if err != nil {
		return nil, err
	}

	secretResolver := secrets.New(secrets.Config{
		Addr:  cfg.Secrets.VaultAddr,
		Token: cfg.Secrets.VaultToken,
		Path:  cfg.Secrets.VaultPath,
	}, logger)

	index := wildcard.NewIndex()
	sources := make([]wildcard.Source, 0, len(cfg.APIs))
	for _, s := range cfg.APIs {
		sources = append(sources, wildcard.Source{Name: s.Name, URL: s.URL, Headers: s.Headers, Enabled: s.Enabled})
	}
	refresher := wildcard.NewRefresher(logger, index, sources, cfg.WildcardsUpdateIntv)

	dd := dedup.New(cfg.Dedup.MaxEntries, cfg.Dedup.Window)

	st := stats.New()

	notifier := notify.New(notify.Config{
		MatchesURL: secretResolver.Get("discord_messages_webhook", cfg.Discord.MessagesWebhook),
		LogsURL:    secretResolver.Get("discord_logs_webhook", cfg.Discord.LogsWebhook),
		Username:   cfg.Discord.Username,
	})
	reporter := stats.NewReporter(st, logger, notifier, cfg.Discord.StatsInterval)

	resCfg := resolver.DefaultConfig()
	resCfg.Upstream = cfg.Resolver.Upstream
	resCfg.Timeout = cfg.Resolver.Timeout
	resCfg.TryAAAA = cfg.Resolver.TryAAAA
	resCfg.MaxQPS = cfg.Resolver.MaxQPS
	res := resolver.New(resCfg, logger)

	ports := make([]prober.PortSpec, 0, len(cfg.HTTP.Ports))
	for _, p := range cfg.HTTP.Ports {
		ports = append(ports, prober.PortSpec{Protocol: p.Protocol, Port: p.Port})
	}
	probeCfg := prober.DefaultConfig()
	if len(ports) > 0 {
		probeCfg.Ports = ports
	}
	if cfg.HTTP.Timeout > 0 {
		probeCfg.RequestTimeout = cfg.HTTP.Timeout
	}
	prb := prober.New(probeCfg)

	fp := fingerprint.New(fingerprint.Config{
		URL:          cfg.Fingerprinter.URL,
		APIKey:       secretResolver.Get("fingerprinter_api_key", cfg.Fingerprinter.APIKey),
		CallbackURLs: cfg.Fingerprinter.CallbackURLs,
	})

	o := &Orchestrator{
		cfg: cfg, logger: logger,
		db: db, index: index, refresh: refresher, dd: dd,
		st: st, reporter: reporter, res: res, prb: prb,
		notifier: notifier, fp: fp,
	}

	rqCfg := retryqueue.DefaultConfig()
	rqCfg.SweepInterval = cfg.Database.RetryInterval
	rqCfg.MaxRetries = cfg.Database.MaxRetries
	o.rq = retryqueue.New(rqCfg, logger, db, res, o.onRetryResolved)

	filters := &pipeline.Filters{
		Exclusions:       cfg.Certstream.Exclusions,
		DropSelfWildcard: cfg.Pipeline.DropSelfWildcard,
		Index:            index,
		Dedup:            dd,
	}
	poolCfg := pipeline.DefaultConfig()
	poolCfg.QueueMax = cfg.Pipeline.QueueMax
	poolCfg.MinConc = cfg.Concurrency.Min
	poolCfg.MaxConc = cfg.Concurrency.Max
	o.pool = pipeline.New(poolCfg, logger, filters, o.handleJob, st)

	o.client = ingest.New(logger, cfg.Certstream.URL, nil, nil, o.pool.Submit)

	if cfg.API.Enabled {
		o.apiSrv = api.New(cfg.API.Host, cfg.API.Port, logger, st, db)
	}
	if cfg.Metrics.Enabled {
		o.metrics = buildMetricsServer(cfg.Metrics.ListenAddr, st)
	}

	return o, nil
}

// Run starts every background loop (wildcard refresher, stats reporter,
// retry queue sweeper, worker pool, ingest client, optional API/metrics
// servers) and blocks until a shutdown signal arrives or a component
// fails outright.
func (o *Orchestrator) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if preload, err := o.db.RecentDiscovered(o.cfg.Dedup.MaxEntries); err != nil {
		o.logger.Error("dedup preload query failed", "error", err)
	} else {
		o.dd.Preload(preload)
		o.logger.Info("dedup preloaded from persisted discoveries", "count", len(preload))
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	o.refresh.Refresh(ctx) // blocks on the initial fetch so no frame arrives before the first Swap
	go o.refresh.Run(runCtx)
	go o.reporter.Run(runCtx)
	go o.rq.Run(runCtx)
	go o.sampleSizes(runCtx)
	o.pool.Start(runCtx)

	errCh := make(chan error, 2)
	go func() { errCh <- o.client.Run(runCtx) }()
	if o.apiSrv != nil {
		go func() {
			if err := o.apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}
	if o.metrics != nil {
		go func() {
			if err := o.metrics.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		o.logger.Info("shutdown signal received, draining")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			o.logger.Error("component failed, shutting down", "error", err)
			runErr = err
		}
	}

	// Registered only now, so the signal that started the shutdown is not
	// also counted as the second one.
	forceExit := make(chan os.Signal, 1)
	signal.Notify(forceExit, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-forceExit
		o.logger.Warn("second signal received, forcing immediate exit")
		os.Exit(1)
	}()

	if err := o.shutdown(cancelRun); err != nil {
		return err
	}
	return runErr
}

// shutdown cancels the pool's workers and waits up to shutdown.timeout
// for jobs already inside the handler to return; jobs still waiting in
// the queue are dropped, not run. It then flushes the retry buffer,
// emits a final stats report, and closes persistence.
func (o *Orchestrator) shutdown(cancelRun context.CancelFunc) error {
	cancelRun()
	o.pool.Stop(o.cfg.Shutdown.Timeout)
	o.rq.Flush()

	if o.apiSrv != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = o.apiSrv.Shutdown(shCtx)
		cancel()
	}
	if o.metrics != nil {
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = o.metrics.Shutdown(shCtx)
		cancel()
	}

	snap := o.st.Snapshot()
	o.logger.Info("final stats report",
		"total_processed", snap.TotalProcessed,
		"matched", snap.Matched,
		"dns_resolved", snap.DNSResolved,
		"dns_failed", snap.DNSFailed,
		"uptime_s", int64(snap.UptimeSeconds),
	)

	return o.db.Close()
}

// sampleSizes periodically mirrors the dedup cache and wildcard index
// sizes into the stats gauges; both are cheap in-memory reads, so a
// short interval costs nothing.
func (o *Orchestrator) sampleSizes(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.st.Gauge(stats.GaugeDedupSize, float64(o.dd.Size()))
			o.st.Gauge(stats.GaugeWildcardSize, float64(o.index.Size()))
		}
	}
}

func buildMetricsServer(addr string, s *stats.Stats) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", stats.Handler(s))
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
