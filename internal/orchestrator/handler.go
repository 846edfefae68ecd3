package orchestrator

import (
	"context"

	"github.com/ctwarden/ctwarden/internal/pipeline"
	"github.com/ctwarden/ctwarden/internal/resolver"
	"github.com/ctwarden/ctwarden/internal/stats"
)

// handleJob runs stages 6-9 (persistence check, resolve, probe, finalize)
// against a Job that already survived the cheap filters.
func (o *Orchestrator) handleJob(ctx context.Context, job *pipeline.Job) {
	exists, err := o.db.DomainExists(job.CleanedName)
	if err != nil {
		o.logger.Error("persistence check failed", "domain", job.CleanedName, "error", err)
		return
	}
	if exists {
		return
	}
	job.Stage = pipeline.StageResolve

	ip, kind := o.res.Resolve(ctx, job.CleanedName)
	switch {
	case kind == resolver.ErrNone && ip != "":
		job.IPs = []string{ip}
	case kind == resolver.ErrPrivateOnly:
		o.st.Inc(stats.CounterPrivateIP)
		return
	case kind.Retryable():
		o.rq.Enqueue(job.CleanedName, job.Match.Suffix)
		return
	default: // ErrNXDOMAIN, ErrOther: permanent failure, drop silently
		o.st.Inc(stats.CounterDNSFailed)
		return
	}
	o.st.Inc(stats.CounterDNSResolved)

	job.Stage = pipeline.StageProbe
	urls, timedOut := o.prb.Probe(ctx, job.CleanedName)
	job.ProbeURLs = urls
	if timedOut {
		o.st.Inc(stats.CounterHTTPTimeout)
	}
	if len(urls) > 0 {
		o.st.Inc(stats.CounterHTTPActive)
	}

	job.Stage = pipeline.StageFinalize
	o.finalize(ctx, job.CleanedName, ip, programFor(job), job.ProbeURLs)
}

// onRetryResolved is the retryqueue.Resolved callback: a name that was
// previously unresolvable now has an IP. wildcardRef doubles as the
// program label here since the retry queue only persists the matched
// suffix, not the originating program name.
func (o *Orchestrator) onRetryResolved(ctx context.Context, domain, ip, wildcardRef string) {
	urls, timedOut := o.prb.Probe(ctx, domain)
	if timedOut {
		o.st.Inc(stats.CounterHTTPTimeout)
	}
	if len(urls) > 0 {
		o.st.Inc(stats.CounterHTTPActive)
	}
	o.finalize(ctx, domain, ip, wildcardRef, urls)
}

// finalize persists a discovery, notifies, and optionally hands live
// hosts to the fingerprinter. Persistence runs first: a failed insert, or
// a domain that was already present, skips notify and fingerprint. A
// notify or fingerprint failure is logged and does not stop the other.
func (o *Orchestrator) finalize(ctx context.Context, domain, ip, program string, urls []string) {
	inserted, err := o.db.InsertDiscovered(domain, ip, program)
	if err != nil {
		o.logger.Error("insert discovered failed", "domain", domain, "error", err)
		return
	}
	if !inserted {
		return
	}

	if err := o.notifier.Discovery(ctx, domain, ip, program, urls); err != nil {
		o.logger.Warn("discovery notification failed", "domain", domain, "error", err)
	}

	if len(urls) > 0 {
		if err := o.fp.Submit(ctx, urls); err != nil {
			o.st.Inc(stats.CounterFingerprinterError)
			o.logger.Warn("fingerprinter submission failed", "domain", domain, "error", err)
		} else {
			o.st.Inc(stats.CounterFingerprinterSent)
		}
	}
}

func programFor(job *pipeline.Job) string {
	if job.Match == nil {
		return ""
	}
	if job.Match.Program != "" {
		return job.Match.Program
	}
	return job.Match.Suffix
}
