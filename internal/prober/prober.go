// Package prober issues parallel HTTP/S HEAD requests against a fixed
// set of ports to decide whether a resolved host is actively serving.
package prober

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"
)

// PortSpec is one configured {protocol, port} combination to try.
type PortSpec struct {
	Protocol string // "http" or "https"
	Port     int
}

// Config tunes per-request and overall timeouts and the per-host
// concurrency ceiling (spec.md §4.G defaults).
type Config struct {
	Ports             []PortSpec
	PerHostConcurrent int
	RequestTimeout    time.Duration
	OverallTimeout    time.Duration
}

// DefaultConfig mirrors spec.md §4.G defaults.
func DefaultConfig() Config {
	return Config{
		Ports: []PortSpec{
			{Protocol: "https", Port: 443},
			{Protocol: "http", Port: 80},
		},
		PerHostConcurrent: 5,
		RequestTimeout:    5 * time.Second,
		OverallTimeout:    15 * time.Second,
	}
}

// Prober probes a host over each configured port, in parallel, and
// returns the ports that answered.
type Prober struct {
	cfg    Config
	client *http.Client
}

// New builds a Prober. TLS verification is disabled deliberately: the
// goal is reachability, not trust.
func New(cfg Config) *Prober {
	return &Prober{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse // a redirect still proves liveness
			},
		},
	}
}

// Probe issues a HEAD against every configured port for host and returns
// the active URLs, de-duplicated and in ascending port order, plus
// whether any port timed out rather than failing outright (stats.
// CounterHTTPTimeout vs. a plain miss). Any response at all — 2xx
// through 5xx — counts as active; connection refused, DNS failure, or
// timeout does not.
func (p *Prober) Probe(ctx context.Context, host string) (urls []string, timedOut bool) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.OverallTimeout)
	defer cancel()

	sem := make(chan struct{}, p.cfg.PerHostConcurrent)
	type probeResult struct {
		port     int
		url      string
		ok       bool
		timedOut bool
	}
	results := make(chan probeResult, len(p.cfg.Ports))

	for _, spec := range p.cfg.Ports {
		spec := spec
		sem <- struct{}{}
		go func() {
			defer func() { <-sem }()
			url := buildURL(spec, host)
			ok, to := p.probeOne(ctx, url)
			results <- probeResult{port: spec.Port, url: url, ok: ok, timedOut: to}
		}()
	}

	active := make([]probeResult, 0, len(p.cfg.Ports))
	for range p.cfg.Ports {
		r := <-results
		if r.ok {
			active = append(active, r)
		}
		if r.timedOut {
			timedOut = true
		}
	}

	sort.Slice(active, func(i, j int) bool { return active[i].port < active[j].port })
	urls = make([]string, 0, len(active))
	seen := make(map[string]struct{}, len(active))
	for _, r := range active {
		if _, dup := seen[r.url]; dup {
			continue
		}
		seen[r.url] = struct{}{}
		urls = append(urls, r.url)
	}
	return urls, timedOut
}

// probeOne reports whether url answered at all, and separately whether
// the attempt failed because it timed out (as opposed to connection
// refused, DNS failure, or another transport error).
func (p *Prober) probeOne(ctx context.Context, url string) (ok, timedOut bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false, false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, true
		}
		return false, false
	}
	defer resp.Body.Close()
	return true, false // any response at all — 2xx through 5xx — counts as active
}

func buildURL(spec PortSpec, host string) string {
	if (spec.Protocol == "http" && spec.Port == 80) || (spec.Protocol == "https" && spec.Port == 443) {
		return fmt.Sprintf("%s://%s", spec.Protocol, host)
	}
	return fmt.Sprintf("%s://%s:%d", spec.Protocol, host, spec.Port)
}
