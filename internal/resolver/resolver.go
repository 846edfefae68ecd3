// Package resolver performs DNS A/AAAA lookups, classifies private
// address ranges, and caches results.
package resolver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
	"golang.org/x/time/rate"

	"github.com/ctwarden/ctwarden/internal/cache"
)

// ErrorKind distinguishes retry-worthy DNS failures from permanent ones.
type ErrorKind int

const (
	ErrNone ErrorKind = iota
	ErrNXDOMAIN
	ErrTimeout
	ErrServFail
	ErrOther
	// ErrPrivateOnly means the name resolved but every answer was a
	// private-range address; the caller drops silently (no retry).
	ErrPrivateOnly
)

func (k ErrorKind) String() string {
	switch k {
	case ErrNXDOMAIN:
		return "nxdomain"
	case ErrTimeout:
		return "timeout"
	case ErrServFail:
		return "servfail"
	case ErrOther:
		return "other"
	case ErrPrivateOnly:
		return "private_only"
	default:
		return "none"
	}
}

// Retryable reports whether the caller should enqueue the name into the
// retry queue (TIMEOUT, SERVFAIL) as opposed to dropping it permanently
// (NXDOMAIN, OTHER).
func (k ErrorKind) Retryable() bool {
	return k == ErrTimeout || k == ErrServFail
}

var privateRanges = mustParsePrefixes(
	"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16", "127.0.0.0/8",
	"169.254.0.0/16", "0.0.0.0/8", "::1/128", "fe80::/10", "fc00::/7",
)

func mustParsePrefixes(cidrs ...string) []netip.Prefix {
	prefixes := make([]netip.Prefix, 0, len(cidrs))
	for _, c := range cidrs {
		p, err := netip.ParsePrefix(c)
		if err != nil {
			panic(err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes
}

// IsPrivate reports whether ip falls in an RFC1918/loopback/link-local
// range. An unparseable address is treated as private: fail-closed.
func IsPrivate(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return true
	}
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Config tunes per-query timeout, retry behavior, cache sizing, the
// upstream resolver address, and the outbound query rate.
type Config struct {
	Upstream    string // "host:port", e.g. "1.1.1.1:53"
	Timeout     time.Duration
	CacheSize   int
	CacheTTL    time.Duration
	NegativeTTL time.Duration
	TryAAAA     bool
	// MaxQPS caps outbound queries against Upstream; a burst of newly
	// observed certificates can otherwise turn a firehose spike into a
	// denial-of-service against the resolver itself. Non-positive
	// disables limiting.
	MaxQPS int
}

// DefaultConfig mirrors spec.md §4.F defaults.
func DefaultConfig() Config {
	return Config{
		Upstream:    "1.1.1.1:53",
		Timeout:     2 * time.Second,
		CacheSize:   10_000,
		CacheTTL:    5 * time.Minute,
		NegativeTTL: time.Minute,
		TryAAAA:     false,
		MaxQPS:      500,
	}
}

type result struct {
	ip   string
	kind ErrorKind
}

// Resolver performs A (and optionally AAAA) lookups with one retry on
// transient failure, and caches results keyed by host.
type Resolver struct {
	cfg     Config
	logger  *slog.Logger
	client  *dns.Client
	cache   *cache.TTLCache[string, result]
	limiter *rate.Limiter
}

// New builds a Resolver against cfg.Upstream.
func New(cfg Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		cfg:    cfg,
		logger: logger,
		client: &dns.Client{Timeout: cfg.Timeout},
		cache:  cache.New[string, result](cfg.CacheSize, 0, cfg.NegativeTTL),
	}
	if cfg.MaxQPS > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(cfg.MaxQPS), cfg.MaxQPS)
	}
	return r
}

// Resolve returns the first public IP for host, or "" with the kind of
// failure. A cached negative result is honored without a new query.
func (r *Resolver) Resolve(ctx context.Context, host string) (string, ErrorKind) {
	if cached, found, _ := r.cache.Get(host); found {
		return cached.ip, cached.kind
	}

	ip, kind := r.query(ctx, host, dns.TypeA)
	if ip == "" && kind.Retryable() {
		ip, kind = r.query(ctx, host, dns.TypeA) // one retry on transient failure
	}
	if ip == "" && r.cfg.TryAAAA {
		if ip6, kind6 := r.query(ctx, host, dns.TypeAAAA); ip6 != "" {
			ip, kind = ip6, kind6
		}
	}

	res := result{ip: ip, kind: kind}
	if ip != "" {
		r.cache.Set(host, res, r.cfg.CacheTTL, cache.Positive)
	} else if kind == ErrNXDOMAIN {
		r.cache.Set(host, res, r.cfg.NegativeTTL, cache.Negative)
	}
	return ip, kind
}

func (r *Resolver) query(ctx context.Context, host string, qtype uint16) (string, ErrorKind) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return "", ErrTimeout
		}
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), qtype)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.cfg.Upstream)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", ErrTimeout
		}
		return "", ErrOther
	}

	switch resp.Rcode {
	case dns.RcodeNameError:
		return "", ErrNXDOMAIN
	case dns.RcodeServerFailure:
		return "", ErrServFail
	case dns.RcodeSuccess:
		// fall through to answer extraction
	default:
		return "", ErrOther
	}

	var privateHit string
	for _, ans := range resp.Answer {
		var ip net.IP
		switch rr := ans.(type) {
		case *dns.A:
			ip = rr.A
		case *dns.AAAA:
			ip = rr.AAAA
		default:
			continue
		}
		if !IsPrivate(ip.String()) {
			return ip.String(), ErrNone
		}
		privateHit = ip.String()
	}
	if privateHit != "" {
		return privateHit, ErrPrivateOnly
	}
	return "", ErrNXDOMAIN // NODATA: name resolved with no usable answer, treated like NXDOMAIN (not retried)
}
