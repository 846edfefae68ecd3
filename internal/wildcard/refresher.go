package wildcard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Source is one operator-configured wildcard-pattern API.
type Source struct {
	Name    string
	URL     string
	Headers map[string]string
	Enabled bool
}

// Refresher periodically polls every enabled Source, extracts "*.suffix"
// string values from each source's JSON response, and swaps a freshly
// built trie into the Index.
type Refresher struct {
	logger   *slog.Logger
	index    *Index
	sources  []Source
	interval time.Duration
	client   *http.Client
}

// NewRefresher builds a Refresher. interval is WILDCARDS_UPDATE_INTERVAL;
// a non-positive value disables the periodic loop (Run returns at once
// without fetching).
func NewRefresher(logger *slog.Logger, index *Index, sources []Source, interval time.Duration) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		logger:   logger,
		index:    index,
		sources:  sources,
		interval: interval,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Refresh performs a single blocking fetch-and-swap cycle across every
// enabled source. The orchestrator calls this once, synchronously,
// before starting ingest so no frame arrives before the first Swap.
func (r *Refresher) Refresh(ctx context.Context) {
	r.refreshOnce(ctx)
}

// Run loops on interval, refreshing on each tick, until ctx is
// cancelled. It does not perform an initial fetch — callers wanting a
// populated index before Run starts should call Refresh first. A panic
// inside one refresh cycle is recovered and logged so the loop keeps
// running.
func (r *Refresher) Run(ctx context.Context) {
	if r.interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.safeRefresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Refresher) safeRefresh(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("wildcard refresh cycle panicked", "recover", rec)
		}
	}()
	r.refreshOnce(ctx)
}

func (r *Refresher) refreshOnce(ctx context.Context) {
	var patterns []Pattern
	for _, src := range r.sources {
		if !src.Enabled {
			continue
		}
		found, err := r.fetchSource(ctx, src)
		if err != nil {
			r.logger.Warn("wildcard source fetch failed, skipping", "source", src.Name, "error", err)
			continue
		}
		patterns = append(patterns, found...)
	}

	if len(patterns) == 0 {
		r.logger.Warn("wildcard refresh produced an empty pattern set", "sources", len(r.sources))
	}
	r.index.Swap(patterns)
	r.logger.Info("wildcard index refreshed", "patterns", len(patterns))
}

// fetchSource issues the GET, parses the JSON body, and extracts every
// string value in the tree beginning with "*.".
func (r *Refresher) fetchSource(ctx context.Context, src Source) ([]Pattern, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range src.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("non-200 response: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	var suffixes []string
	walkStrings(doc, &suffixes)

	patterns := make([]Pattern, 0, len(suffixes))
	for _, s := range suffixes {
		if !strings.HasPrefix(s, "*.") {
			continue
		}
		suffix := strings.ToLower(strings.TrimPrefix(s, "*."))
		if suffix == "" {
			continue
		}
		patterns = append(patterns, Pattern{Suffix: suffix, SourceID: src.Name})
	}
	return patterns, nil
}

// walkStrings recursively collects every string leaf in an arbitrary
// decoded-JSON value.
func walkStrings(v any, out *[]string) {
	switch val := v.(type) {
	case string:
		*out = append(*out, val)
	case []any:
		for _, e := range val {
			walkStrings(e, out)
		}
	case map[string]any:
		for _, e := range val {
			walkStrings(e, out)
		}
	}
}
