package pipeline

import (
	"strings"

	"github.com/ctwarden/ctwarden/internal/dedup"
	"github.com/ctwarden/ctwarden/internal/wildcard"
)

// Filters runs the cheap, in-memory stages (1 through 5) before a name is
// worth the cost of an I/O-bound worker slot.
type Filters struct {
	// Exclusions is a literal endswith list; any match at stage 2 drops
	// the name (e.g. a CDN's own wildcard churn).
	Exclusions []string
	// DropSelfWildcard rejects names that arrived already wildcarded
	// ("*.example.com") at stage 3 — the bare suffix is rarely interesting.
	DropSelfWildcard bool
	Index            *wildcard.Index
	Dedup            *dedup.Deduplicator
}

// Recorder is the minimal counters/gauges surface pipeline needs; the
// stats package satisfies it without pipeline importing stats directly.
type Recorder interface {
	Inc(counter string)
	Gauge(gauge string, v float64)
}

// accept runs stages 1-5 and returns the built Job plus true if the name
// survived to be queued for the expensive stages, false (with Stage set
// to the stage it died at) otherwise.
func (f *Filters) accept(rawName string, rec Recorder) (*Job, bool) {
	rec.Inc("total_processed")

	wasSelfWildcard := strings.HasPrefix(rawName, "*.")
	cleaned := wildcard.Normalize(rawName)

	job := &Job{RawName: rawName, CleanedName: cleaned, Stage: StageNormalize}
	if cleaned == "" {
		return job, false
	}

	for _, suffix := range f.Exclusions {
		if strings.HasSuffix(cleaned, suffix) {
			job.Stage = StageStaticExclude
			return job, false
		}
	}

	if f.DropSelfWildcard && wasSelfWildcard {
		job.Stage = StageSelfWildcard
		return job, false
	}

	match := f.Index.Match(cleaned)
	if match == nil {
		job.Stage = StageWildcardMatch
		return job, false
	}
	job.Match = match
	rec.Inc("matched")

	if !f.Dedup.Admit(cleaned) {
		job.Stage = StageDedupAdmit
		rec.Inc("dedup_hit")
		return job, false
	}

	job.Stage = StagePersistenceCheck
	return job, true
}
