// Package pipeline is the bounded-concurrency worker pool that consumes
// ingested names and drives them through the validation pipeline.
package pipeline

import "github.com/ctwarden/ctwarden/internal/wildcard"

// Stage marks how far a Job progressed before it was dropped, persisted,
// or queued for retry.
type Stage int

const (
	StageNormalize Stage = iota
	StageStaticExclude
	StageSelfWildcard
	StageWildcardMatch
	StageDedupAdmit
	StagePersistenceCheck
	StageResolve
	StageProbe
	StageFinalize
)

func (s Stage) String() string {
	names := [...]string{
		"normalize", "static_exclude", "self_wildcard", "wildcard_match",
		"dedup_admit", "persistence_check", "resolve", "probe", "finalize",
	}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Job is one candidate subject name moving through the pipeline.
type Job struct {
	RawName     string
	CleanedName string
	Match       *wildcard.Pattern
	IPs         []string
	ProbeURLs   []string
	Stage       Stage
}
