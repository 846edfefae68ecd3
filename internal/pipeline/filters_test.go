package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ctwarden/ctwarden/internal/dedup"
	"github.com/ctwarden/ctwarden/internal/wildcard"
)

func TestAcceptSelfWildcardDropped(t *testing.T) {
	rec := newFakeRecorder()
	f := newTestFilters()

	job, ok := f.accept("*.example.com", rec)
	assert.False(t, ok)
	assert.Equal(t, StageSelfWildcard, job.Stage)
}

func TestAcceptSelfWildcardAllowedWhenConfiguredOff(t *testing.T) {
	rec := newFakeRecorder()
	idx := wildcard.NewIndex()
	idx.Swap([]wildcard.Pattern{{Suffix: "example.com"}})
	f := &Filters{Index: idx, Dedup: dedup.New(10, time.Minute), DropSelfWildcard: false}

	_, ok := f.accept("*.api.example.com", rec)
	assert.True(t, ok, "self-wildcard is only dropped when configured to do so")
}

func TestAcceptApexNeverMatches(t *testing.T) {
	rec := newFakeRecorder()
	f := newTestFilters()

	job, ok := f.accept("example.com", rec)
	assert.False(t, ok)
	assert.Equal(t, StageWildcardMatch, job.Stage)
}

func TestAcceptSurvivorReachesPersistenceCheck(t *testing.T) {
	rec := newFakeRecorder()
	f := newTestFilters()

	job, ok := f.accept("new.example.com", rec)
	assert.True(t, ok)
	assert.Equal(t, StagePersistenceCheck, job.Stage)
	assert.Equal(t, "example.com", job.Match.Suffix)
}
