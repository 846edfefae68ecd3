package wildcard

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefresherExtractsWildcardValuesOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"patterns":["*.example.com","not-a-pattern.com","*.other.net"]}`))
	}))
	defer srv.Close()

	idx := NewIndex()
	r := NewRefresher(nil, idx, []Source{{Name: "s1", URL: srv.URL, Enabled: true}}, 0)
	r.Refresh(context.Background())

	assert.Equal(t, 2, idx.Size())
	assert.NotNil(t, idx.Match("api.example.com"))
	assert.NotNil(t, idx.Match("api.other.net"))
	assert.Nil(t, idx.Match("api.not-a-pattern.com"))
}

func TestRefresherSkipsFailingSourceKeepsOthers(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":["*.good.com"]}`))
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	idx := NewIndex()
	r := NewRefresher(nil, idx, []Source{
		{Name: "bad", URL: bad.URL, Enabled: true},
		{Name: "good", URL: ok.URL, Enabled: true},
	}, 0)
	r.Refresh(context.Background())

	assert.Equal(t, 1, idx.Size())
	assert.NotNil(t, idx.Match("api.good.com"))
}

func TestRefresherSwapsOnEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	idx := NewIndex()
	idx.Swap([]Pattern{{Suffix: "stale.com"}})

	r := NewRefresher(nil, idx, []Source{{Name: "s1", URL: srv.URL, Enabled: true}}, 0)
	r.Refresh(context.Background())

	assert.Equal(t, 0, idx.Size(), "empty source result must still swap")
}

func TestRefresherDisabledSourceSkipped(t *testing.T) {
	idx := NewIndex()
	r := NewRefresher(nil, idx, []Source{{Name: "s1", URL: "http://unused.invalid", Enabled: false}}, 0)
	r.Refresh(context.Background())
	assert.Equal(t, 0, idx.Size())
}

func TestRefresherPeriodicLoop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":["*.periodic.com"]}`))
	}))
	defer srv.Close()

	idx := NewIndex()
	r := NewRefresher(nil, idx, []Source{{Name: "s1", URL: srv.URL, Enabled: true}}, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	r.Refresh(ctx)
	r.Run(ctx)

	assert.NotNil(t, idx.Match("api.periodic.com"))
}
