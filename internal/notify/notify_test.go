package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscoveryPostsExpectedSchema(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(Config{MatchesURL: srv.URL, Username: "ctwarden"})
	err := n.Discovery(context.Background(), "api.example.com", "93.184.216.34", "ct", []string{"https://api.example.com"})
	require.NoError(t, err)

	require.Equal(t, "ctwarden", got.Username)
	require.Len(t, got.Embeds, 1)
	require.NotEmpty(t, got.Embeds[0].Title)
	require.Equal(t, colorMatch, got.Embeds[0].Color)
	require.Equal(t, "ctwarden", got.Embeds[0].Footer.Text)

	names := map[string]string{}
	for _, f := range got.Embeds[0].Fields {
		names[f.Name] = f.Value
	}
	require.Equal(t, "api.example.com", names["Domain"])
	require.Equal(t, "93.184.216.34", names["IP"])
}

func TestDiscoverySkippedWhenURLEmpty(t *testing.T) {
	n := New(Config{})
	require.NoError(t, n.Discovery(context.Background(), "a.example.com", "1.2.3.4", "ct", nil))
}

func TestOpsPostsToLogsWebhook(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(Config{LogsURL: srv.URL})
	require.NoError(t, n.Ops(context.Background(), "Reconnected", "ingest client reconnected after 3 attempts"))
	require.True(t, called)
}

func TestPostReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(Config{MatchesURL: srv.URL})
	err := n.Discovery(context.Background(), "a.example.com", "1.2.3.4", "ct", nil)
	require.Error(t, err)
}
