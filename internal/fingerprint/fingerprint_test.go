package fingerprint

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitPostsExpectedBodyAndAuth(t *testing.T) {
	var got request
	var authHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL, APIKey: "secret-key", CallbackURLs: []string{"https://hooks.example.com/cb"}})
	err := c.Submit(context.Background(), []string{"https://api.example.com"})
	require.NoError(t, err)

	require.Equal(t, "Bearer secret-key", authHeader)
	require.Equal(t, []string{"https://api.example.com"}, got.URLs)
	require.Equal(t, []string{"https://hooks.example.com/cb"}, got.CallbackURLs)
}

func TestSubmitOmitsAuthHeaderWhenNoKey(t *testing.T) {
	var authHeader string
	seen := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = true
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL})
	require.NoError(t, c.Submit(context.Background(), []string{"https://api.example.com"}))
	require.True(t, seen)
	require.Empty(t, authHeader)
}

func TestSubmitIsNoOpWithoutURLOrURLs(t *testing.T) {
	c := New(Config{})
	require.NoError(t, c.Submit(context.Background(), []string{"https://api.example.com"}))

	c2 := New(Config{URL: "http://unreachable.invalid"})
	require.NoError(t, c2.Submit(context.Background(), nil))
}

func TestSubmitReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{URL: srv.URL})
	err := c.Submit(context.Background(), []string{"https://api.example.com"})
	require.Error(t, err)
}
