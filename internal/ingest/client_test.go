package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientLifecycle(t *testing.T) {
	var mu sync.Mutex
	var received []string

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"data":["live.example.com"]}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	c := New(nil, wsURL, nil, []time.Duration{10 * time.Millisecond}, func(domains []string) {
		mu.Lock()
		received = append(received, domains...)
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = c.Run(ctx)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, received, "live.example.com")
	assert.Equal(t, StateStopped, c.State())
}

func TestClientReconnectsOnDialFailure(t *testing.T) {
	c := New(nil, "ws://127.0.0.1:1/does-not-exist", nil, []time.Duration{5 * time.Millisecond}, func([]string) {})

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	err := c.Run(ctx)

	require.Error(t, err)
	assert.Equal(t, StateStopped, c.State())
}
