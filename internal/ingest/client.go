// Package ingest is the WebSocket client that reads the CT firehose:
// connect, read, reconnect-with-backoff, parse.
package ingest

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// State is one of the IngestClient's four lifecycle states.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReconnectWait
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnectWait:
		return "reconnect_wait"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DefaultBackoff is the reconnect delay sequence, clamped at its last
// element for any attempt beyond its length.
var DefaultBackoff = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	30 * time.Second,
}

// Client is a read-only WebSocket ingestion loop. It never acks or
// replays; duplicates are the Deduplicator's and the unique constraint's
// problem.
type Client struct {
	logger  *slog.Logger
	url     string
	headers http.Header
	backoff []time.Duration
	dialer  *websocket.Dialer

	// onFrame receives the raw list of subject names extracted from a
	// single text frame. It must not block for long — the caller is
	// expected to hand the names to a bounded queue.
	onFrame func([]string)

	state atomic.Int32
}

// New builds a Client. backoff defaults to DefaultBackoff when nil.
func New(logger *slog.Logger, url string, headers http.Header, backoff []time.Duration, onFrame func([]string)) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if backoff == nil {
		backoff = DefaultBackoff
	}
	c := &Client{
		logger:  logger,
		url:     url,
		headers: headers,
		backoff: backoff,
		dialer:  websocket.DefaultDialer,
		onFrame: onFrame,
	}
	c.state.Store(int32(StateConnecting))
	return c
}

// State returns the client's current lifecycle state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Run drives the connect/read/reconnect loop until ctx is cancelled. It
// always returns ctx.Err() on a clean shutdown.
func (c *Client) Run(ctx context.Context) error {
	attempt := 0
	for {
		if ctx.Err() != nil {
			c.state.Store(int32(StateStopped))
			return ctx.Err()
		}

		c.state.Store(int32(StateConnecting))
		conn, _, err := c.dialer.DialContext(ctx, c.url, c.headers)
		if err != nil {
			c.logger.Warn("ingest dial failed", "error", err)
			if !c.waitBackoff(ctx, attempt) {
				c.state.Store(int32(StateStopped))
				return ctx.Err()
			}
			attempt++
			continue
		}

		c.state.Store(int32(StateOpen))
		attempt = 0
		c.logger.Info("ingest connection open", "url", c.url)

		serveErr := c.serve(ctx, conn)
		_ = conn.Close()

		if ctx.Err() != nil {
			c.state.Store(int32(StateStopped))
			return ctx.Err()
		}

		c.logger.Warn("ingest connection lost, entering reconnect backoff", "error", serveErr)
		c.state.Store(int32(StateReconnectWait))
		if !c.waitBackoff(ctx, attempt) {
			c.state.Store(int32(StateStopped))
			return ctx.Err()
		}
		attempt++
	}
}

// serve owns conn for the lifetime of one connection: a reader goroutine
// feeds frames (and the terminal read error) back over a channel, while
// this goroutine dispatches them. Pong replies are written by the ping
// handler, which gorilla/websocket runs inside the reader goroutine's
// ReadMessage call.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	type frame struct {
		data []byte
		err  error
	}
	frames := make(chan frame, 16)

	conn.SetPingHandler(func(appData string) error {
		c.logger.Debug("ingest ping received, sending pong")
		werr := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
		if werr == websocket.ErrCloseSent {
			return nil
		}
		return werr
	})

	go func() {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				frames <- frame{err: err}
				return
			}
			frames <- frame{data: msg}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case f := <-frames:
			if f.err != nil {
				return f.err
			}
			c.handleFrame(f.data)
		}
	}
}

func (c *Client) handleFrame(raw []byte) {
	domains, err := parseDomains(raw)
	if err != nil {
		c.logger.Debug("ingest frame parse error, skipping", "error", err)
		return
	}
	if len(domains) == 0 {
		return
	}
	c.onFrame(domains)
}

func (c *Client) waitBackoff(ctx context.Context, attempt int) bool {
	idx := attempt
	if idx >= len(c.backoff) {
		idx = len(c.backoff) - 1
	}
	t := time.NewTimer(c.backoff[idx])
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
