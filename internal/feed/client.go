// Package feed maintains the websocket connection to the game backend
// and forwards duel events to the bridge.
//
// The read loop runs on its own goroutine; everything it learns is
// handed to the bridge via a non-blocking Submit, never executed in
// place.
package feed

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"duelbot/internal/bridge"
	"duelbot/internal/kit"
	"duelbot/pkg/logx"
)

type Config struct {
	Enabled          bool
	URL              string
	Origin           string
	HandshakeTimeout time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
}

// Submitter is where parsed duel events go (the bridge).
type Submitter interface {
	Submit(evt bridge.Event) error
}

// Status is a point-in-time connection snapshot for diagnostics.
type Status struct {
	Enabled   bool      `json:"enabled"`
	Connected bool      `json:"connected"`
	URL       string    `json:"url"`
	Since     time.Time `json:"since,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

type Client struct {
	cfg    Config
	submit Submitter
	dir    kit.Directory
	log    logx.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	status Status

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, submit Submitter, dir kit.Directory, log logx.Logger) *Client {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		submit: submit,
		dir:    dir,
		log:    log,
		status: Status{Enabled: cfg.Enabled, URL: cfg.URL},
	}
}

func (c *Client) Start(ctx context.Context) {
	if !c.cfg.Enabled || strings.TrimSpace(c.cfg.URL) == "" {
		c.log.Info("feed disabled")
		return
	}
	rctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(rctx)
	}()
}

func (c *Client) Stop(ctx context.Context) {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		c.log.Warn("feed stop cancelled")
	}
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// run dials, joins, reads until the connection dies, then retries with
// capped exponential backoff for the life of ctx.
func (c *Client) run(ctx context.Context) {
	backoff := c.cfg.ReconnectMin
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.setDisconnected(err)
			c.log.Warn("feed connect failed", logx.Err(err), logx.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.cfg.ReconnectMax)
			continue
		}
		backoff = c.cfg.ReconnectMin
		c.setConnected(conn)
		c.log.Info("feed connected", logx.String("url", c.cfg.URL))

		c.joinAll(ctx, conn)
		err = c.readLoop(ctx, conn)
		_ = conn.Close()
		c.setDisconnected(err)
		if ctx.Err() != nil {
			return
		}
		c.log.Warn("feed disconnected", logx.Err(err))
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	d := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	var hdr http.Header
	if c.cfg.Origin != "" {
		hdr = http.Header{"Origin": []string{c.cfg.Origin}}
	}
	conn, resp, err := d.DialContext(ctx, c.cfg.URL, hdr)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// joinAll subscribes this bot to every registered player's room so the
// backend routes their duel events here.
func (c *Client) joinAll(ctx context.Context, conn *websocket.Conn) {
	recipients := c.dir.List(ctx)
	for _, r := range recipients {
		if err := conn.WriteJSON(frame{Event: "join", Data: mustJSON(string(r))}); err != nil {
			c.log.Warn("join emit failed", logx.String("recipient", string(r)), logx.Err(err))
			return
		}
	}
	c.log.Info("joined player rooms", logx.Int("count", len(recipients)))
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return err
		}
		c.handleFrame(f)
	}
}

func (c *Client) handleFrame(f frame) {
	evt, ok, err := parseDuelEvent(f)
	if err != nil {
		// Undecodable payload for a known event: warn and keep reading.
		c.log.Warn("malformed feed event", logx.String("event", f.Event), logx.Err(err))
		return
	}
	if !ok {
		c.log.Debug("ignoring feed event", logx.String("event", f.Event))
		return
	}
	// Submit validates the target and never blocks this read loop.
	_ = c.submit.Submit(evt)
}

func (c *Client) setConnected(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.status.Connected = true
	c.status.Since = time.Now()
	c.status.LastError = ""
	c.mu.Unlock()
}

func (c *Client) setDisconnected(err error) {
	c.mu.Lock()
	c.conn = nil
	c.status.Connected = false
	if err != nil {
		c.status.LastError = err.Error()
	}
	c.mu.Unlock()
}
