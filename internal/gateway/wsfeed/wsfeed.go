// Package wsfeed is an optional background cache-warming stream: the
// streaming counterpart to the gateway's pull-based contract, grounded on
// the reference architecture's pkg/websocket/client.go resilient client.
package wsfeed

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"arbfind/internal/obs"
)

// TickerSink receives the symbol and raw frame of each routed push update.
// Callers supply one that parses the frame and primes the gateway cache
// (for spot tickers, by calling gateway.Gateway.PrimeSpot).
type TickerSink func(symbol string, raw []byte) error

// Decoder turns one raw websocket frame into (symbol, ok) so the warmer can
// route it to the sink; venue wire formats differ and are not this
// package's concern — callers supply the decode step.
type Decoder func(raw []byte) (symbol string, ok bool)

// Client is a resilient WebSocket client that keeps the gateway's cache warm
// between pull-based reads. It reconnects with backoff and never blocks a
// caller — all failures are logged and retried.
type Client struct {
	url           string
	decode        Decoder
	sink          TickerSink
	logger        obs.Logger
	reconnectWait time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a Client. It does not connect until Start is called.
func New(url string, decode Decoder, sink TickerSink, logger obs.Logger) *Client {
	return &Client{url: url, decode: decode, sink: sink, logger: logger, reconnectWait: 5 * time.Second}
}

// Start connects and begins the read loop in the background. Cancel ctx or
// call Stop to shut it down.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()
}

// Stop closes the connection and waits for the read loop to exit.
func (c *Client) Stop() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	if c.conn != nil {
		c.conn.Close() // unblocks a pending ReadMessage
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Client) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(c.ctx, c.url, nil)
		if err != nil {
			c.logger.Warn("wsfeed: dial failed, retrying", "url", c.url, "error", err)
			if !c.sleep(c.reconnectWait) {
				return
			}
			continue
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.readLoop(conn)

		conn.Close()
		if !c.sleep(c.reconnectWait) {
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.logger.Warn("wsfeed: read failed", "url", c.url, "error", err)
			return
		}
		symbol, ok := c.decode(msg)
		if !ok {
			continue
		}
		if err := c.sink(symbol, msg); err != nil {
			c.logger.Warn("wsfeed: sink rejected update", "symbol", symbol, "error", err)
		}
	}
}

func (c *Client) sleep(d time.Duration) bool {
	select {
	case <-c.ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
