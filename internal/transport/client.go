// Package transport owns the persistent websocket connection to the
// detection backend. It exposes subscribe/unsubscribe by event name,
// fire-and-forget emit, and bounded automatic reconnection.
package transport

import (
	"encoding/json"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler receives the raw payload of one inbound event.
type Handler func(data json.RawMessage)

// Subscription identifies one registered handler. Off removes exactly the
// subscription it is given, never every handler for the event.
type Subscription struct {
	event string
	id    string
}

// Options configures connection and reconnection behavior.
type Options struct {
	HandshakeTimeout time.Duration

	// Reconnection: bounded attempt count with capped, jittered exponential
	// backoff. Beyond MaxReconnectAttempts the client stays disconnected
	// until an explicit Connect call.
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	ReconnectDelayMax    time.Duration
	RandomizationFactor  float64
}

// DefaultOptions mirrors the backend's expected client tuning.
func DefaultOptions() Options {
	return Options{
		HandshakeTimeout:     10 * time.Second,
		MaxReconnectAttempts: 5,
		ReconnectDelay:       1 * time.Second,
		ReconnectDelayMax:    5 * time.Second,
		RandomizationFactor:  0.5,
	}
}

// envelope is the wire format: one JSON object per websocket text message.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Client is the websocket client for the backend event channel.
type Client struct {
	url    string
	opts   Options
	logger *log.Logger

	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	connecting bool
	done       chan struct{}

	handlersMu sync.RWMutex
	handlers   map[string]map[string]Handler

	randFloat func() float64
}

// NewClient creates a client for the given websocket URL. Connect must be
// called before any traffic flows.
func NewClient(url string, opts Options, logger *log.Logger) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = DefaultOptions().HandshakeTimeout
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = DefaultOptions().ReconnectDelay
	}
	if opts.ReconnectDelayMax <= 0 {
		opts.ReconnectDelayMax = DefaultOptions().ReconnectDelayMax
	}
	return &Client{
		url:       url,
		opts:      opts,
		logger:    logger,
		handlers:  make(map[string]map[string]Handler),
		randFloat: rand.Float64,
	}
}

// Connect starts the connection loop. Calling it while already connected or
// connecting is a no-op.
func (c *Client) Connect() {
	c.mu.Lock()
	if c.connected || c.connecting {
		c.mu.Unlock()
		return
	}
	c.connecting = true
	c.done = make(chan struct{})
	done := c.done
	c.mu.Unlock()

	go c.run(done)
}

// run dials, reads until the connection drops, and reconnects with backoff.
// It exits when the attempt budget is exhausted or Disconnect is called.
func (c *Client) run(done chan struct{}) {
	attempts := 0
	for {
		select {
		case <-done:
			return
		default:
		}

		dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
		conn, _, err := dialer.Dial(c.url, nil)
		if err != nil {
			attempts++
			if attempts > c.opts.MaxReconnectAttempts {
				c.logger.Printf("Giving up after %d connection attempts: %v", attempts-1, err)
				c.teardown()
				return
			}
			delay := c.backoffDelay(attempts)
			c.logger.Printf("Connection attempt %d failed (%v), retrying in %v", attempts, err, delay)
			select {
			case <-done:
				return
			case <-time.After(delay):
			}
			continue
		}

		attempts = 0
		c.mu.Lock()
		// Disconnect may have landed while the dial was in flight. It had
		// no conn to close, so the fresh socket must not be installed.
		select {
		case <-done:
			c.mu.Unlock()
			conn.Close()
			return
		default:
		}
		c.conn = conn
		c.connected = true
		c.mu.Unlock()
		c.logger.Printf("Connected to backend at %s", c.url)

		c.readLoop(conn, done)

		c.mu.Lock()
		c.connected = false
		c.conn = nil
		c.mu.Unlock()

		select {
		case <-done:
			return
		default:
			c.logger.Printf("Connection lost, reconnecting...")
		}
	}
}

// readLoop reads messages until the connection fails or done is closed.
func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Printf("Read error: %v", err)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Printf("Failed to parse inbound message: %v", err)
			continue
		}
		if env.Event == "" {
			c.logger.Printf("Dropping inbound message without event name")
			continue
		}
		c.dispatch(env.Event, env.Data)
	}
}

// dispatch calls every handler registered for the event. Handlers run on the
// read goroutine, so inbound events are delivered in arrival order.
func (c *Client) dispatch(event string, data json.RawMessage) {
	c.handlersMu.RLock()
	registered := c.handlers[event]
	snapshot := make([]Handler, 0, len(registered))
	for _, h := range registered {
		snapshot = append(snapshot, h)
	}
	c.handlersMu.RUnlock()

	for _, h := range snapshot {
		h(data)
	}
}

// On registers a handler for a named inbound event. Multiple handlers per
// event are permitted.
func (c *Client) On(event string, handler Handler) Subscription {
	sub := Subscription{event: event, id: uuid.New().String()}

	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if c.handlers[event] == nil {
		c.handlers[event] = make(map[string]Handler)
	}
	c.handlers[event][sub.id] = handler
	return sub
}

// Off removes the handler registered under sub. Unknown subscriptions are
// ignored.
func (c *Client) Off(sub Subscription) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if registered, ok := c.handlers[sub.event]; ok {
		delete(registered, sub.id)
		if len(registered) == 0 {
			delete(c.handlers, sub.event)
		}
	}
}

// Emit sends a fire-and-forget event to the backend. When disconnected the
// event is dropped and logged; it is never queued and never surfaces an
// error to the caller.
func (c *Client) Emit(event string, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		c.logger.Printf("Dropping emit %q: not connected", event)
		return
	}

	env := envelope{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			c.logger.Printf("Dropping emit %q: marshal failed: %v", event, err)
			return
		}
		env.Data = data
	}

	msg, err := json.Marshal(env)
	if err != nil {
		c.logger.Printf("Dropping emit %q: marshal failed: %v", event, err)
		return
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		c.logger.Printf("Emit %q failed: %v", event, err)
	}
}

// Connected reports whether the connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Disconnect tears the connection down and clears internal state so a later
// Connect starts clean. Safe to call repeatedly.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		select {
		case <-c.done:
		default:
			close(c.done)
		}
		c.done = nil
	}

	if c.conn != nil {
		err := c.conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		if err != nil {
			c.logger.Printf("Error sending close message: %v", err)
		}
		if err := c.conn.Close(); err != nil {
			c.logger.Printf("Error closing connection: %v", err)
		}
		c.conn = nil
	}

	c.connected = false
	c.connecting = false
}

// teardown resets state after the reconnection budget is spent.
func (c *Client) teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.connecting = false
	c.conn = nil
	c.done = nil
}

// backoffDelay returns the delay before the given attempt: doubling from
// ReconnectDelay, capped at ReconnectDelayMax, with randomized jitter of
// ±RandomizationFactor to avoid thundering-herd reconnects.
func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.opts.ReconnectDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.opts.ReconnectDelayMax {
			delay = c.opts.ReconnectDelayMax
			break
		}
	}

	if c.opts.RandomizationFactor > 0 {
		jitter := (c.randFloat()*2 - 1) * c.opts.RandomizationFactor * float64(delay)
		delay += time.Duration(jitter)
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
