// Package bridge is the client side of the foreign mobile-runtime plugin
// channel. It speaks JSON frames over a WebSocket: synchronous plugin calls
// (req/res) and persistent listener channels fed by event frames.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ErrClosed is returned once the connection is gone.
var ErrClosed = errors.New("bridge: connection closed")

// Frame represents a message frame between this process and the foreign runtime
type Frame struct {
	Type    string          `json:"type"`              // req, res, event
	ID      string          `json:"id,omitempty"`      // Request/response correlation ID
	Plugin  string          `json:"plugin,omitempty"`  // Plugin identifier for requests
	Method  string          `json:"method,omitempty"`  // For requests
	Channel string          `json:"channel,omitempty"` // Listener channel for events
	Params  any             `json:"params,omitempty"`  // Request parameters
	OK      bool            `json:"ok,omitempty"`      // Response success
	Payload json.RawMessage `json:"payload,omitempty"` // Response or event data
	Error   string          `json:"error,omitempty"`   // Error message
}

// ListenParams is the body of a listener registration request.
type ListenParams struct {
	Handler string `json:"handler"`
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Client is a live connection to the foreign runtime.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]chan *Frame

	channelsMu sync.Mutex
	channels   map[string]*inbox

	done      chan struct{}
	closeOnce sync.Once
	err       error
}

// Option configures a Client
type Option func(*Client)

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Dial connects to the foreign runtime at url (ws:// or wss://).
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial foreign runtime: %w", err)
	}
	return NewClient(conn, opts...), nil
}

// NewClient wraps an established connection and starts its pumps.
func NewClient(conn *websocket.Conn, opts ...Option) *Client {
	c := &Client{
		conn:     conn,
		send:     make(chan []byte, 256),
		logger:   slog.Default(),
		pending:  make(map[string]chan *Frame),
		channels: make(map[string]*inbox),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.readPump()
	go c.writePump()
	return c
}

// Call sends a plugin request and waits for its response. There is no
// built-in deadline; bound it through ctx.
func (c *Client) Call(ctx context.Context, plugin, method string, params any) (json.RawMessage, error) {
	resp, err := c.request(ctx, &Frame{
		Type:   "req",
		Plugin: plugin,
		Method: method,
		Params: params,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s.%s: %s", plugin, method, resp.Error)
	}
	return resp.Payload, nil
}

// Listen registers a persistent handler with plugin.command. Every event
// frame the foreign side sends to it arrives on the returned channel, in
// order; the channel is closed when the connection ends.
func (c *Client) Listen(ctx context.Context, plugin, command string) (<-chan json.RawMessage, error) {
	channelID := uuid.NewString()
	ib := newInbox()

	// Registered before the request: events may follow the ack immediately.
	c.channelsMu.Lock()
	c.channels[channelID] = ib
	c.channelsMu.Unlock()

	resp, err := c.request(ctx, &Frame{
		Type:   "req",
		Plugin: plugin,
		Method: command,
		Params: ListenParams{Handler: channelID},
	})
	if err == nil && !resp.OK {
		err = fmt.Errorf("%s.%s: %s", plugin, command, resp.Error)
	}
	if err != nil {
		c.channelsMu.Lock()
		delete(c.channels, channelID)
		c.channelsMu.Unlock()
		ib.close()
		return nil, err
	}
	return ib.out, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err reports why the connection ended, nil while it is open.
func (c *Client) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

// Close shuts the connection down and closes every listener channel.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.shutdown(ErrClosed)
	return nil
}

func (c *Client) shutdown(err error) {
	c.closeOnce.Do(func() {
		c.err = err
		close(c.done)
		c.conn.Close()

		c.channelsMu.Lock()
		channels := c.channels
		c.channels = make(map[string]*inbox)
		c.channelsMu.Unlock()
		for _, ib := range channels {
			ib.close()
		}
	})
}

func (c *Client) request(ctx context.Context, frame *Frame) (*Frame, error) {
	frame.ID = uuid.NewString()

	ch := make(chan *Frame, 1)
	c.pendingMu.Lock()
	c.pending[frame.ID] = ch
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, frame.ID)
		c.pendingMu.Unlock()
	}()

	if err := c.write(frame); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

func (c *Client) write(frame *Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return fmt.Errorf("bridge send buffer full")
	}
}

// readPump reads frames from the foreign runtime
func (c *Client) readPump() {
	var exitErr error = ErrClosed
	defer func() {
		c.shutdown(exitErr)
	}()

	c.conn.SetReadLimit(1024 * 1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("[bridge] unexpected close", "error", err)
				exitErr = fmt.Errorf("%w: %v", ErrClosed, err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.logger.Warn("[bridge] invalid frame", "error", err, "size", len(message))
			continue
		}
		c.handleFrame(&frame)
	}
}

func (c *Client) handleFrame(frame *Frame) {
	switch frame.Type {
	case "res":
		c.pendingMu.Lock()
		ch, ok := c.pending[frame.ID]
		c.pendingMu.Unlock()
		if !ok {
			c.logger.Debug("[bridge] response for unknown request", "id", frame.ID)
			return
		}
		select {
		case ch <- frame:
		default:
		}
	case "event":
		c.channelsMu.Lock()
		ib, ok := c.channels[frame.Channel]
		c.channelsMu.Unlock()
		if !ok {
			c.logger.Debug("[bridge] event for unknown channel", "channel", frame.Channel)
			return
		}
		ib.push(frame.Payload)
	default:
		c.logger.Debug("[bridge] ignoring frame", "type", frame.Type)
	}
}

// writePump writes queued frames and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn("[bridge] write failed", "error", err)
				c.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.shutdown(fmt.Errorf("%w: %v", ErrClosed, err))
				return
			}
		}
	}
}
