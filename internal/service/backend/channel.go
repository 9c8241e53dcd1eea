package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"Delphi/internal/domain/models"
	drepo "Delphi/internal/domain/repository"

	"github.com/gorilla/websocket"
)

// Channel implements a ChannelStream over a WebSocket namespace. Frames in
// both directions are {event, payload} envelopes.
type Channel struct {
	name           string
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// New creates a channel for one backend namespace.
func New(name, url string, reconnectDelay, pingInterval time.Duration) drepo.ChannelStream {
	return &Channel{
		name:           name,
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

func (c *Channel) Name() string { return c.name }

// Connect establishes the WebSocket connection.
func (c *Channel) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("%s connect: %w", c.name, err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Emit sends one envelope. Payload nil sends an empty object.
func (c *Channel) Emit(event string, payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("%s not connected", c.name)
	}
	env := struct {
		Event   string      `json:"event"`
		Payload interface{} `json:"payload"`
	}{Event: event, Payload: payload}
	if env.Payload == nil {
		env.Payload = map[string]interface{}{}
	}
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("%s emit %s: %w", c.name, event, err)
	}
	return nil
}

// Read streams envelopes and errors. The error channel yields once when the
// connection breaks; callers Reconnect and Read again.
func (c *Channel) Read(ctx context.Context) (<-chan models.Envelope, <-chan error) {
	events := make(chan models.Envelope, 64)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(events)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				c.mu.Lock()
				conn := c.conn
				c.mu.Unlock()
				if conn == nil {
					errs <- fmt.Errorf("%s conn nil", c.name)
					return
				}
				_, b, err := conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("%s read: %w", c.name, err)
					return
				}
				var env models.Envelope
				if err := json.Unmarshal(b, &env); err != nil || env.Event == "" {
					// ignore non-envelope frames
					continue
				}
				select {
				case events <- env:
				default:
					// drop on backpressure; every message is a full
					// snapshot of its kind, the next one supersedes it
				}
			}
		}
	}()

	return events, errs
}

// Reconnect closes and redials after the fixed delay.
func (c *Channel) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.reconnectDelay):
	}
	return c.Connect(ctx)
}

// Close closes the connection.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Channel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
