package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected is returned when writing before Connect succeeds.
	ErrNotConnected = errors.New("stream: not connected")
	// ErrAlreadyClosed is returned when connecting a closed client.
	ErrAlreadyClosed = errors.New("stream: client already closed")
)

// subscribeFrame is the market channel subscription payload.
type subscribeFrame struct {
	Type      string   `json:"type"`
	AssetsIDs []string `json:"assets_ids"`
}

// ClientConfig configures a single feed connection.
type ClientConfig struct {
	// URL is the full websocket endpoint for the market channel.
	URL string
	// BufferSize is the capacity of the inbound message channel.
	BufferSize int
	// WriteTimeout bounds each outbound frame.
	WriteTimeout time.Duration
}

// Client is one WebSocket connection to the market push feed. A client
// is single-use: after a read error or Close it cannot be reconnected,
// the collector dials a fresh one.
type Client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	messages chan []byte
	errors   chan error
	done     chan struct{}

	writeMu sync.Mutex

	mu        sync.RWMutex
	connected bool
	closed    bool
}

// NewClient creates a client for one connection attempt.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	return &Client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan []byte, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect dials the feed and starts the read pump.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	// Server pings must be answered or the server drops us.
	conn.SetPingHandler(func(data string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	go c.readLoop()

	c.logger.Debug("websocket connected", "url", c.cfg.URL)

	return nil
}

// Subscribe sends one market channel subscription frame for tokens.
func (c *Client) Subscribe(tokens []string) error {
	frame, err := json.Marshal(subscribeFrame{Type: "market", AssetsIDs: tokens})
	if err != nil {
		return err
	}
	return c.Send(frame)
}

// Send writes one text frame to the connection.
func (c *Client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Ping sends a liveness probe. A healthy server answers with a pong;
// a dead transport surfaces as a read error shortly after.
func (c *Client) Ping() error {
	c.mu.RLock()
	conn := c.conn
	connected := c.connected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return ErrNotConnected
	}
	return conn.WriteControl(
		websocket.PingMessage,
		[]byte("keepalive"),
		time.Now().Add(c.cfg.WriteTimeout),
	)
}

// Messages returns the inbound frame channel.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// Errors returns the connection error channel. At most one error is
// delivered; after that the client is dead.
func (c *Client) Errors() <-chan error {
	return c.errors
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.mu.Unlock()

	close(c.done)

	if c.conn != nil {
		c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		return c.conn.Close()
	}

	return nil
}

// readLoop pumps frames from the socket into the messages channel.
func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.conn.ReadMessage()
		if err != nil {
			// Errors after Close are expected, swallow them.
			select {
			case <-c.done:
				return
			default:
				select {
				case c.errors <- err:
				default:
				}
				return
			}
		}

		select {
		case c.messages <- data:
		case <-c.done:
			return
		default:
			c.logger.Warn("message buffer full, dropping frame")
		}
	}
}
