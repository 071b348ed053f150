package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/BrowserSync/backend/internal/protocol"
)

// ErrClosed is returned when sending without an open connection.
var ErrClosed = errors.New("transport closed")

const writeTimeout = 10 * time.Second

// Transport is what the session needs from a connection.
type Transport interface {
	Connect(ctx context.Context) error
	Connected() bool
	Send(command string, payload any) error
	Registry() *Registry
	// OnStateChange subscribes to connection state changes and returns
	// the unsubscribe function.
	OnStateChange(fn func(connected bool)) func()
	Close() error
}

// Options configures a Client.
type Options struct {
	URL              string
	HandshakeTimeout time.Duration
	Header           http.Header
	Metrics          *monitoring.Metrics
	// Executor runs handler invocations and state notifications. Defaults
	// to calling inline on the reader goroutine.
	Executor func(fn func())
}

// Client is a WebSocket Transport.
type Client struct {
	opts     Options
	dialer   *websocket.Dialer
	registry *Registry
	logger   *logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	connID  string
	reading chan struct{}
	closed  bool
	subSeq  uint64
	subs    map[uint64]func(bool)

	writeMu sync.Mutex
}

var _ Transport = (*Client)(nil)

// NewClient creates a disconnected client.
func NewClient(opts Options, logger *logging.Logger) *Client {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.Executor == nil {
		opts.Executor = func(fn func()) { fn() }
	}
	return &Client{
		opts:     opts,
		dialer:   &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: opts.HandshakeTimeout},
		registry: NewRegistry(),
		logger:   logging.OrNop(logger).Named("transport"),
		subs:     make(map[uint64]func(bool)),
	}
}

// Registry returns the handler registry.
func (c *Client) Registry() *Registry {
	return c.registry
}

// Connect dials the remote session. It is a no-op while connected.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	conn, resp, err := c.dialer.DialContext(ctx, c.opts.URL, c.opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}

	c.mu.Lock()
	if c.closed || c.conn != nil {
		c.mu.Unlock()
		conn.Close()
		if c.closed {
			return ErrClosed
		}
		return nil
	}
	c.conn = conn
	c.connID = uuid.NewString()
	c.reading = make(chan struct{})
	reading := c.reading
	connID := c.connID
	c.mu.Unlock()

	c.logger.Info("connected", zap.String("url", c.opts.URL), zap.String("conn_id", connID))
	c.opts.Metrics.SetConnected(true)
	c.notify(true)

	go c.readLoop(conn, reading)
	return nil
}

// Connected reports whether a connection is open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// ConnID returns the id of the current connection, or "".
func (c *Client) ConnID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ""
	}
	return c.connID
}

// Send encodes payload as a command frame and writes it.
func (c *Client) Send(command string, payload any) error {
	frame, err := protocol.Encode(command, payload)
	if err != nil {
		return err
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return fmt.Errorf("send %s: %w", command, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("send %s: %w", command, err)
	}
	c.opts.Metrics.RecordWSMessage("out", command)
	return nil
}

// OnStateChange subscribes fn to connection state changes.
func (c *Client) OnStateChange(fn func(connected bool)) func() {
	c.mu.Lock()
	c.subSeq++
	key := c.subSeq
	c.subs[key] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, key)
		c.mu.Unlock()
	}
}

// Close shuts the connection down and waits for the reader to exit. The
// client cannot be reconnected afterwards.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	reading := c.reading
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	err := conn.Close()
	<-reading
	return err
}

func (c *Client) readLoop(conn *websocket.Conn, reading chan struct{}) {
	defer close(reading)

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.disconnected(conn, err)
			return
		}

		command, err := protocol.Command(frame)
		if err != nil {
			c.logger.Warn("dropping frame", zap.Error(err))
			continue
		}
		c.opts.Metrics.RecordWSMessage("in", command)
		c.opts.Executor(func() {
			if c.registry.Dispatch(command, frame) == 0 {
				c.logger.Debug("no handler for command", zap.String("command", command))
			}
		})
	}
}

func (c *Client) disconnected(conn *websocket.Conn, err error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	closed := c.closed
	c.mu.Unlock()
	conn.Close()

	if closed || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.logger.Info("disconnected")
	} else {
		c.logger.Warn("connection lost", zap.Error(err))
	}
	c.opts.Metrics.SetConnected(false)
	c.notify(false)
}

func (c *Client) notify(connected bool) {
	c.opts.Executor(func() {
		c.mu.Lock()
		keys := make([]uint64, 0, len(c.subs))
		for k := range c.subs {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		fns := make([]func(bool), 0, len(keys))
		for _, k := range keys {
			fns = append(fns, c.subs[k])
		}
		c.mu.Unlock()

		for _, fn := range fns {
			fn(connected)
		}
	})
}
