package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/pixil98/go-arena/internal/connstate"
	"github.com/pixil98/go-arena/internal/protocol"
)

const (
	pingPeriod = 15 * time.Second
	pongWait   = 2 * pingPeriod
	writeWait  = 10 * time.Second

	// Latency thresholds for grading connection quality.
	poorLatency = 150 * time.Millisecond
	badLatency  = 400 * time.Millisecond
)

// Client maintains one outbound connection to a registry, reconnecting with
// backoff when the transport drops. Lifecycle transitions are surfaced
// through its connstate.Manager; inbound server messages through Messages().
type Client struct {
	url      string
	username string
	x, y     float64

	maxAttempts int
	backoff     *backoff.Backoff
	dialer      *websocket.Dialer

	state    *connstate.Manager
	messages chan protocol.ServerMessage

	mu      sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex
}

type ClientOpt func(*Client)

// WithStartPosition sets the coordinates sent with the join message.
func WithStartPosition(x, y float64) ClientOpt {
	return func(c *Client) {
		c.x = x
		c.y = y
	}
}

// WithMaxAttempts bounds consecutive reconnection attempts before the client
// gives up and enters FAILED. Zero means retry forever.
func WithMaxAttempts(n int) ClientOpt {
	return func(c *Client) {
		c.maxAttempts = n
	}
}

// WithBackoff overrides the reconnection backoff policy.
func WithBackoff(b *backoff.Backoff) ClientOpt {
	return func(c *Client) {
		c.backoff = b
	}
}

func NewClient(url, username string, opts ...ClientOpt) *Client {
	c := &Client{
		url:      url,
		username: username,
		backoff:  &backoff.Backoff{Min: 500 * time.Millisecond, Max: 30 * time.Second, Jitter: true},
		dialer:   websocket.DefaultDialer,
		state:    connstate.NewManager(),
		messages: make(chan protocol.ServerMessage, 64),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State exposes the lifecycle state machine for subscription and inspection.
func (c *Client) State() *connstate.Manager {
	return c.state
}

// Messages delivers decoded server payloads. The channel is buffered; when
// the consumer falls behind, new payloads are dropped until it catches up.
func (c *Client) Messages() <-chan protocol.ServerMessage {
	return c.messages
}

// Start dials and runs the connection until ctx is canceled or the retry
// budget is spent. It blocks, making the client usable as a service worker.
func (c *Client) Start(ctx context.Context) error {
	// The budget is counted here rather than via the manager: repeated
	// transitions into RECONNECTING are strict no-ops, so its counter only
	// moves on the first retry of a cycle.
	attempts := 0
	first := true
	for {
		if first {
			c.state.SetState(connstate.StateConnecting)
			first = false
		} else {
			c.state.SetState(connstate.StateReconnecting)
			attempts++
		}

		connected, err := c.runOnce(ctx)
		if ctx.Err() != nil {
			c.state.SetState(connstate.StateDisconnected)
			return nil
		}
		if connected {
			attempts = 0
		}

		if c.maxAttempts > 0 && attempts >= c.maxAttempts {
			kind, msg := classify(err)
			c.state.SetStateWithError(connstate.StateFailed, kind, msg)
			return fmt.Errorf("connection failed after %d reconnect attempts: %w", c.maxAttempts, err)
		}

		select {
		case <-ctx.Done():
			c.state.SetState(connstate.StateDisconnected)
			return nil
		case <-time.After(c.backoff.Duration()):
		}
	}
}

// runOnce performs one dial-join-read cycle and returns when the connection
// is gone. The bool reports whether the dial ever succeeded, so the caller
// can tell a spent retry from a fresh transport loss.
func (c *Client) runOnce(ctx context.Context) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("dialing %s: %w", c.url, err)
	}
	c.setConn(conn)
	defer func() {
		c.setConn(nil)
		conn.Close()
	}()

	c.state.SetState(connstate.StateConnected)
	c.backoff.Reset()

	join := protocol.ClientMessage{Type: protocol.TypeJoin, Username: c.username, X: &c.x, Y: &c.y}
	if err := c.writeJSON(conn, join); err != nil {
		return true, fmt.Errorf("sending join: %w", err)
	}

	// Pings double as the latency probe; the pong handler grades quality.
	var pingMu sync.Mutex
	var lastPing time.Time
	conn.SetPongHandler(func(string) error {
		pingMu.Lock()
		rtt := time.Since(lastPing)
		pingMu.Unlock()
		c.state.SetLatency(rtt)
		c.state.SetConnectionQuality(gradeLatency(rtt))
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return true, err
	}

	pingDone := make(chan struct{})
	defer close(pingDone)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingDone:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				pingMu.Lock()
				lastPing = time.Now()
				pingMu.Unlock()
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("reading from %s: %w", c.url, err)
		}

		msg, err := protocol.DecodeServerMessage(raw)
		if err != nil {
			slog.Warn("discarding malformed server message", "error", err)
			continue
		}

		if msg.Type == protocol.TypeConnect {
			c.state.SetConnectionID(msg.ID)
		}

		select {
		case c.messages <- *msg:
		default:
			slog.Warn("dropping server message, consumer not keeping up", "type", msg.Type)
		}
	}
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
}

// SendUpdate pushes a position/animation change to the registry. Fields set
// to nil are left out of the payload entirely.
func (c *Client) SendUpdate(x, y *float64, animation *string) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("not connected")
	}
	return c.writeJSON(conn, protocol.ClientMessage{Type: protocol.TypeUpdate, X: x, Y: y, Animation: animation})
}

// writeJSON serializes v and writes one frame. Data frames share one mutex
// because join and update writes come from different goroutines.
func (c *Client) writeJSON(conn *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func gradeLatency(rtt time.Duration) connstate.Quality {
	switch {
	case rtt < poorLatency:
		return connstate.QualityGood
	case rtt < badLatency:
		return connstate.QualityPoor
	default:
		return connstate.QualityBad
	}
}

// classify maps a transport error onto the structured failure taxonomy.
func classify(err error) (connstate.ErrorKind, string) {
	if err == nil {
		return connstate.ErrorConnectionLost, "connection lost"
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return connstate.ErrorTimeout, err.Error()
	}
	return connstate.ErrorRefused, err.Error()
}
