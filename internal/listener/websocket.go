package listener

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pixil98/go-arena/internal/registry"
	"github.com/pixil98/go-log"
	"github.com/sirupsen/logrus"
)

// writeWait bounds how long a single outbound frame may block.
const writeWait = 10 * time.Second

type WebSocketListener struct {
	addr     string
	path     string
	reg      *registry.Registry
	logger   logrus.FieldLogger
	upgrader websocket.Upgrader
}

func NewWebSocketListener(addr, path string, reg *registry.Registry) *WebSocketListener {
	if path == "" {
		path = "/ws"
	}
	return &WebSocketListener{
		addr:   addr,
		path:   path,
		reg:    reg,
		logger: log.NewLogger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Connections are unauthenticated anyway
				return true
			},
		},
	}
}

// Handler exposes the websocket endpoint for embedding in another mux.
func (l *WebSocketListener) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(l.path, l.handleWS)
	return mux
}

func (l *WebSocketListener) Start(ctx context.Context) error {
	l.logger = log.GetLogger(ctx)

	svr := &http.Server{
		Addr:    l.addr,
		Handler: l.Handler(),
	}

	// done signals that Start is returning (either success or failure)
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			// Shutdown requested - drop the listener and every live connection
			svr.Close()
		case <-done:
			// Start returned (likely with error) - nothing to stop
		}
	}()

	err := svr.ListenAndServe()
	if err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("address %s is already in use (another server running?)", l.addr)
		}
		return fmt.Errorf("serving websocket on %s: %w", l.addr, err)
	}

	return nil
}

func (l *WebSocketListener) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.logger.Errorf("upgrading websocket connection: %s", err)
		return
	}

	l.serveConn(conn, l.logger)
}

// serveConn runs one connection's read loop. Messages from a single
// connection are handled sequentially in arrival order; liveness is left
// entirely to the transport's close detection.
func (l *WebSocketListener) serveConn(conn *websocket.Conn, logger logrus.FieldLogger) {
	wc := &wsConn{conn: conn}
	id := l.reg.Accept(wc)

	defer func() {
		l.reg.Disconnect(id)
		if err := conn.Close(); err != nil {
			logger.Debugf("closing websocket connection %s: %s", id, err)
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warnf("reading from connection %s: %s", id, err)
			}
			return
		}
		l.reg.HandleMessage(id, raw)
	}
}

// wsConn adapts a gorilla connection to the registry's Conn. The mutex
// serializes frames because broadcasts and direct replies may interleave.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}
