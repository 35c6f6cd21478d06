package channel

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteWait = 10 * time.Second
	maxFrameSize     = 1 << 20
)

// Option customizes a WebSocket.
type Option func(*WebSocket)

// WithLogger sets the logger used for connection events.
func WithLogger(logger *zap.Logger) Option {
	return func(w *WebSocket) {
		w.logger = logger.Named("channel")
	}
}

// WithHeader sets extra handshake headers.
func WithHeader(header http.Header) Option {
	return func(w *WebSocket) {
		w.header = header
	}
}

// WithDialer replaces the default websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(w *WebSocket) {
		w.dialer = dialer
	}
}

// WithReconnectDelay bounds the exponential delay between reconnect attempts.
func WithReconnectDelay(initial, ceiling time.Duration) Option {
	return func(w *WebSocket) {
		w.minDelay = initial
		w.maxDelay = ceiling
	}
}

// WebSocket is a Channel over a websocket connection. Run keeps it
// connected; inbound frames are dispatched from a single reader goroutine,
// so listeners observe events in arrival order.
type WebSocket struct {
	Registry

	url      string
	header   http.Header
	dialer   *websocket.Dialer
	logger   *zap.Logger
	minDelay time.Duration
	maxDelay time.Duration

	mu        sync.RWMutex
	conn      *websocket.Conn
	connected chan struct{}

	writeMu sync.Mutex
}

// NewWebSocket prepares a channel for url. No connection is made until Run.
func NewWebSocket(url string, opts ...Option) *WebSocket {
	w := &WebSocket{
		url:       url,
		dialer:    websocket.DefaultDialer,
		logger:    zap.NewNop(),
		minDelay:  500 * time.Millisecond,
		maxDelay:  10 * time.Second,
		connected: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run connects and keeps reconnecting until ctx is done. It returns nil on
// cancellation.
func (w *WebSocket) Run(ctx context.Context) error {
	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = w.minDelay
	retry.MaxInterval = w.maxDelay

	for {
		conn, _, err := w.dialer.DialContext(ctx, w.url, w.header)
		if err == nil {
			retry.Reset()
			w.logger.Info("connected", zap.String("url", w.url))
			w.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			return nil
		}

		delay := retry.NextBackOff()
		if err != nil {
			w.logger.Warn("dial failed", zap.String("url", w.url), zap.Duration("retry_in", delay), zap.Error(err))
		} else {
			w.logger.Warn("connection lost", zap.String("url", w.url), zap.Duration("retry_in", delay))
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// Connected returns a channel that is closed while a connection is up.
// A new channel is handed out after every disconnect.
func (w *WebSocket) Connected() <-chan struct{} {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Emit writes one frame. It fails with ErrDisconnected when no connection
// is up; the payload is dropped in that case.
func (w *WebSocket) Emit(ctx context.Context, event string, payload any) error {
	frame, err := Encode(event, payload)
	if err != nil {
		return err
	}

	w.mu.RLock()
	conn := w.conn
	w.mu.RUnlock()
	if conn == nil {
		return ErrDisconnected
	}

	deadline := time.Now().Add(defaultWriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (w *WebSocket) serve(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)

	w.mu.Lock()
	w.conn = conn
	close(w.connected)
	w.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		w.mu.Lock()
		w.conn = nil
		w.connected = make(chan struct{})
		w.mu.Unlock()
		conn.Close()
	}()

	// Unblocks ReadMessage when the caller cancels.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) && ctx.Err() == nil {
				w.logger.Warn("read failed", zap.Error(err))
			}
			return
		}

		env, err := Decode(frame)
		if err != nil {
			w.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if n := w.Dispatch(env.Event, env.Data); n == 0 {
			w.logger.Debug("no listener for event", zap.String("event", env.Event))
		}
	}
}
