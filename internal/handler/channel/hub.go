// Package channel serves the websocket side of the chat channel.
package channel

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	wire "github.com/zhouzirui/cubechat/internal/channel"
	"github.com/zhouzirui/cubechat/internal/model/event"
)

// Welcome is sent to every client right after it connects.
const Welcome = "Welcome! Ask me a question about your PDFs."

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	writeWait  = 10 * time.Second
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Responder answers one question.
type Responder interface {
	Respond(ctx context.Context, question string) string
}

// Handler upgrades requests to websocket connections and answers questions.
type Handler struct {
	responder Responder
	logger    *zap.Logger
	upgrader  websocket.Upgrader
}

// New creates the channel handler.
func New(responder Responder, logger *zap.Logger) *Handler {
	return &Handler{
		responder: responder,
		logger:    logger.Named("hub"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the websocket endpoint.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

// client serializes writes to one connection.
type client struct {
	id     string
	conn   *websocket.Conn
	logger *zap.Logger
	mu     sync.Mutex
}

func (c *client) emit(name string, payload any) {
	frame, err := wire.Encode(name, payload)
	if err != nil {
		c.logger.Error("encode failed", zap.String("event", name), zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Warn("write failed", zap.String("event", name), zap.Error(err))
	}
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	c := &client{id: uuid.NewString(), conn: conn}
	c.logger = h.logger.With(zap.String("client", c.id))
	c.logger.Info("client connected", zap.String("remote", r.RemoteAddr))

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(ctx, conn)

	c.emit(event.BotResponse, event.NewAnswer(Welcome))

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("read error", zap.Error(err))
			}
			c.logger.Info("client disconnected")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		env, err := wire.Decode(frame)
		if err != nil {
			c.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		h.handleEvent(ctx, c, env)
	}
}

// handleEvent runs on the read loop, so answers go out in question order.
func (h *Handler) handleEvent(ctx context.Context, c *client, env wire.Envelope) {
	switch env.Event {
	case event.AskQuestion:
		var q event.Question
		if err := json.Unmarshal(env.Data, &q); err != nil {
			c.logger.Warn("invalid ask_question payload", zap.Error(err))
			return
		}
		if q.Question == "" {
			c.logger.Warn("ask_question without question")
		}
		c.logger.Info("received question", zap.String("question", q.Question))
		c.emit(event.BotResponse, event.NewAnswer(h.responder.Respond(ctx, q.Question)))
	default:
		c.logger.Debug("ignoring event", zap.String("event", env.Event))
	}
}

func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
