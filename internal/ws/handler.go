package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/hubenschmidt/cx-gateway/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler serves chat turns over a WebSocket. Each inbound text message is a
// chat request; the reply is the same frame sequence as the SSE endpoint,
// one JSON text message per frame.
type Handler struct {
	svc *chat.Service
}

// NewHandler creates a WebSocket chat handler.
func NewHandler(svc *chat.Service) *Handler {
	return &Handler{svc: svc}
}

// ServeHTTP upgrades the connection and processes turns until the client leaves.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("chat connection opened", "remote", r.RemoteAddr)
	h.processMessages(ctx, conn)
	slog.Info("chat connection closed", "remote", r.RemoteAddr)
}

// processMessages handles one request at a time, so turns on a connection
// never overlap.
func (h *Handler) processMessages(ctx context.Context, conn *websocket.Conn) {
	send := func(f chat.Frame) error {
		data, err := json.Marshal(f)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, data)
	}

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			slog.Info("connection closed", "error", err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err = h.handleRequest(ctx, data, send); err != nil {
			slog.Warn("chat write failed", "error", err)
			return
		}
	}
}

func (h *Handler) handleRequest(ctx context.Context, data []byte, send func(chat.Frame) error) error {
	var req chat.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return reject(send, "invalid request: "+err.Error())
	}
	if err := req.Validate(); err != nil {
		return reject(send, err.Error())
	}

	release, err := h.svc.Admit()
	if err != nil {
		return reject(send, err.Error())
	}
	defer release()

	return h.svc.Stream(ctx, req, "websocket", send)
}

func reject(send func(chat.Frame) error, msg string) error {
	if err := send(chat.ErrorFrame(msg)); err != nil {
		return err
	}
	return send(chat.DoneFrame())
}
