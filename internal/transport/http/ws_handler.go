package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"quiz-sync-service/internal/app"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
)

// WSHandler upgrades connections into the session gateway. Each accepted
// socket gets a fresh connection id; the gateway addresses deliveries by that
// id through the hub, never through a shared socket-server handle.
type WSHandler struct {
	gateway  *app.Gateway
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(gateway *app.Gateway, hub *Hub) *WSHandler {
	return &WSHandler{
		gateway: gateway,
		hub:     hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	UserID string `json:"userId"`
	QuizID string `json:"quizId"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS runs one connection's lifecycle: connected-unjoined until a join
// message arrives, then joined until the socket closes, which triggers the
// disconnect cascade.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := xid.New().String()
	c := h.hub.attach(connID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-c.send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-c.done:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "join":
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.UserID == "" || payload.QuizID == "" {
				_ = h.hub.Send(connID, "error", errorPayload{Message: "invalid join payload"})
				continue
			}
			if err := h.gateway.HandleJoin(r.Context(), payload.UserID, payload.QuizID, connID); err != nil {
				log.Printf("ws join %s: %v", payload.UserID, err)
				_ = h.hub.Send(connID, "error", errorPayload{Message: "join failed"})
				continue
			}
			_ = h.hub.Send(connID, "joined", payload.UserID)
		default:
			_ = h.hub.Send(connID, "error", errorPayload{Message: "unsupported message type"})
		}
	}

	h.hub.detach(connID)
	<-writerDone
	// The request context is gone once the socket closes; the disconnect
	// cascade still has to run.
	if err := h.gateway.HandleDisconnect(context.Background(), connID); err != nil {
		log.Printf("ws disconnect %s: %v", connID, err)
	}
}
