package http

import (
	"log"
	"net/http"
	"time"

	"classquiz-service/internal/app"
	"github.com/gorilla/websocket"
)

// WSHandler streams aggregated session statistics to the teacher dashboard,
// replacing client-side polling. Statistics are recomputed per tick; a few
// seconds of staleness between pushes is acceptable.
type WSHandler struct {
	aggregator *app.Aggregator
	auth       *app.Authenticator
	interval   time.Duration
	upgrader   websocket.Upgrader
}

func NewWSHandler(aggregator *app.Aggregator, auth *app.Authenticator, interval time.Duration) *WSHandler {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &WSHandler{
		aggregator: aggregator,
		auth:       auth,
		interval:   interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and pushes a stats snapshot on every tick.
// The token travels as a query parameter because browsers cannot set headers
// on WebSocket dials.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	_, role, err := h.auth.Verify(r.URL.Query().Get("token"))
	if err != nil || role != "teacher" {
		http.Error(w, "teacher authentication required", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		results, err := h.aggregator.Aggregate(r.Context(), id)
		if err != nil {
			_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return
		}
		if err := conn.WriteJSON(outboundMessage[any]{Type: "stats", Payload: results}); err != nil {
			log.Printf("ws write error: %v", err)
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}
