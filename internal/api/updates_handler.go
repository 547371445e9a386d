package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yerba/yerba-api/internal/events"
	"github.com/yerba/yerba-api/internal/service"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// EventSource hands out bus subscriptions.
type EventSource interface {
	Subscribe() *events.Subscription
}

// UpdatesHandler streams the bus events of one space over a websocket.
type UpdatesHandler struct {
	spaces   service.SpaceService
	source   EventSource
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewUpdatesHandler creates an UpdatesHandler. checkOrigin may be nil to
// accept only same-origin upgrades.
func NewUpdatesHandler(
	spaces service.SpaceService,
	source EventSource,
	checkOrigin func(r *http.Request) bool,
	logger *slog.Logger,
) *UpdatesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdatesHandler{
		spaces: spaces,
		source: source,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With("component", "updates_handler"),
	}
}

// Stream handles GET /api/spaces/{spaceID}/updates. Each event of the
// space is written as one JSON text message until the client goes away or
// the bus closes.
func (h *UpdatesHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sp, ok := resolveSpace(w, r, h.spaces, h.logger)
	if !ok {
		return
	}

	// Subscribe before upgrading so nothing published after the handshake
	// is missed.
	sub := h.source.Subscribe()
	defer sub.Close()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.DebugContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	log := h.logger.With("space_id", sp.ID)
	log.DebugContext(r.Context(), "updates stream opened")

	// The read loop only services control frames; it ends when the
	// client disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			log.DebugContext(r.Context(), "updates stream closed by client", "dropped", sub.Dropped())
			return

		case ev, ok := <-sub.Events():
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
					time.Now().Add(writeWait))
				return
			}
			if ev.SpaceID != sp.ID {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				log.DebugContext(r.Context(), "updates stream write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
