// Package transport exposes the event log over HTTP and WebSocket.
package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ledgerlens/ledgerlens/internal/events"
	"github.com/ledgerlens/ledgerlens/internal/observability/metrics"
	"github.com/ledgerlens/ledgerlens/internal/storage"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// EventLister reads committed events from the persisted log.
type EventLister interface {
	ListEvents(ctx context.Context, afterSeq int64, limit int) ([]storage.Event, error)
}

// Handler serves the event log and the live feed.
type Handler struct {
	store    EventLister
	bus      *events.Bus
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new events HTTP handler.
func NewHandler(store EventLister, bus *events.Bus, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		bus:    bus,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement is handled by the CORS middleware.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// RegisterRoutes registers event routes on a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/ws", h.handleWS)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	var afterSeq int64
	if a := r.URL.Query().Get("after"); a != "" {
		parsed, err := strconv.ParseInt(a, 10, 64)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "after must be a non-negative integer")
			return
		}
		afterSeq = parsed
	}

	limit := defaultListLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= maxListLimit {
			limit = parsed
		}
	}

	evs, err := h.store.ListEvents(r.Context(), afterSeq, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list events")
		return
	}

	data := make([]EventItem, len(evs))
	for i, ev := range evs {
		data[i] = EventItem{
			Seq:       ev.Seq,
			ID:        ev.ID,
			Type:      ev.Type,
			Payload:   json.RawMessage(ev.Payload),
			CreatedAt: ev.CreatedAt,
		}
	}

	writeJSON(w, http.StatusOK, ListResponse{Events: data})
}

// handleWS upgrades to a WebSocket and streams events as they are
// published. Slow consumers miss events rather than stall publishers; the
// persisted log is the replay path.
func (h *Handler) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	metrics.FeedConnected()
	defer metrics.FeedDisconnected()

	sub, cancel := h.bus.Subscribe()
	defer cancel()

	// Drain client frames so close and pong handling keep working.
	go func() {
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
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
