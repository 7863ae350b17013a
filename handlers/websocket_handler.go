package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/campuscup/bracket-system/brackets"
	"github.com/campuscup/bracket-system/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the campus frontend origins before exposing
		// the stream publicly.
		return true
	},
}

type WebSocketHandler struct {
	hub    *brackets.Hub
	events services.MatchEventService
	logger *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, events services.MatchEventService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, events: events, logger: logger}
}

// ServeMatchStream subscribes the connection to one match's event feed.
// Events arrive in append order for that match; there is no cross-match
// ordering guarantee.
func (h *WebSocketHandler) ServeMatchStream(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	// Reject subscriptions to matches that do not exist before upgrading.
	if _, err := h.events.List(r.Context(), matchID, 1, 0); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Warn("websocket upgrade failed",
			slog.Int("match_id", matchID),
			slog.Any("error", err))
		return
	}

	h.hub.NewClient(conn, matchID)
}
