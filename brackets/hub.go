package brackets

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// StreamMessage is the envelope pushed to subscribers of a match room.
// Events for one match are delivered in append order; there is no ordering
// guarantee across different matches.
type StreamMessage struct {
	Type    string      `json:"type"`
	MatchID int         `json:"match_id,omitempty"`
	Payload interface{} `json:"payload"`
}

const (
	MessageMatchEvent      = "MATCH_EVENT"
	MessageMatchUpdated    = "MATCH_UPDATED"
	MessageTournamentEnded = "TOURNAMENT_COMPLETED"
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string

	mu     sync.Mutex
	closed bool
}

// Hub fans appended match events out to websocket subscribers, one room per
// match.
type Hub struct {
	register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	rooms  map[string]map[*Client]bool
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.logger.Debug("stream client registered", slog.String("room", client.room))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if clients[client] {
					client.close()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
			h.logger.Debug("stream client unregistered", slog.String("room", client.room))
		}
	}
}

func matchRoom(matchID int) string {
	return "match:" + strconv.Itoa(matchID)
}

// BroadcastMatchEvent pushes a newly appended event to every subscriber of
// the match's room.
func (h *Hub) BroadcastMatchEvent(matchID int, event interface{}) {
	h.broadcast(matchRoom(matchID), StreamMessage{
		Type:    MessageMatchEvent,
		MatchID: matchID,
		Payload: event,
	})
}

// BroadcastMatchState pushes the updated match snapshot after a mutation.
func (h *Hub) BroadcastMatchState(matchID int, match interface{}) {
	h.broadcast(matchRoom(matchID), StreamMessage{
		Type:    MessageMatchUpdated,
		MatchID: matchID,
		Payload: match,
	})
}

// BroadcastTournamentCompleted tells subscribers of the deciding match that
// its result ended the whole tournament.
func (h *Hub) BroadcastTournamentCompleted(matchID int, tournament interface{}) {
	h.broadcast(matchRoom(matchID), StreamMessage{
		Type:    MessageTournamentEnded,
		MatchID: matchID,
		Payload: tournament,
	})
}

func (h *Hub) broadcast(room string, msg StreamMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[room]
	if !ok {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal stream message", slog.String("room", room), slog.Any("error", err))
		return
	}

	for client := range clients {
		client.mu.Lock()
		if !client.closed {
			select {
			case client.send <- data:
			default:
				// Slow consumer: drop the message rather than block the feed.
			}
		}
		client.mu.Unlock()
	}
}

// NewClient attaches an upgraded connection to a match room and starts its
// pumps.
func (h *Hub) NewClient(conn *websocket.Conn, matchID int) *Client {
	c := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 64),
		room: matchRoom(matchID),
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
	return c
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Subscribers are read-only; we only drain control frames.
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
