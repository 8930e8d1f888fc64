package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/clonesclash/clash-server-go/internal/game"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // spectators are read-only
	},
}

// WSMessage is the envelope for every websocket frame.
type WSMessage struct {
	Type    string `json:"type"`
	MatchID string `json:"match_id,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// MatchSource resolves matches for spectators.
type MatchSource interface {
	GetMatch(matchID string) (*game.Match, error)
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	matchID string // empty follows every match
	mu      sync.Mutex
}

func (c *client) follows(matchID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matchID == "" || c.matchID == matchID
}

func (c *client) follow(matchID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.matchID = matchID
}

type directMessage struct {
	client  *client
	payload []byte
}

// Hub fans match notifications out to websocket spectators.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan GameEvent
	direct     chan directMessage
	register   chan *client
	unregister chan *client
	matches    MatchSource
	logger     *zap.Logger
	done       chan struct{}
	closeOnce  sync.Once
}

// GameEvent is a serialised notification bound for one match's spectators.
type GameEvent struct {
	MatchID string
	Payload []byte
}

// NewHub creates a hub. matches may be nil, in which case spectators only
// receive live notifications.
func NewHub(matches MatchSource, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan GameEvent, sendBuffer),
		direct:     make(chan directMessage, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		matches:    matches,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer h.closeOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("spectator registered", zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
				h.logger.Debug("spectator unregistered", zap.Int("clients", len(h.clients)))
			}

		case d := <-h.direct:
			if h.clients[d.client] {
				select {
				case d.client.send <- d.payload:
				default:
				}
			}

		case evt := <-h.broadcast:
			for c := range h.clients {
				if !c.follows(evt.MatchID) {
					continue
				}
				select {
				case c.send <- evt.Payload:
				default:
					// Drop slow spectators.
					close(c.send)
					delete(h.clients, c)
				}
			}
		}
	}
}

// Notify queues a match notification. It matches game.NotificationHandler.
func (h *Hub) Notify(n game.GameNotification) {
	payload, err := json.Marshal(WSMessage{Type: n.Type, MatchID: n.MatchID, Data: n})
	if err != nil {
		h.logger.Warn("failed to encode notification",
			zap.String("type", n.Type),
			zap.Error(err))
		return
	}
	select {
	case h.broadcast <- GameEvent{MatchID: n.MatchID, Payload: payload}:
	case <-h.done:
	default:
		h.logger.Warn("spectator queue full, dropping notification",
			zap.String("match_id", n.MatchID),
			zap.String("type", n.Type))
	}
}

// ServeHTTP upgrades the request and registers the spectator.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		matchID: r.URL.Query().Get("match_id"),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			h.logger.Debug("ignoring malformed spectator message", zap.Error(err))
			continue
		}
		h.handleMessage(c, msg)
	}
}

func (h *Hub) handleMessage(c *client, msg WSMessage) {
	switch msg.Type {
	case "follow":
		c.follow(msg.MatchID)
		h.sendSnapshot(c, msg.MatchID)
	case "snapshot":
		h.sendSnapshot(c, msg.MatchID)
	default:
		h.reply(c, WSMessage{Type: "error", MatchID: msg.MatchID, Data: "unknown message type"})
	}
}

func (h *Hub) sendSnapshot(c *client, matchID string) {
	if h.matches == nil || matchID == "" {
		return
	}
	m, err := h.matches.GetMatch(matchID)
	if err != nil {
		h.reply(c, WSMessage{Type: "error", MatchID: matchID, Data: err.Error()})
		return
	}
	h.reply(c, WSMessage{Type: "STATE_UPDATE", MatchID: matchID, Data: m.Snapshot()})
}

// reply queues a message for one spectator through the hub, which owns the
// send channels.
func (h *Hub) reply(c *client, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case h.direct <- directMessage{client: c, payload: payload}:
	case <-h.done:
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
