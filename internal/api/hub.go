package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/talgya/ironhex/internal/dispatcher"
	"github.com/talgya/ironhex/internal/engine"
	"github.com/talgya/ironhex/internal/units"
)

const (
	wsReadTimeout  = 60 * time.Second // Read deadline for client messages
	wsPingInterval = 54 * time.Second // Must be less than wsReadTimeout
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 64 << 10
	wsSendBuffer   = 256

	maxConnections       = 64
	maxMessagesPerSecond = 20
)

// Client message types.
const (
	MsgJoin  = "join"
	MsgOrder = "order"
)

// Server-only message types. Everything else carries an engine event type.
const (
	MsgJoined  = "joined"
	MsgError   = "error"
	MsgSession = "session"
)

// ClientMessage is a message from a participant.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ServerMessage is a message to a participant.
type ServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// JoinRequest binds a connection to a player. A new player id registers a
// player while the session is in the lounge; a known one reconnects and must
// present the token handed out in its first "joined" reply.
type JoinRequest struct {
	Player units.PlayerID `json:"player"`
	Name   string         `json:"name"`
	Team   int            `json:"team"`
	Token  string         `json:"token,omitempty"`
}

var errBadToken = errors.New("bad player token")

// tokenMatches reports whether tok proves the caller speaks for p.
func tokenMatches(p *engine.Player, tok string) bool {
	return p != nil && p.Token != "" && subtle.ConstantTimeCompare([]byte(p.Token), []byte(tok)) == 1
}

// claim checks tok against p. A player registered outside the hub has no
// token yet; the first connection to claim it gets a fresh one.
func claim(p *engine.Player, tok string) bool {
	if p.Token == "" {
		p.Token = uuid.NewString()
		return true
	}
	return tokenMatches(p, tok)
}

// Client is one websocket connection.
type Client struct {
	ID     string
	player atomic.Int64 // 0 until joined
	conn   *websocket.Conn
	send   chan ServerMessage
	hub    *Hub
}

// Player returns the bound player, or 0.
func (c *Client) Player() units.PlayerID {
	return units.PlayerID(c.player.Load())
}

// Hub tracks connections and implements engine.Transport. Transport calls
// come from the dispatcher goroutine and never block on a slow client.
type Hub struct {
	disp *dispatcher.Dispatcher

	mu      sync.RWMutex
	clients map[string]*Client

	upgrader websocket.Upgrader
}

// NewHub creates a hub feeding orders into d.
func NewHub(d *dispatcher.Dispatcher) *Hub {
	h := &Hub{disp: d, clients: make(map[string]*Client)}
	h.upgrader = websocket.Upgrader{CheckOrigin: isValidOrigin}
	return h
}

// isValidOrigin allows same-origin, localhost and CORS_ORIGINS connections.
func isValidOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host || u.Hostname() == "localhost" || u.Hostname() == "127.0.0.1" {
		return true
	}
	if allowedOrigins()[origin] {
		return true
	}
	slog.Warn("websocket origin rejected", "origin", origin)
	return false
}

// eventMessage encodes ev right away. Event payloads can point into live
// session state, which only the dispatcher goroutine may read.
func eventMessage(ev engine.Event) (ServerMessage, bool) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("encode event failed", "type", ev.Type, "error", err)
		return ServerMessage{}, false
	}
	return ServerMessage{Type: string(ev.Type), Data: json.RawMessage(data)}, true
}

// Unicast sends an event to every connection of a player.
func (h *Hub) Unicast(player units.PlayerID, ev engine.Event) {
	msg, ok := eventMessage(ev)
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c.Player() == player {
			c.push(msg)
		}
	}
}

// Broadcast sends an event to every connection.
func (h *Hub) Broadcast(ev engine.Event) {
	if msg, ok := eventMessage(ev); ok {
		h.broadcast(msg)
	}
}

func (h *Hub) broadcast(msg ServerMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.push(msg)
	}
}

// Len is the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// connected reports whether any connection other than skip is bound to p.
func (h *Hub) connected(p units.PlayerID, skip *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if c != skip && c.Player() == p {
			return true
		}
	}
	return false
}

func (c *Client) push(msg ServerMessage) {
	select {
	case c.send <- msg:
	default:
		slog.Warn("client send buffer full, dropping message", "conn", c.ID, "type", msg.Type)
	}
}

// HandleWebSocket upgrades the request and starts the client pumps.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.Len() >= maxConnections {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &Client{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan ServerMessage, wsSendBuffer),
		hub:  h,
	}
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	slog.Info("client connected", "conn", c.ID, "remote", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	close(c.send)
	h.mu.Unlock()

	p := c.Player()
	slog.Info("client disconnected", "conn", c.ID, "player", p)
	if p == 0 || h.connected(p, nil) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := h.disp.Do(ctx, func(s *engine.Session) (any, error) {
		s.Disconnect(p)
		return nil, nil
	})
	if err != nil && !errors.Is(err, dispatcher.ErrStopped) {
		slog.Warn("disconnect not applied", "player", p, "error", err)
	}
}

// readPump handles incoming messages from the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	messageCount := 0
	rateLimitReset := time.Now()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "conn", c.ID, "error", err)
			}
			return
		}

		now := time.Now()
		if now.Sub(rateLimitReset) >= time.Second {
			messageCount = 0
			rateLimitReset = now
		}
		messageCount++
		if messageCount > maxMessagesPerSecond {
			c.push(ServerMessage{Type: MsgError, Data: "rate limit exceeded"})
			continue
		}

		c.handleMessage(msg)
	}
}

// writePump sends queued messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(wsPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg ClientMessage) {
	switch msg.Type {
	case MsgJoin:
		c.handleJoin(msg.Data)
	case MsgOrder:
		c.handleOrder(msg.Data)
	default:
		c.push(ServerMessage{Type: MsgError, Data: "unknown message type " + msg.Type})
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil || req.Player <= 0 {
		c.push(ServerMessage{Type: MsgError, Data: "malformed join"})
		return
	}
	if c.Player() != 0 {
		c.push(ServerMessage{Type: MsgError, Data: "already joined"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// The connection is bound inside the job, after the token check, so events
	// emitted while joining reach it and nothing earlier does.
	tok, err := c.hub.disp.Do(ctx, func(s *engine.Session) (any, error) {
		if p := s.Player(req.Player); p != nil {
			if !claim(p, req.Token) {
				return nil, errBadToken
			}
			c.player.Store(int64(req.Player))
			s.Reconnect(req.Player)
			return p.Token, nil
		}
		if req.Name == "" {
			return nil, errors.New("name required")
		}
		c.player.Store(int64(req.Player))
		p, err := s.AddPlayer(req.Player, req.Name, req.Team)
		if err != nil {
			return nil, err
		}
		p.Token = uuid.NewString()
		return p.Token, nil
	})
	if err != nil {
		c.player.Store(0)
		slog.Info("join refused", "conn", c.ID, "player", req.Player, "error", err)
		c.push(ServerMessage{Type: MsgError, Data: err.Error()})
		return
	}
	slog.Info("player joined", "conn", c.ID, "player", req.Player)
	req.Token = tok.(string)
	c.push(ServerMessage{Type: MsgJoined, Data: req})
}

func (c *Client) handleOrder(data json.RawMessage) {
	p := c.Player()
	if p == 0 {
		c.push(ServerMessage{Type: MsgError, Data: "join before sending orders"})
		return
	}
	var o engine.Order
	if err := json.Unmarshal(data, &o); err != nil {
		c.push(ServerMessage{Type: MsgError, Data: "malformed order"})
		return
	}
	o.Player = p
	if err := c.hub.disp.Submit(o); err != nil {
		c.push(ServerMessage{Type: MsgError, Data: err.Error()})
	}
}
