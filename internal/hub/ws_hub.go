package hub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harryalloyd/battleship/internal/game"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSMessage is the frame format in both directions: {"type": ..., "data": ...}.
type WSMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Inbound is a client frame with its payload left undecoded.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Conn is one client connection. Writes go through the send queue so that
// callers never block on the network.
type Conn struct {
	ID  game.ConnID
	ws  *websocket.Conn
	hub *Hub

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// Hub tracks live connections and their room membership.
type Hub struct {
	mu      sync.RWMutex
	conns   map[game.ConnID]*Conn
	rooms   map[game.RoomID]map[game.ConnID]struct{}
	sendBuf int
}

func NewHub(sendBuf int) *Hub {
	if sendBuf <= 0 {
		sendBuf = 64
	}
	return &Hub{
		conns:   make(map[game.ConnID]*Conn),
		rooms:   make(map[game.RoomID]map[game.ConnID]struct{}),
		sendBuf: sendBuf,
	}
}

// Upgrade switches the request to a WebSocket and registers the connection.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	c := h.register(ws)
	go c.writePump()
	return c, nil
}

func (h *Hub) register(ws *websocket.Conn) *Conn {
	c := &Conn{
		ID:   game.ConnID(uuid.NewString()),
		ws:   ws,
		hub:  h,
		send: make(chan []byte, h.sendBuf),
	}
	h.mu.Lock()
	h.conns[c.ID] = c
	h.mu.Unlock()
	return c
}

// Unregister forgets the connection, drops it from every room and stops its
// write pump.
func (h *Hub) Unregister(id game.ConnID) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	for rid, members := range h.rooms {
		delete(members, id)
		if len(members) == 0 {
			delete(h.rooms, rid)
		}
	}
	h.mu.Unlock()

	if ok {
		c.shutdown()
	}
}

func (h *Hub) JoinRoom(id game.ConnID, room game.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[id]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[game.ConnID]struct{})
	}
	h.rooms[room][id] = struct{}{}
}

func (h *Hub) CloseRoom(room game.RoomID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, room)
}

func (h *Hub) Send(id game.ConnID, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		log.Printf("encode %s err: %v", event, err)
		return
	}
	h.mu.RLock()
	c := h.conns[id]
	h.mu.RUnlock()
	if c == nil {
		return
	}
	c.enqueue(data)
}

func (h *Hub) Broadcast(room game.RoomID, event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		log.Printf("encode %s err: %v", event, err)
		return
	}
	h.mu.RLock()
	targets := make([]*Conn, 0, game.PlayersPerRoom)
	for id := range h.rooms[room] {
		if c := h.conns[id]; c != nil {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// Count returns the number of live connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func encode(event string, payload any) ([]byte, error) {
	return json.Marshal(WSMessage{Type: event, Data: payload})
}

// enqueue queues a frame. A connection that cannot keep up is closed; its
// read loop then ends and the normal disconnect path runs.
func (c *Conn) enqueue(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("conn %s send queue full, closing", c.ID)
		if c.ws != nil {
			c.ws.Close()
		}
	}
}

func (c *Conn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// ReadLoop reads frames until the connection fails, handing each decoded
// frame to handle. Malformed frames are logged and skipped.
func (c *Conn) ReadLoop(handle func(Inbound)) {
	defer c.ws.Close()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("conn %s read err: %v", c.ID, err)
			}
			return
		}
		var msg Inbound
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			log.Printf("conn %s sent malformed frame: %q", c.ID, raw)
			continue
		}
		handle(msg)
	}
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
