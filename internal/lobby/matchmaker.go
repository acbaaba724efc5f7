// Package lobby pairs waiting connections into rooms and stores the rooms.
package lobby

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harryalloyd/battleship/internal/game"
)

// Room owns one Game Session and serializes every operation on it.
type Room struct {
	ID      game.RoomID
	Created time.Time

	mu      sync.Mutex
	session *game.Session
	ended   bool
}

// Do runs fn with exclusive access to the room's session. Outbound messages
// produced by fn should be delivered inside fn so they keep handling order.
// It reports false, without calling fn, once the room has ended.
func (r *Room) Do(fn func(s *game.Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return false
	}
	fn(r.session)
	return true
}

// End runs fn as the room's last operation. Later Do and End calls are no-ops.
func (r *Room) End(fn func(s *game.Session)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return false
	}
	r.ended = true
	fn(r.session)
	return true
}

func (r *Room) Snapshot() game.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Snapshot()
}

// Matchmaker holds the waiting slot and the room store.
type Matchmaker struct {
	mu      sync.RWMutex
	waiting game.ConnID // "" when nobody waits
	rooms   map[game.RoomID]*Room
	byConn  map[game.ConnID]game.RoomID
	newID   func() game.RoomID
}

func NewMatchmaker() *Matchmaker {
	return &Matchmaker{
		rooms:  make(map[game.RoomID]*Room),
		byConn: make(map[game.ConnID]game.RoomID),
		newID:  func() game.RoomID { return game.RoomID(uuid.NewString()) },
	}
}

// Hooks announce the outcome of Connect. Either may be nil.
type Hooks struct {
	// OnWait runs under the lobby lock, before anyone can pair with c.
	OnWait func(c game.ConnID)
	// OnOpen runs with the new room locked, before any event can reach it.
	OnOpen func(s *game.Session)
}

// Connect parks c in the waiting slot, or pairs it with whoever waits there.
// It returns the new room when a pairing formed, nil otherwise.
func (m *Matchmaker) Connect(c game.ConnID, h Hooks) *Room {
	m.mu.Lock()
	if m.waiting == "" || m.waiting == c {
		m.waiting = c
		if h.OnWait != nil {
			h.OnWait(c)
		}
		m.mu.Unlock()
		return nil
	}

	w := m.waiting
	m.waiting = ""
	id := m.newID()
	room := &Room{
		ID:      id,
		Created: time.Now(),
		session: game.NewSession(id, w, c),
	}
	room.mu.Lock()
	m.rooms[id] = room
	m.byConn[w] = id
	m.byConn[c] = id
	m.mu.Unlock()

	defer room.mu.Unlock()
	if h.OnOpen != nil {
		h.OnOpen(room.session)
	}
	return room
}

// Disconnect clears c from the waiting slot and removes its room, if any.
// The removed room is returned so the caller can notify its other player.
func (m *Matchmaker) Disconnect(c game.ConnID) (room *Room, wasWaiting bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.waiting == c {
		m.waiting = ""
		wasWaiting = true
	}

	id, ok := m.byConn[c]
	if !ok {
		return nil, wasWaiting
	}
	room = m.rooms[id]
	delete(m.rooms, id)
	// Players never change after pairing, so they are read without room.mu.
	for _, p := range room.session.Players {
		delete(m.byConn, p)
	}
	return room, wasWaiting
}

func (m *Matchmaker) Room(id game.RoomID) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

func (m *Matchmaker) RoomOf(c game.ConnID) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byConn[c]
	if !ok {
		return nil, false
	}
	r, ok := m.rooms[id]
	return r, ok
}

// Waiting returns the connection in the waiting slot.
func (m *Matchmaker) Waiting() (game.ConnID, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waiting, m.waiting != ""
}

// Rooms lists active rooms, oldest first.
func (m *Matchmaker) Rooms() []*Room {
	m.mu.RLock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Created.Before(out[j].Created) })
	return out
}

func (m *Matchmaker) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rooms)
}
