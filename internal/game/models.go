package game

import "time"

// ConnID is the transport's stable identifier for one network session.
type ConnID string

// RoomID identifies a pairing of two connections.
type RoomID string

const (
	PlayersPerRoom = 2
	BoardSize      = 10
)

type Phase int

const (
	PhasePlacement Phase = iota
	PhaseBattle
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhasePlacement:
		return "placement"
	case PhaseBattle:
		return "battle"
	case PhaseEnded:
		return "ended"
	}
	return "unknown"
}

// Coord is a cell on the opponent's grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) InBounds() bool {
	return c.X >= 0 && c.X < BoardSize && c.Y >= 0 && c.Y < BoardSize
}

type Result string

const (
	Hit  Result = "hit"
	Miss Result = "miss"
)

// Tally counts what an attacker did, as reported by the defender.
// It is bookkeeping for analytics and history, never for shot legality.
type Tally struct {
	Shots  int `json:"shots"`
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// Outbound payloads

type FiredPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type FireResultPayload struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Result Result `json:"result"`
}

type UsernamesPayload struct {
	P1 string `json:"p1"`
	P2 string `json:"p2"`
}

type ChatPayload struct {
	From     ConnID `json:"from"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

// Snapshot is a read-only copy of a session for admin tools and history.
type Snapshot struct {
	Room         RoomID           `json:"room"`
	Phase        string           `json:"phase"`
	Players      [2]ConnID        `json:"players"`
	Usernames    [2]string        `json:"usernames"`
	Turn         ConnID           `json:"turn"`
	ReadyCount   int              `json:"readyCount"`
	DoneCount    int              `json:"doneCount"`
	RematchCount int              `json:"rematchCount"`
	ShotsTaken   int              `json:"shotsTaken"`
	Fired        map[ConnID]int   `json:"fired"`
	Tally        map[ConnID]Tally `json:"tally"`
	Rounds       int              `json:"rounds"`
	Started      time.Time        `json:"started"`
}
