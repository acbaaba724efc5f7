package game

import "time"

// Session is the authoritative state of one room. It is not safe for
// concurrent use; the room that owns it serializes every call.
type Session struct {
	ID      RoomID
	Players [2]ConnID // index 0 is Player 1
	Turn    ConnID    // current attacker, always one of Players
	Phase   Phase

	ReadyCount   int
	DoneCount    int
	RematchCount int
	ShotsTaken   int

	Rounds  int
	Started time.Time

	fired     map[ConnID]map[Coord]struct{}
	usernames map[ConnID]string
	tally     map[ConnID]*Tally
}

func NewSession(id RoomID, p1, p2 ConnID) *Session {
	s := &Session{
		ID:        id,
		Players:   [2]ConnID{p1, p2},
		Turn:      p1,
		Phase:     PhasePlacement,
		Rounds:    1,
		Started:   time.Now(),
		usernames: make(map[ConnID]string),
		tally:     map[ConnID]*Tally{p1: {}, p2: {}},
	}
	s.resetFired()
	return s
}

// Open returns the notifications that announce a freshly paired room.
// Both connections must already be joined to the room.
func (s *Session) Open() []Message {
	p1, p2 := s.Players[0], s.Players[1]
	return []Message{
		sendTo(p1, EventAssignRoom, string(s.ID)),
		sendTo(p2, EventAssignRoom, string(s.ID)),
		sendTo(p1, EventPlayerNumber, "1"),
		sendTo(p2, EventPlayerNumber, "2"),
		sendTo(p1, EventMessage, "Game started! Your turn. (You are Player 1)"),
		sendTo(p2, EventMessage, "Game started! Opponent's turn. (You are Player 2)"),
		s.turnMessage(),
		broadcast(s.ID, EventBothPlayersConnected, nil),
	}
}

func (s *Session) Has(c ConnID) bool {
	return s.index(c) >= 0
}

// Opponent returns the other player, or "" if c is not in the room.
func (s *Session) Opponent(c ConnID) ConnID {
	switch c {
	case s.Players[0]:
		return s.Players[1]
	case s.Players[1]:
		return s.Players[0]
	}
	return ""
}

// Username returns the display name of c, falling back to "Player N" when
// none or an empty one was set.
func (s *Session) Username(c ConnID) string {
	if name := s.usernames[c]; name != "" {
		return name
	}
	if s.index(c) == 1 {
		return "Player 2"
	}
	return "Player 1"
}

// ShotPending reports whether the attacker has fired this turn and is
// waiting on a verdict.
func (s *Session) ShotPending() bool {
	return s.ShotsTaken == 1
}

// HasFired reports whether c has already targeted at this round.
func (s *Session) HasFired(c ConnID, at Coord) bool {
	_, ok := s.fired[c][at]
	return ok
}

func (s *Session) PlayerReady(c ConnID) []Message {
	if s.ReadyCount >= PlayersPerRoom {
		return nil
	}
	s.ReadyCount++
	if s.ReadyCount < PlayersPerRoom {
		return nil
	}
	return []Message{broadcast(s.ID, EventBothPlayersReady, nil)}
}

func (s *Session) PlayerDone(c ConnID) []Message {
	if s.DoneCount >= PlayersPerRoom {
		return nil
	}
	s.DoneCount++
	if s.DoneCount < PlayersPerRoom {
		return nil
	}
	s.Phase = PhaseBattle
	return []Message{
		broadcast(s.ID, EventBothPlayersDone, nil),
		s.turnMessage(),
	}
}

// Fire records a shot by c at the opponent's grid.
//
// A duplicate position keeps the turn and re-sends it so the attacker can
// retry. The position is recorded before the one-shot-per-turn check, so a
// rejected extra shot still consumes its position.
func (s *Session) Fire(c ConnID, at Coord) ([]Message, error) {
	if !at.InBounds() {
		return nil, ErrInvalidPayload
	}
	if c != s.Turn {
		return nil, ErrNotYourTurn
	}
	mine := s.fired[c]
	if _, dup := mine[at]; dup {
		return []Message{s.turnMessage()}, ErrDuplicateShot
	}
	mine[at] = struct{}{}

	if s.ShotsTaken >= 1 {
		return nil, ErrTurnExhausted
	}
	s.ShotsTaken++
	s.tally[c].Shots++
	return []Message{sendTo(s.Opponent(c), EventFired, FiredPayload{X: at.X, Y: at.Y})}, nil
}

// FireResult relays the defender's verdict to the attacker and hands the
// turn over. The verdict is trusted as reported; it only counts toward the
// tally when a shot is pending.
func (s *Session) FireResult(c ConnID, at Coord, result Result) ([]Message, error) {
	if !at.InBounds() || (result != Hit && result != Miss) {
		return nil, ErrInvalidPayload
	}
	attacker := s.Turn
	if s.ShotPending() {
		if result == Hit {
			s.tally[attacker].Hits++
		} else {
			s.tally[attacker].Misses++
		}
	}
	msgs := []Message{sendTo(attacker, EventFireResultForShooter, FireResultPayload{X: at.X, Y: at.Y, Result: result})}

	s.switchTurn()
	return append(msgs, s.turnMessage()), nil
}

func (s *Session) RequestRematch(c ConnID) []Message {
	s.RematchCount++
	if s.RematchCount < PlayersPerRoom {
		s.Phase = PhaseEnded
		return nil
	}

	s.ShotsTaken = 0
	s.ReadyCount = 0
	s.DoneCount = 0
	s.RematchCount = 0
	s.Turn = s.Players[0]
	s.Phase = PhasePlacement
	s.Rounds++
	s.resetFired()

	return []Message{
		broadcast(s.ID, EventRematchStart, nil),
		s.turnMessage(),
	}
}

func (s *Session) SetUsername(c ConnID, name string) []Message {
	s.usernames[c] = name
	return []Message{broadcast(s.ID, EventUpdateUsernames, UsernamesPayload{
		P1: s.Username(s.Players[0]),
		P2: s.Username(s.Players[1]),
	})}
}

func (s *Session) Chat(c ConnID, text string) []Message {
	return []Message{broadcast(s.ID, EventChatMessage, ChatPayload{
		From:     c,
		Username: s.Username(c),
		Text:     text,
	})}
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Room:         s.ID,
		Phase:        s.Phase.String(),
		Players:      s.Players,
		Usernames:    [2]string{s.Username(s.Players[0]), s.Username(s.Players[1])},
		Turn:         s.Turn,
		ReadyCount:   s.ReadyCount,
		DoneCount:    s.DoneCount,
		RematchCount: s.RematchCount,
		ShotsTaken:   s.ShotsTaken,
		Fired:        make(map[ConnID]int, PlayersPerRoom),
		Tally:        make(map[ConnID]Tally, PlayersPerRoom),
		Rounds:       s.Rounds,
		Started:      s.Started,
	}
	for _, p := range s.Players {
		snap.Fired[p] = len(s.fired[p])
		snap.Tally[p] = *s.tally[p]
	}
	return snap
}

func (s *Session) switchTurn() {
	s.Turn = s.Opponent(s.Turn)
	s.ShotsTaken = 0
}

func (s *Session) turnMessage() Message {
	return sendTo(s.Turn, EventTurn, string(s.Turn))
}

func (s *Session) resetFired() {
	s.fired = map[ConnID]map[Coord]struct{}{
		s.Players[0]: {},
		s.Players[1]: {},
	}
}

func (s *Session) index(c ConnID) int {
	for i, p := range s.Players {
		if p == c {
			return i
		}
	}
	return -1
}
