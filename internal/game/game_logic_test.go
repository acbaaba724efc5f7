package game

import (
	"errors"
	"testing"
)

const (
	alice ConnID = "alice"
	bob   ConnID = "bob"
)

func newTestSession() *Session {
	return NewSession("room-1", alice, bob)
}

func findEvent(msgs []Message, event string) (Message, bool) {
	for _, m := range msgs {
		if m.Event == event {
			return m, true
		}
	}
	return Message{}, false
}

func countEvent(msgs []Message, event string) int {
	n := 0
	for _, m := range msgs {
		if m.Event == event {
			n++
		}
	}
	return n
}

func TestNewSession(t *testing.T) {
	s := newTestSession()

	if s.Turn != alice {
		t.Errorf("Expected Player 1 to attack first, got %s", s.Turn)
	}
	if s.Phase != PhasePlacement {
		t.Errorf("Expected placement phase, got %s", s.Phase)
	}
	if s.Opponent(alice) != bob || s.Opponent(bob) != alice {
		t.Error("Opponent() did not pair the two players")
	}
	if s.Opponent("mallory") != "" {
		t.Error("Opponent() of a stranger should be empty")
	}
	if s.Username(alice) != "Player 1" || s.Username(bob) != "Player 2" {
		t.Errorf("Unexpected placeholder names %q / %q", s.Username(alice), s.Username(bob))
	}
}

func TestSession_Open(t *testing.T) {
	s := newTestSession()
	msgs := s.Open()

	assigned := 0
	for _, m := range msgs {
		if m.Event == EventAssignRoom {
			assigned++
			if m.Payload != string(s.ID) {
				t.Errorf("assignRoom carried %v, want %s", m.Payload, s.ID)
			}
		}
	}
	if assigned != 2 {
		t.Errorf("Expected assignRoom for both players, got %d", assigned)
	}

	turn, ok := findEvent(msgs, EventTurn)
	if !ok || turn.To != alice || turn.Payload != string(alice) {
		t.Errorf("Expected turn(alice) sent to alice, got %+v", turn)
	}

	connected, ok := findEvent(msgs, EventBothPlayersConnected)
	if !ok || connected.Room != s.ID {
		t.Errorf("Expected bothPlayersConnected broadcast to room, got %+v", connected)
	}

	for _, m := range msgs {
		if m.Event != EventPlayerNumber {
			continue
		}
		want := "1"
		if m.To == bob {
			want = "2"
		}
		if m.Payload != want {
			t.Errorf("playerNumber for %s = %v, want %s", m.To, m.Payload, want)
		}
	}
}

func TestSession_ReadyAndDone(t *testing.T) {
	s := newTestSession()

	if msgs := s.PlayerReady(alice); len(msgs) != 0 {
		t.Errorf("First ready should not broadcast, got %+v", msgs)
	}
	msgs := s.PlayerReady(bob)
	if _, ok := findEvent(msgs, EventBothPlayersReady); !ok {
		t.Error("Expected bothPlayersReady after second ready")
	}
	if s.Turn != alice {
		t.Error("playerReady must not change the turn")
	}
	if msgs := s.PlayerReady(bob); len(msgs) != 0 {
		t.Error("Ready beyond two players should be ignored")
	}
	if s.ReadyCount != 2 {
		t.Errorf("ReadyCount should cap at 2, got %d", s.ReadyCount)
	}

	s.PlayerDone(alice)
	if s.Phase != PhasePlacement {
		t.Error("One done player should not start the battle")
	}
	msgs = s.PlayerDone(bob)
	if _, ok := findEvent(msgs, EventBothPlayersDone); !ok {
		t.Error("Expected bothPlayersDone after second done")
	}
	turn, ok := findEvent(msgs, EventTurn)
	if !ok || turn.To != alice {
		t.Errorf("Expected turn re-asserted to alice, got %+v", turn)
	}
	if s.Phase != PhaseBattle {
		t.Errorf("Expected battle phase, got %s", s.Phase)
	}
}

func TestSession_Fire(t *testing.T) {
	t.Run("relays to defender only", func(t *testing.T) {
		s := newTestSession()
		msgs, err := s.Fire(alice, Coord{X: 5, Y: 5})
		if err != nil {
			t.Fatalf("Fire failed: %v", err)
		}
		if len(msgs) != 1 {
			t.Fatalf("Expected a single fired message, got %+v", msgs)
		}
		if msgs[0].Event != EventFired || msgs[0].To != bob {
			t.Errorf("Expected fired sent to bob, got %+v", msgs[0])
		}
		if msgs[0].Payload != (FiredPayload{X: 5, Y: 5}) {
			t.Errorf("Unexpected payload %+v", msgs[0].Payload)
		}
		if s.ShotsTaken != 1 {
			t.Errorf("Expected ShotsTaken 1, got %d", s.ShotsTaken)
		}
	})

	t.Run("not your turn", func(t *testing.T) {
		s := newTestSession()
		msgs, err := s.Fire(bob, Coord{X: 1, Y: 1})
		if !errors.Is(err, ErrNotYourTurn) {
			t.Fatalf("Expected ErrNotYourTurn, got %v", err)
		}
		if len(msgs) != 0 || s.ShotsTaken != 0 || s.HasFired(bob, Coord{X: 1, Y: 1}) {
			t.Error("A rejected out-of-turn shot must not mutate state")
		}
	})

	t.Run("second shot in a turn is exhausted", func(t *testing.T) {
		s := newTestSession()
		if _, err := s.Fire(alice, Coord{X: 0, Y: 0}); err != nil {
			t.Fatal(err)
		}
		msgs, err := s.Fire(alice, Coord{X: 0, Y: 1})
		if !errors.Is(err, ErrTurnExhausted) {
			t.Fatalf("Expected ErrTurnExhausted, got %v", err)
		}
		if countEvent(msgs, EventFired) != 0 {
			t.Error("An exhausted shot must not emit fired")
		}
		if !s.HasFired(alice, Coord{X: 0, Y: 1}) {
			t.Error("An exhausted shot still consumes its position")
		}
		if s.ShotsTaken != 1 {
			t.Errorf("Expected ShotsTaken to stay 1, got %d", s.ShotsTaken)
		}
	})

	t.Run("duplicate across turns keeps the turn", func(t *testing.T) {
		s := newTestSession()
		at := Coord{X: 3, Y: 7}
		if _, err := s.Fire(alice, at); err != nil {
			t.Fatal(err)
		}
		if _, err := s.FireResult(bob, at, Miss); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Fire(bob, Coord{X: 9, Y: 9}); err != nil {
			t.Fatal(err)
		}
		if _, err := s.FireResult(alice, Coord{X: 9, Y: 9}, Hit); err != nil {
			t.Fatal(err)
		}

		msgs, err := s.Fire(alice, at)
		if !errors.Is(err, ErrDuplicateShot) {
			t.Fatalf("Expected ErrDuplicateShot, got %v", err)
		}
		if s.Turn != alice {
			t.Error("A duplicate shot must not flip the turn")
		}
		if s.ShotsTaken != 0 {
			t.Error("A duplicate shot must not consume the turn")
		}
		turn, ok := findEvent(msgs, EventTurn)
		if !ok || turn.To != alice {
			t.Errorf("Expected turn re-sent to alice, got %+v", msgs)
		}

		if _, err := s.Fire(alice, Coord{X: 4, Y: 7}); err != nil {
			t.Errorf("Retry after duplicate should be accepted, got %v", err)
		}
	})

	t.Run("fired sets are per attacker", func(t *testing.T) {
		s := newTestSession()
		at := Coord{X: 2, Y: 2}
		s.Fire(alice, at)
		s.FireResult(bob, at, Hit)
		if _, err := s.Fire(bob, at); err != nil {
			t.Errorf("Bob's first shot at (2,2) should be legal, got %v", err)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		s := newTestSession()
		for _, at := range []Coord{{X: -1, Y: 0}, {X: 0, Y: 10}, {X: 10, Y: 10}} {
			if _, err := s.Fire(alice, at); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Fire(%+v): expected ErrInvalidPayload, got %v", at, err)
			}
		}
		if s.ShotsTaken != 0 {
			t.Error("Rejected coordinates must not count as a shot")
		}
	})
}

func TestSession_FireResult(t *testing.T) {
	s := newTestSession()
	s.Fire(alice, Coord{X: 5, Y: 5})

	before := s.Turn
	msgs, err := s.FireResult(bob, Coord{X: 5, Y: 5}, Miss)
	if err != nil {
		t.Fatalf("FireResult failed: %v", err)
	}

	relay, ok := findEvent(msgs, EventFireResultForShooter)
	if !ok || relay.To != alice {
		t.Fatalf("Expected result relayed to alice, got %+v", msgs)
	}
	want := FireResultPayload{X: 5, Y: 5, Result: Miss}
	if relay.Payload != want {
		t.Errorf("Relay payload = %+v, want %+v", relay.Payload, want)
	}

	if s.Turn == before || s.Turn != s.Opponent(before) {
		t.Errorf("Turn should flip from %s, got %s", before, s.Turn)
	}
	if s.ShotsTaken != 0 {
		t.Errorf("ShotsTaken should reset, got %d", s.ShotsTaken)
	}
	turn, ok := findEvent(msgs, EventTurn)
	if !ok || turn.To != bob || turn.Payload != string(bob) {
		t.Errorf("Expected turn(bob) sent to bob, got %+v", turn)
	}

	if _, err := s.FireResult(alice, Coord{X: 1, Y: 1}, "sunk"); !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Expected ErrInvalidPayload for unknown result, got %v", err)
	}

	tally := s.Snapshot().Tally[alice]
	if tally.Shots != 1 || tally.Misses != 1 || tally.Hits != 0 {
		t.Errorf("Unexpected tally for alice: %+v", tally)
	}
}

func TestSession_FireResultWithoutShot(t *testing.T) {
	s := newTestSession()

	for i := 0; i < 4; i++ {
		before := s.Turn
		msgs, err := s.FireResult(alice, Coord{X: 1, Y: 1}, Hit)
		if err != nil {
			t.Fatalf("FireResult failed: %v", err)
		}
		if s.Turn != s.Opponent(before) {
			t.Errorf("Turn should still flip from %s, got %s", before, s.Turn)
		}
		if _, ok := findEvent(msgs, EventFireResultForShooter); !ok {
			t.Errorf("The verdict should still be relayed, got %+v", msgs)
		}
	}

	snap := s.Snapshot()
	for _, p := range s.Players {
		if snap.Tally[p] != (Tally{}) {
			t.Errorf("Verdicts without a shot must not count, %s has %+v", p, snap.Tally[p])
		}
	}

	s.Fire(s.Turn, Coord{X: 2, Y: 2})
	shooter := s.Turn
	s.FireResult(s.Opponent(shooter), Coord{X: 2, Y: 2}, Hit)
	if got := s.Snapshot().Tally[shooter]; got != (Tally{Shots: 1, Hits: 1}) {
		t.Errorf("Expected one counted hit, got %+v", got)
	}
}

func TestSession_RequestRematch(t *testing.T) {
	s := newTestSession()
	s.SetUsername(alice, "Alice")
	s.PlayerReady(alice)
	s.PlayerReady(bob)
	s.PlayerDone(alice)
	s.PlayerDone(bob)
	s.Fire(alice, Coord{X: 1, Y: 1})
	s.FireResult(bob, Coord{X: 1, Y: 1}, Hit)
	s.Fire(bob, Coord{X: 2, Y: 2})

	if msgs := s.RequestRematch(alice); len(msgs) != 0 {
		t.Errorf("One rematch request should not start a rematch, got %+v", msgs)
	}
	if s.RematchCount != 1 {
		t.Errorf("Expected RematchCount 1, got %d", s.RematchCount)
	}
	if s.Phase != PhaseEnded {
		t.Errorf("Expected ended phase while waiting for rematch, got %s", s.Phase)
	}

	msgs := s.RequestRematch(bob)
	if _, ok := findEvent(msgs, EventRematchStart); !ok {
		t.Fatal("Expected rematchStart once both players asked")
	}
	turn, ok := findEvent(msgs, EventTurn)
	if !ok || turn.To != alice {
		t.Errorf("Expected turn re-asserted to Player 1, got %+v", turn)
	}

	snap := s.Snapshot()
	if snap.Fired[alice] != 0 || snap.Fired[bob] != 0 {
		t.Errorf("Fired sets should be empty after rematch, got %+v", snap.Fired)
	}
	if s.Turn != s.Players[0] {
		t.Error("Turn should return to Player 1")
	}
	if s.ReadyCount != 0 || s.DoneCount != 0 || s.RematchCount != 0 || s.ShotsTaken != 0 {
		t.Errorf("Counters not reset: %+v", snap)
	}
	if s.Phase != PhasePlacement || s.Rounds != 2 {
		t.Errorf("Expected placement phase of round 2, got %s round %d", s.Phase, s.Rounds)
	}
	if s.Username(alice) != "Alice" {
		t.Error("Usernames must survive a rematch")
	}
	if _, err := s.Fire(alice, Coord{X: 1, Y: 1}); err != nil {
		t.Errorf("Positions are fresh after rematch, got %v", err)
	}
}

func TestSession_SetUsernameAndChat(t *testing.T) {
	s := newTestSession()

	msgs := s.SetUsername(bob, "Bob")
	if len(msgs) != 1 || msgs[0].Room != s.ID || msgs[0].Event != EventUpdateUsernames {
		t.Fatalf("Expected updateUsernames broadcast, got %+v", msgs)
	}
	want := UsernamesPayload{P1: "Player 1", P2: "Bob"}
	if msgs[0].Payload != want {
		t.Errorf("Usernames = %+v, want %+v", msgs[0].Payload, want)
	}

	msgs = s.Chat(bob, "hello")
	if len(msgs) != 1 || msgs[0].Room != s.ID {
		t.Fatalf("Expected chat broadcast to room, got %+v", msgs)
	}
	chat := msgs[0].Payload.(ChatPayload)
	if chat.From != bob || chat.Username != "Bob" || chat.Text != "hello" {
		t.Errorf("Unexpected chat payload %+v", chat)
	}

	chat = s.Chat(alice, "hi")[0].Payload.(ChatPayload)
	if chat.Username != "Player 1" {
		t.Errorf("Expected placeholder name for alice, got %q", chat.Username)
	}

	msgs = s.SetUsername(bob, "")
	if msgs[0].Payload != (UsernamesPayload{P1: "Player 1", P2: "Player 2"}) {
		t.Errorf("An empty name should fall back to the placeholder, got %+v", msgs[0].Payload)
	}
}

func TestAdvisory(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrGameNotFound, "Game not found!"},
		{ErrNotYourTurn, "Not your turn!"},
		{ErrDuplicateShot, "You already fired that location. Try again!"},
		{ErrTurnExhausted, "You already fired this turn!"},
		{ErrInvalidPayload, "Invalid payload."},
	}
	for _, tt := range tests {
		if got := Advisory(tt.err); got != tt.want {
			t.Errorf("Advisory(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
