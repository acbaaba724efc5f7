package lobby

import (
	"fmt"
	"sync"
	"testing"

	"github.com/harryalloyd/battleship/internal/game"
)

func TestMatchmaker_Connect(t *testing.T) {
	m := NewMatchmaker()

	if room := m.Connect("a", Hooks{}); room != nil {
		t.Fatal("First connection should wait, not form a room")
	}
	if w, ok := m.Waiting(); !ok || w != "a" {
		t.Fatalf("Expected a waiting, got %q (%v)", w, ok)
	}

	room := m.Connect("b", Hooks{})
	if room == nil {
		t.Fatal("Second connection should form a room")
	}
	if _, ok := m.Waiting(); ok {
		t.Error("Waiting slot should be empty after pairing")
	}

	snap := room.Snapshot()
	if snap.Players != [2]game.ConnID{"a", "b"} {
		t.Errorf("Unexpected players %v", snap.Players)
	}
	if snap.Turn != "a" {
		t.Errorf("Player 1 should attack first, got %s", snap.Turn)
	}

	for _, c := range []game.ConnID{"a", "b"} {
		got, ok := m.RoomOf(c)
		if !ok || got != room {
			t.Errorf("RoomOf(%s) did not resolve to the new room", c)
		}
	}
	if got, ok := m.Room(room.ID); !ok || got != room {
		t.Error("Room(id) did not resolve to the new room")
	}

	if next := m.Connect("c", Hooks{}); next != nil {
		t.Error("Third connection should wait for a fourth")
	}
	if w, _ := m.Waiting(); w != "c" {
		t.Errorf("Expected c waiting, got %q", w)
	}
}

func TestMatchmaker_ConnectSameConnTwice(t *testing.T) {
	m := NewMatchmaker()
	m.Connect("a", Hooks{})
	if room := m.Connect("a", Hooks{}); room != nil {
		t.Error("A connection must never be paired with itself")
	}
}

func TestMatchmaker_Disconnect(t *testing.T) {
	t.Run("waiting connection", func(t *testing.T) {
		m := NewMatchmaker()
		m.Connect("a", Hooks{})
		room, wasWaiting := m.Disconnect("a")
		if room != nil || !wasWaiting {
			t.Errorf("Expected only the waiting slot to clear, got room=%v waiting=%v", room, wasWaiting)
		}
		if _, ok := m.Waiting(); ok {
			t.Error("Waiting slot should be empty")
		}
		if next := m.Connect("b", Hooks{}); next != nil {
			t.Error("b should now wait instead of pairing with a departed connection")
		}
	})

	t.Run("player in a room", func(t *testing.T) {
		m := NewMatchmaker()
		m.Connect("a", Hooks{})
		created := m.Connect("b", Hooks{})

		room, wasWaiting := m.Disconnect("b")
		if wasWaiting {
			t.Error("b was never waiting")
		}
		if room != created {
			t.Fatal("Disconnect should return the removed room")
		}
		if m.Count() != 0 {
			t.Errorf("Expected no rooms, got %d", m.Count())
		}
		if _, ok := m.RoomOf("a"); ok {
			t.Error("The remaining player should no longer resolve to a room")
		}
		if room, _ := m.Disconnect("a"); room != nil {
			t.Error("Second disconnect of the same room should find nothing")
		}
	})

	t.Run("other rooms untouched", func(t *testing.T) {
		m := NewMatchmaker()
		m.Connect("a", Hooks{})
		m.Connect("b", Hooks{})
		m.Connect("c", Hooks{})
		other := m.Connect("d", Hooks{})

		m.Disconnect("a")
		for _, c := range []game.ConnID{"a", "b"} {
			if _, ok := m.RoomOf(c); ok {
				t.Errorf("%s should no longer resolve to a room", c)
			}
		}
		for _, c := range []game.ConnID{"c", "d"} {
			if r, ok := m.RoomOf(c); !ok || r != other {
				t.Errorf("%s should still be in its room", c)
			}
		}
		if m.Count() != 1 {
			t.Errorf("Expected one room left, got %d", m.Count())
		}
	})

	t.Run("unknown connection", func(t *testing.T) {
		m := NewMatchmaker()
		room, wasWaiting := m.Disconnect("ghost")
		if room != nil || wasWaiting {
			t.Error("Unknown connection should be a no-op")
		}
	})
}

func TestMatchmaker_ConcurrentConnect(t *testing.T) {
	m := NewMatchmaker()
	const n = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	paired := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if room := m.Connect(game.ConnID(fmt.Sprintf("conn-%d", i)), Hooks{}); room != nil {
				mu.Lock()
				paired++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if paired != n/2 {
		t.Errorf("Expected %d rooms, got %d", n/2, paired)
	}
	if m.Count() != n/2 {
		t.Errorf("Expected %d stored rooms, got %d", n/2, m.Count())
	}
	if _, ok := m.Waiting(); ok {
		t.Error("An even number of connections should leave nobody waiting")
	}
}

func TestMatchmaker_RoomsOrdered(t *testing.T) {
	m := NewMatchmaker()
	for i := 0; i < 6; i++ {
		m.Connect(game.ConnID(fmt.Sprintf("c%d", i)), Hooks{})
	}
	rooms := m.Rooms()
	if len(rooms) != 3 {
		t.Fatalf("Expected 3 rooms, got %d", len(rooms))
	}
	for i := 1; i < len(rooms); i++ {
		if rooms[i].Created.Before(rooms[i-1].Created) {
			t.Error("Rooms() should list oldest first")
		}
	}
}

func TestRoom_Do(t *testing.T) {
	m := NewMatchmaker()
	m.Connect("a", Hooks{})
	room := m.Connect("b", Hooks{})

	ok := room.Do(func(s *game.Session) {
		s.PlayerReady("a")
	})
	if !ok {
		t.Fatal("Do should run on a live room")
	}
	if got := room.Snapshot().ReadyCount; got != 1 {
		t.Errorf("Expected ReadyCount 1, got %d", got)
	}
}

func TestRoom_End(t *testing.T) {
	m := NewMatchmaker()
	m.Connect("a", Hooks{})
	room := m.Connect("b", Hooks{})

	calls := 0
	if !room.End(func(*game.Session) { calls++ }) {
		t.Fatal("First End should run")
	}
	if room.End(func(*game.Session) { calls++ }) {
		t.Error("Second End should be a no-op")
	}
	if room.Do(func(*game.Session) { calls++ }) {
		t.Error("Do after End should be a no-op")
	}
	if calls != 1 {
		t.Errorf("Expected exactly one call, got %d", calls)
	}
}

func TestMatchmaker_Hooks(t *testing.T) {
	m := NewMatchmaker()
	var waited []game.ConnID
	var opened *game.Session
	hooks := Hooks{
		OnWait: func(c game.ConnID) { waited = append(waited, c) },
		OnOpen: func(s *game.Session) { opened = s },
	}

	m.Connect("a", hooks)
	room := m.Connect("b", hooks)

	if len(waited) != 1 || waited[0] != "a" {
		t.Errorf("OnWait should run once for a, got %v", waited)
	}
	if opened == nil || opened.ID != room.ID {
		t.Error("OnOpen should receive the new room's session")
	}
}

func TestMatchmaker_ConnectOpenRunsFirst(t *testing.T) {
	m := NewMatchmaker()
	m.Connect("a", Hooks{})

	var order []string
	release := make(chan struct{})
	done := make(chan struct{})

	room := m.Connect("b", Hooks{OnOpen: func(s *game.Session) {
		order = append(order, "open")
		go func() {
			defer close(done)
			r, ok := m.RoomOf("a")
			if !ok {
				t.Error("Room should be published while open runs")
				return
			}
			close(release)
			r.Do(func(*game.Session) { order = append(order, "event") })
		}()
		<-release
	}})
	<-done

	if room == nil {
		t.Fatal("Expected a room")
	}
	if len(order) != 2 || order[0] != "open" || order[1] != "event" {
		t.Errorf("Open must finish before other handlers run, got %v", order)
	}
}
