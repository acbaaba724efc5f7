// Package server routes client events to room sessions and serves HTTP.
package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/harryalloyd/battleship/internal/analytics"
	"github.com/harryalloyd/battleship/internal/game"
	"github.com/harryalloyd/battleship/internal/lobby"
	"github.com/harryalloyd/battleship/internal/store"
)

// Transport delivers outbound events. *hub.Hub implements it.
type Transport interface {
	Send(id game.ConnID, event string, payload any)
	Broadcast(room game.RoomID, event string, payload any)
	JoinRoom(id game.ConnID, room game.RoomID)
	CloseRoom(room game.RoomID)
}

// MatchStore keeps finished matches. *store.DB implements it.
type MatchStore interface {
	PersistAsync(m store.MatchRecord)
	QueryRecentMatches(ctx context.Context, limit int) ([]store.MatchRecord, error)
	QueryLeaderboard(ctx context.Context) ([]store.LBRow, error)
}

// EventSink receives analytics events. *analytics.Analytics implements it.
type EventSink interface {
	Emit(event string, payload map[string]any)
}

// App routes client events to room sessions. Store and Analytics are
// optional.
type App struct {
	Lobby     *lobby.Matchmaker
	Transport Transport
	Store     MatchStore
	Analytics EventSink

	validate *validator.Validate
}

func NewApp(l *lobby.Matchmaker, t Transport) *App {
	return &App{
		Lobby:     l,
		Transport: t,
		validate:  validator.New(),
	}
}

type firePayload struct {
	Room string `json:"room" validate:"required"`
	X    *int   `json:"x" validate:"required,min=0,max=9"`
	Y    *int   `json:"y" validate:"required,min=0,max=9"`
}

type fireResultPayload struct {
	Room   string `json:"room" validate:"required"`
	X      *int   `json:"x" validate:"required,min=0,max=9"`
	Y      *int   `json:"y" validate:"required,min=0,max=9"`
	Result string `json:"result" validate:"required,oneof=hit miss"`
}

// An empty username is stored and reads back as "Player N".
const (
	usernameRules = "max=32"
	chatRules     = "required,max=500"
)

// Connect parks c in the lobby or opens a room with the waiting connection.
func (a *App) Connect(c game.ConnID) {
	room := a.Lobby.Connect(c, lobby.Hooks{
		OnWait: func(c game.ConnID) {
			a.deliver(game.WaitingMessages(c))
		},
		OnOpen: func(s *game.Session) {
			for _, p := range s.Players {
				a.Transport.JoinRoom(p, s.ID)
			}
			a.deliver(s.Open())
			a.emit(analytics.EventMatchPaired, map[string]any{
				"room": s.ID, "p1": s.Players[0], "p2": s.Players[1],
			})
		},
	})
	if room != nil {
		log.Printf("room %s opened", room.ID)
	}
}

// Disconnect clears c from the lobby and ends its room, telling whoever is
// left. The leaving connection must already be gone from the transport.
func (a *App) Disconnect(c game.ConnID) {
	room, wasWaiting := a.Lobby.Disconnect(c)
	if wasWaiting {
		log.Printf("conn %s left the waiting slot", c)
	}
	if room == nil {
		return
	}

	var snap game.Snapshot
	ended := room.End(func(s *game.Session) {
		a.deliver(game.DisconnectMessages(room.ID))
		a.Transport.CloseRoom(room.ID)
		snap = s.Snapshot()
	})
	if !ended {
		return
	}

	now := time.Now()
	log.Printf("room %s closed after %s (conn %s left)", room.ID, now.Sub(snap.Started).Round(time.Second), c)
	a.emit(analytics.EventMatchEnd, map[string]any{
		"room":     room.ID,
		"reason":   store.EndDisconnect,
		"by":       c,
		"rounds":   snap.Rounds,
		"duration": now.Sub(snap.Started).String(),
	})
	if a.Store != nil {
		a.Store.PersistAsync(store.RecordFrom(snap, store.EndDisconnect, now))
	}
}

// Dispatch handles one inbound event from c. Unknown events are ignored.
func (a *App) Dispatch(c game.ConnID, event string, data json.RawMessage) {
	switch event {
	case game.EventPlayerReady:
		a.inRoom(c, func(s *game.Session) {
			msgs := s.PlayerReady(c)
			if len(msgs) > 0 {
				a.emit(analytics.EventMatchReady, map[string]any{"room": s.ID})
			}
			a.deliver(msgs)
		})

	case game.EventPlayerDone:
		a.inRoom(c, func(s *game.Session) {
			msgs := s.PlayerDone(c)
			if len(msgs) > 0 {
				a.emit(analytics.EventBattleStart, map[string]any{"room": s.ID, "round": s.Rounds})
			}
			a.deliver(msgs)
		})

	case game.EventSetUsername:
		var name string
		if err := a.decodeVar(data, &name, usernameRules); err != nil {
			a.advise(c, err)
			return
		}
		a.inRoom(c, func(s *game.Session) {
			a.deliver(s.SetUsername(c, name))
		})

	case game.EventChatMessage:
		var text string
		if err := a.decodeVar(data, &text, chatRules); err != nil {
			a.advise(c, err)
			return
		}
		a.inRoom(c, func(s *game.Session) {
			a.emit(analytics.EventChat, map[string]any{"room": s.ID, "by": c})
			a.deliver(s.Chat(c, text))
		})

	case game.EventRequestRematch:
		a.inRoom(c, func(s *game.Session) {
			msgs := s.RequestRematch(c)
			if len(msgs) > 0 {
				a.emit(analytics.EventRematch, map[string]any{"room": s.ID, "round": s.Rounds})
			}
			a.deliver(msgs)
		})

	case game.EventFire:
		a.fire(c, data)

	case game.EventFireResult:
		a.fireResult(c, data)

	default:
		log.Printf("conn %s sent unknown event %q", c, event)
	}
}

func (a *App) fire(c game.ConnID, data json.RawMessage) {
	var p firePayload
	if err := a.decode(data, &p); err != nil {
		a.advise(c, err)
		return
	}
	at := game.Coord{X: *p.X, Y: *p.Y}

	room, ok := a.Lobby.RoomOf(c)
	if !ok || string(room.ID) != p.Room {
		a.advise(c, game.ErrGameNotFound)
		return
	}
	ran := room.Do(func(s *game.Session) {
		msgs, err := s.Fire(c, at)
		if err != nil {
			a.advise(c, err)
			a.deliver(msgs)
			return
		}
		a.emit(analytics.EventShot, map[string]any{
			"room": s.ID, "by": c, "name": s.Username(c), "x": at.X, "y": at.Y,
		})
		a.deliver(msgs)
	})
	if !ran {
		a.advise(c, game.ErrGameNotFound)
	}
}

// fireResult is silently dropped when the room is gone.
func (a *App) fireResult(c game.ConnID, data json.RawMessage) {
	var p fireResultPayload
	if err := a.decode(data, &p); err != nil {
		a.advise(c, err)
		return
	}
	at := game.Coord{X: *p.X, Y: *p.Y}

	room, ok := a.Lobby.RoomOf(c)
	if !ok || string(room.ID) != p.Room {
		return
	}
	room.Do(func(s *game.Session) {
		attacker, pending := s.Turn, s.ShotPending()
		msgs, err := s.FireResult(c, at, game.Result(p.Result))
		if err != nil {
			a.advise(c, err)
			return
		}
		if pending {
			a.emit(analytics.EventShotResult, map[string]any{
				"room": s.ID, "by": attacker, "name": s.Username(attacker), "result": p.Result,
			})
		}
		a.deliver(msgs)
	})
}

// inRoom runs fn on c's room. Events from a connection without a room are
// dropped.
func (a *App) inRoom(c game.ConnID, fn func(s *game.Session)) {
	room, ok := a.Lobby.RoomOf(c)
	if !ok {
		return
	}
	room.Do(fn)
}

func (a *App) decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return game.ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return game.ErrInvalidPayload
	}
	if err := a.validate.Struct(v); err != nil {
		return game.ErrInvalidPayload
	}
	return nil
}

func (a *App) decodeVar(data json.RawMessage, v *string, rules string) error {
	if len(data) == 0 {
		return game.ErrInvalidPayload
	}
	if err := json.Unmarshal(data, v); err != nil {
		return game.ErrInvalidPayload
	}
	if err := a.validate.Var(*v, rules); err != nil {
		return game.ErrInvalidPayload
	}
	return nil
}

func (a *App) advise(c game.ConnID, err error) {
	a.Transport.Send(c, game.EventError, game.Advisory(err))
}

func (a *App) deliver(msgs []game.Message) {
	for _, m := range msgs {
		if m.To != "" {
			a.Transport.Send(m.To, m.Event, m.Payload)
		} else {
			a.Transport.Broadcast(m.Room, m.Event, m.Payload)
		}
	}
}

func (a *App) emit(event string, payload map[string]any) {
	if a.Analytics == nil {
		return
	}
	a.Analytics.Emit(event, payload)
}
