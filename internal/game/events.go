package game

// Inbound client events.
const (
	EventPlayerReady    = "playerReady"
	EventPlayerDone     = "playerDone"
	EventSetUsername    = "setUsername"
	EventFire           = "fire"
	EventFireResult     = "fireResult"
	EventChatMessage    = "chatMessage"
	EventRequestRematch = "requestRematch"
)

// Outbound server events.
const (
	EventPlayerNumber         = "playerNumber"
	EventAssignRoom           = "assignRoom"
	EventMessage              = "message"
	EventBothPlayersConnected = "bothPlayersConnected"
	EventBothPlayersReady     = "bothPlayersReady"
	EventBothPlayersDone      = "bothPlayersDone"
	EventTurn                 = "turn"
	EventFired                = "fired"
	EventFireResultForShooter = "fireResultForShooter"
	EventUpdateUsernames      = "updateUsernames"
	EventRematchStart         = "rematchStart"
	EventError                = "error"
)

// Message is one outbound event. Exactly one of To or Room is set;
// a Room message goes to every connection joined to that room.
type Message struct {
	To      ConnID
	Room    RoomID
	Event   string
	Payload any
}

func sendTo(c ConnID, event string, payload any) Message {
	return Message{To: c, Event: event, Payload: payload}
}

func broadcast(r RoomID, event string, payload any) Message {
	return Message{Room: r, Event: event, Payload: payload}
}

// WaitingMessages are sent to a connection parked in the waiting slot.
func WaitingMessages(c ConnID) []Message {
	return []Message{
		sendTo(c, EventMessage, "Waiting for another player..."),
		sendTo(c, EventPlayerNumber, "1"),
	}
}

// DisconnectMessages end the room for whoever is still in it.
func DisconnectMessages(r RoomID) []Message {
	return []Message{broadcast(r, EventMessage, "Opponent disconnected. Game over.")}
}
