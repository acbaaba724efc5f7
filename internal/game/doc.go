// Package game holds the authoritative state of one Battleship room.
//
// A Session tracks the two players, whose turn it is, the shot taken this
// turn, each attacker's fired positions, the placement and rematch counters
// and display names. Its methods never talk to the network: each operation
// returns the outbound Messages it produced and the caller delivers them.
//
// Turn Flow:
//
//  1. Both players send playerReady, then playerDone once their ships are placed.
//  2. The attacker fires once; the shot is relayed to the defender only.
//  3. The defender reports hit or miss; the verdict goes to the attacker and
//     the turn passes to the defender.
//  4. Both players request a rematch to clear the fired positions and start over.
//
// Hit detection and win detection live in the clients. The server only
// enforces turn order and shot legality.
//
// Errors:
//
// ErrNotYourTurn, ErrDuplicateShot, ErrTurnExhausted, ErrGameNotFound and
// ErrInvalidPayload are advisory. Advisory maps them to the text of the
// outbound "error" event; none of them end the room.
//
// Concurrency:
//
// A Session is not safe for concurrent use. lobby.Room serializes access.
package game
