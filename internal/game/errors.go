package game

import "errors"

var (
	ErrGameNotFound   = errors.New("game not found")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrDuplicateShot  = errors.New("position already fired")
	ErrTurnExhausted  = errors.New("shot already taken this turn")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Advisory is the text carried by the "error" event for err.
// None of these errors end the room.
func Advisory(err error) string {
	switch {
	case errors.Is(err, ErrGameNotFound):
		return "Game not found!"
	case errors.Is(err, ErrNotYourTurn):
		return "Not your turn!"
	case errors.Is(err, ErrDuplicateShot):
		return "You already fired that location. Try again!"
	case errors.Is(err, ErrTurnExhausted):
		return "You already fired this turn!"
	case errors.Is(err, ErrInvalidPayload):
		return "Invalid payload."
	}
	return "Something went wrong."
}
