package entity

import "time"

const (
	StatusFinished = "finished"
	StatusOngoing  = "ongoing"
	StatusWaiting  = "waiting"

	MarkX   = "X"
	MarkO   = "O"
	MarkTie = "-"

	EmptyCell = ""
)

const (
	// SlotNone marks the absence of a player slot.
	SlotNone = -1

	MaxPlayers = 2
)

// Game is the state of one tic-tac-toe match. The board is a flat 3x3 grid
// indexed row*3+col. Slot 0 always plays X, slot 1 always plays O.
type Game struct {
	Board       [9]string `json:"board"`
	Turn        int       `json:"turn"`
	Winner      string    `json:"winner,omitempty"`
	Status      string    `json:"status"`
	Players     []string  `json:"players"`
	CompletedAt time.Time `json:"completed_at,omitempty"`

	// StatsRecorded guards the exactly-once outcome notification.
	StatsRecorded bool `json:"-"`
}

func NewGame() *Game {
	return &Game{
		Board:   [9]string{},
		Turn:    0,
		Status:  StatusWaiting,
		Players: []string{},
	}
}

// AddPlayer binds an identity to the next free slot and returns it.
func (that *Game) AddPlayer(identity string) int {
	if len(that.Players) >= MaxPlayers {
		return SlotNone
	}

	that.Players = append(that.Players, identity)

	return len(that.Players) - 1
}

// SlotOf returns the slot bound to an identity, or SlotNone.
func (that *Game) SlotOf(identity string) int {
	for slot, player := range that.Players {
		if player == identity {
			return slot
		}
	}

	return SlotNone
}

// MarkForSlot maps a player slot to its fixed mark.
func MarkForSlot(slot int) string {
	if slot == 0 {
		return MarkX
	}

	return MarkO
}

// WinnerSlot maps the winning mark back to a slot. SlotNone means no winner
// (in progress or draw).
func (that *Game) WinnerSlot() int {
	switch that.Winner {
	case MarkX:
		return 0
	case MarkO:
		return 1
	default:
		return SlotNone
	}
}

func (that *Game) IsDraw() bool {
	return that.Winner == MarkTie
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsOngoing() bool {
	return that.Status == StatusOngoing
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}
