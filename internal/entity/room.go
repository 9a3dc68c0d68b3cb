package entity

import "time"

const (
	RoomWaiting = "waiting"
	RoomPlaying = "playing"
	RoomClosed  = "closed"
)

// Room is one matchmaking unit pairing up to two identities around one game.
// A room exclusively owns its game.
type Room struct {
	ID        string    `json:"room_id"`
	Creator   string    `json:"creator"`
	Members   []string  `json:"members"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	Game      *Game     `json:"-"`
}

// RoomSummary is the joinable-room listing entry returned to the lobby.
type RoomSummary struct {
	ID           string    `json:"room_id"`
	Creator      string    `json:"creator"`
	PlayersCount int       `json:"players_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (that *Room) HasMember(identity string) bool {
	for _, member := range that.Members {
		if member == identity {
			return true
		}
	}

	return false
}

func (that *Room) IsWaiting() bool {
	return that.State == RoomWaiting
}

func (that *Room) IsPlaying() bool {
	return that.State == RoomPlaying
}

// Snapshot is the read-only copy of a room's game handed to pollers. YourSlot
// is the slot of the identity that requested it.
type Snapshot struct {
	RoomID   string    `json:"room_id"`
	Board    [9]string `json:"board"`
	Turn     int       `json:"turn"`
	Winner   string    `json:"winner,omitempty"`
	Status   string    `json:"status"`
	Members  []string  `json:"players"`
	YourSlot int       `json:"your_slot"`
}
