package entity

import "time"

const (
	OutcomeWin  = "win"
	OutcomeLoss = "loss"
	OutcomeDraw = "draw"
)

// User is the credential & stats record kept by the store.
type User struct {
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Draws        int       `json:"draws"`
	GamesPlayed  int       `json:"games_played"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Performer is one leaderboard row.
type Performer struct {
	Identity    string  `json:"identity"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	GamesPlayed int     `json:"games_played"`
	WinRate     float64 `json:"win_rate"`
}
