package apperror

import "errors"

// Authentication failures. Surfaced to the caller, never retried automatically.
var (
	ErrInvalidCredentials = errors.New("invalid identity or secret")
	ErrSessionActive      = errors.New("account is already in use on another device")
	ErrStaleSession       = errors.New("session token is stale or missing")
)

// Room state conflicts. The caller may retry after re-listing rooms.
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomNotWaiting = errors.New("room is not waiting for players")
	ErrAlreadyMember  = errors.New("already a member of this room")
	ErrAlreadyInRoom  = errors.New("already occupies another open room")
	ErrNotAMember     = errors.New("not a member of this room")
)

// Move rejections. Never fatal; the current game state stays unchanged.
var (
	ErrGameNotStarted = errors.New("game is not started")
	ErrGameFinished   = errors.New("game is already finished")
	ErrNotYourTurn  = errors.New("it's not your turn")
	ErrCellOccupied = errors.New("cell is already occupied")
	ErrInvalidCell  = errors.New("invalid cell coordinates")
)

// Registration failures.
var (
	ErrUserTaken        = errors.New("identity is already taken")
	ErrIdentityTooShort = errors.New("identity must be at least 3 characters")
	ErrSecretTooShort   = errors.New("secret must be at least 4 characters")
)
