package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/tictactoe"
)

const roomIDLength = 8

type statsRecorder interface {
	RecordOutcome(ctx context.Context, identity, outcome string) error
}

// liveRoom pairs a room with its own lock. Every mutation of the room or its
// game happens under this lock; the directory lock is never held for the
// duration of a game operation.
type liveRoom struct {
	mu   sync.Mutex
	room *entity.Room
}

// RoomManager owns the room directory and drives the room lifecycle
// (waiting -> playing -> closed), player admission, move application, poll
// snapshots and the delayed cleanup of finished games.
//
// Locking: the directory RWMutex guards the two maps only; each room carries
// its own mutex. Lock order is always directory before room. No lock is held
// across I/O: the stats store is notified after the room lock is released.
type RoomManager struct {
	logger *slog.Logger
	stats  statsRecorder
	grace  time.Duration

	mu         sync.RWMutex
	rooms      map[string]*liveRoom
	memberRoom map[string]string

	now func() time.Time
}

func NewRoomManager(logger *slog.Logger, stats statsRecorder, grace time.Duration) *RoomManager {
	return &RoomManager{
		logger:     logger.With("component", "rooms"),
		stats:      stats,
		grace:      grace,
		rooms:      make(map[string]*liveRoom),
		memberRoom: make(map[string]string),
		now:        time.Now,
	}
}

// CreateRoom allocates a waiting room with the identity in slot 0. An
// identity may occupy only one open room at a time.
func (that *RoomManager) CreateRoom(_ context.Context, identity string) (string, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, occupied := that.memberRoom[identity]; occupied {
		return "", apperror.ErrAlreadyInRoom
	}

	roomID := uuid.NewString()[:roomIDLength]

	game := entity.NewGame()
	game.AddPlayer(identity)

	room := &entity.Room{
		ID:        roomID,
		Creator:   identity,
		Members:   []string{identity},
		State:     entity.RoomWaiting,
		CreatedAt: that.now(),
		Game:      game,
	}

	that.rooms[roomID] = &liveRoom{room: room}
	that.memberRoom[identity] = roomID

	that.logger.Info("room created", "roomID", roomID, "creator", identity)

	return roomID, nil
}

// ListJoinable recomputes the lobby listing from current state on every
// call: waiting rooms that don't already contain the identity. Nothing is
// cached across calls since room state changes rapidly.
func (that *RoomManager) ListJoinable(_ context.Context, identity string) []entity.RoomSummary {
	that.mu.RLock()
	defer that.mu.RUnlock()

	summaries := make([]entity.RoomSummary, 0)
	for _, entry := range that.rooms {
		entry.mu.Lock()
		if entry.room.IsWaiting() && !entry.room.HasMember(identity) {
			summaries = append(summaries, entity.RoomSummary{
				ID:           entry.room.ID,
				Creator:      entry.room.Creator,
				PlayersCount: len(entry.room.Members),
				CreatedAt:    entry.room.CreatedAt,
			})
		}
		entry.mu.Unlock()
	}

	return summaries
}

// JoinRoom admits the identity as slot 1 and moves the room to playing.
// Concurrent joins on the same room are serialized: exactly one succeeds and
// the loser observes ErrRoomNotWaiting.
func (that *RoomManager) JoinRoom(_ context.Context, identity, roomID string) (int, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.rooms[roomID]
	if !ok {
		return entity.SlotNone, apperror.ErrRoomNotFound
	}

	if occupied, inRoom := that.memberRoom[identity]; inRoom && occupied != roomID {
		return entity.SlotNone, apperror.ErrAlreadyInRoom
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.room.IsWaiting() {
		return entity.SlotNone, apperror.ErrRoomNotWaiting
	}

	if entry.room.HasMember(identity) {
		return entity.SlotNone, apperror.ErrAlreadyMember
	}

	slot := entry.room.Game.AddPlayer(identity)

	entry.room.Members = append(entry.room.Members, identity)
	entry.room.State = entity.RoomPlaying
	entry.room.Game.Status = entity.StatusOngoing

	that.memberRoom[identity] = roomID

	that.logger.Info("player joined room", "roomID", roomID, "identity", identity, "slot", slot)

	return slot, nil
}

// LeaveRoom removes the identity from the room. With one member left the
// room reverts to waiting around a fresh game, the remaining player rebound
// to slot 0 -- abandoning a playing game resets it, it never awards a win.
// The last member leaving deletes the room outright, whatever the outcome.
func (that *RoomManager) LeaveRoom(_ context.Context, identity, roomID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	entry, ok := that.rooms[roomID]
	if !ok {
		return apperror.ErrRoomNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if !entry.room.HasMember(identity) {
		return apperror.ErrNotAMember
	}

	members := make([]string, 0, len(entry.room.Members)-1)
	for _, member := range entry.room.Members {
		if member != identity {
			members = append(members, member)
		}
	}
	entry.room.Members = members
	delete(that.memberRoom, identity)

	if len(members) == 0 {
		entry.room.State = entity.RoomClosed
		delete(that.rooms, roomID)

		that.logger.Info("room deleted", "roomID", roomID)

		return nil
	}

	remaining := members[0]

	game := entity.NewGame()
	game.AddPlayer(remaining)

	entry.room.Game = game
	entry.room.Creator = remaining
	entry.room.State = entity.RoomWaiting

	that.logger.Info("room reverted to waiting", "roomID", roomID, "remaining", remaining)

	return nil
}

// MakeTurn applies a move for the identity under the room's lock and returns
// the resulting snapshot. On a rejected move the snapshot carries the
// unchanged current state alongside the error so the client can reconcile.
// When the move finishes the game, outcomes are reported to the stats store
// exactly once, after the room lock is released.
func (that *RoomManager) MakeTurn(ctx context.Context, identity, roomID string, row, col int) (*entity.Snapshot, error) {
	entry, err := that.getRoom(roomID)
	if err != nil {
		return nil, err
	}

	var outcomes map[string]string

	entry.mu.Lock()

	room := entry.room
	slot := room.Game.SlotOf(identity)
	if slot == entity.SlotNone {
		entry.mu.Unlock()
		return nil, apperror.ErrNotAMember
	}

	if room.IsWaiting() {
		snapshot := snapshotLocked(room, slot)
		entry.mu.Unlock()
		return snapshot, apperror.ErrGameNotStarted
	}

	if moveErr := tictactoe.ApplyMove(room.Game, slot, row, col); moveErr != nil {
		snapshot := snapshotLocked(room, slot)
		entry.mu.Unlock()
		return snapshot, moveErr
	}

	if room.Game.IsFinished() {
		room.Game.CompletedAt = that.now()

		if !room.Game.StatsRecorded {
			room.Game.StatsRecorded = true
			outcomes = gameOutcomes(room.Game)
		}
	}

	snapshot := snapshotLocked(room, slot)
	entry.mu.Unlock()

	if outcomes != nil {
		go that.recordOutcomes(context.WithoutCancel(ctx), roomID, outcomes)
	}

	return snapshot, nil
}

// Snapshot returns a read-only copy of the room's current game for the
// polling identity. It always reflects the most recently committed move and
// never a partially applied one. A reaped room is a plain ErrRoomNotFound:
// callers cannot tell "never existed" from "already archived".
func (that *RoomManager) Snapshot(_ context.Context, identity, roomID string) (*entity.Snapshot, error) {
	that.reapFinished()

	entry, err := that.getRoom(roomID)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	slot := entry.room.Game.SlotOf(identity)
	if slot == entity.SlotNone {
		return nil, apperror.ErrNotAMember
	}

	return snapshotLocked(entry.room, slot), nil
}

// StartCleanup runs the reap pass on a fixed interval until the context is
// canceled. The same pass also runs opportunistically on every snapshot, so
// the ticker only bounds how long an unpolled finished room can linger.
func (that *RoomManager) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				that.reapFinished()
			}
		}
	}()
}

// reapFinished removes rooms whose game completed longer than the grace
// period ago. Concurrent snapshot calls racing the removal simply observe
// ErrRoomNotFound afterwards.
func (that *RoomManager) reapFinished() {
	now := that.now()

	that.mu.Lock()
	defer that.mu.Unlock()

	for roomID, entry := range that.rooms {
		entry.mu.Lock()

		game := entry.room.Game
		expired := game.IsFinished() && !game.CompletedAt.IsZero() && now.Sub(game.CompletedAt) > that.grace
		if expired {
			entry.room.State = entity.RoomClosed
			delete(that.rooms, roomID)
			for _, member := range entry.room.Members {
				if that.memberRoom[member] == roomID {
					delete(that.memberRoom, member)
				}
			}

			that.logger.Info("finished room reclaimed", "roomID", roomID)
		}

		entry.mu.Unlock()
	}
}

func (that *RoomManager) getRoom(roomID string) (*liveRoom, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	entry, ok := that.rooms[roomID]
	if !ok {
		return nil, apperror.ErrRoomNotFound
	}

	return entry, nil
}

func (that *RoomManager) recordOutcomes(ctx context.Context, roomID string, outcomes map[string]string) {
	log := that.logger.With("method", "recordOutcomes", "roomID", roomID)

	for identity, outcome := range outcomes {
		if err := that.stats.RecordOutcome(ctx, identity, outcome); err != nil {
			log.Error("failed to record outcome", "identity", identity, "outcome", outcome, "error", err)
		}
	}
}

// gameOutcomes maps each player to its result: a win credits the winner and
// a loss to the other slot, a draw credits both.
func gameOutcomes(game *entity.Game) map[string]string {
	outcomes := make(map[string]string, len(game.Players))

	winnerSlot := game.WinnerSlot()
	for slot, identity := range game.Players {
		switch {
		case game.IsDraw():
			outcomes[identity] = entity.OutcomeDraw
		case slot == winnerSlot:
			outcomes[identity] = entity.OutcomeWin
		default:
			outcomes[identity] = entity.OutcomeLoss
		}
	}

	return outcomes
}

func snapshotLocked(room *entity.Room, slot int) *entity.Snapshot {
	members := make([]string, len(room.Members))
	copy(members, room.Members)

	return &entity.Snapshot{
		RoomID:   room.ID,
		Board:    room.Game.Board,
		Turn:     room.Game.Turn,
		Winner:   room.Game.Winner,
		Status:   room.Game.Status,
		Members:  members,
		YourSlot: slot,
	}
}
