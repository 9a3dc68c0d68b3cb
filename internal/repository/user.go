package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

const leaderboardKey = "leaderboard"

const (
	fieldPassword     = "password"
	fieldWins         = "wins"
	fieldLosses       = "losses"
	fieldDraws        = "draws"
	fieldGames        = "games"
	fieldRegisteredAt = "registered_at"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByName(ctx context.Context, name string) (*entity.User, error)
	AddOutcome(ctx context.Context, name, outcome string) error
	TopByWins(ctx context.Context, limit int) ([]*entity.User, error)
}

type dbUser struct {
	client *redis.Client
}

func NewUserRepository(client *redis.Client) UserRepository {
	return &dbUser{
		client: client,
	}
}

func userKey(name string) string {
	return "user:" + name
}

func (that *dbUser) Create(ctx context.Context, user *entity.User) error {
	key := userKey(user.Name)

	// HSetNX on the password field doubles as the existence check, so two
	// concurrent registrations cannot both succeed.
	created, err := that.client.HSetNX(ctx, key, fieldPassword, user.PasswordHash).Result()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if !created {
		return ErrUserAlreadyExists
	}

	err = that.client.HSet(ctx, key,
		fieldWins, user.Wins,
		fieldLosses, user.Losses,
		fieldDraws, user.Draws,
		fieldGames, user.GamesPlayed,
		fieldRegisteredAt, user.RegisteredAt.Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to set user fields: %w", err)
	}

	return nil
}

func (that *dbUser) GetByName(ctx context.Context, name string) (*entity.User, error) {
	fields, err := that.client.HGetAll(ctx, userKey(name)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get user by name: %w", err)
	}

	if len(fields) == 0 {
		return nil, ErrUserNotFound
	}

	return userFromFields(name, fields)
}

// AddOutcome bumps the matching counter plus the games-played total, and
// keeps the leaderboard sorted set in step. A zero increment still registers
// the player on the leaderboard.
func (that *dbUser) AddOutcome(ctx context.Context, name, outcome string) error {
	var field string
	var winDelta float64

	switch outcome {
	case entity.OutcomeWin:
		field = fieldWins
		winDelta = 1
	case entity.OutcomeLoss:
		field = fieldLosses
	case entity.OutcomeDraw:
		field = fieldDraws
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, userKey(name), field, 1)
		pipe.HIncrBy(ctx, userKey(name), fieldGames, 1)
		pipe.ZIncrBy(ctx, leaderboardKey, winDelta, name)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}

	return nil
}

func (that *dbUser) TopByWins(ctx context.Context, limit int) ([]*entity.User, error) {
	names, err := that.client.ZRevRange(ctx, leaderboardKey, 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}

	users := make([]*entity.User, 0, len(names))
	for _, name := range names {
		user, err := that.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load leaderboard user %q: %w", name, err)
		}

		users = append(users, user)
	}

	return users, nil
}

func userFromFields(name string, fields map[string]string) (*entity.User, error) {
	user := &entity.User{
		Name:         name,
		PasswordHash: fields[fieldPassword],
	}

	var err error
	if user.Wins, err = parseCounter(fields, fieldWins); err != nil {
		return nil, err
	}
	if user.Losses, err = parseCounter(fields, fieldLosses); err != nil {
		return nil, err
	}
	if user.Draws, err = parseCounter(fields, fieldDraws); err != nil {
		return nil, err
	}
	if user.GamesPlayed, err = parseCounter(fields, fieldGames); err != nil {
		return nil, err
	}

	if raw, ok := fields[fieldRegisteredAt]; ok {
		user.RegisteredAt, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse registered_at: %w", err)
		}
	}

	return user, nil
}

func parseCounter(fields map[string]string, field string) (int, error) {
	raw, ok := fields[field]
	if !ok {
		return 0, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s counter: %w", field, err)
	}

	return value, nil
}
