package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
)

const (
	minIdentityLen = 3
	minSecretLen   = 4
)

// UserService is the credential & stats store the engine collaborates with:
// credential checks, outcome counters and the leaderboard.
type UserService interface {
	Register(ctx context.Context, identity, secret string) error
	VerifyCredentials(ctx context.Context, identity, secret string) (bool, error)
	RecordOutcome(ctx context.Context, identity, outcome string) error
	ListTopPerformers(ctx context.Context, limit int) ([]*entity.Performer, error)
}

type userRepo interface {
	Create(ctx context.Context, user *entity.User) error
	GetByName(ctx context.Context, name string) (*entity.User, error)
	AddOutcome(ctx context.Context, name, outcome string) error
	TopByWins(ctx context.Context, limit int) ([]*entity.User, error)
}

type userService struct {
	userRepo userRepo
}

func NewUserService(userRepo userRepo) UserService {
	return &userService{
		userRepo: userRepo,
	}
}

func (that *userService) Register(ctx context.Context, identity, secret string) error {
	if len(identity) < minIdentityLen {
		return apperror.ErrIdentityTooShort
	}

	if len(secret) < minSecretLen {
		return apperror.ErrSecretTooShort
	}

	user := &entity.User{
		Name:         identity,
		PasswordHash: hashSecret(secret),
		RegisteredAt: time.Now(),
	}

	if err := that.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return apperror.ErrUserTaken
		}

		return fmt.Errorf("could not create user: %w", err)
	}

	return nil
}

func (that *userService) VerifyCredentials(ctx context.Context, identity, secret string) (bool, error) {
	user, err := that.userRepo.GetByName(ctx, identity)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("could not get user by name: %w", err)
	}

	return user.PasswordHash == hashSecret(secret), nil
}

func (that *userService) RecordOutcome(ctx context.Context, identity, outcome string) error {
	if err := that.userRepo.AddOutcome(ctx, identity, outcome); err != nil {
		return fmt.Errorf("could not record outcome: %w", err)
	}

	return nil
}

// ListTopPerformers returns players ordered by win count descending. Players
// without a finished game are left out.
func (that *userService) ListTopPerformers(ctx context.Context, limit int) ([]*entity.Performer, error) {
	users, err := that.userRepo.TopByWins(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("could not list top players: %w", err)
	}

	performers := make([]*entity.Performer, 0, len(users))
	for _, user := range users {
		if user.GamesPlayed == 0 {
			continue
		}

		performers = append(performers, &entity.Performer{
			Identity:    user.Name,
			Wins:        user.Wins,
			Losses:      user.Losses,
			Draws:       user.Draws,
			GamesPlayed: user.GamesPlayed,
			WinRate:     winRate(user.Wins, user.GamesPlayed),
		})
	}

	return performers, nil
}

// winRate is the win percentage rounded to one decimal place.
func winRate(wins, games int) float64 {
	rate := float64(wins) / float64(games) * 100

	return math.Round(rate*10) / 10
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))

	return hex.EncodeToString(sum[:])
}
