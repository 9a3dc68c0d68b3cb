package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

type credentialChecker interface {
	VerifyCredentials(ctx context.Context, identity, secret string) (bool, error)
}

type tokenIssuer interface {
	GenerateToken(identity string) (string, error)
}

// SessionRegistry maps each identity to at most one live session token.
// A second login while a token is live is rejected; tokens never expire on
// their own, only an explicit logout frees the slot. That keeps the source
// behavior: a crashed client holds its identity until it logs out.
type SessionRegistry struct {
	logger *slog.Logger
	users  credentialChecker
	tokens tokenIssuer

	mu       sync.Mutex
	sessions map[string]*entity.Session

	now func() time.Time
}

func NewSessionRegistry(logger *slog.Logger, users credentialChecker, tokens tokenIssuer) *SessionRegistry {
	return &SessionRegistry{
		logger:   logger.With("component", "sessions"),
		users:    users,
		tokens:   tokens,
		sessions: make(map[string]*entity.Session),
		now:      time.Now,
	}
}

// Login verifies the secret against the credential store and claims the
// identity's live-session slot.
func (that *SessionRegistry) Login(ctx context.Context, identity, secret string) (*entity.Session, error) {
	ok, err := that.users.VerifyCredentials(ctx, identity, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to verify credentials: %w", err)
	}

	if !ok {
		return nil, apperror.ErrInvalidCredentials
	}

	return that.BeginSession(identity)
}

// BeginSession atomically checks-and-sets the live-token slot for the
// identity. Of any number of concurrent calls for the same identity, exactly
// one succeeds.
func (that *SessionRegistry) BeginSession(identity string) (*entity.Session, error) {
	token, err := that.tokens.GenerateToken(identity)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if _, active := that.sessions[identity]; active {
		return nil, apperror.ErrSessionActive
	}

	session := &entity.Session{
		Identity:  identity,
		Token:     token,
		CreatedAt: that.now(),
	}
	that.sessions[identity] = session

	that.logger.Info("session started", "identity", identity)

	return session, nil
}

// EndSession clears the live-token slot unconditionally. Ending an absent
// session is not an error.
func (that *SessionRegistry) EndSession(identity string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, active := that.sessions[identity]; !active {
		return
	}

	delete(that.sessions, identity)

	that.logger.Info("session ended", "identity", identity)
}

// Validate reports whether token is the identity's live token. A mismatch
// means the session was superseded by a newer login and the caller must
// re-authenticate.
func (that *SessionRegistry) Validate(identity, token string) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	session, active := that.sessions[identity]

	return active && session.Token == token
}
