package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

const (
	identityContextKey = "identity"

	bearerPrefix    = "Bearer "
	shutdownTimeout = 10 * time.Second
)

type tokenParser interface {
	ParseIdentity(token string) (string, error)
}

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
}

// New wires the HTTP surface. Everything below /login and /register sits
// behind the session middleware; an invalid, absent or stale token is a 401,
// kept distinct from game-logic failures.
func New(logger *slog.Logger, tokens tokenParser, sessions sessionRegistry, handlers *Handlers) *Server {
	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.Use(middleware.Recover())

	router.GET("/ping", handlers.Ping)
	router.POST("/register", handlers.Register)
	router.POST("/login", handlers.Login)

	authed := router.Group("", requireSession(tokens, sessions))
	authed.POST("/logout", handlers.Logout)
	authed.POST("/rooms", handlers.CreateRoom)
	authed.GET("/rooms", handlers.ListRooms)
	authed.POST("/rooms/:id/join", handlers.JoinRoom)
	authed.POST("/rooms/:id/leave", handlers.LeaveRoom)
	authed.POST("/rooms/:id/moves", handlers.MakeMove)
	authed.GET("/rooms/:id/state", handlers.GameState)
	authed.GET("/leaderboard", handlers.Leaderboard)

	return &Server{
		logger: logger.With("component", "rest-server"),
		echo:   router,
	}
}

// Start runs the server until it fails or the context is canceled, then
// shuts down gracefully.
func (that *Server) Start(ctx context.Context, port string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- that.echo.Start(":" + port)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := that.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}

		that.logger.Info("server stopped")

		return nil
	}
}

// requireSession authenticates every request with a bearer token: the token
// must parse to an identity and match that identity's live session.
func requireSession(tokens tokenParser, sessions sessionRegistry) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			authz := ctx.Request().Header.Get(echo.HeaderAuthorization)

			token, ok := strings.CutPrefix(authz, bearerPrefix)
			if !ok || token == "" {
				return unauthorized(ctx)
			}

			identity, err := tokens.ParseIdentity(token)
			if err != nil {
				return unauthorized(ctx)
			}

			// a mismatch means this session was superseded by a newer
			// login; the client must re-authenticate
			if !sessions.Validate(identity, token) {
				return unauthorized(ctx)
			}

			ctx.Set(identityContextKey, identity)

			return next(ctx)
		}
	}
}

func unauthorized(ctx echo.Context) error {
	return errorResponse(ctx, http.StatusUnauthorized, apperror.ErrStaleSession.Error())
}

func identityFrom(ctx echo.Context) string {
	identity, _ := ctx.Get(identityContextKey).(string)

	return identity
}
