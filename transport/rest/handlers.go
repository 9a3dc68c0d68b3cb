package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

const defaultLeaderboardLimit = 10

type sessionRegistry interface {
	Login(ctx context.Context, identity, secret string) (*entity.Session, error)
	BeginSession(identity string) (*entity.Session, error)
	EndSession(identity string)
	Validate(identity, token string) bool
}

type userService interface {
	Register(ctx context.Context, identity, secret string) error
	ListTopPerformers(ctx context.Context, limit int) ([]*entity.Performer, error)
}

type roomManager interface {
	CreateRoom(ctx context.Context, identity string) (string, error)
	ListJoinable(ctx context.Context, identity string) []entity.RoomSummary
	JoinRoom(ctx context.Context, identity, roomID string) (int, error)
	LeaveRoom(ctx context.Context, identity, roomID string) error
	MakeTurn(ctx context.Context, identity, roomID string, row, col int) (*entity.Snapshot, error)
	Snapshot(ctx context.Context, identity, roomID string) (*entity.Snapshot, error)
}

type Handlers struct {
	logger *slog.Logger

	sessions sessionRegistry
	users    userService
	rooms    roomManager
}

func NewHandlers(logger *slog.Logger, sessions sessionRegistry, users userService, rooms roomManager) *Handlers {
	return &Handlers{
		logger:   logger.With("component", "rest"),
		sessions: sessions,
		users:    users,
		rooms:    rooms,
	}
}

type credentialsRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

type moveRequest struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (that *Handlers) Ping(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "pong")
}

func (that *Handlers) Register(ctx echo.Context) error {
	log := that.logger.With("method", "Register")

	var req credentialsRequest
	if err := ctx.Bind(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	if err := that.users.Register(ctx.Request().Context(), req.Identity, req.Secret); err != nil {
		return that.mapError(ctx, err)
	}

	// registration logs the user straight in, same as the lobby flow
	session, err := that.sessions.BeginSession(req.Identity)
	if err != nil {
		return that.mapError(ctx, err)
	}

	log.Info("user registered", "identity", req.Identity)

	return ctx.JSON(http.StatusCreated, sessionResponse(session))
}

func (that *Handlers) Login(ctx echo.Context) error {
	var req credentialsRequest
	if err := ctx.Bind(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	session, err := that.sessions.Login(ctx.Request().Context(), req.Identity, req.Secret)
	if err != nil {
		return that.mapError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, sessionResponse(session))
}

func (that *Handlers) Logout(ctx echo.Context) error {
	that.sessions.EndSession(identityFrom(ctx))

	return ctx.NoContent(http.StatusNoContent)
}

func (that *Handlers) CreateRoom(ctx echo.Context) error {
	identity := identityFrom(ctx)

	roomID, err := that.rooms.CreateRoom(ctx.Request().Context(), identity)
	if err != nil {
		return that.mapError(ctx, err)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"room_id": roomID,
		"slot":    0,
	})
}

func (that *Handlers) ListRooms(ctx echo.Context) error {
	summaries := that.rooms.ListJoinable(ctx.Request().Context(), identityFrom(ctx))

	return ctx.JSON(http.StatusOK, map[string]any{
		"rooms": summaries,
	})
}

func (that *Handlers) JoinRoom(ctx echo.Context) error {
	slot, err := that.rooms.JoinRoom(ctx.Request().Context(), identityFrom(ctx), ctx.Param("id"))
	if err != nil {
		return that.mapError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"room_id": ctx.Param("id"),
		"slot":    slot,
	})
}

func (that *Handlers) LeaveRoom(ctx echo.Context) error {
	if err := that.rooms.LeaveRoom(ctx.Request().Context(), identityFrom(ctx), ctx.Param("id")); err != nil {
		return that.mapError(ctx, err)
	}

	return ctx.NoContent(http.StatusNoContent)
}

func (that *Handlers) MakeMove(ctx echo.Context) error {
	var req moveRequest
	if err := ctx.Bind(&req); err != nil {
		return errorResponse(ctx, http.StatusBadRequest, "invalid request body")
	}

	snapshot, err := that.rooms.MakeTurn(ctx.Request().Context(), identityFrom(ctx), ctx.Param("id"), req.Row, req.Col)
	if err != nil {
		if snapshot != nil {
			// a rejected move ships the unchanged state so the client
			// can reconcile its local view
			return ctx.JSON(statusFor(err), map[string]any{
				"error": err.Error(),
				"state": snapshot,
			})
		}

		return that.mapError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) GameState(ctx echo.Context) error {
	snapshot, err := that.rooms.Snapshot(ctx.Request().Context(), identityFrom(ctx), ctx.Param("id"))
	if err != nil {
		return that.mapError(ctx, err)
	}

	// repeated polls must observe fresh state, never a cached response
	header := ctx.Response().Header()
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")

	return ctx.JSON(http.StatusOK, snapshot)
}

func (that *Handlers) Leaderboard(ctx echo.Context) error {
	limit := defaultLeaderboardLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return errorResponse(ctx, http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}

	performers, err := that.users.ListTopPerformers(ctx.Request().Context(), limit)
	if err != nil {
		return that.mapError(ctx, err)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"top_players": performers,
	})
}

func (that *Handlers) mapError(ctx echo.Context, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		that.logger.Error("request failed", "path", ctx.Path(), "error", err)
		return errorResponse(ctx, status, "internal server error")
	}

	return errorResponse(ctx, status, err.Error())
}

// statusFor maps the error taxonomy onto HTTP statuses: authentication
// failures 401, not-found 404, state conflicts and move rejections 409,
// validation 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrInvalidCredentials),
		errors.Is(err, apperror.ErrStaleSession):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrSessionActive),
		errors.Is(err, apperror.ErrRoomNotWaiting),
		errors.Is(err, apperror.ErrAlreadyMember),
		errors.Is(err, apperror.ErrAlreadyInRoom),
		errors.Is(err, apperror.ErrNotAMember),
		errors.Is(err, apperror.ErrUserTaken),
		errors.Is(err, apperror.ErrGameNotStarted),
		errors.Is(err, apperror.ErrGameFinished),
		errors.Is(err, apperror.ErrNotYourTurn),
		errors.Is(err, apperror.ErrCellOccupied):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidCell),
		errors.Is(err, apperror.ErrIdentityTooShort),
		errors.Is(err, apperror.ErrSecretTooShort):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, map[string]string{
		"error": message,
	})
}

func sessionResponse(session *entity.Session) map[string]string {
	return map[string]string{
		"identity": session.Identity,
		"token":    session.Token,
	}
}
