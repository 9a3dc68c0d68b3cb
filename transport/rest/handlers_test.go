package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/repository"
	"github.com/rocketscienceinc/tictactoe-arena/internal/service"
)

const headerContentType = "Content-Type"

type memUserRepo struct {
	users map[string]*entity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*entity.User)}
}

func (that *memUserRepo) Create(_ context.Context, user *entity.User) error {
	if _, exists := that.users[user.Name]; exists {
		return repository.ErrUserAlreadyExists
	}

	clone := *user
	that.users[user.Name] = &clone

	return nil
}

func (that *memUserRepo) GetByName(_ context.Context, name string) (*entity.User, error) {
	user, exists := that.users[name]
	if !exists {
		return nil, repository.ErrUserNotFound
	}

	clone := *user

	return &clone, nil
}

func (that *memUserRepo) AddOutcome(_ context.Context, name, outcome string) error {
	user, exists := that.users[name]
	if !exists {
		return repository.ErrUserNotFound
	}

	switch outcome {
	case entity.OutcomeWin:
		user.Wins++
	case entity.OutcomeLoss:
		user.Losses++
	case entity.OutcomeDraw:
		user.Draws++
	}
	user.GamesPlayed++

	return nil
}

func (that *memUserRepo) TopByWins(_ context.Context, limit int) ([]*entity.User, error) {
	users := make([]*entity.User, 0, len(that.users))
	for _, user := range that.users {
		clone := *user
		users = append(users, &clone)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].Wins > users[j].Wins })

	if len(users) > limit {
		users = users[:limit]
	}

	return users, nil
}

// newTestServer wires the full stack on an in-memory user store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	users := service.NewUserService(newMemUserRepo())
	tokens := service.NewTokenService("test-secret")
	sessions := service.NewSessionRegistry(logger, users, tokens)
	rooms := service.NewRoomManager(logger, users, 5*time.Second)

	handlers := NewHandlers(logger, sessions, users, rooms)
	server := New(logger, tokens, sessions, handlers)

	testServer := httptest.NewServer(server.echo)
	t.Cleanup(testServer.Close)

	return testServer
}

func doRequest(t *testing.T, server *httptest.Server, method, path, token, body string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	require.NoError(t, err)

	req.Header.Set(headerContentType, "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var payload map[string]any
	if resp.Header.Get(headerContentType) != "" {
		_ = json.NewDecoder(resp.Body).Decode(&payload)
	}

	return resp, payload
}


func registerAndLogin(t *testing.T, server *httptest.Server, identity string) string {
	t.Helper()

	resp, payload := doRequest(t, server, http.MethodPost, "/register", "",
		`{"identity":"`+identity+`","secret":"sekret"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	token, _ := payload["token"].(string)
	require.NotEmpty(t, token)

	return token
}

func TestAuthFlow(t *testing.T) {
	t.Run("Register issues a usable session token", func(t *testing.T) {
		server := newTestServer(t)

		// When: alice registers and lists rooms with the issued token
		token := registerAndLogin(t, server, "alice")
		resp, _ := doRequest(t, server, http.MethodGet, "/rooms", token, "")

		// Then: the token authenticates
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Login rejects bad credentials", func(t *testing.T) {
		server := newTestServer(t)
		registerAndLogin(t, server, "alice")

		resp, _ := doRequest(t, server, http.MethodPost, "/login", "",
			`{"identity":"alice","secret":"wrong"}`)

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Second login while a session is live conflicts", func(t *testing.T) {
		server := newTestServer(t)
		registerAndLogin(t, server, "alice")

		resp, _ := doRequest(t, server, http.MethodPost, "/login", "",
			`{"identity":"alice","secret":"sekret"}`)

		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("Logout frees the identity for a fresh login", func(t *testing.T) {
		server := newTestServer(t)
		token := registerAndLogin(t, server, "alice")

		resp, _ := doRequest(t, server, http.MethodPost, "/logout", token, "")
		require.Equal(t, http.StatusNoContent, resp.StatusCode)

		// Then: the old token no longer authenticates
		resp, _ = doRequest(t, server, http.MethodGet, "/rooms", token, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		// And: logging in again succeeds
		resp, _ = doRequest(t, server, http.MethodPost, "/login", "",
			`{"identity":"alice","secret":"sekret"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Requests without or with forged tokens are unauthorized", func(t *testing.T) {
		server := newTestServer(t)

		resp, _ := doRequest(t, server, http.MethodGet, "/rooms", "", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, _ = doRequest(t, server, http.MethodGet, "/rooms", "forged-token", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Register validates identity and secret length", func(t *testing.T) {
		server := newTestServer(t)

		resp, _ := doRequest(t, server, http.MethodPost, "/register", "",
			`{"identity":"al","secret":"sekret"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp, _ = doRequest(t, server, http.MethodPost, "/register", "",
			`{"identity":"alice","secret":"abc"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestRoomFlow(t *testing.T) {
	server := newTestServer(t)

	aliceToken := registerAndLogin(t, server, "alice")
	bobToken := registerAndLogin(t, server, "bob")

	// When: alice creates a room
	resp, payload := doRequest(t, server, http.MethodPost, "/rooms", aliceToken, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	roomID, _ := payload["room_id"].(string)
	require.NotEmpty(t, roomID)

	// Then: bob sees it in the lobby and joins as slot 1
	resp, payload = doRequest(t, server, http.MethodGet, "/rooms", bobToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, payload["rooms"], 1)

	resp, payload = doRequest(t, server, http.MethodPost, "/rooms/"+roomID+"/join", bobToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), payload["slot"])

	// And: alice's poll reflects the playing room, uncached
	resp, payload = doRequest(t, server, http.MethodGet, "/rooms/"+roomID+"/state", aliceToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.StatusOngoing, payload["status"])
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no-cache", resp.Header.Get("Pragma"))
	assert.Equal(t, "0", resp.Header.Get("Expires"))

	// When: alice moves, then bob moves out of turn
	resp, _ = doRequest(t, server, http.MethodPost, "/rooms/"+roomID+"/moves", aliceToken,
		`{"row":0,"col":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, payload = doRequest(t, server, http.MethodPost, "/rooms/"+roomID+"/moves", aliceToken,
		`{"row":0,"col":1}`)

	// Then: the rejection carries the unchanged state for reconciliation
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.NotEmpty(t, payload["error"])
	require.Contains(t, payload, "state")

	state, ok := payload["state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), state["turn"])

	// When: bob leaves mid-game
	resp, _ = doRequest(t, server, http.MethodPost, "/rooms/"+roomID+"/leave", bobToken, "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Then: the room reverts to waiting for alice
	resp, payload = doRequest(t, server, http.MethodGet, "/rooms/"+roomID+"/state", aliceToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, entity.StatusWaiting, payload["status"])

	// And: a move against an unknown room is a plain 404
	resp, _ = doRequest(t, server, http.MethodGet, "/rooms/missing/state", aliceToken, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLeaderboard(t *testing.T) {
	server := newTestServer(t)

	aliceToken := registerAndLogin(t, server, "alice")
	bobToken := registerAndLogin(t, server, "bob")

	// Given: alice beats bob with the top row
	resp, payload := doRequest(t, server, http.MethodPost, "/rooms", aliceToken, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	roomID := payload["room_id"].(string)

	resp, _ = doRequest(t, server, http.MethodPost, "/rooms/"+roomID+"/join", bobToken, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	moves := []struct {
		token string
		body  string
	}{
		{aliceToken, `{"row":0,"col":0}`},
		{bobToken, `{"row":1,"col":0}`},
		{aliceToken, `{"row":0,"col":1}`},
		{bobToken, `{"row":1,"col":1}`},
		{aliceToken, `{"row":0,"col":2}`},
	}
	for _, move := range moves {
		resp, _ = doRequest(t, server, http.MethodPost, "/rooms/"+roomID+"/moves", move.token, move.body)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	// When: the leaderboard is polled once the async stats write lands
	require.Eventually(t, func() bool {
		resp, payload = doRequest(t, server, http.MethodGet, "/leaderboard", aliceToken, "")
		if resp.StatusCode != http.StatusOK {
			return false
		}
		players, _ := payload["top_players"].([]any)
		return len(players) == 2
	}, time.Second, 20*time.Millisecond)

	// Then: alice leads with one win
	players := payload["top_players"].([]any)
	first := players[0].(map[string]any)
	assert.Equal(t, "alice", first["identity"])
	assert.Equal(t, float64(1), first["wins"])
	assert.Equal(t, float64(100), first["win_rate"])
}
