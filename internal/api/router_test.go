package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/gamefinder/internal/auth"
	"github.com/ernie/gamefinder/internal/dto"
	"github.com/ernie/gamefinder/internal/gamefinder"
	"github.com/ernie/gamefinder/internal/storage"
)

type testEnv struct {
	router *Router
	gf     *gamefinder.Gamefinder
	store  *storage.Store
	auth   *auth.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gf := gamefinder.New(time.Hour, time.Hour, 30*time.Second)
	gf.Start()
	t.Cleanup(gf.Stop)

	authService := auth.NewService("test-secret", time.Hour)
	router := NewRouter(gf, store, authService, "")

	return &testEnv{router: router, gf: gf, store: store, auth: authService}
}

func (e *testEnv) coachToken(t *testing.T, coachID int64, name string) string {
	t.Helper()
	token, err := e.auth.GenerateToken(1, name, false, &coachID)
	require.NoError(t, err)
	return token
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, err := e.auth.GenerateToken(99, "admin", true, nil)
	require.NoError(t, err)
	return token
}

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// flush waits until everything queued before it has executed
func flush(gf *gamefinder.Gamefinder) {
	gf.GetCoachesAndTeams()
}

func activateBody(teamIDs ...int64) ActivateRequest {
	var body ActivateRequest
	for _, id := range teamIDs {
		body.Teams = append(body.Teams, TeamPayload{
			ID:       id,
			Name:     fmt.Sprintf("Team %d", id),
			Division: "Competitive",
		})
	}
	return body
}

func TestActivateRequiresCoachAccount(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/activate", "", activateBody(10))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/activate", env.adminToken(t), activateBody(10))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestActivateAndState(t *testing.T) {
	env := newTestEnv(t)
	alice := env.coachToken(t, 1, "alice")
	bob := env.coachToken(t, 2, "bob")

	w := env.request(t, http.MethodPost, "/api/activate", alice, activateBody(10))
	require.Equal(t, http.StatusAccepted, w.Code)
	w = env.request(t, http.MethodPost, "/api/activate", bob, activateBody(20))
	require.Equal(t, http.StatusAccepted, w.Code)
	flush(env.gf)

	w = env.request(t, http.MethodGet, "/api/state", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var state dto.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, dto.StateVersion, state.Version)
	assert.Equal(t, int64(1), state.CoachID)
	require.Len(t, state.MyTeams, 1)
	assert.Equal(t, int64(10), state.MyTeams[0].ID)
	require.Len(t, state.Opponents, 1)
	assert.Equal(t, int64(2), state.Opponents[0].CoachID)
	assert.Empty(t, state.Offers)
}

func TestActivateRejectsBadTeam(t *testing.T) {
	env := newTestEnv(t)
	alice := env.coachToken(t, 1, "alice")

	body := ActivateRequest{Teams: []TeamPayload{{ID: 0, Name: "Nameless"}}}
	w := env.request(t, http.MethodPost, "/api/activate", alice, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = ActivateRequest{Teams: []TeamPayload{{ID: 10, Name: "  "}}}
	w = env.request(t, http.MethodPost, "/api/activate", alice, body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOfferFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.coachToken(t, 1, "alice")
	bob := env.coachToken(t, 2, "bob")

	env.request(t, http.MethodPost, "/api/activate", alice, activateBody(10))
	env.request(t, http.MethodPost, "/api/activate", bob, activateBody(20))
	flush(env.gf)

	offer := OfferRequest{TeamID: 10, OpponentTeamID: 20}
	w := env.request(t, http.MethodPost, "/api/offers", alice, offer)
	require.Equal(t, http.StatusAccepted, w.Code)
	w = env.request(t, http.MethodPost, "/api/offers", bob, OfferRequest{TeamID: 20, OpponentTeamID: 10})
	require.Equal(t, http.StatusAccepted, w.Code)
	flush(env.gf)

	w = env.request(t, http.MethodGet, "/api/state", alice, nil)
	var state dto.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	require.Len(t, state.Offers, 1)
	assert.True(t, state.Offers[0].ShowDialog)

	// Both confirm, match launches
	env.request(t, http.MethodPost, "/api/start", alice, offer)
	env.request(t, http.MethodPost, "/api/start", bob, OfferRequest{TeamID: 20, OpponentTeamID: 10})
	flush(env.gf)

	w = env.request(t, http.MethodGet, "/api/matches", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var matches []gamefinder.MatchInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matches))
	require.Len(t, matches, 1)
	assert.Equal(t, "launching", matches[0].State)
}

func TestOfferValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.coachToken(t, 1, "alice")

	w := env.request(t, http.MethodPost, "/api/offers", alice, OfferRequest{TeamID: 0, OpponentTeamID: 20})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginAndAuthCheck(t *testing.T) {
	env := newTestEnv(t)

	hash, err := auth.HashPassword("secret-pass")
	require.NoError(t, err)
	coachID := int64(7)
	_, err = env.store.CreateUser(t.Context(), "alice", hash, false, &coachID)
	require.NoError(t, err)

	w := env.request(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.request(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Username: "alice", Password: "secret-pass"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	require.NotNil(t, resp.CoachID)
	assert.Equal(t, int64(7), *resp.CoachID)

	w = env.request(t, http.MethodGet, "/api/auth/check", resp.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &check))
	assert.Equal(t, true, check["authenticated"])
	assert.Equal(t, "alice", check["username"])
}

func TestUserAdminEndpoints(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)

	w := env.request(t, http.MethodPost, "/api/users", admin, CreateUserRequest{Username: "bob", Password: "longenough"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "bob", created.Username)

	w = env.request(t, http.MethodGet, "/api/users", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var users []UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Len(t, users, 1)

	// Non-admin cannot touch the user surface
	coach := env.coachToken(t, 1, "alice")
	w = env.request(t, http.MethodGet, "/api/users", coach, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodDelete, "/api/users/bob", admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.request(t, http.MethodDelete, "/api/users/admin", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminReset(t *testing.T) {
	env := newTestEnv(t)
	alice := env.coachToken(t, 1, "alice")

	env.request(t, http.MethodPost, "/api/activate", alice, activateBody(10))
	flush(env.gf)

	w := env.request(t, http.MethodPost, "/api/admin/reset", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.request(t, http.MethodPost, "/api/admin/reset", env.adminToken(t), nil)
	require.Equal(t, http.StatusOK, w.Code)
	flush(env.gf)

	assert.Empty(t, env.gf.GetCoachesAndTeams())
}

func TestHealthAndCORS(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodOptions, "/api/state", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLaunchHistoryEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := &storage.LaunchRecord{
		LaunchUUID: "uuid-1",
		Team1ID:    10, Team2ID: 20,
		Team1Name: "Reavers", Team2Name: "Maulers",
		Coach1ID: 1, Coach2ID: 2,
		Coach1Name: "alice", Coach2Name: "bob",
		LaunchedAt: time.Now().UTC(),
	}
	require.NoError(t, env.store.RecordLaunch(t.Context(), rec))

	w := env.request(t, http.MethodGet, "/api/launches", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var launches []storage.LaunchRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &launches))
	require.Len(t, launches, 1)
	assert.Equal(t, "uuid-1", launches[0].LaunchUUID)

	w = env.request(t, http.MethodGet, "/api/coaches/2/launches", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &launches))
	assert.Len(t, launches, 1)

	w = env.request(t, http.MethodGet, "/api/coaches/3/launches", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &launches))
	assert.Empty(t, launches)
}
