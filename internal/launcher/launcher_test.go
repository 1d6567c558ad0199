package launcher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/gamefinder/internal/domain"
	"github.com/ernie/gamefinder/internal/gamefinder"
	"github.com/ernie/gamefinder/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// launchedPair builds a running pool with one launched match between
// team 10 (alice) and team 20 (bob)
func launchedPair(t *testing.T) *gamefinder.Gamefinder {
	t.Helper()
	gf := gamefinder.New(time.Hour, time.Hour, 30*time.Second)
	gf.Start()
	t.Cleanup(gf.Stop)

	alice := &domain.Coach{ID: 1, Name: "alice"}
	bob := &domain.Coach{ID: 2, Name: "bob"}
	gf.Activate(alice, []*domain.Team{{ID: 10, Coach: alice, Name: "Reavers"}})
	gf.Activate(bob, []*domain.Team{{ID: 20, Coach: bob, Name: "Maulers"}})

	gf.MakeOffer(1, 10, 20)
	gf.MakeOffer(2, 20, 10)
	gf.StartGame(1, 10, 20)
	gf.StartGame(2, 20, 10)

	matches := gf.GetMatches(1)
	require.Len(t, matches, 1)
	require.Equal(t, domain.StateLaunching, matches[0].State)
	return gf
}

func launchEvent() domain.MatchLaunchedEvent {
	return domain.MatchLaunchedEvent{
		Team1ID: 10, Team2ID: 20,
		Coach1ID: 1, Coach2ID: 2,
		Team1Name: "Reavers", Team2Name: "Maulers",
		Coach1Name: "alice", Coach2Name: "bob",
	}
}

func TestHandleLaunchStartsGame(t *testing.T) {
	gf := launchedPair(t)
	store := newTestStore(t)

	var gotReq StartGameRequest
	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(StartGameResponse{GameID: 4711})
	}))
	defer host.Close()

	l := New(gf, store, host.URL, 5*time.Second)
	l.HandleLaunch(t.Context(), launchEvent())

	assert.Equal(t, int64(10), gotReq.Team1ID)
	assert.Equal(t, int64(20), gotReq.Team2ID)
	assert.Equal(t, int64(1), gotReq.Coach1ID)
	assert.Equal(t, int64(2), gotReq.Coach2ID)
	assert.NotEmpty(t, gotReq.LaunchUUID)

	matches := gf.GetMatches(1)
	require.Len(t, matches, 1)
	assert.Equal(t, int64(4711), matches[0].GameID)

	launches, err := store.GetLaunches(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, launches, 1)
	require.NotNil(t, launches[0].GameID)
	assert.Equal(t, int64(4711), *launches[0].GameID)
	assert.Equal(t, gotReq.LaunchUUID, launches[0].LaunchUUID)
}

func TestHandleLaunchWithoutHost(t *testing.T) {
	gf := launchedPair(t)
	store := newTestStore(t)

	l := New(gf, store, "", 5*time.Second)
	l.HandleLaunch(t.Context(), launchEvent())

	// Launch is recorded but no game id is assigned
	launches, err := store.GetLaunches(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, launches, 1)
	assert.Nil(t, launches[0].GameID)

	matches := gf.GetMatches(1)
	require.Len(t, matches, 1)
	assert.Zero(t, matches[0].GameID)
}

func TestHandleLaunchHostError(t *testing.T) {
	gf := launchedPair(t)
	store := newTestStore(t)

	host := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer host.Close()

	l := New(gf, store, host.URL, 5*time.Second)
	l.HandleLaunch(t.Context(), launchEvent())

	// Record survives, no game id
	launches, err := store.GetLaunches(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, launches, 1)
	assert.Nil(t, launches[0].GameID)
}
