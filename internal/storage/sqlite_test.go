package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestUserCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	coachID := int64(42)
	user, err := store.CreateUser(ctx, "alice", "hash1", false, &coachID)
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.Username)
	require.NotNil(t, user.CoachID)
	assert.Equal(t, int64(42), *user.CoachID)
	assert.Nil(t, user.LastLogin)

	// Duplicate username fails
	_, err = store.CreateUser(ctx, "alice", "hash2", false, nil)
	assert.Error(t, err)

	got, err := store.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash1", got.PasswordHash)

	got, err = store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = store.GetUserByUsername(ctx, "nobody")
	assert.Error(t, err)

	require.NoError(t, store.UpdateUserPassword(ctx, user.ID, "hash3"))
	require.NoError(t, store.UpdateUserAdmin(ctx, user.ID, true))
	require.NoError(t, store.UpdateUserCoachLink(ctx, user.ID, nil))
	require.NoError(t, store.UpdateUserLastLogin(ctx, user.ID))

	got, err = store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash3", got.PasswordHash)
	assert.True(t, got.IsAdmin)
	assert.Nil(t, got.CoachID)
	assert.NotNil(t, got.LastLogin)

	_, err = store.CreateUser(ctx, "bob", "hash", false, nil)
	require.NoError(t, err)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, store.DeleteUser(ctx, "bob"))
	err = store.DeleteUser(ctx, "bob")
	assert.Error(t, err)

	users, err = store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestLaunchHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	rec := &LaunchRecord{
		LaunchUUID: "uuid-1",
		Team1ID:    10, Team2ID: 20,
		Team1Name: "Reavers", Team2Name: "Maulers",
		Coach1ID: 1, Coach2ID: 2,
		Coach1Name: "alice", Coach2Name: "bob",
		LaunchedAt: time.Now().UTC(),
	}
	require.NoError(t, store.RecordLaunch(ctx, rec))
	assert.NotZero(t, rec.ID)

	// Duplicate launch UUID fails
	dup := *rec
	dup.ID = 0
	assert.Error(t, store.RecordLaunch(ctx, &dup))

	require.NoError(t, store.SetLaunchGameID(ctx, "uuid-1", 4711))

	launches, err := store.GetLaunches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, launches, 1)
	require.NotNil(t, launches[0].GameID)
	assert.Equal(t, int64(4711), *launches[0].GameID)
	assert.Equal(t, "Reavers", launches[0].Team1Name)

	second := &LaunchRecord{
		LaunchUUID: "uuid-2",
		Team1ID:    30, Team2ID: 40,
		Team1Name: "Crushers", Team2Name: "Breakers",
		Coach1ID: 3, Coach2ID: 4,
		Coach1Name: "carol", Coach2Name: "dave",
		LaunchedAt: time.Now().UTC().Add(time.Second),
	}
	require.NoError(t, store.RecordLaunch(ctx, second))

	// Newest first
	launches, err = store.GetLaunches(ctx, 10)
	require.NoError(t, err)
	require.Len(t, launches, 2)
	assert.Equal(t, "uuid-2", launches[0].LaunchUUID)

	launches, err = store.GetLaunches(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, launches, 1)

	launches, err = store.GetLaunchesForCoach(ctx, 2, 10)
	require.NoError(t, err)
	require.Len(t, launches, 1)
	assert.Equal(t, "uuid-1", launches[0].LaunchUUID)

	launches, err = store.GetLaunchesForCoach(ctx, 99, 10)
	require.NoError(t, err)
	assert.Empty(t, launches)
}
