package dto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ernie/gamefinder/internal/domain"
	"github.com/ernie/gamefinder/internal/gamefinder"
)

func setupGamefinder(t *testing.T) *gamefinder.Gamefinder {
	t.Helper()
	gf := gamefinder.New(time.Hour, time.Hour, 30*time.Second)
	gf.Start()
	t.Cleanup(gf.Stop)

	alice := &domain.Coach{ID: 1, Name: "alice"}
	bob := &domain.Coach{ID: 2, Name: "bob"}
	gf.Activate(alice, []*domain.Team{
		{ID: 10, Coach: alice, Name: "Reavers", Division: "Competitive", TeamValue: 1100},
	})
	gf.Activate(bob, []*domain.Team{
		{ID: 20, Coach: bob, Name: "Maulers", Division: "Competitive", TeamValue: 1050},
	})
	return gf
}

func TestBuildStateBasics(t *testing.T) {
	gf := setupGamefinder(t)

	state := BuildState(gf, 1)

	assert.Equal(t, StateVersion, state.Version)
	assert.Equal(t, int64(1), state.CoachID)

	require.Len(t, state.MyTeams, 1)
	assert.Equal(t, "Reavers", state.MyTeams[0].Name)
	assert.Equal(t, "alice", state.MyTeams[0].CoachName)

	require.Len(t, state.Opponents, 1)
	assert.Equal(t, "bob", state.Opponents[0].CoachName)
	require.Len(t, state.Opponents[0].Teams, 1)
	assert.Equal(t, 1050, state.Opponents[0].Teams[0].TeamValue)

	// Untouched match does not appear as an offer
	assert.Empty(t, state.Offers)
}

func TestBuildStateOffers(t *testing.T) {
	gf := setupGamefinder(t)

	gf.MakeOffer(2, 20, 10)

	state := BuildState(gf, 1)
	require.Len(t, state.Offers, 1)
	assert.Equal(t, int64(10), state.Offers[0].MyTeamID)
	assert.Equal(t, int64(20), state.Offers[0].OpponentTeamID)
	assert.False(t, state.Offers[0].ShowDialog)

	gf.MakeOffer(1, 10, 20)

	state = BuildState(gf, 1)
	require.Len(t, state.Offers, 1)
	assert.Equal(t, domain.StateBothOffered, state.Offers[0].State)
	assert.True(t, state.Offers[0].ShowDialog)
}

func TestBuildStateExcludesLockedOpponents(t *testing.T) {
	gf := setupGamefinder(t)

	gf.MakeOffer(1, 10, 20)
	gf.MakeOffer(2, 20, 10)
	gf.StartGame(1, 10, 20)
	gf.StartGame(2, 20, 10)

	carol := &domain.Coach{ID: 3, Name: "carol"}
	gf.Activate(carol, []*domain.Team{{ID: 30, Coach: carol, Name: "Imps"}})

	// Alice and bob are locked after launch, so carol sees nobody
	state := BuildState(gf, 3)
	assert.Empty(t, state.Opponents)
}

func TestBuildStateUnknownCoach(t *testing.T) {
	gf := setupGamefinder(t)

	state := BuildState(gf, 99)
	assert.Empty(t, state.MyTeams)
	assert.Empty(t, state.Offers)
	// Other coaches are still visible
	assert.Len(t, state.Opponents, 2)
}
