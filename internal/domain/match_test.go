package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	startDialogs int
	clearDialogs int
	launches     int
}

func (o *recordingObserver) TriggerStartDialog(m *Match) { o.startDialogs++ }
func (o *recordingObserver) ClearDialog(m *Match)        { o.clearDialogs++ }
func (o *recordingObserver) TriggerLaunchGame(m *Match)  { o.launches++ }

func testMatch(obs MatchObserver) *Match {
	coach1 := &Coach{ID: 1, Name: "alice"}
	coach2 := &Coach{ID: 2, Name: "bob"}
	team1 := &Team{ID: 10, Coach: coach1, Name: "Reavers"}
	team2 := &Team{ID: 20, Coach: coach2, Name: "Maulers"}
	return NewMatch(obs, team1, team2, 30*time.Second)
}

func TestMatchOfferProgression(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	assert.Equal(t, StateOpen, m.State())
	assert.True(t, m.IsDefault())

	m.Act(ActionAccept, m.Team1)
	assert.Equal(t, StateTeam1Offered, m.State())
	assert.Equal(t, 0, obs.startDialogs)

	m.Act(ActionAccept, m.Team2)
	assert.Equal(t, StateBothOffered, m.State())
	assert.Equal(t, 1, obs.startDialogs)
}

func TestMatchAcceptIsIdempotent(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	m.Act(ActionAccept, m.Team1)
	m.Act(ActionAccept, m.Team1)
	m.Act(ActionAccept, m.Team1)

	assert.Equal(t, StateTeam1Offered, m.State())

	m.Act(ActionAccept, m.Team2)
	m.Act(ActionAccept, m.Team2)

	assert.Equal(t, StateBothOffered, m.State())
	assert.Equal(t, 1, obs.startDialogs, "dialog must trigger exactly once")
}

func TestMatchCancelFromBothOfferedClearsDialog(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	m.Act(ActionAccept, m.Team1)
	m.Act(ActionAccept, m.Team2)
	require.Equal(t, StateBothOffered, m.State())

	m.Act(ActionCancel, m.Team2)
	assert.Equal(t, StateTeam1Offered, m.State())
	assert.Equal(t, 1, obs.clearDialogs)
}

func TestMatchSystemCancel(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	m.Act(ActionAccept, m.Team1)
	m.Act(ActionAccept, m.Team2)

	m.Act(ActionCancel, nil)
	assert.Equal(t, StateOpen, m.State())
	assert.Equal(t, 1, obs.clearDialogs)

	// System cancel of an already-open match is silent
	m.Act(ActionCancel, nil)
	assert.Equal(t, 1, obs.clearDialogs)
}

func TestMatchStartRequiresBothOffered(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	m.Act(ActionStart, m.Team1)
	assert.Equal(t, StateOpen, m.State())
	assert.Equal(t, 0, obs.launches)

	m.Act(ActionAccept, m.Team1)
	m.Act(ActionStart, m.Team1)
	assert.Equal(t, StateTeam1Offered, m.State())
	assert.Equal(t, 0, obs.launches)
}

func TestMatchLaunchOnBothStart(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	m.Act(ActionAccept, m.Team1)
	m.Act(ActionAccept, m.Team2)
	m.Act(ActionStart, m.Team1)
	assert.Equal(t, 0, obs.launches)

	m.Act(ActionStart, m.Team2)
	assert.Equal(t, StateLaunching, m.State())
	assert.True(t, m.Launched())
	assert.Equal(t, 1, obs.launches)

	// Launching is terminal
	m.Act(ActionCancel, m.Team1)
	m.Act(ActionCancel, nil)
	assert.Equal(t, StateLaunching, m.State())
	assert.Equal(t, 1, obs.launches)
}

func TestMatchCancelResetsStartConfirmations(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	m.Act(ActionAccept, m.Team1)
	m.Act(ActionAccept, m.Team2)
	m.Act(ActionStart, m.Team1)

	m.Act(ActionCancel, m.Team2)
	m.Act(ActionAccept, m.Team2)
	require.Equal(t, StateBothOffered, m.State())

	// Team1's earlier confirmation must not survive the cancel
	m.Act(ActionStart, m.Team2)
	assert.Equal(t, 0, obs.launches)
	m.Act(ActionStart, m.Team1)
	assert.Equal(t, 1, obs.launches)
}

func TestMatchRejectsForeignTeam(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	stranger := &Team{ID: 99, Coach: &Coach{ID: 9, Name: "eve"}}
	m.Act(ActionAccept, stranger)
	assert.Equal(t, StateOpen, m.State())
}

func TestMatchTickDemotesStaleDialog(t *testing.T) {
	obs := &recordingObserver{}
	m := testMatch(obs)

	m.Act(ActionAccept, m.Team1)
	m.Act(ActionAccept, m.Team2)

	// Fresh dialog survives a tick
	m.Tick()
	assert.Equal(t, StateBothOffered, m.State())
	assert.False(t, m.IsHidden())

	m.bothOfferedAt = time.Now().Add(-time.Minute)
	m.Tick()
	assert.Equal(t, StateOpen, m.State())
	assert.True(t, m.IsHidden())
	assert.Equal(t, 1, obs.clearDialogs)

	// Hidden clears on the next accept
	m.Act(ActionAccept, m.Team1)
	assert.False(t, m.IsHidden())
}

func TestMatchPredicates(t *testing.T) {
	m := testMatch(nil)

	assert.True(t, m.IsBetween(10, 20))
	assert.True(t, m.IsBetween(20, 10))
	assert.False(t, m.IsBetween(10, 30))

	assert.True(t, m.Includes(m.Team1))
	assert.False(t, m.Includes(&Team{ID: 77}))
	assert.False(t, m.Includes(nil))

	assert.Equal(t, m.Team2, m.GetOpponent(m.Team1))
	assert.Equal(t, m.Team1, m.GetOpponent(m.Team2))
	assert.Nil(t, m.GetOpponent(&Team{ID: 77}))
	assert.Nil(t, m.GetOpponent(nil))
}

func TestMatchGameID(t *testing.T) {
	m := testMatch(nil)
	assert.Zero(t, m.GameID())
	m.SetGameID(4711)
	assert.Equal(t, int64(4711), m.GameID())
}

func TestTeamUpdateKeepsIdentity(t *testing.T) {
	coach := &Coach{ID: 1, Name: "alice"}
	team := &Team{ID: 10, Coach: coach, Name: "Reavers", TeamValue: 1000}

	team.Update(&Team{ID: 999, Name: "Renamed", TeamValue: 1200, Division: "Competitive"})

	assert.Equal(t, int64(10), team.ID)
	assert.Same(t, coach, team.Coach)
	assert.Equal(t, "Renamed", team.Name)
	assert.Equal(t, 1200, team.TeamValue)
	assert.Equal(t, "Competitive", team.Division)
}

func TestTeamIsOpponentAllowed(t *testing.T) {
	coach1 := &Coach{ID: 1}
	coach2 := &Coach{ID: 2}
	t1 := &Team{ID: 10, Coach: coach1}
	t2 := &Team{ID: 20, Coach: coach2}
	t3 := &Team{ID: 30, Coach: coach1}

	assert.True(t, t1.IsOpponentAllowed(t2))
	assert.False(t, t1.IsOpponentAllowed(t3), "same coach")
	assert.False(t, t1.IsOpponentAllowed(nil))
	assert.False(t, t1.IsOpponentAllowed(&Team{ID: 40}))
}
