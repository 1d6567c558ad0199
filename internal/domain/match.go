package domain

import (
	"fmt"
	"time"
)

// Team actions driving the negotiation state machine
const (
	ActionAccept = "accept"
	ActionCancel = "cancel"
	ActionStart  = "start"
)

// Negotiation states
const (
	StateOpen         = "open"
	StateTeam1Offered = "team1_offered"
	StateTeam2Offered = "team2_offered"
	StateBothOffered  = "both_offered"
	StateLaunching    = "launching"
)

// MatchKey identifies a match by its unordered team pair
type MatchKey struct {
	Low  int64
	High int64
}

// KeyFor builds a MatchKey from two team IDs in either order
func KeyFor(a, b int64) MatchKey {
	if a > b {
		a, b = b, a
	}
	return MatchKey{Low: a, High: b}
}

// MatchObserver receives the side effects of negotiation transitions.
// The match graph implements it; each callback fires exactly once per
// transition.
type MatchObserver interface {
	// TriggerStartDialog is called when both teams have offered and the
	// confirmation dialog should be shown to both coaches.
	TriggerStartDialog(m *Match)

	// ClearDialog is called when a transition invalidates a previously
	// shown confirmation dialog.
	ClearDialog(m *Match)

	// TriggerLaunchGame is called when both teams have confirmed start
	// and the match should be handed off to the game host.
	TriggerLaunchGame(m *Match)
}

// Match is a candidate pairing of two teams belonging to two distinct
// coaches, carrying its negotiation state. All methods assume single-writer
// discipline: they are only ever called from the serialization queue worker.
type Match struct {
	Team1 *Team
	Team2 *Team

	observer    MatchObserver
	dialogGrace time.Duration

	offered       [2]bool
	started       [2]bool
	launched      bool
	hidden        bool
	bothOfferedAt time.Time

	gameID int64
}

// NewMatch creates a match in the Open state. dialogGrace bounds how long
// the match may sit in BothOffered before Tick demotes it.
func NewMatch(observer MatchObserver, team1, team2 *Team, dialogGrace time.Duration) *Match {
	return &Match{
		Team1:       team1,
		Team2:       team2,
		observer:    observer,
		dialogGrace: dialogGrace,
	}
}

// Key returns the unordered team-pair identity of the match
func (m *Match) Key() MatchKey {
	return KeyFor(m.Team1.ID, m.Team2.ID)
}

// State returns the current negotiation state name
func (m *Match) State() string {
	switch {
	case m.launched:
		return StateLaunching
	case m.offered[0] && m.offered[1]:
		return StateBothOffered
	case m.offered[0]:
		return StateTeam1Offered
	case m.offered[1]:
		return StateTeam2Offered
	default:
		return StateOpen
	}
}

// Includes reports whether the team is one of the match's two teams
func (m *Match) Includes(team *Team) bool {
	return team != nil && (m.Team1.ID == team.ID || m.Team2.ID == team.ID)
}

// IsBetween reports whether the match pairs exactly the two given team IDs
func (m *Match) IsBetween(teamID1, teamID2 int64) bool {
	return m.Key() == KeyFor(teamID1, teamID2)
}

// GetOpponent returns the other team of the pairing, or nil if the given
// team is not part of the match
func (m *Match) GetOpponent(team *Team) *Team {
	switch {
	case team == nil:
		return nil
	case m.Team1.ID == team.ID:
		return m.Team2
	case m.Team2.ID == team.ID:
		return m.Team1
	default:
		return nil
	}
}

// IsDefault reports whether the match is in Open with no offers
func (m *Match) IsDefault() bool {
	return !m.launched && !m.offered[0] && !m.offered[1]
}

// IsHidden reports whether the match is excluded from the opponent-visible
// offer list after a stale dialog demotion
func (m *Match) IsHidden() bool {
	return m.hidden
}

// Launched reports whether the match reached the terminal Launching state
func (m *Match) Launched() bool {
	return m.launched
}

// SetGameID records the external game identifier assigned after launch
func (m *Match) SetGameID(id int64) {
	m.gameID = id
}

// GameID returns the external game identifier, 0 if not yet assigned
func (m *Match) GameID() int64 {
	return m.gameID
}

// Act applies a team action. A nil team is the system-issued symmetric
// cancel. Actions referencing a team outside the match are rejected
// silently; Launching is terminal.
func (m *Match) Act(action string, team *Team) {
	if m.launched {
		return
	}

	if team == nil {
		if action == ActionCancel {
			m.systemCancel()
		}
		return
	}

	idx := m.indexOf(team)
	if idx < 0 {
		return
	}

	switch action {
	case ActionAccept:
		m.accept(idx)
	case ActionCancel:
		m.cancel(idx)
	case ActionStart:
		m.start(idx)
	}
}

// Tick advances time-based state: a match sitting in BothOffered past the
// grace period is demoted to Open and flagged hidden so stale dialogs
// disappear.
func (m *Match) Tick() {
	if m.launched {
		return
	}
	if m.offered[0] && m.offered[1] && time.Since(m.bothOfferedAt) > m.dialogGrace {
		m.offered = [2]bool{}
		m.started = [2]bool{}
		m.hidden = true
		m.clearDialog()
	}
}

func (m *Match) accept(idx int) {
	if m.offered[idx] {
		return
	}
	m.offered[idx] = true
	m.hidden = false
	if m.offered[0] && m.offered[1] {
		m.bothOfferedAt = time.Now()
		if m.observer != nil {
			m.observer.TriggerStartDialog(m)
		}
	}
}

func (m *Match) cancel(idx int) {
	wasBoth := m.offered[0] && m.offered[1]
	m.offered[idx] = false
	m.started = [2]bool{}
	if wasBoth {
		m.clearDialog()
	}
}

func (m *Match) start(idx int) {
	// Start is only meaningful once both teams have offered
	if !(m.offered[0] && m.offered[1]) {
		return
	}
	if m.started[idx] {
		return
	}
	m.started[idx] = true
	if m.started[0] && m.started[1] {
		m.launched = true
		if m.observer != nil {
			m.observer.TriggerLaunchGame(m)
		}
	}
}

func (m *Match) systemCancel() {
	wasActive := m.offered[0] || m.offered[1]
	m.offered = [2]bool{}
	m.started = [2]bool{}
	if wasActive {
		m.clearDialog()
	}
}

func (m *Match) clearDialog() {
	if m.observer != nil {
		m.observer.ClearDialog(m)
	}
}

func (m *Match) indexOf(team *Team) int {
	switch {
	case m.Team1.ID == team.ID:
		return 0
	case m.Team2.ID == team.ID:
		return 1
	default:
		return -1
	}
}

func (m *Match) String() string {
	return fmt.Sprintf("Match(%d vs %d)", m.Team1.ID, m.Team2.ID)
}
