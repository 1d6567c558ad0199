package gamefinder

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/ernie/gamefinder/internal/domain"
)

// MatchGraph keeps coaches, teams, matches and dialogs mutually
// consistent. It owns the compatibility invariant: every pair of active
// teams with distinct, unlocked coaches has exactly one match. All methods
// run on the EventQueue worker; the graph has no locks of its own.
type MatchGraph struct {
	coaches *CoachStore
	teams   *TeamStore
	matches *MatchStore
	dialogs *DialogManager

	dialogGrace time.Duration

	events        chan domain.Event
	droppedEvents atomic.Uint64
}

// NewMatchGraph creates an empty graph
func NewMatchGraph(coachTimeout, dialogGrace time.Duration) *MatchGraph {
	return &MatchGraph{
		coaches:     NewCoachStore(coachTimeout),
		teams:       NewTeamStore(),
		matches:     NewMatchStore(),
		dialogs:     NewDialogManager(),
		dialogGrace: dialogGrace,
		events:      make(chan domain.Event, 256),
	}
}

// Events returns the change notification channel for broadcasting
func (g *MatchGraph) Events() <-chan domain.Event {
	return g.events
}

// DroppedEvents returns how many notifications were dropped on a full
// channel. Safe to call from outside the worker.
func (g *MatchGraph) DroppedEvents() uint64 {
	return g.droppedEvents.Load()
}

// AddCoach registers a coach without any teams
func (g *MatchGraph) AddCoach(coach *domain.Coach) {
	if coach == nil || g.coaches.Contains(coach) {
		return
	}
	g.coaches.Add(coach)
	g.emitEvent(domain.Event{
		Type:      domain.EventCoachAdded,
		Timestamp: time.Now().UTC(),
		Data:      domain.CoachEvent{CoachID: coach.ID, CoachName: coach.Name},
	})
}

// RemoveCoach drops a coach and cascades through its teams, matches and
// dialogs. No-op for an unknown coach.
func (g *MatchGraph) RemoveCoach(coach *domain.Coach) {
	if coach == nil || !g.coaches.Contains(coach) {
		return
	}
	coach = g.coaches.Get(coach.ID)

	for _, team := range g.teams.GetTeams(coach) {
		g.RemoveTeam(team)
	}
	g.dialogs.RemoveCoach(coach)
	g.coaches.Remove(coach)

	g.emitEvent(domain.Event{
		Type:      domain.EventCoachRemoved,
		Timestamp: time.Now().UTC(),
		Data:      domain.CoachEvent{CoachID: coach.ID, CoachName: coach.Name},
	})
}

// AddTeam activates a team, creating its coach if unknown and deriving an
// Open match against every compatible opposing team. A team whose ID is
// already present has its attributes refreshed in place instead.
func (g *MatchGraph) AddTeam(team *domain.Team) {
	if team == nil || team.Coach == nil {
		return
	}

	if existing := g.teams.Get(team.ID); existing != nil {
		// Only the owning coach may refresh a team's attributes
		if existing.Coach == nil || existing.Coach.ID != team.Coach.ID {
			return
		}
		existing.Update(team)
		return
	}

	coach := g.coaches.Get(team.Coach.ID)
	if coach == nil {
		g.AddCoach(team.Coach)
		coach = team.Coach
	}
	// Point at the canonical coach instance so lock state is shared
	team.Coach = coach

	g.teams.Add(team)
	g.emitEvent(domain.Event{
		Type:      domain.EventTeamAdded,
		Timestamp: time.Now().UTC(),
		Data:      domain.TeamEvent{TeamID: team.ID, TeamName: team.Name, CoachID: coach.ID},
	})

	if coach.Locked() {
		return
	}
	// The pre-existing team is always Team1
	for _, opponent := range g.teams.All() {
		if !team.IsOpponentAllowed(opponent) || opponent.Coach.Locked() {
			continue
		}
		g.addMatch(domain.NewMatch(g, opponent, team, g.dialogGrace))
	}
}

// RemoveTeam withdraws a team and cascades through its matches and
// dialogs. Removing a launched match releases both coach locks.
func (g *MatchGraph) RemoveTeam(team *domain.Team) {
	if team == nil || !g.teams.Contains(team) {
		return
	}
	team = g.teams.Get(team.ID)

	for _, match := range g.matches.GetMatches(team) {
		g.removeMatch(match)
	}
	g.dialogs.RemoveTeam(team)
	g.teams.Remove(team)

	var coachID int64
	if team.Coach != nil {
		coachID = team.Coach.ID
	}
	g.emitEvent(domain.Event{
		Type:      domain.EventTeamRemoved,
		Timestamp: time.Now().UTC(),
		Data:      domain.TeamEvent{TeamID: team.ID, TeamName: team.Name, CoachID: coachID},
	})
}

// GetCoach returns the registered coach for an ID, nil if unknown
func (g *MatchGraph) GetCoach(id int64) *domain.Coach {
	return g.coaches.Get(id)
}

// GetCoaches returns every registered coach
func (g *MatchGraph) GetCoaches() []*domain.Coach {
	return g.coaches.All()
}

// GetTeam returns the registered team for an ID, nil if unknown
func (g *MatchGraph) GetTeam(id int64) *domain.Team {
	return g.teams.Get(id)
}

// GetTeams returns all activated teams for a coach
func (g *MatchGraph) GetTeams(coach *domain.Coach) []*domain.Team {
	return g.teams.GetTeams(coach)
}

// GetAllTeams returns every activated team
func (g *MatchGraph) GetAllTeams() []*domain.Team {
	return g.teams.All()
}

// GetMatches returns every match involving one of the coach's teams
func (g *MatchGraph) GetMatches(coach *domain.Coach) []*domain.Match {
	var out []*domain.Match
	for _, team := range g.teams.GetTeams(coach) {
		out = append(out, g.matches.GetMatches(team)...)
	}
	return out
}

// GetAllMatches returns every match in the graph
func (g *MatchGraph) GetAllMatches() []*domain.Match {
	return g.matches.All()
}

// GetMatchBetween returns the match for a team pair, nil if none
func (g *MatchGraph) GetMatchBetween(teamID1, teamID2 int64) *domain.Match {
	return g.matches.GetBetween(teamID1, teamID2)
}

// GetActiveDialog returns the dialog the coach should currently see
func (g *MatchGraph) GetActiveDialog(coach *domain.Coach) *domain.Match {
	return g.dialogs.GetActiveDialog(coach)
}

// Ping refreshes the liveness timestamp for a coach
func (g *MatchGraph) Ping(coach *domain.Coach) {
	g.coaches.Ping(coach)
}

// Tick advances match state, sweeps timed-out coaches and emits a single
// graph-updated notification
func (g *MatchGraph) Tick() {
	for _, match := range g.matches.All() {
		match.Tick()
	}

	for _, coach := range g.coaches.TimedOut() {
		log.Printf("MatchGraph: coach %s timed out, removing", coach)
		g.RemoveCoach(coach)
	}

	g.emitEvent(domain.Event{
		Type:      domain.EventGraphUpdated,
		Timestamp: time.Now().UTC(),
		Data: domain.GraphUpdatedEvent{
			Coaches: g.coaches.Size(),
			Teams:   g.teams.Size(),
			Matches: g.matches.Size(),
			Dialogs: g.dialogs.Size(),
		},
	})
}

// Reset clears the whole graph
func (g *MatchGraph) Reset() {
	g.coaches = NewCoachStore(g.coaches.timeout)
	g.teams = NewTeamStore()
	g.matches = NewMatchStore()
	g.dialogs.Clear()

	g.emitEvent(domain.Event{
		Type:      domain.EventGraphUpdated,
		Timestamp: time.Now().UTC(),
		Data:      domain.GraphUpdatedEvent{},
	})
}

// TriggerStartDialog implements domain.MatchObserver. Both coaches get the
// confirmation dialog for the match.
func (g *MatchGraph) TriggerStartDialog(m *domain.Match) {
	g.dialogs.Add(m)
}

// ClearDialog implements domain.MatchObserver
func (g *MatchGraph) ClearDialog(m *domain.Match) {
	g.dialogs.Remove(m)
}

// TriggerLaunchGame implements domain.MatchObserver. Fired exactly once
// when both teams confirm start: locks both coaches, clears dialogs, and
// system-cancels every competing match.
func (g *MatchGraph) TriggerLaunchGame(m *domain.Match) {
	coach1 := m.Team1.Coach
	coach2 := m.Team2.Coach
	coach1.Lock()
	coach2.Lock()

	g.dialogs.RemoveCoach(coach1)
	g.dialogs.RemoveCoach(coach2)

	for _, match := range g.matches.All() {
		if match.Key() == m.Key() || match.Launched() {
			continue
		}
		if coachInMatch(coach1, match) || coachInMatch(coach2, match) {
			match.Act(domain.ActionCancel, nil)
		}
	}

	log.Printf("MatchGraph: launching %s (%s vs %s)", m, coach1.Name, coach2.Name)
	g.emitEvent(domain.Event{
		Type:      domain.EventMatchLaunched,
		Timestamp: time.Now().UTC(),
		Data: domain.MatchLaunchedEvent{
			Team1ID:    m.Team1.ID,
			Team2ID:    m.Team2.ID,
			Coach1ID:   coach1.ID,
			Coach2ID:   coach2.ID,
			Team1Name:  m.Team1.Name,
			Team2Name:  m.Team2.Name,
			Coach1Name: coach1.Name,
			Coach2Name: coach2.Name,
		},
	})
}

func (g *MatchGraph) addMatch(m *domain.Match) {
	if g.matches.Contains(m) {
		return
	}
	g.matches.Add(m)
	g.emitEvent(domain.Event{
		Type:      domain.EventMatchAdded,
		Timestamp: time.Now().UTC(),
		Data:      domain.MatchEvent{Team1ID: m.Team1.ID, Team2ID: m.Team2.ID, State: m.State()},
	})
}

func (g *MatchGraph) removeMatch(m *domain.Match) {
	if !g.matches.Contains(m) {
		return
	}
	if m.Launched() {
		m.Team1.Coach.Unlock()
		m.Team2.Coach.Unlock()
	}
	g.dialogs.Remove(m)
	g.matches.Remove(m)
	g.emitEvent(domain.Event{
		Type:      domain.EventMatchRemoved,
		Timestamp: time.Now().UTC(),
		Data:      domain.MatchEvent{Team1ID: m.Team1.ID, Team2ID: m.Team2.ID},
	})
}

// emitEvent sends an event to the event channel
func (g *MatchGraph) emitEvent(event domain.Event) {
	select {
	case g.events <- event:
	default:
		// Channel full, drop event
		g.droppedEvents.Add(1)
	}
}
