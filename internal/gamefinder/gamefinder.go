package gamefinder

import (
	"log"
	"time"

	"github.com/ernie/gamefinder/internal/domain"
)

// Gamefinder is the public facade over the match graph. Mutations are
// dispatched onto the EventQueue and return immediately; reads run
// serialized on the same queue and return consistent snapshots. Callers
// never touch graph entities directly.
type Gamefinder struct {
	graph *MatchGraph
	queue *EventQueue
}

// CoachOverview is a snapshot of a coach and its activated teams
type CoachOverview struct {
	Coach  domain.Coach  `json:"coach"`
	Locked bool          `json:"locked"`
	Teams  []domain.Team `json:"teams"`
}

// MatchInfo is a snapshot of a single match as seen by one coach
type MatchInfo struct {
	Team1      domain.Team `json:"team1"`
	Team2      domain.Team `json:"team2"`
	State      string      `json:"state"`
	Hidden     bool        `json:"hidden"`
	ShowDialog bool        `json:"show_dialog"`
	GameID     int64       `json:"game_id,omitempty"`
}

// New creates a stopped Gamefinder with the given policy durations
func New(tickInterval, coachTimeout, dialogGrace time.Duration) *Gamefinder {
	return &Gamefinder{
		graph: NewMatchGraph(coachTimeout, dialogGrace),
		queue: NewEventQueue(tickInterval),
	}
}

// Start launches the worker and the periodic tick
func (gf *Gamefinder) Start() {
	gf.queue.Start(gf.graph.Tick)
	log.Printf("Gamefinder: started")
}

// Stop drains the queue and shuts the worker down
func (gf *Gamefinder) Stop() {
	gf.queue.Stop()
	log.Printf("Gamefinder: stopped")
}

// Events returns the graph's change notification channel
func (gf *Gamefinder) Events() <-chan domain.Event {
	return gf.graph.Events()
}

// DroppedEvents returns how many notifications were dropped so far
func (gf *Gamefinder) DroppedEvents() uint64 {
	return gf.graph.DroppedEvents()
}

// Activate declares the full set of teams a coach currently has available.
// Teams absent from the list are withdrawn, new teams are added, existing
// teams have their attributes refreshed. Fire-and-forget.
func (gf *Gamefinder) Activate(coach *domain.Coach, teams []*domain.Team) {
	if coach == nil {
		return
	}
	gf.queue.Dispatch(func() {
		canonical := gf.graph.GetCoach(coach.ID)
		if canonical == nil {
			gf.graph.AddCoach(coach)
			canonical = coach
		}
		gf.graph.Ping(canonical)

		wanted := make(map[int64]bool, len(teams))
		for _, team := range teams {
			if team == nil {
				continue
			}
			wanted[team.ID] = true
		}
		for _, team := range gf.graph.GetTeams(canonical) {
			if !wanted[team.ID] {
				gf.graph.RemoveTeam(team)
			}
		}
		for _, team := range teams {
			if team == nil {
				continue
			}
			team.Coach = canonical
			gf.graph.AddTeam(team)
		}
	})
}

// Deactivate withdraws a coach and everything attached to it
func (gf *Gamefinder) Deactivate(coachID int64) {
	gf.queue.Dispatch(func() {
		if coach := gf.graph.GetCoach(coachID); coach != nil {
			gf.graph.RemoveCoach(coach)
		}
	})
}

// GetCoachesAndTeams returns a snapshot of every coach with its teams
func (gf *Gamefinder) GetCoachesAndTeams() []CoachOverview {
	var out []CoachOverview
	gf.queue.Serialized(func() {
		for _, coach := range gf.graph.GetCoaches() {
			overview := CoachOverview{Coach: *coach, Locked: coach.Locked()}
			for _, team := range gf.graph.GetTeams(coach) {
				overview.Teams = append(overview.Teams, *team)
			}
			out = append(out, overview)
		}
	})
	return out
}

// GetActivatedTeams returns a snapshot of the coach's activated teams
func (gf *Gamefinder) GetActivatedTeams(coachID int64) []domain.Team {
	var out []domain.Team
	gf.queue.Serialized(func() {
		coach := gf.graph.GetCoach(coachID)
		if coach == nil {
			return
		}
		for _, team := range gf.graph.GetTeams(coach) {
			out = append(out, *team)
		}
	})
	return out
}

// GetMatches returns a snapshot of the coach's matches and refreshes the
// coach's liveness. ShowDialog is set on the single match, if any, whose
// confirmation dialog the coach should currently see.
func (gf *Gamefinder) GetMatches(coachID int64) []MatchInfo {
	var out []MatchInfo
	gf.queue.Serialized(func() {
		coach := gf.graph.GetCoach(coachID)
		if coach == nil {
			return
		}
		gf.graph.Ping(coach)

		dialog := gf.graph.GetActiveDialog(coach)
		for _, match := range gf.graph.GetMatches(coach) {
			info := MatchInfo{
				Team1:  *match.Team1,
				Team2:  *match.Team2,
				State:  match.State(),
				Hidden: match.IsHidden(),
				GameID: match.GameID(),
			}
			if dialog != nil && dialog.Key() == match.Key() {
				info.ShowDialog = true
			}
			out = append(out, info)
		}
	})
	return out
}

// GetAllMatches returns a snapshot of every match in the graph
func (gf *Gamefinder) GetAllMatches() []MatchInfo {
	var out []MatchInfo
	gf.queue.Serialized(func() {
		for _, match := range gf.graph.GetAllMatches() {
			out = append(out, MatchInfo{
				Team1:  *match.Team1,
				Team2:  *match.Team2,
				State:  match.State(),
				Hidden: match.IsHidden(),
				GameID: match.GameID(),
			})
		}
	})
	return out
}

// MakeOffer records that the coach's team offers to play the opponent team.
// Fire-and-forget; ownership and pairing are validated on the worker and
// invalid requests are dropped silently.
func (gf *Gamefinder) MakeOffer(coachID, teamID, opponentTeamID int64) {
	gf.act(domain.ActionAccept, coachID, teamID, opponentTeamID)
}

// CancelOffer withdraws a previously made offer
func (gf *Gamefinder) CancelOffer(coachID, teamID, opponentTeamID int64) {
	gf.act(domain.ActionCancel, coachID, teamID, opponentTeamID)
}

// StartGame confirms the start dialog for the coach's side of the match
func (gf *Gamefinder) StartGame(coachID, teamID, opponentTeamID int64) {
	gf.act(domain.ActionStart, coachID, teamID, opponentTeamID)
}

// AssignGameID records the external game identifier on a launched match
func (gf *Gamefinder) AssignGameID(teamID1, teamID2, gameID int64) {
	gf.queue.Dispatch(func() {
		match := gf.graph.GetMatchBetween(teamID1, teamID2)
		if match == nil || !match.Launched() {
			return
		}
		match.SetGameID(gameID)
	})
}

// Reset clears the whole graph. Admin operation.
func (gf *Gamefinder) Reset() {
	gf.queue.Dispatch(func() {
		log.Printf("Gamefinder: resetting match graph")
		gf.graph.Reset()
	})
}

func (gf *Gamefinder) act(action string, coachID, teamID, opponentTeamID int64) {
	gf.queue.Dispatch(func() {
		coach := gf.graph.GetCoach(coachID)
		if coach == nil {
			return
		}
		gf.graph.Ping(coach)

		match := gf.graph.GetMatchBetween(teamID, opponentTeamID)
		if match == nil {
			return
		}
		team := gf.graph.GetTeam(teamID)
		if team == nil || team.Coach == nil || team.Coach.ID != coachID {
			return
		}
		match.Act(action, team)
	})
}
