package dto

import (
	"github.com/ernie/gamefinder/internal/domain"
	"github.com/ernie/gamefinder/internal/gamefinder"
)

// StateVersion is the state document schema version. Bumped on breaking
// changes so clients can detect a stale frontend.
const StateVersion = 6

// State is the versioned matchmaking snapshot a client polls for. It is
// assembled exclusively from facade reads so it always reflects a
// consistent graph.
type State struct {
	Version   int        `json:"version"`
	CoachID   int64      `json:"coach_id"`
	MyTeams   []Team     `json:"my_teams"`
	Opponents []Opponent `json:"opponents"`
	Offers    []Offer    `json:"offers"`
}

// Opponent is another coach with its activated teams
type Opponent struct {
	CoachID   int64  `json:"coach_id"`
	CoachName string `json:"coach_name"`
	Teams     []Team `json:"teams"`
}

// Team is the client-facing projection of an activated team
type Team struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CoachID      int64  `json:"coach_id"`
	CoachName    string `json:"coach_name"`
	Division     string `json:"division"`
	TeamValue    int    `json:"team_value"`
	Roster       string `json:"roster"`
	RosterLogo32 int    `json:"roster_logo_32,omitempty"`
	Season       int    `json:"season,omitempty"`
	SeasonGames  int    `json:"season_games,omitempty"`
	LeagueName   string `json:"league_name,omitempty"`
}

// Offer is a match with negotiation activity visible to the coach
type Offer struct {
	MyTeamID       int64  `json:"my_team_id"`
	OpponentTeamID int64  `json:"opponent_team_id"`
	State          string `json:"state"`
	ShowDialog     bool   `json:"show_dialog"`
	GameID         int64  `json:"game_id,omitempty"`
}

// BuildState assembles the state document for one coach. Opponents exclude
// the coach itself and locked coaches; offers exclude untouched and hidden
// matches.
func BuildState(gf *gamefinder.Gamefinder, coachID int64) *State {
	state := &State{
		Version:   StateVersion,
		CoachID:   coachID,
		MyTeams:   []Team{},
		Opponents: []Opponent{},
		Offers:    []Offer{},
	}

	for _, team := range gf.GetActivatedTeams(coachID) {
		state.MyTeams = append(state.MyTeams, projectTeam(team))
	}

	for _, overview := range gf.GetCoachesAndTeams() {
		if overview.Coach.ID == coachID || overview.Locked {
			continue
		}
		opp := Opponent{
			CoachID:   overview.Coach.ID,
			CoachName: overview.Coach.Name,
			Teams:     []Team{},
		}
		for _, team := range overview.Teams {
			opp.Teams = append(opp.Teams, projectTeam(team))
		}
		state.Opponents = append(state.Opponents, opp)
	}

	for _, match := range gf.GetMatches(coachID) {
		if match.Hidden || match.State == domain.StateOpen {
			continue
		}
		mine, theirs := orient(match, coachID)
		state.Offers = append(state.Offers, Offer{
			MyTeamID:       mine,
			OpponentTeamID: theirs,
			State:          match.State,
			ShowDialog:     match.ShowDialog,
			GameID:         match.GameID,
		})
	}

	return state
}

// orient returns the coach's own team ID first
func orient(match gamefinder.MatchInfo, coachID int64) (mine, theirs int64) {
	if match.Team1.Coach != nil && match.Team1.Coach.ID == coachID {
		return match.Team1.ID, match.Team2.ID
	}
	return match.Team2.ID, match.Team1.ID
}

func projectTeam(team domain.Team) Team {
	out := Team{
		ID:           team.ID,
		Name:         team.Name,
		Division:     team.Division,
		TeamValue:    team.TeamValue,
		Roster:       team.Roster,
		RosterLogo32: team.RosterLogo32,
		Season:       team.Season,
		SeasonGames:  team.SeasonGames,
		LeagueName:   team.LeagueName,
	}
	if team.Coach != nil {
		out.CoachID = team.Coach.ID
		out.CoachName = team.Coach.Name
	}
	return out
}
