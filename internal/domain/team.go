package domain

import "fmt"

// Team represents a roster a coach has made available for a match.
// Identity is the numeric ID only; attribute refreshes mutate the existing
// instance in place (Update) so match back-references stay valid.
type Team struct {
	ID    int64  `json:"id"`
	Coach *Coach `json:"-"`

	Name         string `json:"name"`
	Division     string `json:"division"`
	TeamValue    int    `json:"team_value"`
	Roster       string `json:"roster"`
	RosterLogo32 int    `json:"roster_logo_32,omitempty"`
	Season       int    `json:"season,omitempty"`
	SeasonGames  int    `json:"season_games,omitempty"`
	LeagueID     int64  `json:"league_id,omitempty"`
	LeagueName   string `json:"league_name,omitempty"`
}

// Update copies the mutable attributes of other onto the receiver.
// Identity (ID, Coach) is never touched.
func (t *Team) Update(other *Team) {
	t.Name = other.Name
	t.Division = other.Division
	t.TeamValue = other.TeamValue
	t.Roster = other.Roster
	t.RosterLogo32 = other.RosterLogo32
	t.Season = other.Season
	t.SeasonGames = other.SeasonGames
	t.LeagueID = other.LeagueID
	t.LeagueName = other.LeagueName
}

// IsOpponentAllowed reports whether a match between the two teams is legal:
// both teams must belong to different coaches.
func (t *Team) IsOpponentAllowed(opponent *Team) bool {
	if t.Coach == nil || opponent == nil || opponent.Coach == nil {
		return false
	}
	return t.Coach.ID != opponent.Coach.ID
}

func (t *Team) String() string {
	return fmt.Sprintf("Team(%d:%s)", t.ID, t.Name)
}
