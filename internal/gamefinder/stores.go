package gamefinder

import (
	"time"

	"github.com/ernie/gamefinder/internal/domain"
)

// The stores below are plain maps with no internal locking. They are only
// ever touched from the EventQueue worker.

// CoachStore holds the active coaches and their liveness timestamps
type CoachStore struct {
	coaches  map[int64]*domain.Coach
	lastSeen map[int64]time.Time
	timeout  time.Duration
}

// NewCoachStore creates a store with the given liveness window
func NewCoachStore(timeout time.Duration) *CoachStore {
	return &CoachStore{
		coaches:  make(map[int64]*domain.Coach),
		lastSeen: make(map[int64]time.Time),
		timeout:  timeout,
	}
}

// Add registers a coach and marks it as just seen
func (s *CoachStore) Add(coach *domain.Coach) {
	if coach == nil {
		return
	}
	s.coaches[coach.ID] = coach
	s.lastSeen[coach.ID] = time.Now()
}

// Remove drops a coach. No-op if absent.
func (s *CoachStore) Remove(coach *domain.Coach) {
	if coach == nil {
		return
	}
	delete(s.coaches, coach.ID)
	delete(s.lastSeen, coach.ID)
}

// Contains reports whether the coach is registered
func (s *CoachStore) Contains(coach *domain.Coach) bool {
	if coach == nil {
		return false
	}
	_, ok := s.coaches[coach.ID]
	return ok
}

// Get returns the stored coach for an ID, nil if unknown
func (s *CoachStore) Get(id int64) *domain.Coach {
	return s.coaches[id]
}

// Ping refreshes the liveness timestamp for a coach
func (s *CoachStore) Ping(coach *domain.Coach) {
	if coach == nil {
		return
	}
	if _, ok := s.coaches[coach.ID]; ok {
		s.lastSeen[coach.ID] = time.Now()
	}
}

// IsTimedOut reports whether the coach has not pinged within the window
func (s *CoachStore) IsTimedOut(coach *domain.Coach) bool {
	if coach == nil {
		return false
	}
	seen, ok := s.lastSeen[coach.ID]
	if !ok {
		return false
	}
	return time.Since(seen) > s.timeout
}

// TimedOut returns all coaches past the liveness window
func (s *CoachStore) TimedOut() []*domain.Coach {
	var out []*domain.Coach
	for id, coach := range s.coaches {
		if seen, ok := s.lastSeen[id]; ok && time.Since(seen) > s.timeout {
			out = append(out, coach)
		}
	}
	return out
}

// All returns every registered coach
func (s *CoachStore) All() []*domain.Coach {
	out := make([]*domain.Coach, 0, len(s.coaches))
	for _, coach := range s.coaches {
		out = append(out, coach)
	}
	return out
}

// Size returns the number of registered coaches
func (s *CoachStore) Size() int {
	return len(s.coaches)
}

// TeamStore holds the activated teams
type TeamStore struct {
	teams map[int64]*domain.Team
}

// NewTeamStore creates an empty team store
func NewTeamStore() *TeamStore {
	return &TeamStore{teams: make(map[int64]*domain.Team)}
}

// Add registers a team. An existing entry with the same ID is replaced.
func (s *TeamStore) Add(team *domain.Team) {
	if team == nil {
		return
	}
	s.teams[team.ID] = team
}

// Remove drops a team. No-op if absent.
func (s *TeamStore) Remove(team *domain.Team) {
	if team == nil {
		return
	}
	delete(s.teams, team.ID)
}

// Contains reports whether the team is registered
func (s *TeamStore) Contains(team *domain.Team) bool {
	if team == nil {
		return false
	}
	_, ok := s.teams[team.ID]
	return ok
}

// Get returns the stored team for an ID, nil if unknown
func (s *TeamStore) Get(id int64) *domain.Team {
	return s.teams[id]
}

// GetTeams returns all teams belonging to a coach
func (s *TeamStore) GetTeams(coach *domain.Coach) []*domain.Team {
	if coach == nil {
		return nil
	}
	var out []*domain.Team
	for _, team := range s.teams {
		if team.Coach != nil && team.Coach.ID == coach.ID {
			out = append(out, team)
		}
	}
	return out
}

// All returns every registered team
func (s *TeamStore) All() []*domain.Team {
	out := make([]*domain.Team, 0, len(s.teams))
	for _, team := range s.teams {
		out = append(out, team)
	}
	return out
}

// Size returns the number of registered teams
func (s *TeamStore) Size() int {
	return len(s.teams)
}

// MatchStore holds the candidate matches keyed by their team pair
type MatchStore struct {
	matches map[domain.MatchKey]*domain.Match
}

// NewMatchStore creates an empty match store
func NewMatchStore() *MatchStore {
	return &MatchStore{matches: make(map[domain.MatchKey]*domain.Match)}
}

// Add registers a match. No-op if a match for the same pair exists.
func (s *MatchStore) Add(match *domain.Match) {
	if match == nil {
		return
	}
	if _, ok := s.matches[match.Key()]; ok {
		return
	}
	s.matches[match.Key()] = match
}

// Remove drops a match. No-op if absent.
func (s *MatchStore) Remove(match *domain.Match) {
	if match == nil {
		return
	}
	delete(s.matches, match.Key())
}

// Contains reports whether the match is registered
func (s *MatchStore) Contains(match *domain.Match) bool {
	if match == nil {
		return false
	}
	_, ok := s.matches[match.Key()]
	return ok
}

// GetBetween returns the match for a team pair, nil if none exists
func (s *MatchStore) GetBetween(teamID1, teamID2 int64) *domain.Match {
	return s.matches[domain.KeyFor(teamID1, teamID2)]
}

// GetMatches returns all matches that include the team
func (s *MatchStore) GetMatches(team *domain.Team) []*domain.Match {
	if team == nil {
		return nil
	}
	var out []*domain.Match
	for _, match := range s.matches {
		if match.Includes(team) {
			out = append(out, match)
		}
	}
	return out
}

// All returns every registered match
func (s *MatchStore) All() []*domain.Match {
	out := make([]*domain.Match, 0, len(s.matches))
	for _, match := range s.matches {
		out = append(out, match)
	}
	return out
}

// Size returns the number of registered matches
func (s *MatchStore) Size() int {
	return len(s.matches)
}
