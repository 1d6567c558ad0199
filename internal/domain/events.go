package domain

import "time"

// Event types for WebSocket and bus notifications
const (
	EventCoachAdded    = "coach_added"
	EventCoachRemoved  = "coach_removed"
	EventTeamAdded     = "team_added"
	EventTeamRemoved   = "team_removed"
	EventMatchAdded    = "match_added"
	EventMatchRemoved  = "match_removed"
	EventMatchLaunched = "match_launched"
	EventGraphUpdated  = "graph_updated"
)

// Event represents a real-time change notification for broadcast
type Event struct {
	Type      string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
}

// CoachEvent is sent when a coach joins or leaves the matchmaking pool
type CoachEvent struct {
	CoachID   int64  `json:"coach_id"`
	CoachName string `json:"coach_name"`
}

// TeamEvent is sent when a team is activated or withdrawn
type TeamEvent struct {
	TeamID   int64  `json:"team_id"`
	TeamName string `json:"team_name"`
	CoachID  int64  `json:"coach_id"`
}

// MatchEvent is sent when a candidate match appears or disappears
type MatchEvent struct {
	Team1ID int64  `json:"team1_id"`
	Team2ID int64  `json:"team2_id"`
	State   string `json:"state,omitempty"`
}

// MatchLaunchedEvent is sent exactly once when a match launches
type MatchLaunchedEvent struct {
	Team1ID    int64  `json:"team1_id"`
	Team2ID    int64  `json:"team2_id"`
	Coach1ID   int64  `json:"coach1_id"`
	Coach2ID   int64  `json:"coach2_id"`
	Team1Name  string `json:"team1_name"`
	Team2Name  string `json:"team2_name"`
	Coach1Name string `json:"coach1_name"`
	Coach2Name string `json:"coach2_name"`
}

// GraphUpdatedEvent is sent once per tick with current entity counts
type GraphUpdatedEvent struct {
	Coaches int `json:"coaches"`
	Teams   int `json:"teams"`
	Matches int `json:"matches"`
	Dialogs int `json:"dialogs"`
}
