package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ernie/gamefinder/internal/domain"
	"github.com/ernie/gamefinder/internal/dto"
	"github.com/ernie/gamefinder/internal/gamefinder"
)

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// parseID parses an ID from the URL path
func parseID(req *http.Request, param string) (int64, error) {
	idStr := req.PathValue(param)
	return strconv.ParseInt(idStr, 10, 64)
}

// handleGetState returns the versioned state document for the coach
func (r *Router) handleGetState(w http.ResponseWriter, req *http.Request) {
	coachID := r.coachID(req)
	writeJSON(w, http.StatusOK, dto.BuildState(r.gf, coachID))
}

// ActivateRequest is the request body for activation
type ActivateRequest struct {
	Teams []TeamPayload `json:"teams"`
}

// TeamPayload is one team in an activation request
type TeamPayload struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Division     string `json:"division"`
	TeamValue    int    `json:"team_value"`
	Roster       string `json:"roster"`
	RosterLogo32 int    `json:"roster_logo_32"`
	Season       int    `json:"season"`
	SeasonGames  int    `json:"season_games"`
	LeagueID     int64  `json:"league_id"`
	LeagueName   string `json:"league_name"`
}

// handleActivate declares the coach's available teams
func (r *Router) handleActivate(w http.ResponseWriter, req *http.Request) {
	var body ActivateRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := r.getAuthClaims(req)
	coach := &domain.Coach{ID: *claims.CoachID, Name: claims.Username}

	teams := make([]*domain.Team, 0, len(body.Teams))
	for _, t := range body.Teams {
		if err := validateTeam(t); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		teams = append(teams, &domain.Team{
			ID:           t.ID,
			Coach:        coach,
			Name:         t.Name,
			Division:     t.Division,
			TeamValue:    t.TeamValue,
			Roster:       t.Roster,
			RosterLogo32: t.RosterLogo32,
			Season:       t.Season,
			SeasonGames:  t.SeasonGames,
			LeagueID:     t.LeagueID,
			LeagueName:   t.LeagueName,
		})
	}

	r.gf.Activate(coach, teams)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleDeactivate withdraws the coach from the pool
func (r *Router) handleDeactivate(w http.ResponseWriter, req *http.Request) {
	r.gf.Deactivate(r.coachID(req))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleGetTeams returns the coach's activated teams
func (r *Router) handleGetTeams(w http.ResponseWriter, req *http.Request) {
	teams := r.gf.GetActivatedTeams(r.coachID(req))
	if teams == nil {
		teams = []domain.Team{}
	}
	writeJSON(w, http.StatusOK, teams)
}

// handleGetMatches returns the coach's matches and refreshes liveness
func (r *Router) handleGetMatches(w http.ResponseWriter, req *http.Request) {
	matches := r.gf.GetMatches(r.coachID(req))
	if matches == nil {
		matches = []gamefinder.MatchInfo{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// handleGetCoaches returns every coach in the pool with its teams
func (r *Router) handleGetCoaches(w http.ResponseWriter, req *http.Request) {
	overviews := r.gf.GetCoachesAndTeams()
	writeJSON(w, http.StatusOK, overviews)
}

// handleGetAllMatches returns every match in the graph
func (r *Router) handleGetAllMatches(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, r.gf.GetAllMatches())
}

// OfferRequest is the request body for offer and start actions
type OfferRequest struct {
	TeamID         int64 `json:"team_id"`
	OpponentTeamID int64 `json:"opponent_team_id"`
}

func (r *Router) decodeOffer(w http.ResponseWriter, req *http.Request) (OfferRequest, bool) {
	var body OfferRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return body, false
	}
	if body.TeamID <= 0 || body.OpponentTeamID <= 0 {
		writeError(w, http.StatusBadRequest, "team_id and opponent_team_id are required")
		return body, false
	}
	return body, true
}

// handleMakeOffer offers the coach's team to an opponent team
func (r *Router) handleMakeOffer(w http.ResponseWriter, req *http.Request) {
	body, ok := r.decodeOffer(w, req)
	if !ok {
		return
	}
	r.gf.MakeOffer(r.coachID(req), body.TeamID, body.OpponentTeamID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleCancelOffer withdraws an offer
func (r *Router) handleCancelOffer(w http.ResponseWriter, req *http.Request) {
	body, ok := r.decodeOffer(w, req)
	if !ok {
		return
	}
	r.gf.CancelOffer(r.coachID(req), body.TeamID, body.OpponentTeamID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleStartGame confirms the start dialog for the coach's side
func (r *Router) handleStartGame(w http.ResponseWriter, req *http.Request) {
	body, ok := r.decodeOffer(w, req)
	if !ok {
		return
	}
	r.gf.StartGame(r.coachID(req), body.TeamID, body.OpponentTeamID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleGetLaunches returns the recent launch history
func (r *Router) handleGetLaunches(w http.ResponseWriter, req *http.Request) {
	limit := parseLimit(req, 20, 100)
	launches, err := r.store.GetLaunches(req.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, launches)
}

// handleGetCoachLaunches returns the recent launches involving a coach
func (r *Router) handleGetCoachLaunches(w http.ResponseWriter, req *http.Request) {
	coachID, err := parseID(req, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid coach id")
		return
	}
	limit := parseLimit(req, 20, 100)
	launches, err := r.store.GetLaunchesForCoach(req.Context(), coachID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, launches)
}

// handleReset clears the whole match graph (admin only)
func (r *Router) handleReset(w http.ResponseWriter, req *http.Request) {
	r.gf.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// handleHealth returns a basic health check
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"ws_clients": r.wsHub.ClientCount(),
	})
}
