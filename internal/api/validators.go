package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// parseLimit reads the ?limit= query parameter, clamped to max
func parseLimit(req *http.Request, def, max int) int {
	raw := req.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// validateTeam checks one team in an activation request
func validateTeam(t TeamPayload) error {
	if t.ID <= 0 {
		return fmt.Errorf("team id must be positive")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team %d: name is required", t.ID)
	}
	if t.TeamValue < 0 {
		return fmt.Errorf("team %d: team value cannot be negative", t.ID)
	}
	if t.SeasonGames < 0 || t.Season < 0 {
		return fmt.Errorf("team %d: season values cannot be negative", t.ID)
	}
	return nil
}
