package launcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ernie/gamefinder/internal/domain"
	"github.com/ernie/gamefinder/internal/gamefinder"
	"github.com/ernie/gamefinder/internal/storage"
)

// Launcher turns match-launched events into real games: it records the
// launch in the history store, asks the game-hosting service to start a
// game, and reports the returned game id back through the facade so
// clients can be redirected.
type Launcher struct {
	gf     *gamefinder.Gamefinder
	store  *storage.Store
	client *http.Client
	url    string
}

// StartGameRequest is the payload sent to the game host
type StartGameRequest struct {
	LaunchUUID string `json:"launch_uuid"`
	Team1ID    int64  `json:"team1_id"`
	Team2ID    int64  `json:"team2_id"`
	Coach1ID   int64  `json:"coach1_id"`
	Coach2ID   int64  `json:"coach2_id"`
}

// StartGameResponse is the game host's reply
type StartGameResponse struct {
	GameID int64 `json:"game_id"`
}

// New creates a launcher. An empty gameHostURL disables the host call;
// launches are still recorded.
func New(gf *gamefinder.Gamefinder, store *storage.Store, gameHostURL string, timeout time.Duration) *Launcher {
	return &Launcher{
		gf:     gf,
		store:  store,
		client: &http.Client{Timeout: timeout},
		url:    gameHostURL,
	}
}

// HandleLaunch processes one match-launched event
func (l *Launcher) HandleLaunch(ctx context.Context, data domain.MatchLaunchedEvent) {
	rec := &storage.LaunchRecord{
		LaunchUUID: uuid.NewString(),
		Team1ID:    data.Team1ID,
		Team2ID:    data.Team2ID,
		Team1Name:  data.Team1Name,
		Team2Name:  data.Team2Name,
		Coach1ID:   data.Coach1ID,
		Coach2ID:   data.Coach2ID,
		Coach1Name: data.Coach1Name,
		Coach2Name: data.Coach2Name,
		LaunchedAt: time.Now().UTC(),
	}
	if err := l.store.RecordLaunch(ctx, rec); err != nil {
		log.Printf("Error recording launch %s: %v", rec.LaunchUUID, err)
	}

	if l.url == "" {
		return
	}

	gameID, err := l.requestGame(ctx, rec)
	if err != nil {
		log.Printf("Error starting game for launch %s: %v", rec.LaunchUUID, err)
		return
	}

	l.gf.AssignGameID(data.Team1ID, data.Team2ID, gameID)
	if err := l.store.SetLaunchGameID(ctx, rec.LaunchUUID, gameID); err != nil {
		log.Printf("Error recording game id for launch %s: %v", rec.LaunchUUID, err)
	}
	log.Printf("Launch %s: game %d started (%s vs %s)", rec.LaunchUUID, gameID, data.Team1Name, data.Team2Name)
}

// requestGame calls the game-hosting service and returns the new game id
func (l *Launcher) requestGame(ctx context.Context, rec *storage.LaunchRecord) (int64, error) {
	body, err := json.Marshal(StartGameRequest{
		LaunchUUID: rec.LaunchUUID,
		Team1ID:    rec.Team1ID,
		Team2ID:    rec.Team2ID,
		Coach1ID:   rec.Coach1ID,
		Coach2ID:   rec.Coach2ID,
	})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("calling game host: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("game host returned %d", resp.StatusCode)
	}

	var out StartGameResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decoding game host response: %w", err)
	}
	if out.GameID == 0 {
		return 0, fmt.Errorf("game host returned no game id")
	}
	return out.GameID, nil
}
