package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ernie/gamefinder/internal/auth"
	"github.com/ernie/gamefinder/internal/gamefinder"
	"github.com/ernie/gamefinder/internal/metrics"
	"github.com/ernie/gamefinder/internal/storage"
)

// Router holds the HTTP routes and dependencies
type Router struct {
	mux       *http.ServeMux
	gf        *gamefinder.Gamefinder
	store     *storage.Store
	wsHub     *WebSocketHub
	auth      *auth.Service
	staticDir string
}

// NewRouter creates a new HTTP router
func NewRouter(gf *gamefinder.Gamefinder, store *storage.Store, authService *auth.Service, staticDir string) *Router {
	r := &Router{
		mux:       http.NewServeMux(),
		gf:        gf,
		store:     store,
		wsHub:     NewWebSocketHub(),
		auth:      authService,
		staticDir: staticDir,
	}

	// Matchmaking routes (coach-linked account required)
	r.mux.HandleFunc("GET /api/state", r.requireCoach(r.handleGetState))
	r.mux.HandleFunc("POST /api/activate", r.requireCoach(r.handleActivate))
	r.mux.HandleFunc("POST /api/deactivate", r.requireCoach(r.handleDeactivate))
	r.mux.HandleFunc("GET /api/teams", r.requireCoach(r.handleGetTeams))
	r.mux.HandleFunc("GET /api/matches", r.requireCoach(r.handleGetMatches))
	r.mux.HandleFunc("POST /api/offers", r.requireCoach(r.handleMakeOffer))
	r.mux.HandleFunc("POST /api/offers/cancel", r.requireCoach(r.handleCancelOffer))
	r.mux.HandleFunc("POST /api/start", r.requireCoach(r.handleStartGame))

	// Pool reads
	r.mux.HandleFunc("GET /api/coaches", r.handleGetCoaches)
	r.mux.HandleFunc("GET /api/pool/matches", r.handleGetAllMatches)

	// Launch history
	r.mux.HandleFunc("GET /api/launches", r.handleGetLaunches)
	r.mux.HandleFunc("GET /api/coaches/{id}/launches", r.handleGetCoachLaunches)

	// Auth routes
	r.mux.HandleFunc("POST /api/auth/login", r.handleLogin)
	r.mux.HandleFunc("POST /api/auth/logout", r.handleLogout)
	r.mux.HandleFunc("GET /api/auth/check", r.handleAuthCheck)
	r.mux.HandleFunc("POST /api/auth/change-password", r.requireAuth(r.handleChangePassword))

	// User management routes (admin only)
	r.mux.HandleFunc("GET /api/users", r.requireAdmin(r.handleListUsers))
	r.mux.HandleFunc("POST /api/users", r.requireAdmin(r.handleCreateUser))
	r.mux.HandleFunc("DELETE /api/users/{username}", r.requireAdmin(r.handleDeleteUser))
	r.mux.HandleFunc("PATCH /api/users/{id}", r.requireAdmin(r.handleUpdateUser))
	r.mux.HandleFunc("POST /api/users/{id}/reset-password", r.requireAdmin(r.handleResetUserPassword))

	// Admin operations
	r.mux.HandleFunc("POST /api/admin/reset", r.requireAdmin(r.handleReset))

	// WebSocket endpoint for the visualizer
	r.mux.HandleFunc("GET /ws", r.handleWebSocket)

	// Prometheus scrape endpoint
	r.mux.Handle("GET /metrics", metrics.Handler())

	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)

	// Static files - only serve if staticDir is configured
	if staticDir != "" {
		r.mux.HandleFunc("GET /", r.handleStatic)
	}

	return r
}

// ServeHTTP implements http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	// CORS headers for API
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if req.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	r.mux.ServeHTTP(w, req)
}

// StartWebSocketHub starts broadcasting graph events to WebSocket clients
func (r *Router) StartWebSocketHub() {
	go r.wsHub.Run()
}

// Hub returns the WebSocket hub for event forwarding
func (r *Router) Hub() *WebSocketHub {
	return r.wsHub
}

// handleStatic serves static files from the configured directory
// For SPA support, serves index.html for any path that doesn't match a file
func (r *Router) handleStatic(w http.ResponseWriter, req *http.Request) {
	path := filepath.Clean(req.URL.Path)
	if path == "/" {
		path = "/index.html"
	}

	fullPath := filepath.Join(r.staticDir, path)

	// Security: ensure the path is within staticDir
	absStaticDir, _ := filepath.Abs(r.staticDir)
	absPath, _ := filepath.Abs(fullPath)
	if !strings.HasPrefix(absPath, absStaticDir) {
		http.NotFound(w, req)
		return
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		// SPA fallback: serve index.html for unknown paths
		fullPath = filepath.Join(r.staticDir, "index.html")
		if _, err := os.Stat(fullPath); err != nil {
			http.NotFound(w, req)
			return
		}
	}

	http.ServeFile(w, req, fullPath)
}
