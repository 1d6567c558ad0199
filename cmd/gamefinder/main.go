// gamefinder - matchmaking coordination server for league play
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/klauspost/compress/gzhttp"
	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ernie/gamefinder/internal/api"
	"github.com/ernie/gamefinder/internal/auth"
	"github.com/ernie/gamefinder/internal/bus"
	"github.com/ernie/gamefinder/internal/config"
	"github.com/ernie/gamefinder/internal/domain"
	"github.com/ernie/gamefinder/internal/dto"
	"github.com/ernie/gamefinder/internal/gamefinder"
	"github.com/ernie/gamefinder/internal/launcher"
	"github.com/ernie/gamefinder/internal/metrics"
	"github.com/ernie/gamefinder/internal/storage"
)

var version = "dev"

const defaultConfigPath = "/etc/gamefinder/config.yml"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		cmdInit(os.Args[2:])
	case "serve":
		cmdServe(os.Args[2:])
	case "state":
		cmdState(os.Args[2:])
	case "coaches":
		cmdCoaches(os.Args[2:])
	case "matches":
		cmdMatches(os.Args[2:])
	case "launches":
		cmdLaunches(os.Args[2:])
	case "user":
		cmdUser(os.Args[2:])
	case "version":
		fmt.Printf("gamefinder %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: gamefinder <command> [options] [args]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init [--force]                      Write a default config file")
	fmt.Println("  serve                               Start the matchmaking server")
	fmt.Println("  state --token <jwt>                 Show your matchmaking state document")
	fmt.Println("  coaches                             Show coaches currently in the pool")
	fmt.Println("  matches                             Show candidate matches in the pool")
	fmt.Println("  launches [--recent N]               Show recent launched games (default: 20)")
	fmt.Println("  user add [--admin] [--coach-id N] <username>")
	fmt.Println("                                      Add a user (prompts for password)")
	fmt.Println("  user remove <username>              Remove a user")
	fmt.Println("  user list                           List all users")
	fmt.Println("  user reset <username>               Reset a user's password")
	fmt.Println("  user admin <username>               Toggle admin status for a user")
	fmt.Println("  version                             Show version")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --config <path>    Path to configuration file (default /etc/gamefinder/config.yml)")
	fmt.Println("  --url <url>        Base URL of the gamefinder server (default: derived from config)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  gamefinder init --config ./config.yml")
	fmt.Println("  gamefinder serve --config ./config.yml")
	fmt.Println("  gamefinder launches --recent 50")
	fmt.Println("  gamefinder user add --admin --coach-id 42 myuser")
}

// cmdInit writes a default config file
func cmdInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	force := fs.Bool("force", false, "overwrite an existing config file")
	fs.Parse(args)

	if _, err := os.Stat(*configPath); err == nil && !*force {
		fmt.Printf("Config file %s already exists. Use --force to overwrite.\n", *configPath)
		return
	}

	if err := os.MkdirAll(filepath.Dir(*configPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create config directory: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Default()
	if err := config.Save(*configPath, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to write config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Config written to %s\n", *configPath)
	fmt.Println("Set auth.jwt_secret before starting the server.")
}

// cmdServe starts the matchmaking server
func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfgPath := *configPath
	if cfgPath == "" {
		if _, err := os.Stat(defaultConfigPath); err == nil {
			cfgPath = defaultConfigPath
		} else {
			log.Fatalf("No config file found at %s. Use --config to specify a config file.", defaultConfigPath)
		}
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Gamefinder %s starting...", version)

	store, err := storage.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()
	log.Printf("Database initialized at %s", cfg.Database.Path)

	gf := gamefinder.New(cfg.Gamefinder.TickInterval, cfg.Gamefinder.CoachTimeout, cfg.Gamefinder.DialogGrace)
	gf.Start()
	log.Printf("Match pool running, tick every %v, coach timeout %v", cfg.Gamefinder.TickInterval, cfg.Gamefinder.CoachTimeout)

	authService := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenDuration)
	if cfg.Auth.JWTSecret == "" {
		log.Printf("Warning: No JWT secret configured. Auth tokens will use an empty secret.")
	}

	busPub, err := bus.Start(cfg.NATS)
	if err != nil {
		log.Fatalf("Failed to start event bus: %v", err)
	}
	if busPub != nil {
		log.Printf("Publishing events on %s.*", cfg.NATS.SubjectPrefix)
	}

	gameLauncher := launcher.New(gf, store, cfg.Launcher.GameHostURL, cfg.Launcher.Timeout)
	if cfg.Launcher.GameHostURL == "" {
		log.Printf("No game host configured, launches will be recorded only")
	}

	router := api.NewRouter(gf, store, authService, cfg.Server.StaticDir)
	router.StartWebSocketHub()
	if cfg.Server.StaticDir != "" {
		log.Printf("Serving static files from %s", cfg.Server.StaticDir)
	}

	// Fan out graph change events to all consumers
	go func() {
		for event := range gf.Events() {
			router.Hub().Broadcast(event)
			busPub.Publish(event)
			metrics.Observe(event)
			metrics.SetDroppedEvents(gf.DroppedEvents())

			if event.Type == domain.EventMatchLaunched {
				if data, ok := event.Data.(domain.MatchLaunchedEvent); ok {
					go gameLauncher.HandleLaunch(context.Background(), data)
				}
			}
		}
	}()

	addr := fmt.Sprintf("%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      gzhttp.GzipHandler(router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, shutting down...", sig)
	case err := <-serverErr:
		log.Fatalf("HTTP server error: %v", err)
	}

	// Sequential shutdown
	log.Println("Shutting down HTTP server...")
	httpCtx, httpCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Stopping match pool...")
	gf.Stop()

	busPub.Close()
	log.Println("Shutdown complete")
}

// CLI helper variables
var (
	baseURL = "http://localhost:8080"
	dbPath  string
)

// loadCLIConfigFromFlags loads config using pre-parsed flag values
func loadCLIConfigFromFlags(configPath, url string) *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config from %s: %v\n", configPath, err)
		dbPath = "/var/lib/gamefinder/gamefinder.db"
		if url != "" {
			baseURL = url
		}
		return nil
	}

	dbPath = cfg.Database.Path
	if url != "" {
		baseURL = url
	} else {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Server.ListenAddr, cfg.Server.HTTPPort)
	}
	return cfg
}

func loadCLIConfig(args []string) (*config.Config, []string) {
	fs := flag.NewFlagSet("cli", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the gamefinder server")
	fs.Parse(args)

	cfg := loadCLIConfigFromFlags(*configPath, *url)
	return cfg, fs.Args()
}

func cmdState(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the gamefinder server")
	token := fs.String("token", "", "JWT of a coach-linked account")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	if *token == "" {
		fmt.Fprintf(os.Stderr, "Error: --token is required (log in via POST /api/auth/login)\n")
		os.Exit(1)
	}

	var state dto.State
	if err := getJSONAuth("/api/state", *token, &state); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("State v%d for coach %d\n\n", state.Version, state.CoachID)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MY TEAMS\tID\tDIVISION\tTV")
	fmt.Fprintln(w, "--------\t--\t--------\t--")
	for _, team := range state.MyTeams {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", team.Name, team.ID, team.Division, team.TeamValue)
	}
	w.Flush()

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPPONENT\tTEAM\tID\tTV")
	fmt.Fprintln(w, "--------\t----\t--\t--")
	for _, opp := range state.Opponents {
		for _, team := range opp.Teams {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", opp.CoachName, team.Name, team.ID, team.TeamValue)
		}
	}
	w.Flush()

	if len(state.Offers) == 0 {
		fmt.Println("\nNo active offers")
		return
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MY TEAM\tOPPONENT TEAM\tSTATE\tDIALOG\tGAME")
	fmt.Fprintln(w, "-------\t-------------\t-----\t------\t----")
	for _, offer := range state.Offers {
		dialog := "-"
		if offer.ShowDialog {
			dialog = "yes"
		}
		game := "-"
		if offer.GameID != 0 {
			game = fmt.Sprintf("%d", offer.GameID)
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\n", offer.MyTeamID, offer.OpponentTeamID, offer.State, dialog, game)
	}
	w.Flush()
}

func cmdCoaches(args []string) {
	fs := flag.NewFlagSet("coaches", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the gamefinder server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var overviews []gamefinder.CoachOverview
	if err := getJSON("/api/coaches", &overviews); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(overviews) == 0 {
		fmt.Println("No coaches in the pool")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "COACH\tID\tTEAMS\tSTATUS")
	fmt.Fprintln(w, "-----\t--\t-----\t------")

	for _, o := range overviews {
		status := "open"
		if o.Locked {
			status = "locked"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", o.Coach.Name, o.Coach.ID, len(o.Teams), status)
	}

	w.Flush()
}

func cmdMatches(args []string) {
	fs := flag.NewFlagSet("matches", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the gamefinder server")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var matches []gamefinder.MatchInfo
	if err := getJSON("/api/pool/matches", &matches); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(matches) == 0 {
		fmt.Println("No candidate matches")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEAM 1\tTEAM 2\tSTATE\tGAME")
	fmt.Fprintln(w, "------\t------\t-----\t----")

	for _, m := range matches {
		game := "-"
		if m.GameID != 0 {
			game = fmt.Sprintf("%d", m.GameID)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.Team1.Name, m.Team2.Name, m.State, game)
	}

	w.Flush()
}

func cmdLaunches(args []string) {
	fs := flag.NewFlagSet("launches", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "path to configuration file")
	url := fs.String("url", "", "base URL of the gamefinder server")
	limit := fs.Int("recent", 20, "number of recent launches to show")
	fs.Parse(args)

	loadCLIConfigFromFlags(*configPath, *url)

	var launches []storage.LaunchRecord
	if err := getJSON(fmt.Sprintf("/api/launches?limit=%d", *limit), &launches); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if len(launches) == 0 {
		fmt.Println("No launches recorded")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAUNCHED\tMATCH\tGAME")
	fmt.Fprintln(w, "--------\t-----\t----")

	for _, l := range launches {
		game := "pending"
		if l.GameID != nil {
			game = fmt.Sprintf("%d", *l.GameID)
		}
		matchup := fmt.Sprintf("%s (%s) vs %s (%s)", l.Team1Name, l.Coach1Name, l.Team2Name, l.Coach2Name)
		fmt.Fprintf(w, "%s\t%s\t%s\n", l.LaunchedAt.Format("2006-01-02 15:04"), matchup, game)
	}

	w.Flush()
}

// cmdUser handles user subcommands
func cmdUser(args []string) {
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "Error: user subcommand required: add, remove, list, reset, admin\n")
		os.Exit(1)
	}

	subCmd := args[0]
	cfg, remaining := loadCLIConfig(args[1:])
	_ = cfg // cfg may be nil if config loading failed

	store, err := storage.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	switch subCmd {
	case "add":
		if err := cmdUserAdd(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "remove":
		if err := cmdUserRemove(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "list":
		if err := cmdUserList(ctx, store); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "reset":
		if err := cmdUserReset(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "admin":
		if err := cmdUserAdmin(ctx, store, remaining); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown user command: %s (use: add, remove, list, reset, admin)\n", subCmd)
		os.Exit(1)
	}
}

func cmdUserAdd(ctx context.Context, store *storage.Store, args []string) error {
	fs := flag.NewFlagSet("user add", flag.ExitOnError)
	isAdmin := fs.Bool("admin", false, "create as admin user")
	coachIDFlag := fs.Int64("coach-id", 0, "link to coach ID")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) < 1 {
		return fmt.Errorf("usage: gamefinder user add [--admin] [--coach-id N] <username>")
	}

	username := remaining[0]
	var coachID *int64
	if *coachIDFlag != 0 {
		coachID = coachIDFlag
	}

	if _, err := store.GetUserByUsername(ctx, username); err == nil {
		return fmt.Errorf("user '%s' already exists", username)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := store.CreateUser(ctx, username, hash, *isAdmin, coachID); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	roleStr := "user"
	if *isAdmin {
		roleStr = "admin"
	}
	fmt.Printf("User '%s' created successfully (role: %s)\n", username, roleStr)
	return nil
}

func cmdUserRemove(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: gamefinder user remove <username>")
	}
	username := args[0]

	if err := store.DeleteUser(ctx, username); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	fmt.Printf("User '%s' removed\n", username)
	return nil
}

func cmdUserList(ctx context.Context, store *storage.Store) error {
	users, err := store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tROLE\tCOACH_ID\tLAST_LOGIN")
	fmt.Fprintln(w, "--------\t----\t--------\t----------")

	for _, user := range users {
		role := "user"
		if user.IsAdmin {
			role = "admin"
		}
		coachID := "-"
		if user.CoachID != nil {
			coachID = fmt.Sprintf("%d", *user.CoachID)
		}
		lastLogin := "never"
		if user.LastLogin != nil {
			lastLogin = user.LastLogin.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", user.Username, role, coachID, lastLogin)
	}
	return w.Flush()
}

func cmdUserReset(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: gamefinder user reset <username>")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	password, err := promptPassword()
	if err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := store.UpdateUserPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}

	fmt.Printf("Password reset for '%s'\n", username)
	return nil
}

func cmdUserAdmin(ctx context.Context, store *storage.Store, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: gamefinder user admin <username>")
	}
	username := args[0]

	user, err := store.GetUserByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("user not found: %s", username)
	}

	newAdminStatus := !user.IsAdmin
	if err := store.UpdateUserAdmin(ctx, user.ID, newAdminStatus); err != nil {
		return fmt.Errorf("failed to update admin status: %w", err)
	}

	if newAdminStatus {
		fmt.Printf("User '%s' is now an admin\n", username)
	} else {
		fmt.Printf("User '%s' is no longer an admin\n", username)
	}
	return nil
}

// promptPassword reads and confirms a password from the terminal
func promptPassword() (string, error) {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) < 8 {
		return "", fmt.Errorf("password must be at least 8 characters")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	return string(password), nil
}

func getJSON(path string, target interface{}) error {
	return getJSONAuth(path, "", target)
}

func getJSONAuth(path, token string, target interface{}) error {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
