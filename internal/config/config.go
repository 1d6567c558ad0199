package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Gamefinder GamefinderConfig `yaml:"gamefinder"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Launcher   LauncherConfig   `yaml:"launcher"`
	NATS       NATSConfig       `yaml:"nats"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	HTTPPort   int    `yaml:"http_port"`
	StaticDir  string `yaml:"static_dir"`
}

// GamefinderConfig holds matchmaking policy settings
type GamefinderConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	CoachTimeout time.Duration `yaml:"coach_timeout"`
	DialogGrace  time.Duration `yaml:"dialog_grace"`
}

// DatabaseConfig holds SQLite settings
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"`
	TokenDuration time.Duration `yaml:"token_duration"`
}

// LauncherConfig holds game host settings
type LauncherConfig struct {
	GameHostURL string        `yaml:"game_host_url"`
	Timeout     time.Duration `yaml:"timeout"`
}

// NATSConfig holds event bus settings. With Embedded set, the process runs
// its own NATS server on ListenPort; otherwise URL points at an external one.
// An empty URL with Embedded off disables the bus.
type NATSConfig struct {
	Embedded      bool   `yaml:"embedded"`
	ListenPort    int    `yaml:"listen_port"`
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// Default returns a configuration with all defaults filled in
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: "127.0.0.1",
			HTTPPort:   8080,
		},
		Gamefinder: GamefinderConfig{
			TickInterval: time.Second,
			CoachTimeout: 30 * time.Second,
			DialogGrace:  30 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "/var/lib/gamefinder/gamefinder.db",
		},
		Auth: AuthConfig{
			TokenDuration: 24 * time.Hour,
		},
		Launcher: LauncherConfig{
			Timeout: 10 * time.Second,
		},
		NATS: NATSConfig{
			ListenPort:    4222,
			SubjectPrefix: "gamefinder.events",
		},
	}
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Set defaults
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = "127.0.0.1"
	}
	if cfg.Server.HTTPPort == 0 {
		cfg.Server.HTTPPort = 8080
	}
	// Note: StaticDir intentionally has no default - empty means don't serve static files

	if cfg.Gamefinder.TickInterval == 0 {
		cfg.Gamefinder.TickInterval = time.Second
	}
	if cfg.Gamefinder.CoachTimeout == 0 {
		cfg.Gamefinder.CoachTimeout = 30 * time.Second
	}
	if cfg.Gamefinder.DialogGrace == 0 {
		cfg.Gamefinder.DialogGrace = 30 * time.Second
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "/var/lib/gamefinder/gamefinder.db"
	}

	if cfg.Auth.TokenDuration == 0 {
		cfg.Auth.TokenDuration = 24 * time.Hour
	}

	if cfg.Launcher.Timeout == 0 {
		cfg.Launcher.Timeout = 10 * time.Second
	}

	if cfg.NATS.ListenPort == 0 {
		cfg.NATS.ListenPort = 4222
	}
	if cfg.NATS.SubjectPrefix == "" {
		cfg.NATS.SubjectPrefix = "gamefinder.events"
	}

	return &cfg, nil
}

// Save writes configuration to a YAML file
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
