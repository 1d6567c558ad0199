package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// formatTimestamp converts time.Time to SQLite-compatible UTC ISO8601 string
// The Z suffix ensures the Go sqlite driver parses it back as UTC
func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

//go:embed schema.sql
var schema string

// Store provides database access for user accounts and the launch history
type Store struct {
	db *sql.DB
}

// User is an account on the admin/user surface
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	CoachID      *int64     `json:"coach_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// LaunchRecord is one row of the launched-game audit trail
type LaunchRecord struct {
	ID         int64     `json:"id"`
	LaunchUUID string    `json:"launch_uuid"`
	GameID     *int64    `json:"game_id,omitempty"`
	Team1ID    int64     `json:"team1_id"`
	Team2ID    int64     `json:"team2_id"`
	Team1Name  string    `json:"team1_name"`
	Team2Name  string    `json:"team2_name"`
	Coach1ID   int64     `json:"coach1_id"`
	Coach2ID   int64     `json:"coach2_id"`
	Coach1Name string    `json:"coach1_name"`
	Coach2Name string    `json:"coach2_name"`
	LaunchedAt time.Time `json:"launched_at"`
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable foreign keys, WAL mode for better performance, and busy timeout for concurrency
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting pragmas: %w", err)
	}

	// Create tables
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// --- User methods ---

// CreateUser creates a new user account and returns the stored row
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string, isAdmin bool, coachID *int64) (*User, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, is_admin, coach_id)
		VALUES (?, ?, ?, ?)
	`, username, passwordHash, isAdmin, coachID)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByUsername returns a user by username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, coach_id, created_at, last_login
		FROM users WHERE username = ?
	`, username))
}

// GetUserByID returns a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, is_admin, coach_id, created_at, last_login
		FROM users WHERE id = ?
	`, id))
}

// ListUsers returns all users ordered by username
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, is_admin, coach_id, created_at, last_login
		FROM users ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var coachID sql.NullInt64
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &coachID, &u.CreatedAt, &lastLogin); err != nil {
			return nil, err
		}
		if coachID.Valid {
			u.CoachID = &coachID.Int64
		}
		if lastLogin.Valid {
			u.LastLogin = &lastLogin.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// DeleteUser deletes a user by username
func (s *Store) DeleteUser(ctx context.Context, username string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %s", username)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash
func (s *Store) UpdateUserPassword(ctx context.Context, userID int64, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
	return err
}

// UpdateUserAdmin updates a user's admin status
func (s *Store) UpdateUserAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET is_admin = ? WHERE id = ?", isAdmin, userID)
	return err
}

// UpdateUserCoachLink links or unlinks a user's coach account
func (s *Store) UpdateUserCoachLink(ctx context.Context, userID int64, coachID *int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET coach_id = ? WHERE id = ?", coachID, userID)
	return err
}

// UpdateUserLastLogin records the current time as the user's last login
func (s *Store) UpdateUserLastLogin(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", formatTimestamp(time.Now()), userID)
	return err
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var coachID sql.NullInt64
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.IsAdmin, &coachID, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if coachID.Valid {
		u.CoachID = &coachID.Int64
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	return &u, nil
}

// --- Launch history methods ---

// RecordLaunch inserts a launch audit row
func (s *Store) RecordLaunch(ctx context.Context, rec *LaunchRecord) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO launches (launch_uuid, game_id, team1_id, team2_id, team1_name, team2_name,
			coach1_id, coach2_id, coach1_name, coach2_name, launched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.LaunchUUID, rec.GameID, rec.Team1ID, rec.Team2ID, rec.Team1Name, rec.Team2Name,
		rec.Coach1ID, rec.Coach2ID, rec.Coach1Name, rec.Coach2Name, formatTimestamp(rec.LaunchedAt))
	if err != nil {
		return fmt.Errorf("recording launch: %w", err)
	}
	rec.ID, _ = result.LastInsertId()
	return nil
}

// SetLaunchGameID records the external game identifier on a launch row
func (s *Store) SetLaunchGameID(ctx context.Context, launchUUID string, gameID int64) error {
	_, err := s.db.ExecContext(ctx, "UPDATE launches SET game_id = ? WHERE launch_uuid = ?", gameID, launchUUID)
	return err
}

// GetLaunches returns the most recent launches, newest first
func (s *Store) GetLaunches(ctx context.Context, limit int) ([]LaunchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, launch_uuid, game_id, team1_id, team2_id, team1_name, team2_name,
			coach1_id, coach2_id, coach1_name, coach2_name, launched_at
		FROM launches ORDER BY launched_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLaunches(rows)
}

// GetLaunchesForCoach returns the most recent launches involving a coach
func (s *Store) GetLaunchesForCoach(ctx context.Context, coachID int64, limit int) ([]LaunchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, launch_uuid, game_id, team1_id, team2_id, team1_name, team2_name,
			coach1_id, coach2_id, coach1_name, coach2_name, launched_at
		FROM launches WHERE coach1_id = ? OR coach2_id = ?
		ORDER BY launched_at DESC, id DESC LIMIT ?
	`, coachID, coachID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLaunches(rows)
}

func scanLaunches(rows *sql.Rows) ([]LaunchRecord, error) {
	var launches []LaunchRecord
	for rows.Next() {
		var rec LaunchRecord
		var gameID sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.LaunchUUID, &gameID, &rec.Team1ID, &rec.Team2ID,
			&rec.Team1Name, &rec.Team2Name, &rec.Coach1ID, &rec.Coach2ID,
			&rec.Coach1Name, &rec.Coach2Name, &rec.LaunchedAt); err != nil {
			return nil, err
		}
		if gameID.Valid {
			rec.GameID = &gameID.Int64
		}
		launches = append(launches, rec)
	}
	return launches, rows.Err()
}
