// Package store implements the verihub repository on SQLite: tool registry,
// verification records, per-tool statistics, university lookup data, and the
// bot user token ledger. The ledger debit and the stats increment are single
// conditional SQL statements so concurrent runs cannot observe a negative
// balance or lose an update.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"verihub/internal/logging"
)

// Store wraps the SQLite database behind the repository operations the
// supervisor and front ends consume.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// New initializes the SQLite database at the given path.
// Use ":memory:" for tests.
func New(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite allows one writer; a single conn sidesteps SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initialize creates the required tables.
func (s *Store) initialize() error {
	toolsTable := `
	CREATE TABLE IF NOT EXISTS tools (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1
	);
	`

	verificationsTable := `
	CREATE TABLE IF NOT EXISTS verifications (
		id TEXT PRIMARY KEY,
		tool_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'processing',
		email TEXT,
		university TEXT,
		name TEXT,
		country TEXT,
		error_message TEXT,
		url TEXT,
		first_name TEXT,
		last_name TEXT,
		birth_date TEXT,
		organization_id INTEGER,
		session_id TEXT,
		steps_json TEXT,
		documents_json TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_verifications_tool ON verifications(tool_id);
	CREATE INDEX IF NOT EXISTS idx_verifications_created ON verifications(created_at);
	`

	statsTable := `
	CREATE TABLE IF NOT EXISTS stats (
		tool_id TEXT PRIMARY KEY,
		total_attempts INTEGER NOT NULL DEFAULT 0,
		success_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		last_updated DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	universitiesTable := `
	CREATE TABLE IF NOT EXISTS universities (
		id TEXT PRIMARY KEY,
		org_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		domain TEXT,
		country TEXT NOT NULL,
		weight INTEGER NOT NULL DEFAULT 50
	);
	`

	usersTable := `
	CREATE TABLE IF NOT EXISTS bot_users (
		id TEXT PRIMARY KEY,
		telegram_id TEXT NOT NULL UNIQUE,
		username TEXT,
		first_name TEXT,
		tokens INTEGER NOT NULL DEFAULT 0 CHECK (tokens >= 0),
		referral_code TEXT NOT NULL UNIQUE,
		referred_by TEXT,
		has_joined_channel INTEGER NOT NULL DEFAULT 0,
		last_daily DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_bot_users_referral ON bot_users(referral_code);
	`

	for _, table := range []string{toolsTable, verificationsTable, statsTable, universitiesTable, usersTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for migrations and tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migration defines an additive column migration. Tables that predate a
// column get it added in place; fresh databases already have everything from
// initialize and skip through.
type Migration struct {
	Table  string
	Column string
	Def    string
}

var pendingMigrations = []Migration{
	// Success-rate tracking for weighted university selection
	{"universities", "success_rate", "INTEGER DEFAULT 50"},
	// Reward fields captured from approved runs
	{"verifications", "reward_code", "TEXT"},
	{"verifications", "redirect_url", "TEXT"},
}

// runMigrations applies additive schema migrations for existing databases.
func (s *Store) runMigrations() error {
	timer := logging.StartTimer(logging.CategoryStore, "runMigrations")
	defer timer.Stop()

	applied := 0
	for _, m := range pendingMigrations {
		if !s.tableExists(m.Table) {
			continue
		}
		if s.columnExists(m.Table, m.Column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s: %w", m.Table, m.Column, err)
		}
		applied++
	}
	if applied > 0 {
		logging.Store("applied %d schema migrations", applied)
	}
	return nil
}

func (s *Store) tableExists(name string) bool {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name,
	).Scan(&n)
	return err == nil && n > 0
}

func (s *Store) columnExists(table, column string) bool {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
