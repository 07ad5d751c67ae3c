// Package store provides the local sqlite repository of the synchronization engine.
//
// The database holds local rows and their mirrors side by side: a mirror is a
// row with is_synchronized = 1 whose synchronization_mate_id points at the
// local row (and back). The engine never talks to the tables directly; it
// opens a UnitOfWork per run, reads an in-memory snapshot, stages changes and
// commits them one top-level entity at a time.
//
// Architecture:
//   - Database file: .bimsync/bimsync.db
//   - WAL mode: concurrent readers while a run commits
//   - Schema: projects, objectives, items, bim_elements, dynamic_fields,
//     locations, the three link tables and synchronizations
//
// Workflow:
//  1. db.Begin loads a snapshot into a UnitOfWork
//  2. Strategies stage Save/Delete/Link/Unlink calls tagged with an owner key
//  3. Commit flushes the staged changes in one transaction
//  4. Detach undoes the staged changes of a failed owner
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB wraps the sqlite connection pool.
type DB struct {
	conn *sql.DB
	path string
}

// Open creates a new database connection at the specified path.
//
// The caller MUST call Close() when done to ensure proper cleanup.
//
// Example:
//
//	db, err := store.Open(".bimsync/bimsync.db")
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{
		conn: conn,
		path: path,
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// RawDB returns the underlying sql.DB connection.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Close checkpoints the WAL and closes the database connection. The
// connection is released even when the checkpoint fails; both errors are
// returned.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	var errs []error
	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		errs = append(errs, fmt.Errorf("failed to checkpoint WAL: %w", err))
	}
	if err := db.conn.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}

	db.conn = nil
	return errors.Join(errs...)
}

// InitSchema creates the database schema if it doesn't exist.
// This is idempotent - safe to call multiple times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}
	return nil
}

// LastSynchronizationContext returns the date of the last fully successful
// run for the user, or nil if there was none.
func (db *DB) LastSynchronizationContext(ctx context.Context, userID string) (*time.Time, error) {
	var raw sql.NullString
	err := db.conn.QueryRowContext(ctx,
		`SELECT date FROM synchronizations WHERE user_id = ? ORDER BY date DESC LIMIT 1`,
		userID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last synchronization: %w", err)
	}
	t := parseTime(raw)
	if t.IsZero() {
		return nil, nil
	}
	return &t, nil
}

// RecordSynchronizationContext stores the date of a successful run.
func (db *DB) RecordSynchronizationContext(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO synchronizations (user_id, date) VALUES (?, ?)`,
		userID, formatTime(at),
	)
	if err != nil {
		return fmt.Errorf("failed to record synchronization: %w", err)
	}
	return nil
}

// Stats summarizes the local database.
type Stats struct {
	Projects          int `json:"projects"`
	ProjectMirrors    int `json:"project_mirrors"`
	Objectives        int `json:"objectives"`
	ObjectiveMirrors  int `json:"objective_mirrors"`
	Items             int `json:"items"`
	BimElements       int `json:"bim_elements"`
	UnsyncedProjects  int `json:"unsynced_projects"`
	UnsyncedObjective int `json:"unsynced_objectives"`
}

// StatsContext counts local rows, mirrors and locals that were never synchronized.
func (db *DB) StatsContext(ctx context.Context) (*Stats, error) {
	var s Stats
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM projects WHERE is_synchronized = 0`, &s.Projects},
		{`SELECT COUNT(*) FROM projects WHERE is_synchronized = 1`, &s.ProjectMirrors},
		{`SELECT COUNT(*) FROM objectives WHERE is_synchronized = 0`, &s.Objectives},
		{`SELECT COUNT(*) FROM objectives WHERE is_synchronized = 1`, &s.ObjectiveMirrors},
		{`SELECT COUNT(*) FROM items WHERE is_synchronized = 0`, &s.Items},
		{`SELECT COUNT(*) FROM bim_elements`, &s.BimElements},
		{`SELECT COUNT(*) FROM projects WHERE is_synchronized = 0 AND synchronization_mate_id IS NULL`, &s.UnsyncedProjects},
		{`SELECT COUNT(*) FROM objectives WHERE is_synchronized = 0 AND synchronization_mate_id IS NULL`, &s.UnsyncedObjective},
	}
	for _, q := range queries {
		if err := db.conn.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("failed to count: %w", err)
		}
	}
	return &s, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}

func parseTime(ns sql.NullString) time.Time {
	if !ns.Valid || ns.String == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, ns.String)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
