package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/prodkit/prodkit/internal/core/target"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// HistoryStore
// =============================================================================

// Run is one recorded deployment run.
type Run struct {
	ID         string
	Host       string
	User       string
	Status     string // running, succeeded, failed
	Stage      string
	Message    string
	StartedAt  time.Time
	FinishedAt time.Time // zero while the run is in flight
}

// runRow mirrors the runs table. Timestamps are stored as RFC 3339 text.
type runRow struct {
	ID         string         `db:"id"`
	Host       string         `db:"host"`
	User       string         `db:"ssh_user"`
	Status     string         `db:"status"`
	Stage      sql.NullString `db:"stage"`
	Message    sql.NullString `db:"message"`
	StartedAt  string         `db:"started_at"`
	FinishedAt sql.NullString `db:"finished_at"`
}

// HistoryStore records deployment runs in SQLite.
type HistoryStore struct {
	db *sqlx.DB
}

// NewHistoryStore opens the run history database and runs migrations.
func NewHistoryStore(dsn string) (*HistoryStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewHistoryStore", "", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewHistoryStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewHistoryStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &HistoryStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// RecordStart inserts a new run in the running state.
func (s *HistoryStore) RecordStart(runID string, t target.Target, startedAt time.Time) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO runs (id, host, ssh_user, status, started_at)
		 VALUES (?, ?, ?, 'running', ?)`,
		runID, t.Host, t.User, startedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return NewStoreError("RecordStart", "run", runID, err.Error(), err)
	}
	return nil
}

// RecordOutcome closes a run with its final stage, status and message.
func (s *HistoryStore) RecordOutcome(runID, stage, status, message string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(context.Background(),
		`UPDATE runs SET stage = ?, status = ?, message = ?, finished_at = ?
		 WHERE id = ?`,
		stage, status, message, finishedAt.UTC().Format(time.RFC3339), runID)
	if err != nil {
		return NewStoreError("RecordOutcome", "run", runID, err.Error(), err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NewStoreError("RecordOutcome", "run", runID, "no such run", ErrNotFound)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *HistoryStore) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	err := s.db.SelectContext(context.Background(), &rows,
		`SELECT id, host, ssh_user, status, stage, message, started_at, finished_at
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, NewStoreError("ListRuns", "run", "", err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toRun()
		if err != nil {
			return nil, NewStoreError("ListRuns", "run", row.ID, err.Error(), ErrInvalidData)
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r runRow) toRun() (Run, error) {
	startedAt, err := time.Parse(time.RFC3339, r.StartedAt)
	if err != nil {
		return Run{}, fmt.Errorf("bad started_at %q: %w", r.StartedAt, err)
	}
	run := Run{
		ID:        r.ID,
		Host:      r.Host,
		User:      r.User,
		Status:    r.Status,
		Stage:     r.Stage.String,
		Message:   r.Message.String,
		StartedAt: startedAt,
	}
	if r.FinishedAt.Valid && r.FinishedAt.String != "" {
		finishedAt, err := time.Parse(time.RFC3339, r.FinishedAt.String)
		if err != nil {
			return Run{}, fmt.Errorf("bad finished_at %q: %w", r.FinishedAt.String, err)
		}
		run.FinishedAt = finishedAt
	}
	return run, nil
}
