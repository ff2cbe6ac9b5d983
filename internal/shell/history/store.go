package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// Record
// =============================================================================

// Outcome classifies how an invocation ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Record is one deployment invocation.
type Record struct {
	ID         string
	Role       string
	Mode       string
	Outcome    Outcome
	Warnings   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// =============================================================================
// Store Interface
// =============================================================================

// Store persists invocation records.
type Store interface {
	// RecordInvocation saves a record, assigning it an ID if it has none.
	RecordInvocation(ctx context.Context, rec *Record) error

	// ListByRole returns the most recent records for a role, newest first.
	ListByRole(ctx context.Context, role string, limit int) ([]Record, error)

	// Close releases the store.
	Close() error
}

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, NewHistoryError("NewSQLiteStore", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewHistoryError("NewSQLiteStore", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewHistoryError("NewSQLiteStore", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
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
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Invocation Operations
// =============================================================================

// invocationRow represents an invocation row in the database.
type invocationRow struct {
	ID         string `db:"id"`
	Role       string `db:"role"`
	Mode       string `db:"mode"`
	Outcome    string `db:"outcome"`
	Warnings   int    `db:"warnings"`
	Error      string `db:"error"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
}

// RecordInvocation saves an invocation record.
func (s *SQLiteStore) RecordInvocation(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	row := invocationRow{
		ID:         rec.ID,
		Role:       rec.Role,
		Mode:       rec.Mode,
		Outcome:    string(rec.Outcome),
		Warnings:   rec.Warnings,
		Error:      rec.Error,
		StartedAt:  rec.StartedAt.UTC().Format(time.RFC3339Nano),
		FinishedAt: rec.FinishedAt.UTC().Format(time.RFC3339Nano),
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO invocations (id, role, mode, outcome, warnings, error, started_at, finished_at)
		VALUES (:id, :role, :mode, :outcome, :warnings, :error, :started_at, :finished_at)
	`, row)
	if err != nil {
		return NewHistoryError("RecordInvocation", err.Error(), err)
	}

	return nil
}

// ListByRole returns the most recent invocations for a role, newest first.
func (s *SQLiteStore) ListByRole(ctx context.Context, role string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []invocationRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, role, mode, outcome, warnings, error, started_at, finished_at
		FROM invocations
		WHERE role = ?
		ORDER BY started_at DESC
		LIMIT ?
	`, role, limit)
	if err != nil {
		return nil, NewHistoryError("ListByRole", err.Error(), err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := Record{
			ID:       row.ID,
			Role:     row.Role,
			Mode:     row.Mode,
			Outcome:  Outcome(row.Outcome),
			Warnings: row.Warnings,
			Error:    row.Error,
		}
		rec.StartedAt = s.parseTime(row.ID, "started_at", row.StartedAt)
		rec.FinishedAt = s.parseTime(row.ID, "finished_at", row.FinishedAt)
		records = append(records, rec)
	}

	return records, nil
}

// parseTime converts a stored timestamp. A corrupt value is logged and yields
// the zero time rather than failing the whole listing.
func (s *SQLiteStore) parseTime(id, column, value string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		s.logger.Warn("corrupt invocation timestamp", "id", id, "column", column, "error", err)
	}
	return ts
}
