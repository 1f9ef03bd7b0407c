package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	run_id     TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	path       TEXT NOT NULL,
	checksum   TEXT NOT NULL,
	accepted   INTEGER NOT NULL DEFAULT 0,
	rejected   INTEGER NOT NULL DEFAULT 0,
	dry_run    BOOLEAN NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);

CREATE TRIGGER IF NOT EXISTS reports_no_update BEFORE UPDATE ON reports
BEGIN
	SELECT RAISE(ABORT, 'reports are append-only');
END;
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordReport(ctx context.Context, e ReportEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (run_id, created_at, path, checksum, accepted, rejected, dry_run) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.CreatedAt.UTC(), e.Path, e.Checksum, e.Accepted, e.Rejected, e.DryRun,
	)
	return eris.Wrapf(err, "sqlite: insert report %s", e.RunID)
}

func (s *SQLiteStore) GetReport(ctx context.Context, runID string) (*ReportEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, created_at, path, checksum, accepted, rejected, dry_run FROM reports WHERE run_id = ?`,
		runID,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", runID)
	}
	return e, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportFilter) ([]ReportEntry, error) {
	query := `SELECT run_id, created_at, path, checksum, accepted, rejected, dry_run FROM reports WHERE 1=1`
	var args []any

	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY created_at DESC, run_id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var out []ReportEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan report")
		}
		out = append(out, *e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEntry(row scannable) (*ReportEntry, error) {
	var e ReportEntry
	if err := row.Scan(&e.RunID, &e.CreatedAt, &e.Path, &e.Checksum, &e.Accepted, &e.Rejected, &e.DryRun); err != nil {
		return nil, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	return &e, nil
}
