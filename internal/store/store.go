// Package store indexes written report artifacts so past runs can be listed
// and located without scanning the output directory.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/thesis-scout/internal/config"
)

// ErrNotFound is returned when no report is indexed under a run id.
var ErrNotFound = eris.New("store: report not found")

// ReportEntry is one indexed report. Entries are insert-only.
type ReportEntry struct {
	RunID     string    `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Accepted  int       `json:"accepted"`
	Rejected  int       `json:"rejected"`
	DryRun    bool      `json:"dry_run"`
}

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	Since  time.Time `json:"since,omitempty"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

// Store is the append-only report index.
type Store interface {
	RecordReport(ctx context.Context, e ReportEntry) error
	GetReport(ctx context.Context, runID string) (*ReportEntry, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]ReportEntry, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// Open returns the store selected by cfg.Driver and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
