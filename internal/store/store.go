package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for scan history: one row per run
// and one row per probed symbol occurrence.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates all tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS runs (
  id              TEXT PRIMARY KEY,
  defconfig       TEXT NOT NULL,
  source_root     TEXT NOT NULL,
  match_mode      TEXT NOT NULL DEFAULT 'substring',
  started_at      TIMESTAMP NOT NULL,
  finished_at     TIMESTAMP,
  active_count    INTEGER NOT NULL DEFAULT 0,
  deprecated_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS usages (
  id              INTEGER PRIMARY KEY,
  run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
  ordinal         INTEGER NOT NULL,
  line_no         INTEGER NOT NULL,
  symbol          TEXT NOT NULL,
  count           INTEGER NOT NULL,
  status          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_defconfig ON runs(defconfig);
CREATE UNIQUE INDEX IF NOT EXISTS idx_usages_run_ordinal ON usages(run_id, ordinal);
CREATE INDEX IF NOT EXISTS idx_usages_symbol ON usages(symbol);
CREATE INDEX IF NOT EXISTS idx_usages_status ON usages(run_id, status);
`

// DeleteRun removes a run and its usages. Deleting an unknown run is an error.
func (s *Store) DeleteRun(runID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM usages WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("delete usages: %w", err)
	}
	res, err := tx.Exec("DELETE FROM runs WHERE id = ?", runID)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete run: no run %q", runID)
	}
	return tx.Commit()
}
