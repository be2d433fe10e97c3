package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const runColumns = "id, defconfig, source_root, match_mode, started_at, finished_at, active_count, deprecated_count"

// BeginRun inserts r with a fresh ID and returns it. StartedAt defaults to now.
func (s *Store) BeginRun(r *Run) (string, error) {
	r.ID = uuid.NewString()
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	if r.MatchMode == "" {
		r.MatchMode = "substring"
	}
	_, err := s.db.Exec(
		"INSERT INTO runs (id, defconfig, source_root, match_mode, started_at) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.Defconfig, r.SourceRoot, r.MatchMode, r.StartedAt,
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return r.ID, nil
}

// FinishRun stamps the run as complete and stores its status totals,
// computed from the recorded usages.
func (s *Store) FinishRun(runID string) error {
	res, err := s.db.Exec(`
UPDATE runs SET
  finished_at = ?,
  active_count = (SELECT COUNT(*) FROM usages WHERE run_id = runs.id AND status = 'active'),
  deprecated_count = (SELECT COUNT(*) FROM usages WHERE run_id = runs.id AND status = 'deprecated')
WHERE id = ?`, time.Now(), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run: no run %q", runID)
	}
	return nil
}

// RunByID returns the run or nil when it does not exist.
func (s *Store) RunByID(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recently started finished run, or nil.
func (s *Store) LatestRun() (*Run, error) {
	r, err := scanRun(s.db.QueryRow(
		"SELECT " + runColumns + " FROM runs WHERE finished_at IS NOT NULL ORDER BY started_at DESC, rowid DESC LIMIT 1",
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// Runs lists runs newest first. limit <= 0 means no limit.
func (s *Store) Runs(limit int) ([]*Run, error) {
	q := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var finished sql.NullTime
	if err := row.Scan(&r.ID, &r.Defconfig, &r.SourceRoot, &r.MatchMode, &r.StartedAt,
		&finished, &r.ActiveCount, &r.DeprecatedCount); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return r, nil
}
