package store

import "fmt"

const usageColumns = "id, run_id, ordinal, line_no, symbol, count, status"

// CommitUsages inserts all usages for runID within a single transaction.
// Either every row lands or none does.
func (s *Store) CommitUsages(runID string, usages []*Usage) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit usages: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare("INSERT INTO usages (run_id, ordinal, line_no, symbol, count, status) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("commit usages: prepare: %w", err)
	}
	defer stmt.Close()

	for _, u := range usages {
		u.RunID = runID
		res, err := stmt.Exec(u.RunID, u.Ordinal, u.LineNo, u.Symbol, u.Count, u.Status)
		if err != nil {
			return fmt.Errorf("commit usages: %s: %w", u.Symbol, err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("commit usages: last insert id: %w", err)
		}
	}
	return tx.Commit()
}

// UsagesByRun returns a run's usages in defconfig order. A non-empty status
// restricts the result to that classification.
func (s *Store) UsagesByRun(runID, status string) ([]*Usage, error) {
	q := "SELECT " + usageColumns + " FROM usages WHERE run_id = ?"
	args := []any{runID}
	if status != "" {
		q += " AND status = ?"
		args = append(args, status)
	}
	q += " ORDER BY ordinal"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("usages by run: %w", err)
	}
	defer rows.Close()

	var usages []*Usage
	for rows.Next() {
		u := &Usage{}
		if err := rows.Scan(&u.ID, &u.RunID, &u.Ordinal, &u.LineNo, &u.Symbol, &u.Count, &u.Status); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}

// SymbolHistory returns every recorded usage of symbol across runs, newest
// run first.
func (s *Store) SymbolHistory(symbol string) ([]*Usage, error) {
	rows, err := s.db.Query(`
SELECT u.id, u.run_id, u.ordinal, u.line_no, u.symbol, u.count, u.status
FROM usages u JOIN runs r ON r.id = u.run_id
WHERE u.symbol = ?
ORDER BY r.started_at DESC, u.ordinal`, symbol)
	if err != nil {
		return nil, fmt.Errorf("symbol history: %w", err)
	}
	defer rows.Close()

	var usages []*Usage
	for rows.Next() {
		u := &Usage{}
		if err := rows.Scan(&u.ID, &u.RunID, &u.Ordinal, &u.LineNo, &u.Symbol, &u.Count, &u.Status); err != nil {
			return nil, fmt.Errorf("scan usage: %w", err)
		}
		usages = append(usages, u)
	}
	return usages, rows.Err()
}
