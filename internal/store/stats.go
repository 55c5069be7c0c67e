package store

import "database/sql"

// IncrementStats bumps the per-tool aggregate for one completed run. The
// arithmetic happens inside a single UPSERT so concurrent runs against the
// same tool cannot lose an update, and totalAttempts always equals
// successCount + failedCount.
func (s *Store) IncrementStats(toolID string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	succ, fail := 0, 1
	if success {
		succ, fail = 1, 0
	}
	_, err := s.db.Exec(`
		INSERT INTO stats (tool_id, total_attempts, success_count, failed_count, last_updated)
		VALUES (?, 1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(tool_id) DO UPDATE SET
			total_attempts = total_attempts + 1,
			success_count = success_count + excluded.success_count,
			failed_count = failed_count + excluded.failed_count,
			last_updated = CURRENT_TIMESTAMP`,
		toolID, succ, fail,
	)
	return err
}

// AllStats returns the aggregate row for every tool that has run at least once.
func (s *Store) AllStats() ([]Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT tool_id, total_attempts, success_count, failed_count, last_updated FROM stats ORDER BY tool_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.ToolID, &st.TotalAttempts, &st.SuccessCount, &st.FailedCount, &st.LastUpdated); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// StatsByTool fetches the aggregate for one tool. Missing rows come back
// zeroed rather than as an error.
func (s *Store) StatsByTool(toolID string) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{ToolID: toolID}
	err := s.db.QueryRow(
		"SELECT total_attempts, success_count, failed_count, last_updated FROM stats WHERE tool_id = ?",
		toolID,
	).Scan(&st.TotalAttempts, &st.SuccessCount, &st.FailedCount, &st.LastUpdated)
	if err == sql.ErrNoRows {
		return Stats{ToolID: toolID}, nil
	}
	return st, err
}
