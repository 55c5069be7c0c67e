package store

import (
	"database/sql"
	"errors"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// AllTools returns every registered tool.
func (s *Store) AllTools() ([]Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, name, description, category, is_active FROM tools ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tools []Tool
	for rows.Next() {
		var t Tool
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.IsActive); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, rows.Err()
}

// ToolByID fetches a single tool.
func (s *Store) ToolByID(id string) (*Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Tool
	err := s.db.QueryRow(
		"SELECT id, name, description, category, is_active FROM tools WHERE id = ?", id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.Category, &t.IsActive)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTool inserts or replaces a tool row. Used by the seed command.
func (s *Store) UpsertTool(t Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO tools (id, name, description, category, is_active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			category = excluded.category`,
		t.ID, t.Name, t.Description, t.Category, t.IsActive,
	)
	return err
}

// SetToolActive flips the enable switch.
func (s *Store) SetToolActive(id string, active bool) (*Tool, error) {
	s.mu.Lock()
	res, err := s.db.Exec("UPDATE tools SET is_active = ? WHERE id = ?", active, id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.ToolByID(id)
}
