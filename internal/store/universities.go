package store

import (
	"database/sql"
	"math/rand"

	"github.com/google/uuid"
)

// AllUniversities returns the full lookup table.
func (s *Store) AllUniversities() ([]University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, org_id, name, domain, country, weight, success_rate FROM universities ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []University
	for rows.Next() {
		u, err := scanUniversity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// UniversityByID fetches a single row.
func (s *Store) UniversityByID(id string) (*University, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, org_id, name, domain, country, weight, success_rate FROM universities WHERE id = ?", id)
	u, err := scanUniversity(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return u, err
}

// CreateUniversity inserts a new lookup row.
func (s *Store) CreateUniversity(u University) (*University, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Weight == 0 {
		u.Weight = 50
	}
	_, err := s.db.Exec(`
		INSERT INTO universities (id, org_id, name, domain, country, weight, success_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.OrgID, u.Name, u.Domain, u.Country, u.Weight, u.SuccessRate,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteUniversity removes a lookup row. Returns ErrNotFound if absent.
func (s *Store) DeleteUniversity(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM universities WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PickWeightedUniversity draws a university at random, biased by weight.
// rng may be nil, in which case the shared package source is used.
func (s *Store) PickWeightedUniversity(rng *rand.Rand) (*University, error) {
	unis, err := s.AllUniversities()
	if err != nil {
		return nil, err
	}
	if len(unis) == 0 {
		return nil, ErrNotFound
	}

	total := 0
	for _, u := range unis {
		total += u.Weight
	}
	if total <= 0 {
		return &unis[0], nil
	}

	var roll int
	if rng != nil {
		roll = rng.Intn(total)
	} else {
		roll = rand.Intn(total)
	}
	for i := range unis {
		roll -= unis[i].Weight
		if roll < 0 {
			return &unis[i], nil
		}
	}
	return &unis[len(unis)-1], nil
}

func scanUniversity(r rowScanner) (*University, error) {
	var u University
	var domain sql.NullString
	var rate sql.NullInt64
	if err := r.Scan(&u.ID, &u.OrgID, &u.Name, &domain, &u.Country, &u.Weight, &rate); err != nil {
		return nil, err
	}
	u.Domain = domain.String
	u.SuccessRate = int(rate.Int64)
	return &u, nil
}
