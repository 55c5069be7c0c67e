package store

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"verihub/internal/logging"
)

const verificationColumns = `id, tool_id, status, email, university, name, country,
	error_message, url, first_name, last_name, birth_date, organization_id,
	session_id, steps_json, documents_json, reward_code, redirect_url, created_at`

// CreateVerification inserts a new record and returns it with its generated id.
func (s *Store) CreateVerification(v Verification) (*Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.Status == "" {
		v.Status = "processing"
	}
	v.CreatedAt = time.Now().UTC()

	_, err := s.db.Exec(`
		INSERT INTO verifications (id, tool_id, status, email, university, name,
			country, error_message, url, first_name, last_name, birth_date,
			organization_id, session_id, steps_json, documents_json,
			reward_code, redirect_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.ToolID, v.Status, v.Email, v.University, v.Name, v.Country,
		v.ErrorMessage, v.URL, v.FirstName, v.LastName, v.BirthDate,
		v.OrganizationID, v.SessionID, v.StepsJSON, v.DocumentsJSON,
		v.RewardCode, v.RedirectURL, v.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	logging.StoreDebug("verification created id=%s tool=%s", v.ID, v.ToolID)
	return &v, nil
}

// UpdateVerification applies the non-nil fields of upd to the record.
func (s *Store) UpdateVerification(id string, upd VerificationUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sets []string
	var args []interface{}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.ErrorMessage != nil {
		sets = append(sets, "error_message = ?")
		args = append(args, *upd.ErrorMessage)
	}
	if upd.StepsJSON != nil {
		sets = append(sets, "steps_json = ?")
		args = append(args, *upd.StepsJSON)
	}
	if upd.RewardCode != nil {
		sets = append(sets, "reward_code = ?")
		args = append(args, *upd.RewardCode)
	}
	if upd.RedirectURL != nil {
		sets = append(sets, "redirect_url = ?")
		args = append(args, *upd.RedirectURL)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.Exec("UPDATE verifications SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearErrorMessage nulls out a previously recorded error, e.g. when a
// pending record later resolves to success.
func (s *Store) ClearErrorMessage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("UPDATE verifications SET error_message = NULL WHERE id = ?", id)
	return err
}

// VerificationByID fetches one record.
func (s *Store) VerificationByID(id string) (*Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow("SELECT "+verificationColumns+" FROM verifications WHERE id = ?", id)
	v, err := scanVerification(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return v, err
}

// RecentVerifications returns the newest records, capped at limit.
func (s *Store) RecentVerifications(limit int) ([]Verification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(
		"SELECT "+verificationColumns+" FROM verifications ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

// ChartData aggregates success/failed counts per day over the trailing window.
// Days with no activity are present with zero counts.
func (s *Store) ChartData(days int) ([]ChartPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
	rows, err := s.db.Query(`
		SELECT strftime('%Y-%m-%d', created_at) AS day,
		       SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END)
		FROM verifications
		WHERE created_at >= ?
		GROUP BY day`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string]ChartPoint)
	for rows.Next() {
		var day string
		var succ, fail int
		if err := rows.Scan(&day, &succ, &fail); err != nil {
			return nil, err
		}
		byDay[day] = ChartPoint{Date: day, Success: succ, Failed: fail}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	points := make([]ChartPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := time.Now().UTC().AddDate(0, 0, -i).Format("2006-01-02")
		p, ok := byDay[day]
		if !ok {
			p = ChartPoint{Date: day}
		}
		points = append(points, p)
	}
	return points, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVerification(r rowScanner) (*Verification, error) {
	var v Verification
	var errMsg, email, university, name, country, url sql.NullString
	var first, last, birth, session, steps, docs, reward, redirect sql.NullString
	var orgID sql.NullInt64

	err := r.Scan(&v.ID, &v.ToolID, &v.Status, &email, &university, &name,
		&country, &errMsg, &url, &first, &last, &birth, &orgID, &session,
		&steps, &docs, &reward, &redirect, &v.CreatedAt)
	if err != nil {
		return nil, err
	}

	v.Email = email.String
	v.University = university.String
	v.Name = name.String
	v.Country = country.String
	v.URL = url.String
	v.FirstName = first.String
	v.LastName = last.String
	v.BirthDate = birth.String
	v.SessionID = session.String
	v.StepsJSON = steps.String
	v.DocumentsJSON = docs.String
	v.RewardCode = reward.String
	v.RedirectURL = redirect.String
	v.OrganizationID = int(orgID.Int64)
	if errMsg.Valid {
		msg := errMsg.String
		v.ErrorMessage = &msg
	}
	return &v, nil
}

// SetVerificationDocuments stores the rendered document payloads for a run.
func (s *Store) SetVerificationDocuments(id, documentsJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE verifications SET documents_json = ? WHERE id = ?", documentsJSON, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
