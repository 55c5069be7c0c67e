package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"verihub/internal/logging"
)

// ErrInsufficientTokens is returned by DeductTokens when the balance cannot
// cover the amount. The check and the decrement are one statement, so two
// concurrent deductions can never drive a balance negative.
var ErrInsufficientTokens = errors.New("insufficient tokens")

// BotUserByTelegramID fetches a user by their Telegram identity.
func (s *Store) BotUserByTelegramID(telegramID string) (*BotUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botUserWhere("telegram_id = ?", telegramID)
}

// BotUserByReferralCode fetches a user by their referral code.
func (s *Store) BotUserByReferralCode(code string) (*BotUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.botUserWhere("referral_code = ?", code)
}

func (s *Store) botUserWhere(cond string, arg interface{}) (*BotUser, error) {
	row := s.db.QueryRow(`
		SELECT id, telegram_id, username, first_name, tokens, referral_code,
		       referred_by, has_joined_channel, last_daily, created_at
		FROM bot_users WHERE `+cond, arg)

	var u BotUser
	var username, firstName, referredBy sql.NullString
	var lastDaily sql.NullTime
	err := row.Scan(&u.ID, &u.TelegramID, &username, &firstName, &u.Tokens,
		&u.ReferralCode, &referredBy, &u.HasJoinedChannel, &lastDaily, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Username = username.String
	u.FirstName = firstName.String
	u.ReferredBy = referredBy.String
	if lastDaily.Valid {
		t := lastDaily.Time
		u.LastDaily = &t
	}
	return &u, nil
}

// CreateBotUser registers a Telegram identity with a zero balance.
func (s *Store) CreateBotUser(u BotUser) (*BotUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()

	var referredBy interface{}
	if u.ReferredBy != "" {
		referredBy = u.ReferredBy
	}
	_, err := s.db.Exec(`
		INSERT INTO bot_users (id, telegram_id, username, first_name, tokens,
			referral_code, referred_by, has_joined_channel, last_daily, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
		u.ID, u.TelegramID, u.Username, u.FirstName, u.Tokens,
		u.ReferralCode, referredBy, u.HasJoinedChannel, u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// MarkJoinedChannel records a verified channel membership.
func (s *Store) MarkJoinedChannel(telegramID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("UPDATE bot_users SET has_joined_channel = 1 WHERE telegram_id = ?", telegramID)
	return err
}

// TouchLastDaily stamps the daily-bonus claim time.
func (s *Store) TouchLastDaily(telegramID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("UPDATE bot_users SET last_daily = ? WHERE telegram_id = ?", at.UTC(), telegramID)
	return err
}

// AddTokens credits the balance and returns the new total.
func (s *Store) AddTokens(telegramID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE bot_users SET tokens = tokens + ? WHERE telegram_id = ?", amount, telegramID)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return 0, ErrNotFound
	}

	var balance int
	if err := s.db.QueryRow(
		"SELECT tokens FROM bot_users WHERE telegram_id = ?", telegramID,
	).Scan(&balance); err != nil {
		return 0, err
	}
	logging.Ledger("credit user=%s amount=%d balance=%d", telegramID, amount, balance)
	return balance, nil
}

// DeductTokens performs the atomic conditional debit. The WHERE clause carries
// the balance check, so the decrement only happens when the funds exist at
// that instant. Returns the new balance, ErrInsufficientTokens, or ErrNotFound.
func (s *Store) DeductTokens(telegramID string, amount int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		"UPDATE bot_users SET tokens = tokens - ? WHERE telegram_id = ? AND tokens >= ?",
		amount, telegramID, amount)
	if err != nil {
		return 0, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Distinguish unknown user from a short balance.
		var exists int
		if err := s.db.QueryRow(
			"SELECT COUNT(*) FROM bot_users WHERE telegram_id = ?", telegramID,
		).Scan(&exists); err != nil {
			return 0, err
		}
		if exists == 0 {
			return 0, ErrNotFound
		}
		logging.LedgerWarn("debit refused user=%s amount=%d", telegramID, amount)
		return 0, ErrInsufficientTokens
	}

	var balance int
	if err := s.db.QueryRow(
		"SELECT tokens FROM bot_users WHERE telegram_id = ?", telegramID,
	).Scan(&balance); err != nil {
		return 0, err
	}
	logging.Ledger("debit user=%s amount=%d balance=%d", telegramID, amount, balance)
	return balance, nil
}

// SetTokens overwrites a balance. Admin command only.
func (s *Store) SetTokens(telegramID string, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("UPDATE bot_users SET tokens = ? WHERE telegram_id = ?", amount, telegramID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AllBotUsers returns every registered user, newest first.
func (s *Store) AllBotUsers() ([]BotUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, telegram_id, username, first_name, tokens, referral_code,
		       referred_by, has_joined_channel, last_daily, created_at
		FROM bot_users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []BotUser
	for rows.Next() {
		var u BotUser
		var username, firstName, referredBy sql.NullString
		var lastDaily sql.NullTime
		if err := rows.Scan(&u.ID, &u.TelegramID, &username, &firstName, &u.Tokens,
			&u.ReferralCode, &referredBy, &u.HasJoinedChannel, &lastDaily, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.Username = username.String
		u.FirstName = firstName.String
		u.ReferredBy = referredBy.String
		if lastDaily.Valid {
			t := lastDaily.Time
			u.LastDaily = &t
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
