package store

import "time"

// Tool is a dashboard-visible verification target (Spotify student, Canva
// teacher, ...). The remote program mapping lives in the engine's registry;
// this row carries presentation data and the enable/disable switch.
type Tool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
	IsActive    bool   `json:"isActive"`
}

// Verification is one persisted run of the waterfall.
type Verification struct {
	ID             string    `json:"id"`
	ToolID         string    `json:"toolId"`
	Status         string    `json:"status"` // processing | pending | success | failed
	Email          string    `json:"email"`
	University     string    `json:"university"`
	Name           string    `json:"name"`
	Country        string    `json:"country"`
	ErrorMessage   *string   `json:"errorMessage"`
	URL            string    `json:"url"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	BirthDate      string    `json:"birthDate"`
	OrganizationID int       `json:"organizationId"`
	SessionID      string    `json:"sessionId"`
	StepsJSON      string    `json:"-"`
	DocumentsJSON  string    `json:"-"`
	RewardCode     string    `json:"rewardCode,omitempty"`
	RedirectURL    string    `json:"redirectUrl,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// VerificationUpdate carries the fields the supervisor changes after creation.
// Nil pointers leave the column untouched.
type VerificationUpdate struct {
	Status       *string
	ErrorMessage *string
	StepsJSON    *string
	RewardCode   *string
	RedirectURL  *string
}

// Stats is the per-tool attempt aggregate.
type Stats struct {
	ToolID        string    `json:"toolId"`
	TotalAttempts int       `json:"totalAttempts"`
	SuccessCount  int       `json:"successCount"`
	FailedCount   int       `json:"failedCount"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// University is a weighted lookup row used to pick a plausible organization.
type University struct {
	ID          string `json:"id"`
	OrgID       int    `json:"orgId"`
	Name        string `json:"name"`
	Domain      string `json:"domain"`
	Country     string `json:"country"`
	Weight      int    `json:"weight"`
	SuccessRate int    `json:"successRate"`
}

// BotUser is one Telegram identity with its token balance.
type BotUser struct {
	ID               string     `json:"id"`
	TelegramID       string     `json:"telegramId"`
	Username         string     `json:"username"`
	FirstName        string     `json:"firstName"`
	Tokens           int        `json:"tokens"`
	ReferralCode     string     `json:"referralCode"`
	ReferredBy       string     `json:"referredBy"`
	HasJoinedChannel bool       `json:"hasJoinedChannel"`
	LastDaily        *time.Time `json:"lastDaily"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// ChartPoint is one day of dashboard activity.
type ChartPoint struct {
	Date    string `json:"date"`
	Success int    `json:"success"`
	Failed  int    `json:"failed"`
}
