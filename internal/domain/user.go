package domain

import "time"

// NotificationSettings selects how a user receives pushes. Channel names a
// registered notification provider; empty means the default channel.
type NotificationSettings struct {
	Channel string `json:"channel,omitempty"`
}

// SummarySettings opts a user into a daily digest of the matching inventory.
// Hour is the local hour (0..23) the digest goes out.
type SummarySettings struct {
	Enabled bool `json:"enabled"`
	Hour    int  `json:"hour"`
}

// Settings groups per-user preferences.
type Settings struct {
	Notifications NotificationSettings `json:"notifications"`
}

// User is created on first contact with the bot. ID is the messaging
// platform's user id. IsActive gates whether the user receives notifications.
// LastSummaryDate records when the most recent daily digest was delivered.
type User struct {
	ID              int64            `json:"id"`
	IsActive        bool             `json:"is_active"`
	Email           string           `json:"email,omitempty"`
	Settings        Settings         `json:"settings"`
	Summary         *SummarySettings `json:"summary_settings,omitempty"`
	LastSummaryDate *time.Time       `json:"last_summary_date,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// SystemState is a singleton record that lets the tracker's running state
// survive a process restart.
type SystemState struct {
	IsTracking  bool      `json:"is_tracking"`
	LastUpdated time.Time `json:"last_updated"`
}

// NotificationRecord is an audit entry for one delivered notification.
type NotificationRecord struct {
	UserID     int64     `json:"user_id"`
	Message    string    `json:"message"`
	ProductIDs []string  `json:"product_ids,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}
