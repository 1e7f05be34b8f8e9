// Package domain defines the core domain models for astrochat.
package domain

import (
	"encoding/json"
	"time"
)

// Session represents one conversation thread owned by a single user.
//
// The cached copy lives in the session store under a TTL; the durable copy
// lives in the repository. MessageCount counts every message ever appended,
// not just what the cache currently holds.
type Session struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	Title        string    `json:"title"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
	ChartID      string    `json:"chart_id,omitempty"`
}

// Message represents a single turn in a session.
// TokenCount is zero when the producer did not report usage; consumers
// estimate from content length in that case.
type Message struct {
	ID         string          `json:"id"`
	SessionID  string          `json:"session_id"`
	Role       MessageRole     `json:"role"`
	Content    string          `json:"content"`
	TokenCount int             `json:"token_count,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// User represents a registered account. Auth identity is resolved by the
// external provider; AuthUID is the provider's subject identifier.
type User struct {
	ID               string          `json:"id"`
	AuthUID          string          `json:"auth_uid"`
	Email            string          `json:"email"`
	DisplayName      string          `json:"display_name,omitempty"`
	IsActive         bool            `json:"is_active"`
	SubscriptionTier string          `json:"subscription_tier"`
	BirthDate        string          `json:"birth_date,omitempty"`
	BirthTime        string          `json:"birth_time,omitempty"`
	BirthLocation    string          `json:"birth_location,omitempty"`
	Preferences      json.RawMessage `json:"preferences,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Chart represents a stored astrological chart calculation.
type Chart struct {
	ID            string          `json:"id"`
	OwnerID       string          `json:"owner_id"`
	Name          string          `json:"name"`
	ChartType     ChartType       `json:"chart_type"`
	HouseSystem   HouseSystem     `json:"house_system"`
	ZodiacSystem  ZodiacSystem    `json:"zodiac_system"`
	BirthDate     string          `json:"birth_date"`
	BirthTime     string          `json:"birth_time"`
	BirthLocation string          `json:"birth_location"`
	Latitude      float64         `json:"latitude"`
	Longitude     float64         `json:"longitude"`
	Positions     json.RawMessage `json:"positions,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// AdminUser grants an existing user an administrative role.
type AdminUser struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      AdminRole `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry records an administrative action.
type AuditEntry struct {
	ID        string          `json:"id"`
	AdminID   string          `json:"admin_id"`
	Action    string          `json:"action"`
	TargetID  string          `json:"target_id,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
