package domain

import "time"

// Alert types.
const (
	AlertTypeInfo    = "info"
	AlertTypeWarning = "warning"
	AlertTypeError   = "error"
	AlertTypeSuccess = "success"
)

// Alert statuses. An active alert may transition to any of the other three;
// no other transition is allowed.
const (
	AlertStatusActive   = "active"
	AlertStatusInactive = "inactive"
	AlertStatusArchived = "archived"
	AlertStatusExpired  = "expired"
)

// Target audiences.
const (
	AudienceAll      = "all"
	AudienceDonors   = "donors"
	AudienceManagers = "managers"
	AudienceAdmins   = "admins"
)

type Alert struct {
	AlertID        string     `json:"id" dynamodbav:"alert_id"`
	Title          string     `json:"title" dynamodbav:"title"`
	Message        string     `json:"message" dynamodbav:"message"`
	Type           string     `json:"type" dynamodbav:"type"`     // "info" | "warning" | "error" | "success"
	Status         string     `json:"status" dynamodbav:"status"` // "active" | "inactive" | "archived" | "expired"
	TargetAudience string     `json:"target_audience" dynamodbav:"target_audience"`
	Priority       int        `json:"priority" dynamodbav:"priority"` // 0 = low, 1 = medium, 2 = high, 3 = critical
	ExpiresAt      *time.Time `json:"expires_at,omitempty" dynamodbav:"expires_at"`
	IsSystemWide   bool       `json:"is_system_wide" dynamodbav:"is_system_wide"`
	UserID         string     `json:"user_id" dynamodbav:"user_id"` // admin who created the alert
	CreatedAt      time.Time  `json:"created" dynamodbav:"created_at"`
	UpdatedAt      time.Time  `json:"updated" dynamodbav:"updated_at"`
}

// Expired reports whether the alert carries an expiry in the past.
func (a *Alert) Expired(now time.Time) bool {
	return a.ExpiresAt != nil && !a.ExpiresAt.After(now)
}

type CreateAlertRequest struct {
	Title          string  `json:"title" validate:"required,min=3,max=255"`
	Message        string  `json:"message" validate:"required,min=10,max=2000"`
	Type           string  `json:"type" validate:"omitempty,oneof=info warning error success"`
	TargetAudience string  `json:"target_audience" validate:"omitempty,oneof=all donors managers admins"`
	Priority       *int    `json:"priority" validate:"omitempty,gte=0,lte=3"`
	ExpiresAt      *string `json:"expires_at"` // RFC 3339
	IsSystemWide   *bool   `json:"is_system_wide"`
}

// UpdateAlertRequest is an explicit partial update: nil fields are left
// untouched, non-nil fields override the stored values.
type UpdateAlertRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=3,max=255"`
	Message        *string `json:"message" validate:"omitempty,min=10,max=2000"`
	Type           *string `json:"type" validate:"omitempty,oneof=info warning error success"`
	Status         *string `json:"status" validate:"omitempty,oneof=active inactive archived expired"`
	TargetAudience *string `json:"target_audience" validate:"omitempty,oneof=all donors managers admins"`
	Priority       *int    `json:"priority" validate:"omitempty,gte=0,lte=3"`
	ExpiresAt      *string `json:"expires_at"` // RFC 3339
	IsSystemWide   *bool   `json:"is_system_wide"`
}

// DeliveryOutcome records one attempted send. Outcomes are never persisted;
// they only exist long enough to be reduced into a BroadcastResult.
type DeliveryOutcome struct {
	RecipientID string
	Success     bool
}

// BroadcastResult summarises one broadcast invocation. It is returned, never
// raised: a broadcast where every delivery failed is still a normal result.
type BroadcastResult struct {
	Alert       *Alert `json:"alert,omitempty"`
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	SentCount   int    `json:"sent_count"`
	FailedCount int    `json:"failed_count"`
}
