package models

import "time"

const (
	SubscriptionStatusActive    = "ACTIVE"
	SubscriptionStatusExhausted = "EXHAUSTED"
	SubscriptionStatusExpired   = "EXPIRED"
	SubscriptionStatusCancelled = "CANCELLED"
	SubscriptionStatusPending   = "PENDING"
)

// Subscription holds the entitlement state for one subscriber/product pair.
// A renewal creates a fresh row with reset counters; EXHAUSTED is terminal
// for the row it was reached on.
type Subscription struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserPhoneNumber string     `gorm:"type:varchar(20);not null;index:idx_subscriptions_msisdn_status,priority:1" json:"user_phone_number"`
	ProductID       string     `gorm:"type:varchar(64);not null;index" json:"product_id"`
	ServiceID       string     `gorm:"type:varchar(64);not null;index" json:"service_id"`
	Status          string     `gorm:"type:varchar(16);not null;default:'PENDING';index:idx_subscriptions_msisdn_status,priority:2" json:"status"`
	StartDate       time.Time  `gorm:"type:timestamp;not null" json:"start_date"`
	EndDate         *time.Time `gorm:"type:timestamp;default:null" json:"end_date,omitempty"`
	MaxAccess       int        `gorm:"not null;default:0" json:"max_access"`
	AccessCount     int        `gorm:"not null;default:0" json:"access_count"`
	SequenceNo      string     `gorm:"type:varchar(64);index" json:"sequence_no"`
	OperationType   string     `gorm:"type:varchar(32)" json:"operation_type"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// Remaining returns how many protected accesses are left on this row.
func (s *Subscription) Remaining() int {
	if r := s.MaxAccess - s.AccessCount; r > 0 {
		return r
	}
	return 0
}

// IsCurrent reports whether the row entitles access at the given instant:
// ACTIVE and either perpetual (no end date) or not yet ended.
func (s *Subscription) IsCurrent(now time.Time) bool {
	if s.Status != SubscriptionStatusActive {
		return false
	}
	return s.EndDate == nil || s.EndDate.After(now)
}
