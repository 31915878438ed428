package models

import "time"

// TrafficData tracks the last observed webhook hit per inbound stream. A
// single row is kept and updated in place; the traffic monitor reads it to
// report carrier-side liveness. The hit counts are cumulative totals, topped
// up in batches from the Redis-buffered counters.
type TrafficData struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	LastDatasyncHit  *time.Time `gorm:"type:timestamp;default:null" json:"last_datasync_hit,omitempty"`
	LastSecureDHit   *time.Time `gorm:"type:timestamp;default:null" json:"last_secure_d_hit,omitempty"`
	DatasyncHitCount int64      `gorm:"not null;default:0" json:"datasync_hit_count"`
	SecureDHitCount  int64      `gorm:"not null;default:0" json:"secure_d_hit_count"`
	SMSHitCount      int64      `gorm:"not null;default:0" json:"sms_hit_count"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
