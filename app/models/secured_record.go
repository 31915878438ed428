package models

import "time"

// SecureDRecord is an append-only mirror of a billing-partner notification.
// Converted is computed at ingest (activation "1" with a "Success"
// description) and frozen with the row.
type SecureDRecord struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Msisdn         string    `gorm:"type:varchar(20);not null;index:idx_secured_records_msisdn_product,priority:1" json:"msisdn"`
	ProductID      string    `gorm:"type:varchar(64);not null;index:idx_secured_records_msisdn_product,priority:2" json:"product_id"`
	Activation     string    `gorm:"type:varchar(8);not null" json:"activation"`
	Description    string    `gorm:"type:varchar(255)" json:"description"`
	TrxID          string    `gorm:"type:varchar(64);index" json:"trx_id"`
	Timestamp      string    `gorm:"type:varchar(64)" json:"timestamp"`
	Converted      bool      `gorm:"not null;default:false;index" json:"converted"`
	RawPayloadJSON string    `gorm:"type:longtext;not null" json:"raw_payload_json"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// SecureDRetryJob is a deferred-work unit for re-correlating a partner
// notification with a datasync audit record that had not arrived yet.
type SecureDRetryJob struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	AuditRecordID   uint       `gorm:"not null;index" json:"audit_record_id"`
	ProductID       string     `gorm:"type:varchar(64);not null" json:"product_id"`
	Msisdn          string     `gorm:"type:varchar(20);not null;index" json:"msisdn"`
	SequenceNo      string     `gorm:"type:varchar(64)" json:"sequence_no"`
	OperationType   string     `gorm:"type:varchar(32)" json:"operation_type"`
	OriginalComment string     `gorm:"type:varchar(255)" json:"original_comment"`
	ResolvedAt      *time.Time `gorm:"type:timestamp;default:null" json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
