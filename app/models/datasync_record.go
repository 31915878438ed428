package models

import "time"

// DatasyncRecord is an append-only mirror of a raw carrier datasync webhook
// body, keyed by the carrier sequence number. Rows are never mutated or
// deleted; duplicate sequence numbers are accepted as-is.
type DatasyncRecord struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	SequenceNo       string    `gorm:"type:varchar(64);not null;index" json:"sequence_no"`
	ServiceID        string    `gorm:"type:varchar(64);not null;index" json:"service_id"`
	ProductID        string    `gorm:"type:varchar(64);not null;index" json:"product_id"`
	Msisdn           string    `gorm:"type:varchar(20);not null;index" json:"msisdn"`
	OperationID      string    `gorm:"type:varchar(16);not null" json:"operation_id"`
	OperationType    string    `gorm:"type:varchar(32);not null;index" json:"operation_type"`
	ChargeAmount     string    `gorm:"type:varchar(32)" json:"charge_amount"`
	ChargeCurrency   string    `gorm:"type:varchar(8)" json:"charge_currency"`
	ValidityDays     string    `gorm:"type:varchar(8)" json:"validity_days"`
	EffectiveTime    string    `gorm:"type:varchar(64)" json:"effective_time"`
	ExpiryTime       string    `gorm:"type:varchar(64)" json:"expiry_time"`
	UpdateTime       string    `gorm:"type:varchar(64)" json:"update_time"`
	UpdateChannel    string    `gorm:"type:varchar(32)" json:"update_channel"`
	UpdateReason     string    `gorm:"type:varchar(64)" json:"update_reason"`
	FirstTimePayment string    `gorm:"type:varchar(8)" json:"first_time_payment"`
	RawPayloadJSON   string    `gorm:"type:longtext;not null" json:"raw_payload_json"`
	CreatedAt        time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
