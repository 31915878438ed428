package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/datasync"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/secured"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/sms"
)

// QueueName names one independent durable lane in the broker.
type QueueName string

const (
	QueueICell        QueueName = "icell"
	QueueSecureD      QueueName = "secure_d"
	QueueSecureDRetry QueueName = "secure_d_retry"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeProcessSMSRequest       JobType = "PROCESS_SMS_REQUEST"
	JobTypeProcessDatasyncRequest  JobType = "PROCESS_DATASYNC_REQUEST"
	JobTypeProcessSecureD          JobType = "PROCESS_SECURED_NOTIFICATION"
	JobTypeRetrySecureDCorrelation JobType = "RETRY_SECURED_CORRELATION"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}

func payloadToMap(v interface{}) map[string]interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]interface{}{}
	}
	return m
}

func payloadFromMap(data map[string]interface{}, out interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, out)
}

// SMSJobPayload carries one inbound subscriber SMS. Reply is filled in after
// the carrier transaction ran, so a redelivery resends it instead of firing
// the transaction again.
type SMSJobPayload struct {
	Message         string `json:"message"`
	SenderAddress   string `json:"sender_address"`
	ReceiverAddress string `json:"receiver_address"`
	Reply           string `json:"reply,omitempty"`
}

// ToMap converts the payload to a map for storage
func (p SMSJobPayload) ToMap() map[string]interface{} {
	return payloadToMap(p)
}

// SMSJobPayloadFromMap creates a payload from a map
func SMSJobPayloadFromMap(data map[string]interface{}) (*SMSJobPayload, error) {
	var p SMSJobPayload
	if err := payloadFromMap(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Inbound converts the payload back to the handler's inbound message.
func (p SMSJobPayload) Inbound() sms.InboundSMS {
	return sms.InboundSMS{
		Message:         p.Message,
		SenderAddress:   p.SenderAddress,
		ReceiverAddress: p.ReceiverAddress,
	}
}

// DatasyncJobPayload carries one raw carrier datasync record.
type DatasyncJobPayload struct {
	Request datasync.Request `json:"request"`
}

// ToMap converts the payload to a map for storage
func (p DatasyncJobPayload) ToMap() map[string]interface{} {
	return payloadToMap(p)
}

// DatasyncJobPayloadFromMap creates a payload from a map
func DatasyncJobPayloadFromMap(data map[string]interface{}) (*DatasyncJobPayload, error) {
	var p DatasyncJobPayload
	if err := payloadFromMap(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SecureDJobPayload carries one billing-partner notification.
type SecureDJobPayload struct {
	Request secured.Request `json:"request"`
}

// ToMap converts the payload to a map for storage
func (p SecureDJobPayload) ToMap() map[string]interface{} {
	return payloadToMap(p)
}

// SecureDJobPayloadFromMap creates a payload from a map
func SecureDJobPayloadFromMap(data map[string]interface{}) (*SecureDJobPayload, error) {
	var p SecureDJobPayload
	if err := payloadFromMap(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SecureDRetryJobPayload points at a persisted retry job row.
type SecureDRetryJobPayload struct {
	RetryJobID uint `json:"retry_job_id"`
}

// ToMap converts the payload to a map for storage
func (p SecureDRetryJobPayload) ToMap() map[string]interface{} {
	return payloadToMap(p)
}

// SecureDRetryJobPayloadFromMap creates a payload from a map
func SecureDRetryJobPayloadFromMap(data map[string]interface{}) (*SecureDRetryJobPayload, error) {
	var p SecureDRetryJobPayload
	if err := payloadFromMap(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
