package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBasicJobTypes tests the basic job type constants
func TestBasicJobTypes(t *testing.T) {
	assert.Equal(t, "PROCESS_SMS_REQUEST", string(JobTypeProcessSMSRequest))
	assert.Equal(t, "PROCESS_DATASYNC_REQUEST", string(JobTypeProcessDatasyncRequest))
	assert.Equal(t, "PROCESS_SECURED_NOTIFICATION", string(JobTypeProcessSecureD))
	assert.Equal(t, "RETRY_SECURED_CORRELATION", string(JobTypeRetrySecureDCorrelation))
}

// TestQueueNames tests the lane name constants
func TestQueueNames(t *testing.T) {
	assert.Equal(t, "icell", string(QueueICell))
	assert.Equal(t, "secure_d", string(QueueSecureD))
	assert.Equal(t, "secure_d_retry", string(QueueSecureDRetry))
}

// TestQueueKeyNamespacing tests that each lane gets isolated Redis keys
func TestQueueKeyNamespacing(t *testing.T) {
	q := &Queue{name: QueueSecureDRetry}
	assert.Equal(t, "job_queue:secure_d_retry", q.pendingKey())
	assert.Equal(t, "job_processing:secure_d_retry", q.processingKey())
	assert.Equal(t, "job_stats:secure_d_retry", q.statsKey())
	assert.Equal(t, "job_delayed:secure_d_retry", q.delayedKey())
	assert.Equal(t, "job:secure_d_retry:abc", q.jobKey("abc"))
}

// TestRetryDelay tests that the backoff grows with the attempt count
func TestRetryDelay(t *testing.T) {
	assert.Equal(t, time.Minute, retryDelay(1))
	assert.Equal(t, 2*time.Minute, retryDelay(2))
	assert.Equal(t, 3*time.Minute, retryDelay(3))
}

// TestJob_ExecutionCap tests the total execution bound: the retry count is
// incremented on every failed execution including the first, so a job runs at
// most MaxRetries times in total.
func TestJob_ExecutionCap(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: DefaultMaxRetries}

	executions := 0
	for {
		job.MarkAsProcessing()
		executions++
		job.MarkAsFailed("handler error")
		if !job.IsRetryable() {
			break
		}
		job.MarkAsRetrying()
	}

	assert.Equal(t, 3, executions)
	assert.Equal(t, 3, job.RetryCount)
}

// TestJob_BasicMethods tests basic job methods
func TestJob_BasicMethods(t *testing.T) {
	job := &Job{
		Status:     JobStatusFailed,
		RetryCount: 1,
		MaxRetries: 3,
	}

	// Test IsRetryable
	assert.True(t, job.IsRetryable())

	job.RetryCount = 3
	assert.False(t, job.IsRetryable())

	// Test status transitions
	beforeTime := time.Now()

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)
	assert.True(t, job.UpdatedAt.After(beforeTime))

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
	assert.Empty(t, job.ErrorMsg)

	job.MarkAsFailed("test error")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, "test error", job.ErrorMsg)
	assert.Equal(t, 4, job.RetryCount)

	job.MarkAsRetrying()
	assert.Equal(t, JobStatusRetrying, job.Status)
}

// TestSMSJobPayload_Roundtrip tests SMS payload serialization
func TestSMSJobPayload_Roundtrip(t *testing.T) {
	payload := SMSJobPayload{
		Message:         "SUBSCRIBE DAILYVERSE",
		SenderAddress:   "2348012345678",
		ReceiverAddress: "20111",
	}

	restored, err := SMSJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload, *restored)

	inbound := restored.Inbound()
	assert.Equal(t, "SUBSCRIBE DAILYVERSE", inbound.Message)
	assert.Equal(t, "2348012345678", inbound.SenderAddress)
}

// TestSMSJobPayload_ReplyMemoized tests that a composed reply survives the
// payload roundtrip, so a redelivered job resends it instead of re-running
// the carrier transaction.
func TestSMSJobPayload_ReplyMemoized(t *testing.T) {
	payload := SMSJobPayload{
		Message:       "SUBSCRIBE DAILYVERSE",
		SenderAddress: "2348012345678",
		Reply:         "Thank you! Your subscription to Daily Verse is now processing.",
	}

	restored, err := SMSJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, payload.Reply, restored.Reply)
}

// TestSecureDRetryJobPayload_Roundtrip tests retry payload serialization
func TestSecureDRetryJobPayload_Roundtrip(t *testing.T) {
	payload := SecureDRetryJobPayload{RetryJobID: 42}

	restored, err := SecureDRetryJobPayloadFromMap(payload.ToMap())
	require.NoError(t, err)
	assert.Equal(t, uint(42), restored.RetryJobID)
}
