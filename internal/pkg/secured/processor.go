package secured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
)

// Request is one billing-partner notification.
type Request struct {
	Msisdn      string `json:"msisdn" validate:"required"`
	Activation  string `json:"activation" validate:"required"`
	ProductID   string `json:"productID" validate:"required"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	TrxID       string `json:"trxId"`
}

// Converted reports whether the notification represents a successful billing
// conversion.
func (r Request) Converted() bool {
	return r.Activation == "1" && r.Description == "Success"
}

// RetryEnqueuer defers a failed correlation onto the retry lane. Implemented
// by the job pipeline; kept as a narrow interface so the processor does not
// depend on the queue package.
type RetryEnqueuer interface {
	EnqueueRetryCorrelation(retryJobID uint) error
}

// Processor records partner notifications and correlates them with the
// carrier's datasync audit stream.
type Processor struct {
	Repo  Repository
	Retry RetryEnqueuer
	Audit audit.Sink
}

// NewProcessor wires the processor.
func NewProcessor(repo Repository, retry RetryEnqueuer, sink audit.Sink) *Processor {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Processor{Repo: repo, Retry: retry, Audit: sink}
}

// Process persists the notification unconditionally, then attempts to
// correlate it with an existing datasync record. A correlation miss is not a
// failure of the notification job: the record stands on its own and a retry
// job is parked on the separate retry lane.
func (p *Processor) Process(ctx context.Context, req Request) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal secure-d payload: %w", err)
	}

	rec := &models.SecureDRecord{
		Msisdn:         req.Msisdn,
		ProductID:      req.ProductID,
		Activation:     req.Activation,
		Description:    req.Description,
		TrxID:          req.TrxID,
		Timestamp:      req.Timestamp,
		Converted:      req.Converted(),
		RawPayloadJSON: string(raw),
	}
	if err := p.Repo.CreateRecord(rec); err != nil {
		return fmt.Errorf("failed to persist secure-d record trx=%s: %w", req.TrxID, err)
	}

	if err := p.Repo.TouchLastSecureDHit(time.Now()); err != nil {
		log.Errorf("[SecureD] Failed to update traffic data: %v", err)
	}

	if err := p.correlate(ctx, rec); err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		p.deferCorrelation(rec)
	}
	return nil
}

// correlate looks up the newest datasync audit record for the same
// subscriber/product pair and mirrors the match to the audit channel.
func (p *Processor) correlate(_ context.Context, rec *models.SecureDRecord) error {
	ds, err := p.Repo.FindLatestDatasyncRecord(rec.Msisdn, rec.ProductID)
	if err != nil {
		return err
	}
	p.Audit.Post("secured_correlated", map[string]interface{}{
		"securedRecordId": rec.ID,
		"sequenceNo":      ds.SequenceNo,
		"operationType":   ds.OperationType,
		"msisdn":          rec.Msisdn,
		"productId":       rec.ProductID,
		"converted":       rec.Converted,
	})
	return nil
}

// deferCorrelation parks a retry job on the retry lane so fresh partner
// traffic is never blocked behind a correlation storm.
func (p *Processor) deferCorrelation(rec *models.SecureDRecord) {
	job := &models.SecureDRetryJob{
		AuditRecordID:   rec.ID,
		ProductID:       rec.ProductID,
		Msisdn:          rec.Msisdn,
		OriginalComment: rec.Description,
	}
	if err := p.Repo.CreateRetryJob(job); err != nil {
		log.Errorf("[SecureD] Failed to persist retry job for record %d: %v", rec.ID, err)
		return
	}
	if err := p.Retry.EnqueueRetryCorrelation(job.ID); err != nil {
		log.Errorf("[SecureD] Failed to enqueue retry correlation for job %d: %v", job.ID, err)
	}
}

// RetryCorrelation re-drives one deferred correlation. It returns an error on
// a continued miss so the queue runtime applies its bounded retry policy.
func (p *Processor) RetryCorrelation(ctx context.Context, retryJobID uint) error {
	job, err := p.Repo.GetRetryJob(retryJobID)
	if err != nil {
		return fmt.Errorf("retry job %d not found: %w", retryJobID, err)
	}
	if job.ResolvedAt != nil {
		return nil
	}

	ds, err := p.Repo.FindLatestDatasyncRecord(job.Msisdn, job.ProductID)
	if err != nil {
		return fmt.Errorf("no datasync record yet for %s/%s: %w", job.Msisdn, job.ProductID, err)
	}

	job.SequenceNo = ds.SequenceNo
	job.OperationType = ds.OperationType
	if err := p.Repo.ResolveRetryJob(job); err != nil {
		return err
	}

	p.Audit.Post("secured_correlated", map[string]interface{}{
		"securedRecordId": job.AuditRecordID,
		"sequenceNo":      ds.SequenceNo,
		"operationType":   ds.OperationType,
		"msisdn":          job.Msisdn,
		"productId":       job.ProductID,
		"deferred":        true,
	})
	return nil
}
