package datasync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

// EventSink receives exactly one domain event per classified datasync
// operation. Implementations carry the billing rules; the processor only
// parses and routes.
type EventSink interface {
	OnSubscription(ctx context.Context, rec *models.DatasyncRecord) error
	OnRenewal(ctx context.Context, rec *models.DatasyncRecord) error
	OnUnsubscription(ctx context.Context, rec *models.DatasyncRecord) error
	OnAudit(ctx context.Context, rec *models.DatasyncRecord) error
}

// Processor persists raw datasync webhooks and routes one event per record.
type Processor struct {
	Repo   Repository
	Events EventSink
}

// NewProcessor wires the processor with its repository and event sink.
func NewProcessor(repo Repository, events EventSink) *Processor {
	return &Processor{Repo: repo, Events: events}
}

// Process stores the raw record unconditionally, then emits the event chosen
// by the classified operation type. Duplicate sequence numbers are accepted;
// the mirror is append-only.
func (p *Processor) Process(ctx context.Context, req Request) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal datasync payload: %w", err)
	}

	opType := Classify(req.UpdateType)
	rec := &models.DatasyncRecord{
		SequenceNo:       req.SeqID,
		ServiceID:        req.ServiceID,
		ProductID:        req.ProductID,
		Msisdn:           req.UserID,
		OperationID:      req.UpdateType,
		OperationType:    string(opType),
		ChargeAmount:     req.ChargeAmount,
		ChargeCurrency:   req.ChargeCurrency,
		ValidityDays:     req.ValidityDays,
		EffectiveTime:    req.EffectiveTime,
		ExpiryTime:       req.ExpiryTime,
		UpdateTime:       req.UpdateTime,
		UpdateChannel:    req.UpdateChannel,
		UpdateReason:     req.UpdateReason,
		FirstTimePayment: req.FirstTimePayment,
		RawPayloadJSON:   string(raw),
	}

	if err := p.Repo.CreateRecord(rec); err != nil {
		return fmt.Errorf("failed to persist datasync record seq=%s: %w", req.SeqID, err)
	}

	if err := p.Repo.TouchLastDatasyncHit(time.Now()); err != nil {
		// Liveness bookkeeping must not fail the webhook job.
		log.Errorf("[Datasync] Failed to update traffic data: %v", err)
	}

	switch opType {
	case OperationSubscription:
		return p.Events.OnSubscription(ctx, rec)
	case OperationRenewal:
		return p.Events.OnRenewal(ctx, rec)
	case OperationUnsubscription:
		return p.Events.OnUnsubscription(ctx, rec)
	default:
		return p.Events.OnAudit(ctx, rec)
	}
}
