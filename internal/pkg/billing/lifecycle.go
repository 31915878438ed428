package billing

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/catalog"
)

// Lifecycle applies carrier lifecycle events to local entitlement state. It
// is the downstream side of the datasync event sink: subscriptions and
// renewals mint a fresh ACTIVE row with reset counters, unsubscriptions
// retire the current one.
type Lifecycle struct {
	Repo    Repository
	Catalog *catalog.Catalog
	Audit   audit.Sink
}

// NewLifecycle wires the lifecycle handler.
func NewLifecycle(repo Repository, cat *catalog.Catalog, sink audit.Sink) *Lifecycle {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Lifecycle{Repo: repo, Catalog: cat, Audit: sink}
}

// OnSubscription creates a fresh ACTIVE subscription for the subscriber.
func (l *Lifecycle) OnSubscription(ctx context.Context, rec *models.DatasyncRecord) error {
	return l.activate(ctx, rec, "SUBSCRIPTION")
}

// OnRenewal creates a fresh ACTIVE subscription row. Renewal never resets
// counters on the old row; exhaustion is terminal per record.
func (l *Lifecycle) OnRenewal(ctx context.Context, rec *models.DatasyncRecord) error {
	return l.activate(ctx, rec, "RENEWAL")
}

func (l *Lifecycle) activate(_ context.Context, rec *models.DatasyncRecord, opType string) error {
	maxAccess := 0
	validityDays := 0
	if _, prod, ok := l.Catalog.FindProductByID(rec.ProductID); ok {
		maxAccess = prod.MaxAccess
		validityDays = prod.ValidityDays
	} else {
		log.Warnf("[Billing] Datasync for unknown product %s; subscription created without access quota", rec.ProductID)
	}

	now := time.Now()
	sub := &models.Subscription{
		UserPhoneNumber: rec.Msisdn,
		ProductID:       rec.ProductID,
		ServiceID:       rec.ServiceID,
		Status:          models.SubscriptionStatusActive,
		StartDate:       now,
		MaxAccess:       maxAccess,
		AccessCount:     0,
		SequenceNo:      rec.SequenceNo,
		OperationType:   opType,
	}
	if validityDays > 0 {
		end := now.AddDate(0, 0, validityDays)
		sub.EndDate = &end
	}

	if err := l.Repo.CreateSubscription(sub); err != nil {
		return err
	}
	log.Infof("[Billing] %s for %s on %s (seq=%s)", opType, rec.Msisdn, rec.ProductID, rec.SequenceNo)
	return nil
}

// OnUnsubscription retires the subscriber's current active row. A missing row
// is not an error: the carrier can report cancellations we never activated.
func (l *Lifecycle) OnUnsubscription(_ context.Context, rec *models.DatasyncRecord) error {
	err := l.Repo.CancelActiveSubscription(rec.Msisdn, rec.ProductID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnf("[Billing] Unsubscription for %s on %s without an active subscription", rec.Msisdn, rec.ProductID)
		return nil
	}
	if err != nil {
		return err
	}
	log.Infof("[Billing] UNSUBSCRIPTION for %s on %s (seq=%s)", rec.Msisdn, rec.ProductID, rec.SequenceNo)
	return nil
}

// OnAudit handles unclassified operations: the raw record is already
// persisted, so only mirror the oddity to the audit channel.
func (l *Lifecycle) OnAudit(_ context.Context, rec *models.DatasyncRecord) error {
	l.Audit.Post("datasync_unclassified", map[string]interface{}{
		"sequenceNo":  rec.SequenceNo,
		"operationId": rec.OperationID,
		"msisdn":      rec.Msisdn,
		"productId":   rec.ProductID,
	})
	return nil
}
