package datasync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

type fakeRepo struct {
	records   []*models.DatasyncRecord
	createErr error
	lastHit   *time.Time
}

func (f *fakeRepo) CreateRecord(rec *models.DatasyncRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	rec.ID = uint(len(f.records) + 1)
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeRepo) TouchLastDatasyncHit(at time.Time) error {
	f.lastHit = &at
	return nil
}

// recordingSink counts events per kind.
type recordingSink struct {
	subscriptions   []*models.DatasyncRecord
	renewals        []*models.DatasyncRecord
	unsubscriptions []*models.DatasyncRecord
	audits          []*models.DatasyncRecord
}

func (r *recordingSink) OnSubscription(_ context.Context, rec *models.DatasyncRecord) error {
	r.subscriptions = append(r.subscriptions, rec)
	return nil
}

func (r *recordingSink) OnRenewal(_ context.Context, rec *models.DatasyncRecord) error {
	r.renewals = append(r.renewals, rec)
	return nil
}

func (r *recordingSink) OnUnsubscription(_ context.Context, rec *models.DatasyncRecord) error {
	r.unsubscriptions = append(r.unsubscriptions, rec)
	return nil
}

func (r *recordingSink) OnAudit(_ context.Context, rec *models.DatasyncRecord) error {
	r.audits = append(r.audits, rec)
	return nil
}

// TestClassify tests the static operation table
func TestClassify(t *testing.T) {
	assert.Equal(t, OperationSubscription, Classify("1"))
	assert.Equal(t, OperationUnsubscription, Classify("2"))
	assert.Equal(t, OperationRenewal, Classify("3"))
	assert.Equal(t, OperationUnknown, Classify("99"))
	assert.Equal(t, OperationUnknown, Classify(""))
}

func testRequest(updateType string) Request {
	return Request{
		SeqID:        "seq-100",
		ServiceID:    "svc-verse",
		ProductID:    "prod-verse",
		UserID:       "2348012345678",
		UpdateType:   updateType,
		ChargeAmount: "50",
		ValidityDays: "1",
	}
}

// TestProcess_SubscriptionEvent tests persistence plus subscription routing
func TestProcess_SubscriptionEvent(t *testing.T) {
	repo := &fakeRepo{}
	sink := &recordingSink{}
	p := NewProcessor(repo, sink)

	err := p.Process(context.Background(), testRequest("1"))
	require.NoError(t, err)

	require.Len(t, repo.records, 1)
	rec := repo.records[0]
	assert.Equal(t, "seq-100", rec.SequenceNo)
	assert.Equal(t, string(OperationSubscription), rec.OperationType)
	assert.NotEmpty(t, rec.RawPayloadJSON)
	assert.NotNil(t, repo.lastHit)

	require.Len(t, sink.subscriptions, 1)
	assert.Empty(t, sink.renewals)
	assert.Empty(t, sink.audits)
}

// TestProcess_EventRouting tests that each operation type emits exactly its event
func TestProcess_EventRouting(t *testing.T) {
	repo := &fakeRepo{}
	sink := &recordingSink{}
	p := NewProcessor(repo, sink)

	require.NoError(t, p.Process(context.Background(), testRequest("2")))
	require.NoError(t, p.Process(context.Background(), testRequest("3")))

	assert.Len(t, sink.unsubscriptions, 1)
	assert.Len(t, sink.renewals, 1)
	assert.Empty(t, sink.subscriptions)
	assert.Len(t, repo.records, 2)
}

// TestProcess_UnknownOperation tests that unmapped codes persist and route to audit
func TestProcess_UnknownOperation(t *testing.T) {
	repo := &fakeRepo{}
	sink := &recordingSink{}
	p := NewProcessor(repo, sink)

	err := p.Process(context.Background(), testRequest("42"))
	require.NoError(t, err)

	require.Len(t, repo.records, 1)
	assert.Equal(t, string(OperationUnknown), repo.records[0].OperationType)
	require.Len(t, sink.audits, 1)
}

// TestProcess_DuplicateSequenceAccepted tests the append-only mirror accepts duplicates
func TestProcess_DuplicateSequenceAccepted(t *testing.T) {
	repo := &fakeRepo{}
	sink := &recordingSink{}
	p := NewProcessor(repo, sink)

	require.NoError(t, p.Process(context.Background(), testRequest("1")))
	require.NoError(t, p.Process(context.Background(), testRequest("1")))

	assert.Len(t, repo.records, 2)
	assert.Len(t, sink.subscriptions, 2)
}

// TestProcess_PersistenceFailure tests that a failed write fails the job before any event
func TestProcess_PersistenceFailure(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("db down")}
	sink := &recordingSink{}
	p := NewProcessor(repo, sink)

	err := p.Process(context.Background(), testRequest("1"))
	assert.Error(t, err)
	assert.Empty(t, sink.subscriptions)
}
