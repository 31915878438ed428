package trafficmonitor

import (
	"sync"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
)

type fakeTrafficRepo struct {
	td  *models.TrafficData
	err error
}

func (f *fakeTrafficRepo) GetTrafficData() (*models.TrafficData, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.td, nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
	fields []map[string]interface{}
}

func (r *recordingSink) Post(event string, fields map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.fields = append(r.fields, fields)
}

func testMonitor(repo Repository, sink *recordingSink) *Monitor {
	return &Monitor{
		Repo:     repo,
		Audit:    sink,
		Schedule: "0 */2 * * *",
		Location: time.UTC,
		cron:     cron.New(cron.WithLocation(time.UTC)),
		entries:  make(map[string]cron.EntryID),
	}
}

// TestRegister_Idempotent tests that re-registering replaces the schedule instead of stacking it
func TestRegister_Idempotent(t *testing.T) {
	m := testMonitor(&fakeTrafficRepo{td: &models.TrafficData{}}, &recordingSink{})

	require.NoError(t, m.Register())
	require.NoError(t, m.Register())

	assert.Equal(t, 1, m.EntryCount())
}

// TestRegister_BadSchedule tests that an invalid cron expression is rejected
func TestRegister_BadSchedule(t *testing.T) {
	m := testMonitor(&fakeTrafficRepo{td: &models.TrafficData{}}, &recordingSink{})
	m.Schedule = "not a cron"

	assert.Error(t, m.Register())
	assert.Equal(t, 0, m.EntryCount())
}

// TestReportOnce tests the report content for observed hits
func TestReportOnce(t *testing.T) {
	dsHit := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	sink := &recordingSink{}
	m := testMonitor(&fakeTrafficRepo{td: &models.TrafficData{LastDatasyncHit: &dsHit}}, sink)

	m.ReportOnce()

	require.Len(t, sink.events, 1)
	assert.Equal(t, "traffic_report", sink.events[0])

	report, _ := sink.fields[0]["report"].(string)
	assert.Contains(t, report, "Datasync: last hit 2025-03-01 09:30:00")
	assert.Contains(t, report, "SecureD: last hit never")
}

// TestReportOnce_NoTrafficYet tests the report before any webhook has hit
func TestReportOnce_NoTrafficYet(t *testing.T) {
	sink := &recordingSink{}
	m := testMonitor(&fakeTrafficRepo{td: &models.TrafficData{}}, sink)

	m.ReportOnce()

	require.Len(t, sink.fields, 1)
	assert.Equal(t, "never", sink.fields[0]["lastDatasyncHit"])
	assert.Equal(t, "never", sink.fields[0]["lastSecureDHit"])
}
