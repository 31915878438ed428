package trafficmonitor

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"

	"github.com/KizitoNaanma/MS-VAS-sub001/app/models"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/audit"
	"github.com/KizitoNaanma/MS-VAS-sub001/internal/pkg/env"
)

const reportJobName = "traffic-report"

// Repository reads the last-hit timestamps the report is built from.
type Repository interface {
	GetTrafficData() (*models.TrafficData, error)
}

// Monitor runs the repeating, timezone-pinned traffic report. Registration is
// idempotent: re-registering the report job replaces any previous schedule
// instead of stacking a second one.
type Monitor struct {
	Repo     Repository
	Audit    audit.Sink
	Schedule string
	Location *time.Location

	// Flush, when set, drains the buffered hit counters into storage before
	// each report so the totals are current.
	Flush func() error

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
}

// NewMonitorFromEnv builds the monitor from REPORT_CRON / REPORT_TZ.
func NewMonitorFromEnv(repo Repository, sink audit.Sink) (*Monitor, error) {
	tz := env.GetEnv("REPORT_TZ", "Africa/Lagos")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TZ %q: %w", tz, err)
	}
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Monitor{
		Repo:     repo,
		Audit:    sink,
		Schedule: env.GetEnv("REPORT_CRON", "0 */2 * * *"),
		Location: loc,
		cron:     cron.New(cron.WithLocation(loc)),
		entries:  make(map[string]cron.EntryID),
	}, nil
}

// Register installs the repeating report schedule under its job name. A
// previously registered entry with the same name is removed first, so
// redeploys never leave duplicate schedules behind.
func (m *Monitor) Register() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id, ok := m.entries[reportJobName]; ok {
		m.cron.Remove(id)
		delete(m.entries, reportJobName)
	}

	id, err := m.cron.AddFunc(m.Schedule, m.ReportOnce)
	if err != nil {
		return fmt.Errorf("failed to register traffic report schedule %q: %w", m.Schedule, err)
	}
	m.entries[reportJobName] = id
	log.Infof("[TrafficMonitor] Registered %s (%s, %s)", reportJobName, m.Schedule, m.Location)
	return nil
}

// EntryCount returns the number of active scheduled entries.
func (m *Monitor) EntryCount() int {
	return len(m.cron.Entries())
}

// Start begins running the schedule.
func (m *Monitor) Start() {
	m.cron.Start()
}

// Stop halts the schedule, waiting for a running report to finish.
func (m *Monitor) Stop() {
	<-m.cron.Stop().Done()
}

// ReportOnce reads the last-hit timestamps and posts one formatted liveness
// report to the external channel.
func (m *Monitor) ReportOnce() {
	if m.Flush != nil {
		if err := m.Flush(); err != nil {
			log.Errorf("[TrafficMonitor] Failed to flush hit counters: %v", err)
		}
	}

	td, err := m.Repo.GetTrafficData()
	if err != nil {
		log.Errorf("[TrafficMonitor] Failed to load traffic data: %v", err)
		return
	}

	now := time.Now().In(m.Location)
	m.Audit.Post("traffic_report", map[string]interface{}{
		"report":          m.formatReport(td, now),
		"lastDatasyncHit": formatHit(td.LastDatasyncHit, m.Location),
		"lastSecureDHit":  formatHit(td.LastSecureDHit, m.Location),
	})
}

func (m *Monitor) formatReport(td *models.TrafficData, now time.Time) string {
	return fmt.Sprintf(
		"Traffic report %s\nDatasync: last hit %s (%d total)\nSecureD: last hit %s (%d total)\nSMS: %d total",
		now.Format("2006-01-02 15:04 MST"),
		formatHit(td.LastDatasyncHit, m.Location), td.DatasyncHitCount,
		formatHit(td.LastSecureDHit, m.Location), td.SecureDHitCount,
		td.SMSHitCount,
	)
}

func formatHit(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "never"
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}
