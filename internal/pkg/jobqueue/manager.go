package jobqueue

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Service is a background component whose lifecycle the manager owns.
type Service interface {
	Start()
	Stop()
}

// Manager owns the lifecycle of the job lanes and any attached background
// services.
type Manager struct {
	pipeline *Pipeline
	services []Service
	mu       sync.Mutex
	running  bool
}

// NewManager wraps a pipeline and optional background services with start/stop
// lifecycle management.
func NewManager(pipeline *Pipeline, services ...Service) *Manager {
	return &Manager{pipeline: pipeline, services: services}
}

// Pipeline returns the managed pipeline.
func (m *Manager) Pipeline() *Pipeline {
	return m.pipeline
}

// Start starts all lane workers.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	m.running = true

	log.Info("[JobQueue Manager] Starting job lanes")
	for _, q := range m.pipeline.Queues() {
		q.Start()
	}
	for _, s := range m.services {
		s.Start()
	}
	log.Info("[JobQueue Manager] Started successfully")
}

// Stop drains and stops all lane workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false

	log.Info("[JobQueue Manager] Stopping job lanes...")
	for _, s := range m.services {
		s.Stop()
	}
	for _, q := range m.pipeline.Queues() {
		q.Stop()
	}
	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
