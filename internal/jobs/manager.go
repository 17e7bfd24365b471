package jobs

import (
	"errors"
	"fmt"
	"sync"

	"fabla-transcriber/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second batch.
var ErrJobAlreadyRunning = errors.New("a batch is already running")

// ErrNoRunningJob is returned when cancel is requested while idle.
var ErrNoRunningJob = errors.New("no running batch")

// Manager tracks the single allowed active batch and its transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Status: domain.BatchStatusIdle,
		},
	}
}

// Start registers a new batch for folder and moves it to running.
func (m *Manager) Start(jobID, folder string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.Status == domain.BatchStatusRunning {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:     jobID,
		Folder: folder,
		Status: domain.BatchStatusRunning,
	}
	return nil
}

// Transition validates and applies a state change for the current batch.
func (m *Manager) Transition(status domain.BatchStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.BatchStatusIdle {
		return fmt.Errorf("cannot transition without an active batch")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// Current returns a snapshot of the current batch.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears batch metadata and returns the manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Status: domain.BatchStatusIdle}
}

// IsRunning reports whether a batch is in flight.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current.Status == domain.BatchStatusRunning
}

// RequireRunning returns ErrNoRunningJob unless a batch is in flight. The
// transition to cancelled happens when the orchestrator observes the request.
func (m *Manager) RequireRunning() error {
	if !m.IsRunning() {
		return ErrNoRunningJob
	}
	return nil
}

// IsTerminal reports whether status ends a run.
func IsTerminal(status domain.BatchStatus) bool {
	switch status {
	case domain.BatchStatusCompleted, domain.BatchStatusCompletedEmpty,
		domain.BatchStatusFailed, domain.BatchStatusCancelled:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed batch state machine edges.
func isValidTransition(from, to domain.BatchStatus) bool {
	switch {
	case from == domain.BatchStatusIdle:
		return to == domain.BatchStatusRunning
	case from == domain.BatchStatusRunning:
		return IsTerminal(to)
	case IsTerminal(from):
		return to == domain.BatchStatusRunning || to == domain.BatchStatusIdle
	default:
		return false
	}
}
