package jobs

import (
	"errors"
	"testing"

	"fabla-transcriber/internal/domain"
)

// TestManagerLifecycle verifies a run from idle to completed and back.
func TestManagerLifecycle(t *testing.T) {
	m := NewManager()
	if m.IsRunning() {
		t.Fatal("new manager should be idle")
	}

	if err := m.Start("job-1", "/data/study"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !m.IsRunning() {
		t.Fatal("expected running after start")
	}
	if m.Current().Folder != "/data/study" {
		t.Fatalf("folder = %q", m.Current().Folder)
	}

	if err := m.Transition(domain.BatchStatusCompleted); err != nil {
		t.Fatalf("transition to completed: %v", err)
	}
	if m.IsRunning() {
		t.Fatal("completed batch should not be running")
	}

	if err := m.Start("job-2", "/data/other"); err != nil {
		t.Fatalf("restart after terminal state: %v", err)
	}
	if m.Current().ID != "job-2" {
		t.Fatalf("id = %q, want job-2", m.Current().ID)
	}
}

// TestManagerRejectsSecondStart verifies only one batch runs at a time.
func TestManagerRejectsSecondStart(t *testing.T) {
	m := NewManager()
	if err := m.Start("job-1", "a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Start("job-2", "b"); !errors.Is(err, ErrJobAlreadyRunning) {
		t.Fatalf("second start error = %v, want %v", err, ErrJobAlreadyRunning)
	}
}

// TestManagerRejectsInvalidTransition checks state machine constraints.
func TestManagerRejectsInvalidTransition(t *testing.T) {
	m := NewManager()
	if err := m.Transition(domain.BatchStatusCompleted); err == nil {
		t.Fatal("expected error without an active batch")
	}

	if err := m.Start("job-1", "a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.Transition(domain.BatchStatusIdle); err == nil {
		t.Fatal("expected invalid transition running -> idle")
	}
	if err := m.Transition(domain.BatchStatusCompletedEmpty); err != nil {
		t.Fatalf("running -> completed_empty: %v", err)
	}
	if err := m.Transition(domain.BatchStatusFailed); err == nil {
		t.Fatal("expected invalid transition between terminal states")
	}
}

// TestManagerRequireRunning verifies cancel preconditions.
func TestManagerRequireRunning(t *testing.T) {
	m := NewManager()
	if err := m.RequireRunning(); !errors.Is(err, ErrNoRunningJob) {
		t.Fatalf("idle error = %v, want %v", err, ErrNoRunningJob)
	}

	if err := m.Start("job-1", "a"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := m.RequireRunning(); err != nil {
		t.Fatalf("running: %v", err)
	}
	if err := m.Transition(domain.BatchStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := m.RequireRunning(); !errors.Is(err, ErrNoRunningJob) {
		t.Fatalf("after cancel error = %v, want %v", err, ErrNoRunningJob)
	}
}
