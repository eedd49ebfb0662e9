package app

import (
	"context"
	"sync"
	"time"

	"github.com/vk/radarize/internal/notify"
)

// Run states reported by /status.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StateSucceeded = "succeeded"
	StateFailed    = "failed"
)

// Status is the progress snapshot served on /status.
type Status struct {
	RunID        string    `json:"run_id"`
	State        string    `json:"state"`
	TotalStages  int       `json:"total_stages"`
	CurrentStage string    `json:"current_stage,omitempty"`
	Completed    []string  `json:"completed_stages"`
	Skipped      []string  `json:"skipped_stages"`
	FailedStage  string    `json:"failed_stage,omitempty"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// statusBoard tracks progress from pipeline events. It is a notify.Notifier.
type statusBoard struct {
	mu sync.RWMutex
	st Status
}

func newStatusBoard(runID string, total int) *statusBoard {
	return &statusBoard{st: Status{
		RunID:       runID,
		State:       StatePending,
		TotalStages: total,
		Completed:   []string{},
		Skipped:     []string{},
		UpdatedAt:   time.Now(),
	}}
}

func (b *statusBoard) Notify(_ context.Context, ev notify.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch ev.Kind {
	case notify.PipelineStarted:
		b.st.State = StateRunning
	case notify.StageStarted:
		b.st.CurrentStage = ev.Stage
	case notify.StageFinished:
		b.st.CurrentStage = ""
		b.st.Completed = append(b.st.Completed, ev.Stage)
	case notify.StageSkipped:
		b.st.CurrentStage = ""
		b.st.Skipped = append(b.st.Skipped, ev.Stage)
	case notify.StageFailed:
		b.st.CurrentStage = ""
		b.st.FailedStage = ev.Stage
		b.st.Error = ev.Error
	case notify.PipelineFinished:
		b.st.State = StateSucceeded
	case notify.PipelineFailed:
		b.st.State = StateFailed
	}
	if !ev.Time.IsZero() {
		b.st.UpdatedAt = ev.Time
	}
}

func (b *statusBoard) Close() error { return nil }

// Snapshot returns a copy of the current status.
func (b *statusBoard) Snapshot() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st := b.st
	st.Completed = append([]string{}, b.st.Completed...)
	st.Skipped = append([]string{}, b.st.Skipped...)
	return st
}
