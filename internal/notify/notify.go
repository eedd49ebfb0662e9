// Package notify publishes pipeline progress events to interested parties:
// the status endpoint, live dashboards, or nobody at all.
package notify

import (
	"context"
	"errors"
	"time"
)

// Kind identifies what an Event reports.
type Kind string

const (
	PipelineStarted  Kind = "pipeline_started"
	PipelineFinished Kind = "pipeline_finished"
	PipelineFailed   Kind = "pipeline_failed"
	StageStarted     Kind = "stage_started"
	StageFinished    Kind = "stage_finished"
	StageSkipped     Kind = "stage_skipped"
	StageFailed      Kind = "stage_failed"
)

// Event is one progress notification.
type Event struct {
	RunID    string    `json:"run_id"`
	Kind     Kind      `json:"kind"`
	Stage    string    `json:"stage,omitempty"`
	Index    int       `json:"index"`
	Total    int       `json:"total"`
	Commands int       `json:"commands,omitempty"`
	Skipped  int       `json:"skipped,omitempty"`
	Error    string    `json:"error,omitempty"`
	Time     time.Time `json:"time"`
}

// Notifier receives events. Notify must not block the pipeline for long and
// must not fail it; delivery problems are the notifier's own business.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
func (Nop) Close() error                  { return nil }

// Multi fans each event out to several notifiers in order.
type Multi []Notifier

// Notify implements Notifier.
func (m Multi) Notify(ctx context.Context, ev Event) {
	for _, n := range m {
		n.Notify(ctx, ev)
	}
}

// Close closes every notifier and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, n := range m {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
