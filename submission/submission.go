// Package submission runs pipeline submissions in the background and lets
// any number of readers follow their events.
package submission

import (
	"context"
	"errors"
	"sync"
	"time"

	"evidex/models"
)

type Status string

const (
	StatusRunning   Status = "running"
	StatusDone      Status = "done"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
)

// Event is either a progress update or the single terminal result.
type Event struct {
	Type     EventType             `json:"type"`
	Progress *models.ProgressEvent `json:"progress,omitempty"`
	Result   *Result               `json:"result,omitempty"`
}

// Result is the terminal outcome. PerCase may be non-empty even when OK is
// false: bulk cases persisted before a fatal error stay persisted.
type Result struct {
	OK       bool                 `json:"ok"`
	Bulk     bool                 `json:"bulk"`
	PerCase  []models.CaseOutcome `json:"perCase"`
	Failures []models.CaseFailure `json:"failures,omitempty"`
	Error    string               `json:"error,omitempty"`
}

// Snapshot is a point-in-time view of a submission.
type Snapshot struct {
	ID         string                `json:"id"`
	Status     Status                `json:"status"`
	CreatedAt  time.Time             `json:"createdAt"`
	FinishedAt *time.Time            `json:"finishedAt,omitempty"`
	Progress   *models.ProgressEvent `json:"progress,omitempty"`
	Result     *Result               `json:"result,omitempty"`
}

// Submission is one background run. Events are append-only and the last one
// is always the result.
type Submission struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	status     Status
	events     []Event
	changed    chan struct{}
	finishedAt time.Time
	cancel     context.CancelFunc
}

func newSubmission(id string, now time.Time, cancel context.CancelFunc) *Submission {
	return &Submission{
		ID:        id,
		CreatedAt: now,
		status:    StatusRunning,
		changed:   make(chan struct{}),
		cancel:    cancel,
	}
}

func (s *Submission) publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return
	}
	s.events = append(s.events, e)
	close(s.changed)
	s.changed = make(chan struct{})
}

// finish appends the terminal event. Later calls are ignored.
func (s *Submission) finish(result *models.BatchResult, err error, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusRunning {
		return
	}

	res := &Result{OK: err == nil, PerCase: []models.CaseOutcome{}}
	if result != nil {
		res.Bulk = result.Bulk
		res.PerCase = append(res.PerCase, result.PerCase...)
		res.Failures = result.Failures
	}

	switch {
	case err == nil:
		s.status = StatusDone
	case errors.Is(err, context.Canceled):
		s.status = StatusCancelled
		res.Error = "submission cancelled"
	default:
		s.status = StatusFailed
		res.Error = err.Error()
	}

	s.finishedAt = now
	s.events = append(s.events, Event{Type: EventResult, Result: res})
	close(s.changed)
}

// Events blocks until there are events past from, the submission has
// finished, or ctx is done. It returns the new events and whether the
// terminal event has been published.
func (s *Submission) Events(ctx context.Context, from int) ([]Event, bool, error) {
	for {
		s.mu.Lock()
		finished := s.status != StatusRunning
		if from < len(s.events) || finished {
			var out []Event
			if from < len(s.events) {
				out = append(out, s.events[from:]...)
			}
			s.mu.Unlock()
			return out, finished, nil
		}
		changed := s.changed
		s.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

// Wait blocks until the submission finishes and returns its result.
func (s *Submission) Wait(ctx context.Context) (*Result, error) {
	from := 0
	for {
		events, finished, err := s.Events(ctx, from)
		if err != nil {
			return nil, err
		}
		from += len(events)
		if finished {
			return s.Snapshot().Result, nil
		}
	}
}

// Cancel stops the run before its next case.
func (s *Submission) Cancel() {
	s.cancel()
}

func (s *Submission) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{ID: s.ID, Status: s.status, CreatedAt: s.CreatedAt}
	if !s.finishedAt.IsZero() {
		t := s.finishedAt
		snap.FinishedAt = &t
	}
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.Result != nil && snap.Result == nil {
			snap.Result = e.Result
		}
		if e.Progress != nil {
			snap.Progress = e.Progress
			break
		}
	}
	return snap
}

func (s *Submission) finishedBefore(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status != StatusRunning && s.finishedAt.Before(t)
}
