package submission

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"evidex/models"
	"evidex/pipeline"

	"github.com/google/uuid"
)

// Runner executes one submission.
type Runner interface {
	Run(ctx context.Context, bundle *models.RawDocumentBundle, onProgress pipeline.ProgressFunc) (*models.BatchResult, error)
}

// Registry tracks submissions by id.
type Registry struct {
	runner Runner
	logger *slog.Logger
	now    func() time.Time

	mu          sync.Mutex
	submissions map[string]*Submission
	wg          sync.WaitGroup
}

func NewRegistry(runner Runner, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		runner:      runner,
		logger:      logger.With("component", "submissions"),
		now:         time.Now,
		submissions: make(map[string]*Submission),
	}
}

// Start runs the bundle in the background. The run is not tied to any
// request context; only Cancel or Shutdown stops it.
func (r *Registry) Start(bundle *models.RawDocumentBundle) *Submission {
	ctx, cancel := context.WithCancel(context.Background())
	sub := newSubmission(uuid.NewString(), r.now(), cancel)

	r.mu.Lock()
	r.submissions[sub.ID] = sub
	r.mu.Unlock()

	logCtx := r.logger.With("submissionId", sub.ID)
	logCtx.Info("Submission started", "files", len(bundle.Files))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		result, err := r.runner.Run(ctx, bundle, func(p models.ProgressEvent) {
			sub.publish(Event{Type: EventProgress, Progress: &p})
		})
		if err != nil {
			logCtx.Error("Submission failed", "error", err)
		} else {
			logCtx.Info("Submission finished", "succeeded", result.Succeeded(), "failed", len(result.Failures))
		}
		sub.finish(result, err, r.now())
	}()

	return sub
}

func (r *Registry) Get(id string) (*Submission, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.submissions[id]
	return sub, ok
}

// Cancel asks a running submission to stop. It reports whether the id is known.
func (r *Registry) Cancel(id string) bool {
	sub, ok := r.Get(id)
	if !ok {
		return false
	}
	r.logger.Info("Cancelling submission", "submissionId", id)
	sub.Cancel()
	return true
}

func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.submissions, id)
}

// Prune forgets submissions that finished more than maxAge ago.
func (r *Registry) Prune(maxAge time.Duration) int {
	cutoff := r.now().Add(-maxAge)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, sub := range r.submissions {
		if sub.finishedBefore(cutoff) {
			delete(r.submissions, id)
			n++
		}
	}
	return n
}

// Shutdown cancels every running submission and waits for them to record
// their terminal event, or for ctx to expire.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, sub := range r.submissions {
		sub.Cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
