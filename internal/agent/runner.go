package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/metrics"
	"auto-uw-agent/internal/common/observability"
	"auto-uw-agent/internal/models"
)

// State is what a caller sees of a runner.
type State struct {
	SubmissionID string             `json:"submissionId"`
	Running      bool               `json:"running"`
	CurrentStage models.StageName   `json:"currentStage,omitempty"`
	Error        string             `json:"error,omitempty"`
	Snapshot     *models.Submission `json:"snapshot,omitempty"`
	Progress     float64            `json:"progress"`
}

// Runner drives one submission through every stage. At most one run is in
// flight per runner; Run and Start while running are no-ops.
type Runner struct {
	id       string
	pipeline *Pipeline
	logger   logger.Logger

	mu          sync.Mutex
	running     bool
	stage       models.StageName
	lastErr     string
	snapshot    *models.Submission
	done        chan struct{}
	subscribers map[int]chan State
	nextSub     int
}

func NewRunner(id string, p *Pipeline) *Runner {
	done := make(chan struct{})
	close(done)
	return &Runner{
		id:          id,
		pipeline:    p,
		logger:      p.logger.WithFields(map[string]interface{}{"submissionId": id}),
		done:        done,
		subscribers: make(map[int]chan State),
	}
}

func (r *Runner) SubmissionID() string { return r.id }

// Run executes the pipeline synchronously. It reports false when a run was
// already in flight. Failures are recorded in State, never returned.
func (r *Runner) Run(ctx context.Context) bool {
	if !r.begin() {
		return false
	}
	r.execute(ctx)
	return true
}

// Start executes the pipeline in a new goroutine. The returned channel is
// closed when that run finishes; ok is false when a run was already in flight.
func (r *Runner) Start(ctx context.Context) (done <-chan struct{}, ok bool) {
	if !r.begin() {
		return r.Done(), false
	}
	d := r.Done()
	go r.execute(ctx)
	return d, true
}

// Done returns a channel closed when the current or last run has finished.
func (r *Runner) Done() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// State returns a copy of the runner's observable state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

// Subscribe returns a channel receiving every state change. Slow readers
// miss intermediate states. The returned func unsubscribes.
func (r *Runner) Subscribe() (<-chan State, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan State, 16)
	r.subscribers[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subscribers[id]; ok {
			delete(r.subscribers, id)
			close(c)
		}
	}
}

func (r *Runner) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return false
	}
	r.running = true
	r.stage = ""
	r.lastErr = ""
	r.done = make(chan struct{})
	r.publishLocked()
	return true
}

func (r *Runner) execute(ctx context.Context) {
	started := time.Now()
	metrics.PipelinesActive.Inc()

	ctx, span := r.pipeline.obs.StartRun(ctx, r.id)

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = errors.NewInternalError(fmt.Errorf("pipeline panic: %v", p))
		}

		outcome := metrics.OutcomeCompleted
		switch {
		case errors.HasCode(err, errors.ErrCodeInvalidStatusTransition), errors.HasCode(err, errors.ErrCodeSubmissionNotFound):
			outcome = metrics.OutcomeRejected
		case err != nil:
			outcome = metrics.OutcomeFailed
		}
		metrics.PipelinesActive.Dec()
		metrics.PipelineRuns.WithLabelValues(outcome).Inc()
		r.pipeline.obs.RecordPipelineRun(ctx, outcome, time.Since(started))
		observability.EndSpan(span, err)

		if err != nil {
			r.logger.WithError(err).Warn("pipeline run failed", map[string]interface{}{"outcome": outcome})
		} else {
			r.logger.Info("pipeline run completed", map[string]interface{}{"duration_ms": time.Since(started).Milliseconds()})
		}
		r.finish(err)
	}()

	sub, err := r.pipeline.Load(ctx, r.id)
	if err != nil {
		return
	}
	r.setSnapshot(sub)

	for _, a := range r.pipeline.Agents() {
		r.setStage(a.Stage())
		sub, err = r.pipeline.ExecuteStage(ctx, r.id, a)
		if sub.ID != "" {
			r.setSnapshot(sub)
		}
		if err != nil {
			return
		}
	}

	if latest, ok, gerr := r.pipeline.store.Get(ctx, r.id); gerr == nil && ok {
		r.setSnapshot(latest)
	}
}

func (r *Runner) setStage(stage models.StageName) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = stage
	r.publishLocked()
}

func (r *Runner) setSnapshot(sub models.Submission) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = &sub
	r.publishLocked()
}

func (r *Runner) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.stage = ""
	if err != nil {
		r.lastErr = errorMessage(err)
	}
	close(r.done)
	r.publishLocked()
}

func (r *Runner) stateLocked() State {
	st := State{
		SubmissionID: r.id,
		Running:      r.running,
		CurrentStage: r.stage,
		Error:        r.lastErr,
	}
	if r.snapshot != nil {
		snap := *r.snapshot
		st.Snapshot = &snap
		st.Progress = snap.Stages.Progress(r.running && r.stage != "")
	}
	return st
}

func (r *Runner) publishLocked() {
	st := r.stateLocked()
	for _, ch := range r.subscribers {
		select {
		case ch <- st:
		default:
		}
	}
}

// errorMessage prefers the StandardError message and details over the
// bracketed Error() form.
func errorMessage(err error) string {
	if stdErr, ok := errors.AsStandardError(err); ok {
		if stdErr.Details != "" {
			return stdErr.Message + ": " + stdErr.Details
		}
		return stdErr.Message
	}
	return err.Error()
}
