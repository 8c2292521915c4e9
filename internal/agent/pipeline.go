// Package agent drives submissions through the five underwriting stages.
package agent

import (
	"context"
	"fmt"
	"time"

	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/metrics"
	"auto-uw-agent/internal/common/observability"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/store"
)

const failWriteTimeout = 5 * time.Second

// StageAgent synthesizes the output of one stage from the submission as it
// stands after the previous stages.
type StageAgent interface {
	Stage() models.StageName
	Run(ctx context.Context, sub models.Submission) (models.StageOutput, []models.AgentLog, error)
}

// Pipeline executes single stages against the store. Runner and the Zeebe
// job handlers share it.
type Pipeline struct {
	store   *store.Store
	agents  []StageAgent
	sleeper Sleeper
	delay   func() time.Duration
	now     func() time.Time
	obs     *observability.Observability
	logger  logger.Logger
}

type Option func(*Pipeline)

func WithSleeper(s Sleeper) Option {
	return func(p *Pipeline) { p.sleeper = s }
}

// WithDelay draws each stage's processing delay uniformly from [min, max].
func WithDelay(min, max time.Duration, rng random.Source) Option {
	return func(p *Pipeline) {
		p.delay = func() time.Duration {
			return time.Duration(random.Between(rng, float64(min), float64(max)))
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

func WithObservability(o *observability.Observability) Option {
	return func(p *Pipeline) { p.obs = o }
}

// NewPipeline returns a pipeline running agents in the given order. Without
// options it sleeps on a real timer for zero time.
func NewPipeline(st *store.Store, agents []StageAgent, log logger.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:   st,
		agents:  agents,
		sleeper: TimerSleeper{},
		delay:   func() time.Duration { return 0 },
		now:     time.Now,
		logger:  log.WithFields(map[string]interface{}{"component": "pipeline"}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pipeline) Agents() []StageAgent { return p.agents }

// Agent returns the agent registered for stage.
func (p *Pipeline) Agent(stage models.StageName) (StageAgent, bool) {
	for _, a := range p.agents {
		if a.Stage() == stage {
			return a, true
		}
	}
	return nil, false
}

// Load fetches the submission and rejects ids that cannot be run: unknown
// ids and submissions an underwriter has already decided.
func (p *Pipeline) Load(ctx context.Context, id string) (models.Submission, error) {
	sub, ok, err := p.store.Get(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}
	if !ok {
		return models.Submission{}, errors.NewSubmissionNotFoundError(id)
	}
	if sub.Status.Decided() {
		return models.Submission{}, errors.NewInvalidStatusTransitionError(string(sub.Status), "run pipeline")
	}
	return sub, nil
}

// StatusAfter derives the overall status written alongside a stage result.
func StatusAfter(stage models.StageName, status models.StageStatus) models.SubmissionStatus {
	if stage == models.StageCommunication && status == models.StageDone {
		return models.StatusCompleted
	}
	return models.StatusProcessing
}

// ExecuteStage marks the stage running, waits out the processing delay,
// runs the agent and records the result. A failing agent leaves the stage in
// error; earlier stages are not touched.
func (p *Pipeline) ExecuteStage(ctx context.Context, id string, agent StageAgent) (sub models.Submission, err error) {
	stage := agent.Stage()
	log := p.logger.WithFields(map[string]interface{}{"submissionId": id, "stage": string(stage)})

	ctx, span := p.obs.StartStage(ctx, string(stage))
	started := time.Now()
	defer func() {
		status := "done"
		if err != nil {
			status = "error"
		}
		elapsed := time.Since(started)
		metrics.StageRuns.WithLabelValues(string(stage), status).Inc()
		metrics.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
		p.obs.RecordStage(ctx, string(stage), status, elapsed)
		observability.EndSpan(span, err)
	}()

	sub, err = p.write(ctx, id, stage, func(r models.StageResult, now time.Time) models.StageResult {
		return r.Start(now)
	})
	if err != nil {
		return sub, err
	}
	log.Debug("stage started", nil)

	if err := p.sleeper.Sleep(ctx, p.delay()); err != nil {
		log.WithError(err).Warn("stage interrupted", nil)
		if failed, ferr := p.fail(ctx, id, stage, err); ferr == nil {
			sub = failed
		}
		return sub, err
	}

	output, logs, runErr := runAgent(ctx, agent, sub)
	if runErr != nil {
		log.WithError(runErr).Warn("stage failed", nil)
		if failed, ferr := p.fail(ctx, id, stage, runErr); ferr == nil {
			sub = failed
		}
		return sub, errors.NewStageExecutionFailedError(string(stage), runErr)
	}

	sub, err = p.write(ctx, id, stage, func(r models.StageResult, now time.Time) models.StageResult {
		return r.Complete(output, logs, now)
	})
	if err != nil {
		return sub, err
	}
	log.Info("stage completed", map[string]interface{}{"status": string(sub.Status)})
	return sub, nil
}

// write replaces one stage result and re-derives the overall status, except
// on failure where the status is left as the last successful write set it.
func (p *Pipeline) write(ctx context.Context, id string, stage models.StageName, next func(models.StageResult, time.Time) models.StageResult) (models.Submission, error) {
	now := p.now()
	sub, ok, err := p.store.Update(ctx, id, func(s models.Submission) models.Submission {
		prev, _ := s.Stages.Get(stage)
		r := next(prev, now)
		s.Stages.Set(stage, r)
		if r.Status != models.StageError {
			s.Status = StatusAfter(stage, r.Status)
		}
		s.Touch(now)
		return s
	})
	if err != nil {
		return models.Submission{}, err
	}
	if !ok {
		return models.Submission{}, errors.NewSubmissionNotFoundError(id)
	}
	return sub, nil
}

// fail records the stage as errored. The write outlives a cancelled ctx so
// an interrupted run does not leave the stage stored as running.
func (p *Pipeline) fail(ctx context.Context, id string, stage models.StageName, cause error) (models.Submission, error) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failWriteTimeout)
	defer cancel()
	return p.write(wctx, id, stage, func(r models.StageResult, now time.Time) models.StageResult {
		return r.Fail(cause.Error(), now)
	})
}

func runAgent(ctx context.Context, agent StageAgent, sub models.Submission) (out models.StageOutput, logs []models.AgentLog, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, logs, err = nil, nil, fmt.Errorf("panic in %s agent: %v", agent.Stage(), r)
		}
	}()
	out, logs, err = agent.Run(ctx, sub)
	if err == nil && out == nil {
		err = fmt.Errorf("%s agent returned no output", agent.Stage())
	}
	return out, logs, err
}
