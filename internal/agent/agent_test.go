package agent

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"auto-uw-agent/internal/common/config"
	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/store"
	premiumrating "auto-uw-agent/internal/workers/underwriting/premium-rating"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 15, 16, 0, 0, 0, time.UTC)

// tickingClock advances one second per call.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := baseTime
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
}

type fixture struct {
	store    *store.Store
	pipeline *Pipeline
	writes   *writeLog
}

type writeLog struct {
	mu   sync.Mutex
	subs []models.Submission
}

func (w *writeLog) hook(_ context.Context, s models.Submission) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, s)
}

func (w *writeLog) all() []models.Submission {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Submission(nil), w.subs...)
}

func newFixture(t *testing.T, agents func(log logger.Logger) []StageAgent, opts ...Option) *fixture {
	t.Helper()
	log := logger.NewNoOpLogger()
	writes := &writeLog{}
	st := store.New(store.NewMemorySlot(), log, store.WithWriteHook(writes.hook))
	if agents == nil {
		agents = func(log logger.Logger) []StageAgent {
			return DefaultAgents(config.PipelineConfig{FleetDiscountThreshold: 5}, random.New(42), log)
		}
	}
	opts = append([]Option{WithSleeper(NoDelay{}), WithClock(tickingClock())}, opts...)
	return &fixture{
		store:    st,
		pipeline: NewPipeline(st, agents(log), log, opts...),
		writes:   writes,
	}
}

func (f *fixture) submit(t *testing.T, id string) models.Submission {
	t.Helper()
	sub := models.NewSubmission(id, "Johnson & Co.", "Acme Logistics", "Local Delivery", nil, baseTime)
	require.NoError(t, f.store.Save(context.Background(), sub))
	return sub
}

func (f *fixture) get(t *testing.T, id string) models.Submission {
	t.Helper()
	sub, ok, err := f.store.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	return sub
}

type stubAgent struct {
	stage models.StageName
	run   func(ctx context.Context, sub models.Submission) (models.StageOutput, []models.AgentLog, error)
}

func (s stubAgent) Stage() models.StageName { return s.stage }
func (s stubAgent) Run(ctx context.Context, sub models.Submission) (models.StageOutput, []models.AgentLog, error) {
	return s.run(ctx, sub)
}

// replacing swaps the agent for one stage in the default set.
func replacing(stage models.StageName, wrap func(real StageAgent) StageAgent) func(logger.Logger) []StageAgent {
	return func(log logger.Logger) []StageAgent {
		agents := DefaultAgents(config.PipelineConfig{FleetDiscountThreshold: 5}, random.New(7), log)
		for i, a := range agents {
			if a.Stage() == stage {
				agents[i] = wrap(a)
			}
		}
		return agents
	}
}

func TestRunner_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")

	r := NewRunner("sub-1", f.pipeline)
	require.True(t, r.Run(context.Background()))

	st := r.State()
	assert.False(t, st.Running)
	assert.Empty(t, st.CurrentStage)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.Snapshot)
	assert.Equal(t, models.StatusCompleted, st.Snapshot.Status)
	assert.Equal(t, 100.0, st.Progress)

	sub := f.get(t, "sub-1")
	assert.Equal(t, *st.Snapshot, sub)
	for _, name := range models.StageNames {
		res, _ := sub.Stages.Get(name)
		assert.Equal(t, models.StageDone, res.Status, "stage %s", name)
		assert.NotNil(t, res.Output, "stage %s", name)
		assert.NotEmpty(t, res.Logs, "stage %s", name)
	}

	rate, ok := sub.Stages.RateOutput()
	require.True(t, ok)
	assert.Greater(t, rate.Premium, 0)
	base, premium := premiumrating.ComputePremium(rate.BaseRatePerVehicle, rate.VehicleCount, rate.Adjustments)
	assert.Equal(t, base, rate.Base)
	assert.Equal(t, premium, rate.Premium)

	intake, ok := sub.Stages.IntakeOutput()
	require.True(t, ok)
	assert.Equal(t, intake.VehicleCount(), rate.VehicleCount)
	assert.Equal(t, "Acme Logistics", intake.InsuredInfo.InsuredName)

	comm, ok := sub.Stages.CommunicationOutput()
	require.True(t, ok)
	assert.Contains(t, comm.ProposalText, "Acme Logistics")
	assert.Contains(t, comm.EmailBody, "Dear Johnson & Co.,")
}

func TestRunner_StagesRunInOrder(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")

	require.True(t, NewRunner("sub-1", f.pipeline).Run(context.Background()))
	sub := f.get(t, "sub-1")

	parse := func(ts string) time.Time {
		v, err := time.Parse(time.RFC3339Nano, ts)
		require.NoError(t, err)
		return v
	}

	var prevFinished time.Time
	for _, name := range models.StageNames {
		res, _ := sub.Stages.Get(name)
		started, finished := parse(res.StartedAt), parse(res.FinishedAt)
		assert.False(t, started.Before(prevFinished), "%s started before its predecessor finished", name)
		assert.True(t, finished.After(started), "%s", name)
		prevFinished = finished
	}
}

func TestRunner_NoStageDoneBeforePredecessor(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")

	require.True(t, NewRunner("sub-1", f.pipeline).Run(context.Background()))

	for _, w := range f.writes.all() {
		for i := 1; i < len(models.StageNames); i++ {
			cur, _ := w.Stages.Get(models.StageNames[i])
			prev, _ := w.Stages.Get(models.StageNames[i-1])
			if cur.Status == models.StageDone || cur.Status == models.StageRunning {
				assert.Equal(t, models.StageDone, prev.Status, "%s advanced before %s was done", models.StageNames[i], models.StageNames[i-1])
			}
		}
	}
}

func TestRunner_StatusDerivedOnEveryStageWrite(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")

	require.True(t, NewRunner("sub-1", f.pipeline).Run(context.Background()))

	writes := f.writes.all()
	// one save plus a running and a done write per stage
	require.Len(t, writes, 1+2*len(models.StageNames))
	for _, w := range writes[1:] {
		if w.Stages.Communication.Status == models.StageDone {
			assert.Equal(t, models.StatusCompleted, w.Status)
		} else {
			assert.Equal(t, models.StatusProcessing, w.Status)
		}
	}
	assert.Equal(t, models.StatusCompleted, writes[len(writes)-1].Status)
}

func TestStatusAfter(t *testing.T) {
	for _, stage := range models.StageNames {
		for _, status := range []models.StageStatus{models.StageRunning, models.StageDone} {
			want := models.StatusProcessing
			if stage == models.StageCommunication && status == models.StageDone {
				want = models.StatusCompleted
			}
			assert.Equal(t, want, StatusAfter(stage, status), "%s/%s", stage, status)
		}
	}
}

func TestRunner_SecondRunWhileRunningIsNoop(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var once sync.Once
	blocking := SleeperFunc(func(ctx context.Context, _ time.Duration) error {
		once.Do(func() {
			entered <- struct{}{}
			<-release
		})
		return ctx.Err()
	})

	f := newFixture(t, nil, WithSleeper(blocking))
	f.submit(t, "sub-1")
	r := NewRunner("sub-1", f.pipeline)

	done, ok := r.Start(context.Background())
	require.True(t, ok)
	<-entered

	before := f.get(t, "sub-1")
	st := r.State()
	assert.True(t, st.Running)
	assert.Equal(t, models.StageIntake, st.CurrentStage)
	assert.Equal(t, 10.0, st.Progress)

	assert.False(t, r.Run(context.Background()))
	_, ok = r.Start(context.Background())
	assert.False(t, ok)
	assert.Equal(t, before, f.get(t, "sub-1"))

	close(release)
	<-done

	st = r.State()
	assert.False(t, st.Running)
	assert.Empty(t, st.Error)
	assert.Equal(t, models.StatusCompleted, f.get(t, "sub-1").Status)
}

func TestRunner_FailureKeepsEarlierStages(t *testing.T) {
	boom := stderrors.New("rating service exploded")
	f := newFixture(t, replacing(models.StageRate, func(StageAgent) StageAgent {
		return stubAgent{stage: models.StageRate, run: func(context.Context, models.Submission) (models.StageOutput, []models.AgentLog, error) {
			return nil, nil, boom
		}}
	}))
	f.submit(t, "sub-1")

	r := NewRunner("sub-1", f.pipeline)
	assert.True(t, r.Run(context.Background()))

	st := r.State()
	assert.False(t, st.Running)
	assert.Empty(t, st.CurrentStage)
	assert.Contains(t, st.Error, "rate")
	assert.Contains(t, st.Error, "rating service exploded")

	sub := f.get(t, "sub-1")
	assert.Equal(t, models.StageDone, sub.Stages.Intake.Status)
	assert.Equal(t, models.StageDone, sub.Stages.Risk.Status)
	assert.Equal(t, models.StageDone, sub.Stages.Coverage.Status)
	assert.Equal(t, models.StageError, sub.Stages.Rate.Status)
	assert.Nil(t, sub.Stages.Rate.Output)
	assert.Equal(t, models.StageIdle, sub.Stages.Communication.Status)
	assert.Equal(t, models.StatusProcessing, sub.Status)
}

func TestRunner_RetryRestartsFromIntake(t *testing.T) {
	calls := 0
	f := newFixture(t, replacing(models.StageCoverage, func(real StageAgent) StageAgent {
		return stubAgent{stage: models.StageCoverage, run: func(ctx context.Context, sub models.Submission) (models.StageOutput, []models.AgentLog, error) {
			calls++
			if calls == 1 {
				return nil, nil, stderrors.New("transient")
			}
			return real.Run(ctx, sub)
		}}
	}))
	f.submit(t, "sub-1")
	r := NewRunner("sub-1", f.pipeline)

	r.Run(context.Background())
	require.NotEmpty(t, r.State().Error)
	firstIntake := f.get(t, "sub-1").Stages.Intake.StartedAt

	r.Run(context.Background())
	st := r.State()
	assert.Empty(t, st.Error)
	sub := f.get(t, "sub-1")
	assert.Equal(t, models.StatusCompleted, sub.Status)
	assert.NotEqual(t, firstIntake, sub.Stages.Intake.StartedAt)
}

func TestRunner_PanickingAgentIsRecorded(t *testing.T) {
	f := newFixture(t, replacing(models.StageRisk, func(StageAgent) StageAgent {
		return stubAgent{stage: models.StageRisk, run: func(context.Context, models.Submission) (models.StageOutput, []models.AgentLog, error) {
			panic("nil map")
		}}
	}))
	f.submit(t, "sub-1")

	r := NewRunner("sub-1", f.pipeline)
	assert.NotPanics(t, func() { r.Run(context.Background()) })
	assert.Contains(t, r.State().Error, "panic")
	assert.Equal(t, models.StageError, f.get(t, "sub-1").Stages.Risk.Status)
}

func TestRunner_RejectsDecidedSubmissions(t *testing.T) {
	for _, status := range []models.SubmissionStatus{models.StatusQuoted, models.StatusDeclined, models.StatusIssued} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t, nil)
			sub := f.submit(t, "sub-1")
			sub.Status = status
			require.NoError(t, f.store.Save(context.Background(), sub))

			r := NewRunner("sub-1", f.pipeline)
			r.Run(context.Background())

			assert.Contains(t, r.State().Error, "not allowed")
			after := f.get(t, "sub-1")
			assert.Equal(t, status, after.Status)
			assert.Equal(t, models.NewStages(), after.Stages)
		})
	}
}

func TestRunner_UnknownSubmission(t *testing.T) {
	f := newFixture(t, nil)
	r := NewRunner("missing", f.pipeline)
	r.Run(context.Background())

	st := r.State()
	assert.False(t, st.Running)
	assert.Contains(t, st.Error, "not found")
	assert.Nil(t, st.Snapshot)
}

func TestRunner_Subscribe(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")
	r := NewRunner("sub-1", f.pipeline)

	updates, unsubscribe := r.Subscribe()
	r.Run(context.Background())
	unsubscribe()

	var states []State
	for st := range updates {
		states = append(states, st)
	}
	require.NotEmpty(t, states)
	assert.True(t, states[0].Running)
	last := states[len(states)-1]
	assert.False(t, last.Running)
	assert.Equal(t, models.StatusCompleted, last.Snapshot.Status)

	seen := map[models.StageName]bool{}
	for _, st := range states {
		if st.CurrentStage != "" {
			seen[st.CurrentStage] = true
		}
	}
	assert.Len(t, seen, len(models.StageNames))
}

func TestManager_StartAndGuard(t *testing.T) {
	release := make(chan struct{})
	blocking := SleeperFunc(func(ctx context.Context, _ time.Duration) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	f := newFixture(t, nil, WithSleeper(blocking))
	f.submit(t, "sub-1")
	m := NewManager(f.pipeline)

	_, ok := m.State("sub-1")
	assert.False(t, ok)

	require.True(t, m.Start("sub-1"))
	assert.False(t, m.Start("sub-1"))
	assert.True(t, m.Running("sub-1"))

	close(release)
	<-m.Runner("sub-1").Done()

	st, ok := m.State("sub-1")
	require.True(t, ok)
	assert.False(t, st.Running)
	assert.Equal(t, models.StatusCompleted, st.Snapshot.Status)
	require.NoError(t, m.Shutdown(context.Background()))
}

func TestManager_ShutdownCancelsRuns(t *testing.T) {
	f := newFixture(t, nil, WithSleeper(TimerSleeper{}), WithDelay(time.Hour, time.Hour, random.NewFixed(0)))
	f.submit(t, "sub-1")
	m := NewManager(f.pipeline)

	require.True(t, m.Start("sub-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(ctx))

	st, _ := m.State("sub-1")
	assert.False(t, st.Running)
	assert.Contains(t, st.Error, context.Canceled.Error())

	stored, ok, err := f.store.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, models.StageError, stored.Stages.Intake.Status)
	assert.Contains(t, stored.Stages.Intake.Error, context.Canceled.Error())
	_, running := stored.Stages.Running()
	assert.False(t, running)
	assert.Equal(t, models.StageError, st.Snapshot.Stages.Intake.Status)
}

func TestPipeline_ExecuteStage_CancelledDelayMarksStageError(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	agent, ok := f.pipeline.Agent(models.StageIntake)
	require.True(t, ok)
	sub, err := f.pipeline.ExecuteStage(ctx, "sub-1", agent)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, models.StageError, sub.Stages.Intake.Status)
	assert.Nil(t, sub.Stages.Intake.Output)
	stored, _, _ := f.store.Get(context.Background(), "sub-1")
	assert.Equal(t, models.StageError, stored.Stages.Intake.Status)
	assert.Equal(t, models.StageIdle, stored.Stages.Risk.Status)
}

func TestTimerSleeper(t *testing.T) {
	assert.NoError(t, TimerSleeper{}.Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, TimerSleeper{}.Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, NoDelay{}.Sleep(ctx, time.Hour), context.Canceled)
}

func TestWithDelay_DrawsWithinBounds(t *testing.T) {
	var got []time.Duration
	recording := SleeperFunc(func(_ context.Context, d time.Duration) error {
		got = append(got, d)
		return nil
	})
	f := newFixture(t, nil, WithSleeper(recording), WithDelay(1500*time.Millisecond, 2400*time.Millisecond, random.New(3)))
	f.submit(t, "sub-1")

	NewRunner("sub-1", f.pipeline).Run(context.Background())

	require.Len(t, got, len(models.StageNames))
	for _, d := range got {
		assert.GreaterOrEqual(t, d, 1500*time.Millisecond)
		assert.LessOrEqual(t, d, 2400*time.Millisecond)
	}
}

func TestStageJobHandler_Process(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")
	intake, _ := f.pipeline.Agent(models.StageIntake)
	h := NewStageJobHandler(f.pipeline, intake, time.Second, logger.NewNoOpLogger())
	assert.Equal(t, "uw-intake", h.TaskType())

	out, err := h.Process(context.Background(), `{"submissionId":"sub-1"}`)
	require.NoError(t, err)
	assert.Equal(t, models.StageIntake, out.Stage)
	assert.Equal(t, models.StageDone, out.StageStatus)
	assert.Equal(t, models.StatusProcessing, out.SubmissionStatus)
	assert.Equal(t, models.StageDone, f.get(t, "sub-1").Stages.Intake.Status)
}

func TestStageJobHandler_ProcessErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")
	quoted := models.NewSubmission("sub-q", "b", "i", "", nil, baseTime)
	quoted.Status = models.StatusQuoted
	require.NoError(t, f.store.Save(context.Background(), quoted))

	intake, _ := f.pipeline.Agent(models.StageIntake)
	rate, _ := f.pipeline.Agent(models.StageRate)

	tests := []struct {
		name      string
		agent     StageAgent
		variables string
		wantCode  errors.ErrorCode
	}{
		{"malformed variables", intake, `{`, errors.ErrCodeSubmissionValidationFailed},
		{"missing id", intake, `{}`, errors.ErrCodeSubmissionValidationFailed},
		{"unknown id", intake, `{"submissionId":"nope"}`, errors.ErrCodeSubmissionNotFound},
		{"decided submission", intake, `{"submissionId":"sub-q"}`, errors.ErrCodeInvalidStatusTransition},
		{"prerequisite stage missing", rate, `{"submissionId":"sub-1"}`, errors.ErrCodeStageExecutionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewStageJobHandler(f.pipeline, tt.agent, time.Second, logger.NewNoOpLogger())
			_, err := h.Process(context.Background(), tt.variables)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
		})
	}
}

func TestStageJobHandler_DrivesWholePipeline(t *testing.T) {
	f := newFixture(t, nil)
	f.submit(t, "sub-1")

	var out *JobOutput
	for _, a := range f.pipeline.Agents() {
		h := NewStageJobHandler(f.pipeline, a, time.Second, logger.NewNoOpLogger())
		var err error
		out, err = h.Process(context.Background(), `{"submissionId":"sub-1"}`)
		require.NoError(t, err, "stage %s", a.Stage())
	}

	assert.Equal(t, models.StatusCompleted, out.SubmissionStatus)
	assert.Greater(t, out.Premium, 0)
	assert.NotEmpty(t, out.RiskBand)
}
