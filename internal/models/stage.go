// internal/models/stage.go
package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// StageName identifies one of the five fixed pipeline stages.
type StageName string

const (
	StageIntake        StageName = "intake"
	StageRisk          StageName = "risk"
	StageCoverage      StageName = "coverage"
	StageRate          StageName = "rate"
	StageCommunication StageName = "communication"
)

// StageNames lists the stages in execution order.
var StageNames = []StageName{StageIntake, StageRisk, StageCoverage, StageRate, StageCommunication}

// Valid reports whether n is one of the five stage names.
func (n StageName) Valid() bool {
	for _, s := range StageNames {
		if s == n {
			return true
		}
	}
	return false
}

// StageStatus is the per-stage state machine value.
type StageStatus string

const (
	StageIdle    StageStatus = "idle"
	StageRunning StageStatus = "running"
	StageDone    StageStatus = "done"
	StageError   StageStatus = "error"
)

// CanTransition reports whether a stage may move from one status to another.
// Any stage may be (re)started; only a running stage may finish.
func CanTransition(from, to StageStatus) bool {
	switch to {
	case StageRunning:
		return true
	case StageDone, StageError:
		return from == StageRunning
	}
	return false
}

// AgentLog is a traceability entry attached to a stage result.
type AgentLog struct {
	RuleID  string `json:"ruleId,omitempty"`
	Message string `json:"message"`
}

// StageOutput is implemented by the five stage-specific output records.
type StageOutput interface {
	Stage() StageName
}

// StageResult is the state of one stage for one submission.
type StageResult struct {
	Status     StageStatus `json:"status"`
	Output     StageOutput `json:"output,omitempty"`
	Logs       []AgentLog  `json:"logs,omitempty"`
	Error      string      `json:"error,omitempty"`
	StartedAt  string      `json:"startedAt,omitempty"`
	FinishedAt string      `json:"finishedAt,omitempty"`
}

// Start returns a running result, discarding any previous output.
func (r StageResult) Start(now time.Time) StageResult {
	return StageResult{Status: StageRunning, StartedAt: Timestamp(now)}
}

// Complete returns the done result carrying output and logs.
func (r StageResult) Complete(output StageOutput, logs []AgentLog, now time.Time) StageResult {
	r.Status = StageDone
	r.Output = output
	r.Logs = logs
	r.Error = ""
	r.FinishedAt = Timestamp(now)
	return r
}

// Fail returns the error result. Output is cleared.
func (r StageResult) Fail(msg string, now time.Time) StageResult {
	r.Status = StageError
	r.Output = nil
	r.Error = msg
	r.FinishedAt = Timestamp(now)
	return r
}

// Stages holds exactly one result per stage name.
type Stages struct {
	Intake        StageResult `json:"intake"`
	Risk          StageResult `json:"risk"`
	Coverage      StageResult `json:"coverage"`
	Rate          StageResult `json:"rate"`
	Communication StageResult `json:"communication"`
}

// NewStages returns all five stages idle.
func NewStages() Stages {
	idle := StageResult{Status: StageIdle}
	return Stages{Intake: idle, Risk: idle, Coverage: idle, Rate: idle, Communication: idle}
}

// Get returns the result for name.
func (s Stages) Get(name StageName) (StageResult, bool) {
	switch name {
	case StageIntake:
		return s.Intake, true
	case StageRisk:
		return s.Risk, true
	case StageCoverage:
		return s.Coverage, true
	case StageRate:
		return s.Rate, true
	case StageCommunication:
		return s.Communication, true
	}
	return StageResult{}, false
}

// Set replaces the result for name. Unknown names are rejected.
func (s *Stages) Set(name StageName, r StageResult) bool {
	switch name {
	case StageIntake:
		s.Intake = r
	case StageRisk:
		s.Risk = r
	case StageCoverage:
		s.Coverage = r
	case StageRate:
		s.Rate = r
	case StageCommunication:
		s.Communication = r
	default:
		return false
	}
	return true
}

// CountDone returns how many stages are done.
func (s Stages) CountDone() int {
	n := 0
	for _, name := range StageNames {
		if r, _ := s.Get(name); r.Status == StageDone {
			n++
		}
	}
	return n
}

// Running returns the first stage currently running, if any.
func (s Stages) Running() (StageName, bool) {
	for _, name := range StageNames {
		if r, _ := s.Get(name); r.Status == StageRunning {
			return name, true
		}
	}
	return "", false
}

// Progress returns completion as a percentage: each done stage counts one
// fifth, and a stage in flight adds half a fifth.
func (s Stages) Progress(inFlight bool) float64 {
	units := float64(s.CountDone())
	if _, running := s.Running(); running || inFlight {
		units += 0.5
	}
	pct := units / float64(len(StageNames)) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}

type stageResultWire struct {
	Status     StageStatus     `json:"status"`
	Output     json.RawMessage `json:"output,omitempty"`
	Logs       []AgentLog      `json:"logs,omitempty"`
	Error      string          `json:"error,omitempty"`
	StartedAt  string          `json:"startedAt,omitempty"`
	FinishedAt string          `json:"finishedAt,omitempty"`
}

// UnmarshalJSON decodes each stage output into its stage-specific type.
// Missing stages decode as idle and unknown keys are dropped, so the decoded
// value always carries exactly the five fixed stages.
func (s *Stages) UnmarshalJSON(data []byte) error {
	var raw map[StageName]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := NewStages()
	for _, name := range StageNames {
		msg, ok := raw[name]
		if !ok || len(msg) == 0 || string(msg) == "null" {
			continue
		}
		r, err := decodeStageResult(name, msg)
		if err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
		out.Set(name, r)
	}

	*s = out
	return nil
}

func decodeStageResult(name StageName, msg json.RawMessage) (StageResult, error) {
	var w stageResultWire
	if err := json.Unmarshal(msg, &w); err != nil {
		return StageResult{}, err
	}
	if w.Status == "" {
		w.Status = StageIdle
	}

	r := StageResult{
		Status:     w.Status,
		Logs:       w.Logs,
		Error:      w.Error,
		StartedAt:  w.StartedAt,
		FinishedAt: w.FinishedAt,
	}
	if w.Status != StageDone || len(w.Output) == 0 || string(w.Output) == "null" {
		return r, nil
	}

	output := newOutput(name)
	if err := json.Unmarshal(w.Output, output); err != nil {
		return StageResult{}, fmt.Errorf("decode output: %w", err)
	}
	r.Output = output
	return r, nil
}

func newOutput(name StageName) StageOutput {
	switch name {
	case StageIntake:
		return &IntakeOutput{}
	case StageRisk:
		return &RiskOutput{}
	case StageCoverage:
		return &CoverageOutput{}
	case StageRate:
		return &RateOutput{}
	default:
		return &CommunicationOutput{}
	}
}
