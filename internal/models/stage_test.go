package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandForScore_Exhaustive(t *testing.T) {
	for score := 0; score <= 100; score++ {
		band := BandForScore(score)
		switch {
		case score >= 80:
			assert.Equal(t, BandA, band, "score %d", score)
		case score >= 70:
			assert.Equal(t, BandB, band, "score %d", score)
		default:
			assert.Equal(t, BandC, band, "score %d", score)
		}
	}
}

func TestRiskBand_Label(t *testing.T) {
	assert.Equal(t, "Low", BandA.Label())
	assert.Equal(t, "Moderate", BandB.Label())
	assert.Equal(t, "High", BandC.Label())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to StageStatus
		want     bool
	}{
		{StageIdle, StageRunning, true},
		{StageRunning, StageDone, true},
		{StageRunning, StageError, true},
		{StageDone, StageRunning, true},
		{StageError, StageRunning, true},
		{StageIdle, StageDone, false},
		{StageIdle, StageError, false},
		{StageDone, StageError, false},
		{StageError, StageDone, false},
		{StageDone, StageIdle, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestStageResult_Lifecycle(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	r := StageResult{Status: StageIdle}.Start(now)
	assert.Equal(t, StageRunning, r.Status)
	assert.Nil(t, r.Output)
	assert.NotEmpty(t, r.StartedAt)

	done := r.Complete(&RiskOutput{OverallRiskScore: 81, RiskBand: BandA}, []AgentLog{{RuleID: "RS-101", Message: "m"}}, now.Add(time.Second))
	assert.Equal(t, StageDone, done.Status)
	assert.NotNil(t, done.Output)
	assert.Equal(t, r.StartedAt, done.StartedAt)
	assert.NotEmpty(t, done.FinishedAt)

	restarted := done.Start(now.Add(2 * time.Second))
	assert.Equal(t, StageRunning, restarted.Status)
	assert.Nil(t, restarted.Output, "a fresh run discards previous output")
	assert.Empty(t, restarted.Logs)

	failed := restarted.Fail("boom", now.Add(3*time.Second))
	assert.Equal(t, StageError, failed.Status)
	assert.Nil(t, failed.Output)
	assert.Equal(t, "boom", failed.Error)
}

func TestStages_JSONRoundTripKeepsTypedOutputs(t *testing.T) {
	now := time.Now()
	stages := NewStages()
	stages.Intake = stages.Intake.Start(now).Complete(&IntakeOutput{
		InsuredInfo: InsuredInfo{InsuredName: "Acme", OperationType: "Local Delivery", Confidence: 0.95},
		Vehicles:    VehicleSchedule{Items: []Vehicle{{VIN: "1FT100000", Year: 2018, Make: "Ford", Model: "Transit", Use: "Delivery"}}, Confidence: 0.9},
	}, nil, now)
	stages.Rate = stages.Rate.Start(now).Complete(&RateOutput{Base: 7200, BaseRatePerVehicle: 1200, VehicleCount: 6, Premium: 6696}, nil, now)
	stages.Risk = stages.Risk.Start(now)

	data, err := json.Marshal(stages)
	require.NoError(t, err)

	var decoded Stages
	require.NoError(t, json.Unmarshal(data, &decoded))

	intake, ok := decoded.IntakeOutput()
	require.True(t, ok)
	assert.Equal(t, "Acme", intake.InsuredInfo.InsuredName)
	assert.Equal(t, 1, intake.VehicleCount())

	rate, ok := decoded.RateOutput()
	require.True(t, ok)
	assert.Equal(t, 6696, rate.Premium)

	_, ok = decoded.RiskOutput()
	assert.False(t, ok)
	assert.Equal(t, StageRunning, decoded.Risk.Status)
	assert.Equal(t, stages, decoded)
}

func TestStages_UnmarshalAlwaysHasFiveStages(t *testing.T) {
	raw := `{"intake":{"status":"done","output":{"insured_info":{"insured_name":"X"}}},"bogus":{"status":"done"}}`

	var s Stages
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, StageDone, s.Intake.Status)
	for _, name := range StageNames[1:] {
		r, ok := s.Get(name)
		require.True(t, ok)
		assert.Equal(t, StageIdle, r.Status, "stage %s", name)
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	var keys map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &keys))
	assert.Len(t, keys, 5)
	assert.NotContains(t, keys, "bogus")
}

func TestStages_UnmarshalRejectsMalformedOutput(t *testing.T) {
	raw := `{"rate":{"status":"done","output":{"premium":"lots"}}}`

	var s Stages
	assert.Error(t, json.Unmarshal([]byte(raw), &s))
}

func TestStages_Progress(t *testing.T) {
	now := time.Now()
	s := NewStages()
	assert.Equal(t, 0.0, s.Progress(false))
	assert.Equal(t, 10.0, s.Progress(true))

	s.Intake = s.Intake.Start(now).Complete(&IntakeOutput{}, nil, now)
	s.Risk = s.Risk.Start(now)
	assert.InDelta(t, 30.0, s.Progress(false), 0.0001)

	for _, name := range StageNames {
		r, _ := s.Get(name)
		s.Set(name, r.Start(now).Complete(&CommunicationOutput{}, nil, now))
	}
	assert.Equal(t, 5, s.CountDone())
	assert.Equal(t, 100.0, s.Progress(true))
}

func TestStages_SetRejectsUnknownStage(t *testing.T) {
	s := NewStages()
	assert.False(t, s.Set("underwriting", StageResult{Status: StageDone}))
	_, ok := s.Get("underwriting")
	assert.False(t, ok)
}

func TestNewSubmission(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s := NewSubmission("id-1", "Johnson & Co.", "Acme Logistics", "", nil, now)

	assert.Equal(t, StatusSubmitted, s.Status)
	assert.Equal(t, s.CreatedAt, s.UpdatedAt)
	assert.NotNil(t, s.Documents)
	assert.Equal(t, NewStages(), s.Stages)
	assert.Equal(t, DefaultOperationType, s.OperationTypeOr(DefaultOperationType))
}

func TestSubmissionStatus(t *testing.T) {
	assert.True(t, StatusQuoted.Valid())
	assert.False(t, SubmissionStatus("archived").Valid())
	assert.True(t, StatusIssued.Decided())
	assert.False(t, StatusCompleted.Decided())
}
