// internal/workers/underwriting/risk-assessment/handler.go
package riskassessment

import (
	"context"
	"errors"
	"fmt"

	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
)

const (
	TaskType = "uw-risk"
)

var ErrIntakeMissing = errors.New("risk assessment requires a completed intake stage")

type Handler struct {
	config *Config
	rng    random.Source
	logger logger.Logger
}

func NewHandler(config *Config, rng random.Source, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		rng:    rng,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Stage() models.StageName { return models.StageRisk }

// Execute scores the fleet and derives its band.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.VehicleCount <= 0 {
		return nil, fmt.Errorf("risk assessment: vehicle count must be positive, got %d", input.VehicleCount)
	}

	score := random.IntBetween(h.rng, float64(h.config.MinScore), float64(h.config.MaxScore))
	band := models.BandForScore(score)

	h.logger.Debug("risk scored", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"score":        score,
		"band":         string(band),
	})

	return &Output{
		OverallRiskScore: score,
		RiskBand:         band,
		AppliedRules:     append([]models.AgentLog(nil), appliedRules...),
	}, nil
}

func (h *Handler) Run(ctx context.Context, sub models.Submission) (models.StageOutput, []models.AgentLog, error) {
	input, err := InputFromSubmission(sub)
	if err != nil {
		return nil, nil, err
	}
	out, err := h.Execute(ctx, input)
	if err != nil {
		return nil, nil, err
	}
	logs := append([]models.AgentLog{
		{RuleID: "KB-RISK-101", Message: fmt.Sprintf("Overall risk score %d, band %s (%s risk)", out.OverallRiskScore, out.RiskBand, out.RiskBand.Label())},
	}, out.AppliedRules...)
	return out, logs, nil
}
