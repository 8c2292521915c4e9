// internal/workers/underwriting/coverage-recommendation/handler.go
package coveragerecommendation

import (
	"context"
	"errors"
	"fmt"

	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/models"
)

const (
	TaskType = "uw-coverage"
)

var ErrRiskMissing = errors.New("coverage recommendation requires a completed risk stage")

// Handler recommends the three standard coverage lines, with richer
// limits and lower deductibles for the preferred band.
type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Stage() models.StageName { return models.StageCoverage }

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch input.RiskBand {
	case models.BandA, models.BandB, models.BandC:
	default:
		return nil, fmt.Errorf("coverage recommendation: unknown risk band %q", input.RiskBand)
	}

	preferred := string(input.RiskBand) == h.config.PreferredBand
	return &Output{Recommended: Recommend(preferred)}, nil
}

// Recommend returns the coverage lines for a preferred or standard risk.
func Recommend(preferred bool) []models.CoverageRecommended {
	liability, pdDeductible := "$750,000 CSL", "$2,500"
	if preferred {
		liability, pdDeductible = "$1,000,000 CSL", "$1,000"
	}
	return []models.CoverageRecommended{
		{Coverage: CoverageLiability, Limits: liability, Deductible: "$0", KBRuleID: "CR-001"},
		{Coverage: CoveragePhysicalDamage, Limits: "ACV", Deductible: pdDeductible, KBRuleID: "CR-017"},
		{Coverage: CoverageHiredNonOwned, Limits: "$1,000,000", Deductible: "$0", KBRuleID: "CR-023"},
	}
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

	logs := []models.AgentLog{
		{RuleID: "KB-COV-201", Message: fmt.Sprintf("Coverage package selected for band %s", input.RiskBand)},
	}
	for _, c := range out.Recommended {
		logs = append(logs, models.AgentLog{
			RuleID:  c.KBRuleID,
			Message: fmt.Sprintf("%s: %s, deductible %s", c.Coverage, c.Limits, c.Deductible),
		})
	}
	return out, logs, nil
}
