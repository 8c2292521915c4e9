package agent

import (
	"auto-uw-agent/internal/common/config"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
	coveragerecommendation "auto-uw-agent/internal/workers/underwriting/coverage-recommendation"
	intakeextraction "auto-uw-agent/internal/workers/underwriting/intake-extraction"
	premiumrating "auto-uw-agent/internal/workers/underwriting/premium-rating"
	proposalcommunication "auto-uw-agent/internal/workers/underwriting/proposal-communication"
	riskassessment "auto-uw-agent/internal/workers/underwriting/risk-assessment"
)

// TaskTypes maps each stage to its Zeebe task type.
var TaskTypes = map[models.StageName]string{
	models.StageIntake:        intakeextraction.TaskType,
	models.StageRisk:          riskassessment.TaskType,
	models.StageCoverage:      coveragerecommendation.TaskType,
	models.StageRate:          premiumrating.TaskType,
	models.StageCommunication: proposalcommunication.TaskType,
}

// DefaultAgents builds the five stage agents in execution order, all
// drawing from rng.
func DefaultAgents(cfg config.PipelineConfig, rng random.Source, log logger.Logger) []StageAgent {
	rate := premiumrating.LoadConfig()
	if cfg.FleetDiscountThreshold > 0 {
		rate.FleetDiscountThreshold = cfg.FleetDiscountThreshold
	}
	return []StageAgent{
		intakeextraction.NewHandler(intakeextraction.LoadConfig(), rng, log),
		riskassessment.NewHandler(riskassessment.LoadConfig(), rng, log),
		coveragerecommendation.NewHandler(coveragerecommendation.LoadConfig(), log),
		premiumrating.NewHandler(rate, rng, log),
		proposalcommunication.NewHandler(proposalcommunication.LoadConfig(), log),
	}
}
