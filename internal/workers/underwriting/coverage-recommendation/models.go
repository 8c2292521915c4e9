// internal/workers/underwriting/coverage-recommendation/models.go
package coveragerecommendation

import "auto-uw-agent/internal/models"

type Input struct {
	SubmissionID string          `json:"submissionId"`
	RiskBand     models.RiskBand `json:"riskBand"`
}

type Output = models.CoverageOutput

// Coverage line names.
const (
	CoverageLiability      = "Liability"
	CoveragePhysicalDamage = "Physical Damage"
	CoverageHiredNonOwned  = "Hired/Non-Owned Auto"
)

// InputFromSubmission reads the band from the risk stage.
func InputFromSubmission(sub models.Submission) (*Input, error) {
	risk, ok := sub.Stages.RiskOutput()
	if !ok {
		return nil, ErrRiskMissing
	}
	return &Input{SubmissionID: sub.ID, RiskBand: risk.RiskBand}, nil
}
