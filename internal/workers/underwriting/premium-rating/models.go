// internal/workers/underwriting/premium-rating/models.go
package premiumrating

import "auto-uw-agent/internal/models"

type Input struct {
	SubmissionID string          `json:"submissionId"`
	VehicleCount int             `json:"vehicleCount"`
	RiskBand     models.RiskBand `json:"riskBand"`
}

type Output = models.RateOutput

// Adjustment ids.
const (
	AdjRiskBand      = "RJ-100"
	AdjUrban         = "RJ-221"
	AdjTelematics    = "RJ-330"
	AdjFleetDiscount = "RJ-445"
)

// InputFromSubmission reads the fleet size from intake and the band from risk.
func InputFromSubmission(sub models.Submission) (*Input, error) {
	intake, ok := sub.Stages.IntakeOutput()
	if !ok {
		return nil, ErrIntakeMissing
	}
	risk, ok := sub.Stages.RiskOutput()
	if !ok {
		return nil, ErrRiskMissing
	}
	return &Input{
		SubmissionID: sub.ID,
		VehicleCount: intake.VehicleCount(),
		RiskBand:     risk.RiskBand,
	}, nil
}
