// internal/workers/underwriting/proposal-communication/models.go
package proposalcommunication

import "auto-uw-agent/internal/models"

type Input struct {
	SubmissionID       string                       `json:"submissionId"`
	InsuredName        string                       `json:"insuredName"`
	BrokerName         string                       `json:"brokerName"`
	OperationType      string                       `json:"operationType,omitempty"`
	RiskBand           models.RiskBand              `json:"riskBand"`
	Coverages          []models.CoverageRecommended `json:"coverages"`
	Premium            int                          `json:"premium"`
	VehicleCount       int                          `json:"vehicleCount"`
	BaseRatePerVehicle int                          `json:"baseRatePerVehicle"`
	EffectiveDate      string                       `json:"effectiveDate"`
}

type Output = models.CommunicationOutput

// InputFromSubmission gathers what the proposal quotes from earlier stages.
func InputFromSubmission(sub models.Submission) (*Input, error) {
	risk, ok := sub.Stages.RiskOutput()
	if !ok {
		return nil, ErrPriorStageMissing
	}
	coverage, ok := sub.Stages.CoverageOutput()
	if !ok {
		return nil, ErrPriorStageMissing
	}
	rate, ok := sub.Stages.RateOutput()
	if !ok {
		return nil, ErrPriorStageMissing
	}
	return &Input{
		SubmissionID:       sub.ID,
		InsuredName:        sub.InsuredName,
		BrokerName:         sub.BrokerName,
		OperationType:      sub.OperationType,
		RiskBand:           risk.RiskBand,
		Coverages:          coverage.Recommended,
		Premium:            rate.Premium,
		VehicleCount:       rate.VehicleCount,
		BaseRatePerVehicle: rate.BaseRatePerVehicle,
		EffectiveDate:      rate.EffectiveDate,
	}, nil
}
