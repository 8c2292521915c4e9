// internal/workers/underwriting/risk-assessment/models.go
package riskassessment

import "auto-uw-agent/internal/models"

type Input struct {
	SubmissionID string `json:"submissionId"`
	VehicleCount int    `json:"vehicleCount"`
	HasTelemetry bool   `json:"hasTelemetry"`
}

type Output = models.RiskOutput

// InputFromSubmission reads the intake result the risk stage builds on.
func InputFromSubmission(sub models.Submission) (*Input, error) {
	intake, ok := sub.Stages.IntakeOutput()
	if !ok {
		return nil, ErrIntakeMissing
	}
	return &Input{
		SubmissionID: sub.ID,
		VehicleCount: intake.VehicleCount(),
		HasTelemetry: intake.Telematics.HasTelemetry,
	}, nil
}

// appliedRules is the explanation attached to every assessment.
var appliedRules = []models.AgentLog{
	{RuleID: "RS-101", Message: "Vehicle count between 2-10: moderate base risk"},
	{RuleID: "RS-214", Message: "Recent minor property damage claim"},
	{RuleID: "RS-305", Message: "Telematics present: favorable adjustment"},
}
