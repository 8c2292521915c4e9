// internal/workers/underwriting/intake-extraction/models.go
package intakeextraction

import "auto-uw-agent/internal/models"

type Input struct {
	SubmissionID  string                `json:"submissionId"`
	InsuredName   string                `json:"insuredName"`
	OperationType string                `json:"operationType,omitempty"`
	Documents     []models.DocumentInfo `json:"documents,omitempty"`
}

type Output = models.IntakeOutput

// InputFromSubmission copies the fields intake reads from the submission.
func InputFromSubmission(sub models.Submission) *Input {
	return &Input{
		SubmissionID:  sub.ID,
		InsuredName:   sub.InsuredName,
		OperationType: sub.OperationType,
		Documents:     sub.Documents,
	}
}

var (
	vehicleMakes  = []string{"Ford", "Chevy", "Ram"}
	vehicleModels = []string{"Transit", "Express", "ProMaster"}
	vehicleUses   = []string{"Delivery", "Service", "Sales"}
)

// Fixed schedules returned for every submission.
var (
	defaultDrivers = []models.Driver{
		{Name: "Alex Johnson", Age: 34, LicenseYears: 10},
		{Name: "Maria Gomez", Age: 29, LicenseYears: 6},
	}
	defaultLosses = []models.Loss{
		{Date: "2023-05-10", Description: "Minor fender bender", Incurred: 2400},
		{Date: "2022-11-01", Description: "Windshield replacement", Incurred: 600},
	}
)
