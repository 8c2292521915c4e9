// internal/store/seed.go
package store

import (
	"time"

	"auto-uw-agent/internal/models"
)

// ExampleSubmissions is the fixed demo set written into an empty slot.
func ExampleSubmissions(now time.Time) []models.Submission {
	examples := []struct {
		id, broker, insured, operation string
		age                            time.Duration
		business                       models.BusinessInfo
		docs                           []models.DocumentInfo
	}{
		{
			id: "SUB-DEMO-003", broker: "Johnson & Co. Insurance", insured: "Metro Delivery Services LLC",
			operation: "Local Delivery", age: 2 * time.Hour,
			business: models.BusinessInfo{YearsInBusiness: 8, PrimaryOperations: "Last-mile parcel delivery", Territories: []string{"Cook County, IL"}},
			docs: []models.DocumentInfo{
				{Name: "acord-125.pdf", Type: "application/pdf", Size: 248_113},
				{Name: "loss-runs-2020-2024.pdf", Type: "application/pdf", Size: 96_402},
			},
		},
		{
			id: "SUB-DEMO-002", broker: "Pacific Risk Partners", insured: "Bayside Plumbing & HVAC",
			operation: "Service Contractor", age: 26 * time.Hour,
			business: models.BusinessInfo{YearsInBusiness: 15, PrimaryOperations: "Residential plumbing service calls", Territories: []string{"Alameda County, CA", "Contra Costa County, CA"}},
			docs: []models.DocumentInfo{
				{Name: "vehicle-schedule.xlsx", Type: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Size: 31_870},
			},
		},
		{
			id: "SUB-DEMO-001", broker: "Summit Commercial Brokers", insured: "Green Valley Landscaping",
			operation: "Landscaping", age: 72 * time.Hour,
			business: models.BusinessInfo{YearsInBusiness: 4, PrimaryOperations: "Commercial grounds maintenance"},
		},
	}

	out := make([]models.Submission, 0, len(examples))
	for _, e := range examples {
		s := models.NewSubmission(e.id, e.broker, e.insured, e.operation, e.docs, now.Add(-e.age))
		business := e.business
		s.Business = &business
		out = append(out, s)
	}
	return out
}
