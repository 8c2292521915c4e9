// internal/workers/underwriting/intake-extraction/handler.go
package intakeextraction

import (
	"context"
	"fmt"

	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
)

const (
	TaskType = "uw-intake"
)

// Handler fabricates the document-extraction result for a submission: a
// synthetic fleet, a fixed driver list and loss history, and a telematics flag.
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

func (h *Handler) Stage() models.StageName { return models.StageIntake }

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.InsuredName == "" {
		return nil, fmt.Errorf("intake: insured name is required")
	}

	operation := input.OperationType
	if operation == "" {
		operation = h.config.DefaultOperation
	}

	count := random.IntBetween(h.rng, float64(h.config.MinVehicles), float64(h.config.MaxVehicles))
	if count < h.config.MinVehicles {
		count = h.config.MinVehicles
	}

	vehicles := make([]models.Vehicle, count)
	for i := range vehicles {
		vehicles[i] = models.Vehicle{
			VIN:   fmt.Sprintf("1FT%d", 100000+i),
			Year:  2018 + i%6,
			Make:  vehicleMakes[i%3],
			Model: vehicleModels[i%3],
			Use:   vehicleUses[i%3],
		}
	}

	out := &Output{
		InsuredInfo: models.InsuredInfo{
			InsuredName:   input.InsuredName,
			OperationType: operation,
			Confidence:    h.confidence(0.90, 0.99),
		},
		Vehicles: models.VehicleSchedule{Items: vehicles, Confidence: h.confidence(0.90, 0.98)},
		Drivers: models.DriverSchedule{
			Items:      append([]models.Driver(nil), defaultDrivers...),
			Confidence: h.confidence(0.88, 0.97),
		},
		LossHistory: models.LossHistory{
			Items:      append([]models.Loss(nil), defaultLosses...),
			Confidence: h.confidence(0.85, 0.95),
		},
	}
	out.Telematics = models.TelematicsSignal{
		HasTelemetry: h.rng.Float64() > h.config.TelematicsThreshold,
		Confidence:   h.confidence(0.80, 0.95),
	}

	h.logger.Debug("intake extracted", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"vehicles":     count,
		"telematics":   out.Telematics.HasTelemetry,
	})

	return out, nil
}

// Run adapts Execute to a stored submission and attaches the trace logs.
func (h *Handler) Run(ctx context.Context, sub models.Submission) (models.StageOutput, []models.AgentLog, error) {
	out, err := h.Execute(ctx, InputFromSubmission(sub))
	if err != nil {
		return nil, nil, err
	}
	return out, Logs(out, len(sub.Documents)), nil
}

// Logs describes what intake extracted.
func Logs(out *Output, documents int) []models.AgentLog {
	return []models.AgentLog{
		{RuleID: "KB-DOC-001", Message: fmt.Sprintf("Processed %d submitted document(s)", documents)},
		{RuleID: "KB-VEH-015", Message: fmt.Sprintf("Extracted %d vehicles from schedule", out.VehicleCount())},
		{RuleID: "KB-OPS-007", Message: fmt.Sprintf("Classified operation as %s", out.InsuredInfo.OperationType)},
	}
}

func (h *Handler) confidence(lo, hi float64) float64 {
	return random.Round2(random.Between(h.rng, lo, hi))
}
