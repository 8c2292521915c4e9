// internal/workers/underwriting/premium-rating/handler.go
package premiumrating

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/random"
	"auto-uw-agent/internal/models"
)

const (
	TaskType = "uw-rate"
)

var (
	ErrIntakeMissing = errors.New("premium rating requires a completed intake stage")
	ErrRiskMissing   = errors.New("premium rating requires a completed risk stage")
)

type Handler struct {
	config *Config
	rng    random.Source
	now    func() time.Time
	logger logger.Logger
}

func NewHandler(config *Config, rng random.Source, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		rng:    rng,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithClock overrides the clock used for the policy term dates.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Stage() models.StageName { return models.StageRate }

// ComputePremium returns base = rate*vehicles and
// premium = round(base * (1 + sum(pct)/100)).
func ComputePremium(baseRatePerVehicle, vehicleCount int, adjustments []models.RateAdjustment) (base, premium int) {
	base = baseRatePerVehicle * vehicleCount
	total := 0
	for _, a := range adjustments {
		total += a.AmountPct
	}
	premium = int(math.Round(float64(base) * (1 + float64(total)/100)))
	return base, premium
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.VehicleCount <= 0 {
		return nil, fmt.Errorf("premium rating: vehicle count must be positive, got %d", input.VehicleCount)
	}
	bandPct, ok := h.config.BandAdjustments[string(input.RiskBand)]
	if !ok {
		return nil, fmt.Errorf("premium rating: no adjustment for risk band %q", input.RiskBand)
	}

	rate := random.IntBetween(h.rng, float64(h.config.MinBaseRate), float64(h.config.MaxBaseRate))

	fleetPct := 0
	if input.VehicleCount >= h.config.FleetDiscountThreshold {
		fleetPct = h.config.FleetDiscountPct
	}
	adjustments := []models.RateAdjustment{
		{ID: AdjRiskBand, Label: "Risk band adjustment", AmountPct: bandPct},
		{ID: AdjUrban, Label: "Urban operation", AmountPct: random.IntBetween(h.rng, float64(h.config.UrbanSurchargeMin), float64(h.config.UrbanSurchargeMax))},
		{ID: AdjTelematics, Label: "Telematics credit", AmountPct: random.IntBetween(h.rng, float64(h.config.TelematicsCreditMin), float64(h.config.TelematicsCreditMax))},
		{ID: AdjFleetDiscount, Label: "Fleet size discount", AmountPct: fleetPct},
	}

	base, premium := ComputePremium(rate, input.VehicleCount, adjustments)

	applied := make([]models.RateAdjustment, 0, len(adjustments))
	for _, a := range adjustments {
		if a.AmountPct != 0 {
			applied = append(applied, a)
		}
	}

	today := h.now()
	out := &Output{
		Base:               base,
		BaseRatePerVehicle: rate,
		VehicleCount:       input.VehicleCount,
		Adjustments:        applied,
		Premium:            premium,
		EffectiveDate:      models.DateOnly(today),
		ExpirationDate:     models.DateOnly(today.Add(time.Duration(h.config.TermDays) * 24 * time.Hour)),
	}

	h.logger.Debug("premium rated", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"base":         base,
		"premium":      premium,
	})

	return out, nil
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
		{RuleID: "KB-RATE-301", Message: fmt.Sprintf("Base premium $%d (%d vehicles at $%d)", out.Base, out.VehicleCount, out.BaseRatePerVehicle)},
	}
	for _, a := range out.Adjustments {
		logs = append(logs, models.AgentLog{RuleID: a.ID, Message: fmt.Sprintf("%s: %+d%%", a.Label, a.AmountPct)})
	}
	logs = append(logs, models.AgentLog{RuleID: "KB-ADJ-156", Message: fmt.Sprintf("Final premium $%d", out.Premium)})
	return out, logs, nil
}
