// internal/workers/underwriting/proposal-communication/handler.go
package proposalcommunication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/templating"
	"auto-uw-agent/internal/models"
	coveragerecommendation "auto-uw-agent/internal/workers/underwriting/coverage-recommendation"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	TaskType = "uw-communication"
)

var ErrPriorStageMissing = errors.New("proposal communication requires completed risk, coverage and rate stages")

var printer = message.NewPrinter(language.AmericanEnglish)

type Handler struct {
	config *Config
	now    func() time.Time
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// WithClock overrides the clock used for the proposal id and timestamp.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) Stage() models.StageName { return models.StageCommunication }

// Execute renders the proposal preview and the broker cover email.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if input.Premium <= 0 {
		return nil, fmt.Errorf("proposal communication: premium must be positive, got %d", input.Premium)
	}

	operation := input.OperationType
	if operation == "" {
		operation = h.config.DefaultOperation
	}

	data := map[string]interface{}{
		"insuredName":    input.InsuredName,
		"brokerName":     input.BrokerName,
		"operation":      operation,
		"operationLower": strings.ToLower(operation),
		"band":           string(input.RiskBand),
		"bandLabel":      input.RiskBand.Label(),
		"premium":        FormatAmount(input.Premium),
		"vehicleCount":   input.VehicleCount,
		"baseRate":       FormatAmount(input.BaseRatePerVehicle),
		"effectiveDate":  displayDate(input.EffectiveDate),
		"validityDays":   h.config.ValidityDays,
		"signature":      h.config.Signature,
	}
	coverage := models.CoverageOutput{Recommended: input.Coverages}
	if c, ok := coverage.Find(coveragerecommendation.CoverageLiability); ok {
		data["liabilityLimits"] = c.Limits
	}
	if c, ok := coverage.Find(coveragerecommendation.CoveragePhysicalDamage); ok {
		data["pdLimits"] = c.Limits
		data["pdDeductible"] = c.Deductible
	}
	if c, ok := coverage.Find(coveragerecommendation.CoverageHiredNonOwned); ok {
		data["hnoaLimits"] = c.Limits
	}

	now := h.now()
	out := &Output{
		ProposalText: templating.Render(proposalTemplate, data),
		EmailBody:    templating.Render(emailTemplate, data),
		ProposalID:   fmt.Sprintf("PROP-%d", now.UnixMilli()),
		GeneratedAt:  models.Timestamp(now),
	}

	h.logger.Debug("proposal generated", map[string]interface{}{
		"submissionId": input.SubmissionID,
		"proposalId":   out.ProposalID,
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
	return out, []models.AgentLog{
		{RuleID: "KB-TEMP-401", Message: "Proposal rendered from commercial auto template"},
		{RuleID: "KB-COMM-234", Message: fmt.Sprintf("Cover email drafted for %s", input.BrokerName)},
		{RuleID: "KB-DISC-167", Message: fmt.Sprintf("Validity disclosure: %d days, subject to final approval", h.config.ValidityDays)},
	}, nil
}

// FormatAmount renders whole dollars with thousands separators.
func FormatAmount(n int) string {
	return printer.Sprintf("%d", n)
}

func displayDate(isoDate string) string {
	t, err := time.Parse(time.DateOnly, isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("1/2/2006")
}
