// internal/workers/underwriting/proposal-communication/handler_test.go
package proposalcommunication

import (
	"context"
	"testing"
	"time"

	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/models"
	coveragerecommendation "auto-uw-agent/internal/workers/underwriting/coverage-recommendation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 15, 16, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t)).WithClock(func() time.Time { return fixedNow })
}

func createTestInput(band models.RiskBand) *Input {
	return &Input{
		SubmissionID:       "sub-1",
		InsuredName:        "Acme Logistics",
		BrokerName:         "Johnson & Co.",
		OperationType:      "Local Delivery",
		RiskBand:           band,
		Coverages:          coveragerecommendation.Recommend(band == models.BandA),
		Premium:            6696,
		VehicleCount:       6,
		BaseRatePerVehicle: 1200,
		EffectiveDate:      "2025-03-15",
	}
}

func TestHandler_Execute_ProposalText(t *testing.T) {
	out, err := newTestHandler(t).Execute(context.Background(), createTestInput(models.BandA))
	require.NoError(t, err)

	for _, want := range []string{
		"Insured: Acme Logistics",
		"Broker: Johnson & Co.",
		"Operation: Local Delivery",
		"- Liability: $1,000,000 CSL",
		"- Physical Damage: ACV with $1,000 deductible",
		"- Hired/Non-Owned Auto: $1,000,000",
		"Premium: $6,696",
		"Effective: 3/15/2025",
		"Risk Assessment: Band A (Low Risk)",
		"Vehicle Count: 6",
		"Base Rate: $1,200 per vehicle",
		"valid for 30 days",
	} {
		assert.Contains(t, out.ProposalText, want)
	}
	assert.NotContains(t, out.ProposalText, "{{")
	assert.Equal(t, "PROP-1742054400000", out.ProposalID)
	assert.Equal(t, models.Timestamp(fixedNow), out.GeneratedAt)
}

func TestHandler_Execute_EmailBody(t *testing.T) {
	input := createTestInput(models.BandC)
	input.OperationType = ""

	out, err := newTestHandler(t).Execute(context.Background(), input)
	require.NoError(t, err)

	assert.Contains(t, out.EmailBody, "Dear Johnson & Co.,")
	assert.Contains(t, out.EmailBody, "your client, Acme Logistics.")
	assert.Contains(t, out.EmailBody, "Annual Premium: $6,696")
	assert.Contains(t, out.EmailBody, "Fleet Size: 6 vehicles")
	assert.Contains(t, out.EmailBody, "Risk Classification: Band C")
	assert.Contains(t, out.EmailBody, "Tailored to commercial operations operations")
	assert.Contains(t, out.ProposalText, "Operation: Commercial Operations")
	assert.Contains(t, out.ProposalText, "Band C (High Risk)")
	assert.Contains(t, out.ProposalText, "- Liability: $750,000 CSL")
}

func TestHandler_Run_RequiresPriorStages(t *testing.T) {
	sub := models.NewSubmission("sub-1", "b", "i", "", nil, fixedNow)
	_, _, err := newTestHandler(t).Run(context.Background(), sub)
	assert.ErrorIs(t, err, ErrPriorStageMissing)
}

func TestHandler_Execute_RejectsZeroPremium(t *testing.T) {
	input := createTestInput(models.BandB)
	input.Premium = 0
	_, err := newTestHandler(t).Execute(context.Background(), input)
	assert.Error(t, err)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "6,696", FormatAmount(6696))
	assert.Equal(t, "1,234,567", FormatAmount(1234567))
	assert.Equal(t, "950", FormatAmount(950))
}

func TestHandler_Execute_NamesWithBracesRenderVerbatim(t *testing.T) {
	input := createTestInput(models.BandB)
	input.InsuredName = "Acme {{brokerName}} Freight"
	input.BrokerName = "Bob"

	for i := 0; i < 20; i++ {
		out, err := newTestHandler(t).Execute(context.Background(), input)
		require.NoError(t, err)
		assert.Contains(t, out.ProposalText, "Insured: Acme {{brokerName}} Freight")
		assert.Contains(t, out.ProposalText, "Broker: Bob")
	}
}
