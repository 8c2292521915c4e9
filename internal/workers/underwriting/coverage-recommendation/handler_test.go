// internal/workers/underwriting/coverage-recommendation/handler_test.go
package coveragerecommendation

import (
	"context"
	"testing"
	"time"

	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *Handler {
	return NewHandler(LoadConfig(), logger.NewTestLogger(t))
}

func TestHandler_Execute_ByBand(t *testing.T) {
	tests := []struct {
		band          models.RiskBand
		wantLiability string
		wantPDDeduct  string
	}{
		{models.BandA, "$1,000,000 CSL", "$1,000"},
		{models.BandB, "$750,000 CSL", "$2,500"},
		{models.BandC, "$750,000 CSL", "$2,500"},
	}

	for _, tt := range tests {
		t.Run(string(tt.band), func(t *testing.T) {
			out, err := newTestHandler(t).Execute(context.Background(), &Input{SubmissionID: "sub-1", RiskBand: tt.band})
			require.NoError(t, err)
			require.Len(t, out.Recommended, 3)

			liability, ok := out.Find(CoverageLiability)
			require.True(t, ok)
			assert.Equal(t, tt.wantLiability, liability.Limits)
			assert.Equal(t, "CR-001", liability.KBRuleID)

			pd, ok := out.Find(CoveragePhysicalDamage)
			require.True(t, ok)
			assert.Equal(t, "ACV", pd.Limits)
			assert.Equal(t, tt.wantPDDeduct, pd.Deductible)

			hnoa, ok := out.Find(CoverageHiredNonOwned)
			require.True(t, ok)
			assert.Equal(t, "$1,000,000", hnoa.Limits)
			assert.Equal(t, "CR-023", hnoa.KBRuleID)
		})
	}
}

func TestHandler_Execute_UnknownBand(t *testing.T) {
	_, err := newTestHandler(t).Execute(context.Background(), &Input{RiskBand: "D"})
	assert.Error(t, err)
}

func TestHandler_Run(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	sub := models.NewSubmission("sub-1", "b", "i", "", nil, now)

	_, _, err := newTestHandler(t).Run(context.Background(), sub)
	assert.ErrorIs(t, err, ErrRiskMissing)

	sub.Stages.Risk = sub.Stages.Risk.Start(now).Complete(&models.RiskOutput{OverallRiskScore: 84, RiskBand: models.BandA}, nil, now)
	out, logs, err := newTestHandler(t).Run(context.Background(), sub)
	require.NoError(t, err)
	assert.Len(t, logs, 4)
	assert.Equal(t, models.StageCoverage, out.Stage())
}
