// internal/models/stage_outputs.go
package models

// ==========================
// Intake
// ==========================

type IntakeOutput struct {
	InsuredInfo InsuredInfo      `json:"insured_info"`
	Vehicles    VehicleSchedule  `json:"vehicles"`
	Drivers     DriverSchedule   `json:"drivers"`
	LossHistory LossHistory      `json:"loss_history"`
	Telematics  TelematicsSignal `json:"telematics"`
}

func (*IntakeOutput) Stage() StageName { return StageIntake }

// VehicleCount is the fleet size extracted at intake.
func (o *IntakeOutput) VehicleCount() int { return len(o.Vehicles.Items) }

type InsuredInfo struct {
	InsuredName   string  `json:"insured_name"`
	OperationType string  `json:"operation_type"`
	Confidence    float64 `json:"confidence"`
}

type Vehicle struct {
	VIN   string `json:"vin"`
	Year  int    `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
	Use   string `json:"use"`
}

type VehicleSchedule struct {
	Items      []Vehicle `json:"items"`
	Confidence float64   `json:"confidence"`
}

type Driver struct {
	Name         string `json:"name"`
	Age          int    `json:"age"`
	LicenseYears int    `json:"licenseYears"`
}

type DriverSchedule struct {
	Items      []Driver `json:"items"`
	Confidence float64  `json:"confidence"`
}

type Loss struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Incurred    int    `json:"incurred"`
}

type LossHistory struct {
	Items      []Loss  `json:"items"`
	Confidence float64 `json:"confidence"`
}

type TelematicsSignal struct {
	HasTelemetry bool    `json:"has_telemetry"`
	Confidence   float64 `json:"confidence"`
}

// ==========================
// Risk
// ==========================

// RiskBand is the coarse A/B/C risk classification.
type RiskBand string

const (
	BandA RiskBand = "A"
	BandB RiskBand = "B"
	BandC RiskBand = "C"
)

// BandForScore maps a risk score to its band: 80 and above is A,
// 70 through 79 is B, anything lower is C.
func BandForScore(score int) RiskBand {
	switch {
	case score >= 80:
		return BandA
	case score >= 70:
		return BandB
	default:
		return BandC
	}
}

// Label is the human-readable risk level for the band.
func (b RiskBand) Label() string {
	switch b {
	case BandA:
		return "Low"
	case BandB:
		return "Moderate"
	default:
		return "High"
	}
}

type RiskOutput struct {
	OverallRiskScore int        `json:"overall_risk_score"`
	RiskBand         RiskBand   `json:"risk_band"`
	AppliedRules     []AgentLog `json:"applied_rules"`
}

func (*RiskOutput) Stage() StageName { return StageRisk }

// ==========================
// Coverage
// ==========================

type CoverageRecommended struct {
	Coverage   string `json:"coverage"`
	Limits     string `json:"limits"`
	Deductible string `json:"deductible"`
	KBRuleID   string `json:"kb_rule_id"`
}

type CoverageOutput struct {
	Recommended []CoverageRecommended `json:"recommended"`
}

func (*CoverageOutput) Stage() StageName { return StageCoverage }

// Find returns the recommendation for the named coverage line.
func (o *CoverageOutput) Find(coverage string) (CoverageRecommended, bool) {
	for _, c := range o.Recommended {
		if c.Coverage == coverage {
			return c, true
		}
	}
	return CoverageRecommended{}, false
}

// ==========================
// Rate
// ==========================

type RateAdjustment struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	AmountPct int    `json:"amountPct"`
}

type RateOutput struct {
	Base               int              `json:"base"`
	BaseRatePerVehicle int              `json:"baseRatePerVehicle"`
	VehicleCount       int              `json:"vehicleCount"`
	Adjustments        []RateAdjustment `json:"adjustments"`
	Premium            int              `json:"premium"`
	EffectiveDate      string           `json:"effectiveDate"`
	ExpirationDate     string           `json:"expirationDate"`
}

func (*RateOutput) Stage() StageName { return StageRate }

// ==========================
// Communication
// ==========================

type CommunicationOutput struct {
	ProposalText string `json:"proposal_package_pdf_preview"`
	EmailBody    string `json:"email_body"`
	ProposalID   string `json:"proposal_id"`
	GeneratedAt  string `json:"generated_at"`
}

func (*CommunicationOutput) Stage() StageName { return StageCommunication }

// ==========================
// Typed accessors
// ==========================

// IntakeOutput returns the intake output once that stage is done.
func (s Stages) IntakeOutput() (*IntakeOutput, bool) {
	o, ok := s.Intake.Output.(*IntakeOutput)
	return o, ok && s.Intake.Status == StageDone
}

// RiskOutput returns the risk output once that stage is done.
func (s Stages) RiskOutput() (*RiskOutput, bool) {
	o, ok := s.Risk.Output.(*RiskOutput)
	return o, ok && s.Risk.Status == StageDone
}

// CoverageOutput returns the coverage output once that stage is done.
func (s Stages) CoverageOutput() (*CoverageOutput, bool) {
	o, ok := s.Coverage.Output.(*CoverageOutput)
	return o, ok && s.Coverage.Status == StageDone
}

// RateOutput returns the rate output once that stage is done.
func (s Stages) RateOutput() (*RateOutput, bool) {
	o, ok := s.Rate.Output.(*RateOutput)
	return o, ok && s.Rate.Status == StageDone
}

// CommunicationOutput returns the communication output once that stage is done.
func (s Stages) CommunicationOutput() (*CommunicationOutput, bool) {
	o, ok := s.Communication.Output.(*CommunicationOutput)
	return o, ok && s.Communication.Status == StageDone
}
