// pkg/registry/default.go
package registry

var stageErrors = []string{"SUBMISSION_NOT_FOUND", "INVALID_STATUS_TRANSITION", "STAGE_EXECUTION_FAILED", "STORAGE_WRITE_FAILED"}

// Default returns the built-in catalog of the five stage agents.
func Default() *AgentRegistry {
	reg := &AgentRegistry{
		Version:     "1.0.0",
		LastUpdated: "2025-03-15",
		Agents: []Agent{
			{
				ID:          "intake",
				DisplayName: "Submission Intake",
				Summary:     "Extract data from docs",
				Description: "Extracts and structures data from submission documents",
				TaskType:    "uw-intake",
				KnowledgeBase: []KnowledgeRef{
					{Rule: "Document parsing rules", Source: "KB-DOC-001", Description: "Standard data extraction patterns"},
					{Rule: "Vehicle classification", Source: "KB-VEH-015", Description: "Commercial vehicle categorization rules"},
					{Rule: "Operation type mapping", Source: "KB-OPS-007", Description: "Business operation classifications"},
				},
				DecisionProcess: []DecisionStep{
					{Step: 1, Action: "Document Analysis", Description: "Parsed submission documents using OCR and NLP"},
					{Step: 2, Action: "Data Extraction", Description: "Extracted structured data: vehicles, drivers, operations"},
					{Step: 3, Action: "Validation", Description: "Cross-referenced data for consistency and completeness"},
					{Step: 4, Action: "Confidence Scoring", Description: "Assigned confidence scores to extracted information"},
				},
			},
			{
				ID:          "risk",
				DisplayName: "Risk Profiling",
				Summary:     "Score & analyze risk",
				Description: "Analyzes risk factors and assigns risk scores",
				TaskType:    "uw-risk",
				KnowledgeBase: []KnowledgeRef{
					{Rule: "Risk scoring matrix", Source: "KB-RISK-101", Description: "Base risk assessment criteria"},
					{Rule: "Fleet size factors", Source: "KB-FLEET-023", Description: "Fleet size risk adjustments"},
					{Rule: "Loss frequency rules", Source: "KB-LOSS-045", Description: "Historical loss impact scoring"},
				},
				DecisionProcess: []DecisionStep{
					{Step: 1, Action: "Factor Analysis", Description: "Analyzed vehicle types, driver profiles, and operation details"},
					{Step: 2, Action: "Rule Application", Description: "Applied risk assessment rules from knowledge base"},
					{Step: 3, Action: "Score Calculation", Description: "Computed overall risk score using weighted factors"},
					{Step: 4, Action: "Band Assignment", Description: "Assigned risk band based on score thresholds"},
				},
			},
			{
				ID:          "coverage",
				DisplayName: "Coverage Determination",
				Summary:     "Recommend coverages",
				Description: "Determines appropriate coverage recommendations",
				TaskType:    "uw-coverage",
				KnowledgeBase: []KnowledgeRef{
					{Rule: "Coverage standards", Source: "KB-COV-201", Description: "Minimum coverage requirements"},
					{Rule: "Industry guidelines", Source: "KB-IND-078", Description: "Commercial auto best practices"},
					{Rule: "Regulatory compliance", Source: "KB-REG-134", Description: "State-specific requirements"},
				},
				DecisionProcess: []DecisionStep{
					{Step: 1, Action: "Risk Assessment", Description: "Reviewed risk profile and operational exposures"},
					{Step: 2, Action: "Regulatory Check", Description: "Verified minimum coverage requirements by jurisdiction"},
					{Step: 3, Action: "Best Practice Application", Description: "Applied industry standards for similar operations"},
					{Step: 4, Action: "Recommendation Generation", Description: "Generated tailored coverage recommendations"},
				},
			},
			{
				ID:          "rate",
				DisplayName: "Pricing",
				Summary:     "Calculate premium",
				Description: "Calculates premium rates and adjustments",
				TaskType:    "uw-rate",
				KnowledgeBase: []KnowledgeRef{
					{Rule: "Base rate tables", Source: "KB-RATE-301", Description: "Territory and class base rates"},
					{Rule: "Adjustment factors", Source: "KB-ADJ-156", Description: "Risk-based rate modifications"},
					{Rule: "Fleet discounts", Source: "KB-DISC-089", Description: "Volume-based pricing adjustments"},
				},
				DecisionProcess: []DecisionStep{
					{Step: 1, Action: "Base Rate Lookup", Description: "Retrieved base rates for territory and vehicle classes"},
					{Step: 2, Action: "Risk Adjustment", Description: "Applied risk-based modifications to base rates"},
					{Step: 3, Action: "Factor Application", Description: "Applied fleet size, telematics, and other adjustments"},
					{Step: 4, Action: "Premium Calculation", Description: "Calculated final premium with all adjustments"},
				},
			},
			{
				ID:          "communication",
				DisplayName: "Draft Email Template",
				Summary:     "Generate email & proposal",
				Description: "Generates proposals and communication content",
				TaskType:    "uw-communication",
				KnowledgeBase: []KnowledgeRef{
					{Rule: "Proposal templates", Source: "KB-TEMP-401", Description: "Standard proposal formatting"},
					{Rule: "Communication standards", Source: "KB-COMM-234", Description: "Professional correspondence guidelines"},
					{Rule: "Regulatory disclosures", Source: "KB-DISC-167", Description: "Required legal disclosures"},
				},
				DecisionProcess: []DecisionStep{},
			},
		},
	}
	for i := range reg.Agents {
		a := &reg.Agents[i]
		a.Version = "1.0.0"
		a.ErrorCodes = append([]string(nil), stageErrors...)
		a.Timeout = "30s"
		a.Retries = 3
	}
	return reg
}
