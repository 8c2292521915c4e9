package underwriting

import (
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/search"
)

// SubmitRequest is a broker's new submission.
type SubmitRequest struct {
	BrokerName    string                `json:"brokerName"`
	BrokerEmail   string                `json:"brokerEmail,omitempty"`
	BrokerPhone   string                `json:"brokerPhone,omitempty"`
	InsuredName   string                `json:"insuredName"`
	OperationType string                `json:"operationType,omitempty"`
	Business      *models.BusinessInfo  `json:"business,omitempty"`
	Documents     []models.DocumentInfo `json:"documents,omitempty"`
}

// Underwriter decisions.
const (
	ActionQuote   = "quote"
	ActionDecline = "decline"
)

type Decision struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

// IssueRequest carries the policy terms chosen at issuance. Blank fields
// take defaults.
type IssueRequest struct {
	PolicyNumber   string `json:"policyNumber,omitempty"`
	EffectiveDate  string `json:"effectiveDate,omitempty"`
	ExpirationDate string `json:"expirationDate,omitempty"`
	BrokerNotes    string `json:"brokerNotes,omitempty"`
}

type SearchResult struct {
	Total       int64               `json:"total"`
	Submissions []models.Submission `json:"submissions"`
	Source      string              `json:"source"`
}

// Search sources.
const (
	SourceIndex = "index"
	SourceStore = "store"
)

// Dashboard summarizes the submission book.
type Dashboard struct {
	ActiveSubmissions int                             `json:"activeSubmissions"`
	TotalVehicles     int                             `json:"totalVehicles"`
	PipelinePremium   int                             `json:"pipelinePremium"`
	HighPriority      int                             `json:"highPriority"`
	ByStatus          map[models.SubmissionStatus]int `json:"byStatus"`
	RunningPipelines  int                             `json:"runningPipelines"`
}

type Query = search.Query
