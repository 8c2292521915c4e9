// internal/models/submission.go
package models

import "time"

// SubmissionStatus is the overall lifecycle status of a submission.
type SubmissionStatus string

const (
	StatusSubmitted  SubmissionStatus = "submitted"
	StatusProcessing SubmissionStatus = "processing"
	StatusCompleted  SubmissionStatus = "completed"
	StatusError      SubmissionStatus = "error"
	StatusDeclined   SubmissionStatus = "declined"
	StatusQuoted     SubmissionStatus = "quoted"
	StatusIssued     SubmissionStatus = "issued"
)

// Valid reports whether s belongs to the closed status set.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusSubmitted, StatusProcessing, StatusCompleted, StatusError,
		StatusDeclined, StatusQuoted, StatusIssued:
		return true
	}
	return false
}

// Decided reports whether an underwriter decision or policy issuance has
// already moved the submission past the pipeline.
func (s SubmissionStatus) Decided() bool {
	return s == StatusDeclined || s == StatusQuoted || s == StatusIssued
}

// DefaultOperationType is used when the broker leaves operation type blank.
const DefaultOperationType = "Local Delivery"

// Submission is one insurance application tracked through the pipeline.
type Submission struct {
	ID            string           `json:"id"`
	BrokerName    string           `json:"brokerName"`
	BrokerEmail   string           `json:"brokerEmail,omitempty"`
	BrokerPhone   string           `json:"brokerPhone,omitempty"`
	InsuredName   string           `json:"insuredName"`
	OperationType string           `json:"operationType,omitempty"`
	Business      *BusinessInfo    `json:"business,omitempty"`
	Documents     []DocumentInfo   `json:"documents"`
	CreatedAt     string           `json:"createdAt"`
	UpdatedAt     string           `json:"updatedAt"`
	Status        SubmissionStatus `json:"status"`
	Stages        Stages           `json:"stages"`
	Policy        *PolicyData      `json:"policyData,omitempty"`
}

// BusinessInfo is optional metadata the broker supplies about the insured.
type BusinessInfo struct {
	YearsInBusiness   int      `json:"yearsInBusiness,omitempty"`
	PrimaryOperations string   `json:"primaryOperations,omitempty"`
	Territories       []string `json:"territories,omitempty"`
	UnderwriterNotes  string   `json:"underwriterNotes,omitempty"`
}

// DocumentInfo describes an attached document. Content is never captured.
type DocumentInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// PolicyData is recorded when a quoted submission is issued as a policy.
type PolicyData struct {
	PolicyNumber   string                `json:"policyNumber"`
	EffectiveDate  string                `json:"effectiveDate"`
	ExpirationDate string                `json:"expirationDate"`
	BrokerNotes    string                `json:"brokerNotes,omitempty"`
	IssuedAt       string                `json:"issuedAt"`
	Premium        int                   `json:"premium"`
	Coverages      []CoverageRecommended `json:"coverages"`
}

// NewSubmission returns a submission in its initial state: status submitted
// and all five stages idle.
func NewSubmission(id, brokerName, insuredName, operationType string, docs []DocumentInfo, now time.Time) Submission {
	ts := Timestamp(now)
	if docs == nil {
		docs = []DocumentInfo{}
	}
	return Submission{
		ID:            id,
		BrokerName:    brokerName,
		InsuredName:   insuredName,
		OperationType: operationType,
		Documents:     docs,
		CreatedAt:     ts,
		UpdatedAt:     ts,
		Status:        StatusSubmitted,
		Stages:        NewStages(),
	}
}

// OperationTypeOr returns the submission's operation type, or fallback when unset.
func (s Submission) OperationTypeOr(fallback string) string {
	if s.OperationType == "" {
		return fallback
	}
	return s.OperationType
}

// Touch refreshes UpdatedAt.
func (s *Submission) Touch(now time.Time) {
	s.UpdatedAt = Timestamp(now)
}

// Timestamp formats t the way every persisted timestamp is written.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// DateOnly formats t as YYYY-MM-DD.
func DateOnly(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
