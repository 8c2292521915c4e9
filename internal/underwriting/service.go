// Package underwriting is the application layer the API drives: broker
// submissions, pipeline runs, underwriter decisions and policy issuance.
package underwriting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"auto-uw-agent/internal/agent"
	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/validation"
	"auto-uw-agent/internal/models"
	"auto-uw-agent/internal/notification"
	"auto-uw-agent/internal/search"
	"auto-uw-agent/internal/store"

	"github.com/google/uuid"
)

type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

type Notifier interface {
	SendProposal(ctx context.Context, sub models.Submission, comm *models.CommunicationOutput) (*notification.Result, error)
	RequestInfo(ctx context.Context, sub models.Submission, req notification.InfoRequest) (*notification.Result, error)
}

type Service struct {
	store    *store.Store
	manager  *agent.Manager
	searcher Searcher
	notifier Notifier
	now      func() time.Time
	newID    func() string
	logger   logger.Logger
}

type Option func(*Service)

// WithSearcher routes Search through an index instead of scanning the store.
func WithSearcher(s Searcher) Option {
	return func(svc *Service) { svc.searcher = s }
}

func WithNotifier(n Notifier) Option {
	return func(svc *Service) { svc.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func WithIDGenerator(f func() string) Option {
	return func(svc *Service) { svc.newID = f }
}

func NewService(st *store.Store, manager *agent.Manager, log logger.Logger, opts ...Option) *Service {
	svc := &Service{
		store:   st,
		manager: manager,
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  log.WithFields(map[string]interface{}{"component": "underwriting"}),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Submit validates a broker submission and stores it with all stages idle.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (models.Submission, error) {
	req.BrokerName = strings.TrimSpace(req.BrokerName)
	req.InsuredName = strings.TrimSpace(req.InsuredName)
	req.BrokerEmail = strings.TrimSpace(req.BrokerEmail)
	req.BrokerPhone = strings.TrimSpace(req.BrokerPhone)
	req.OperationType = strings.TrimSpace(req.OperationType)

	if result := submitSchema.Validate(req); !result.Valid {
		return models.Submission{}, errors.NewSubmissionValidationFailedError(result.Error())
	}
	if req.BrokerEmail != "" && !validation.ValidateEmail(req.BrokerEmail) {
		return models.Submission{}, errors.NewSubmissionValidationFailedError("brokerEmail: invalid email format")
	}
	if req.BrokerPhone != "" && !validation.ValidatePhone(req.BrokerPhone) {
		return models.Submission{}, errors.NewSubmissionValidationFailedError("brokerPhone: invalid phone format")
	}

	op := req.OperationType
	if op == "" {
		op = models.DefaultOperationType
	}

	sub := models.NewSubmission(s.newID(), req.BrokerName, req.InsuredName, op, req.Documents, s.now())
	sub.BrokerEmail = req.BrokerEmail
	sub.BrokerPhone = req.BrokerPhone
	sub.Business = req.Business

	if err := s.store.Save(ctx, sub); err != nil {
		return models.Submission{}, err
	}

	s.logger.Info("submission received", map[string]interface{}{
		"submissionId": sub.ID,
		"insuredName":  sub.InsuredName,
		"documents":    len(sub.Documents),
	})
	return sub, nil
}

func (s *Service) Get(ctx context.Context, id string) (models.Submission, error) {
	sub, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return models.Submission{}, err
	}
	if !ok {
		return models.Submission{}, errors.NewSubmissionNotFoundError(id)
	}
	return sub, nil
}

// List returns every submission, newest first, optionally restricted to one status.
func (s *Service) List(ctx context.Context, status models.SubmissionStatus) ([]models.Submission, error) {
	if status != "" && !status.Valid() {
		return nil, errors.NewSubmissionValidationFailedError(fmt.Sprintf("status: unknown value %q", status))
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return all, nil
	}
	out := make([]models.Submission, 0, len(all))
	for _, sub := range all {
		if sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, nil
}

// Search queries the index when one is configured, and otherwise scans the
// store for a case-insensitive substring of insured, broker or operation.
func (s *Service) Search(ctx context.Context, q Query) (*SearchResult, error) {
	if s.searcher != nil {
		return s.searchIndex(ctx, q)
	}

	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	text := strings.ToLower(strings.TrimSpace(q.Text))
	matches := make([]models.Submission, 0)
	for _, sub := range all {
		if q.Status != "" && string(sub.Status) != q.Status {
			continue
		}
		if q.RiskBand != "" {
			risk, ok := sub.Stages.RiskOutput()
			if !ok || string(risk.RiskBand) != q.RiskBand {
				continue
			}
		}
		if text != "" && !matchesText(sub, text) {
			continue
		}
		matches = append(matches, sub)
	}

	result := &SearchResult{Total: int64(len(matches)), Source: SourceStore}
	result.Submissions = page(matches, q.From, q.Size)
	return result, nil
}

func (s *Service) searchIndex(ctx context.Context, q Query) (*SearchResult, error) {
	res, err := s.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	all, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Submission, len(all))
	for _, sub := range all {
		byID[sub.ID] = sub
	}

	// The index may trail the store; hits for ids the store no longer has are dropped.
	out := &SearchResult{Total: res.Total, Source: SourceIndex, Submissions: make([]models.Submission, 0, len(res.Hits))}
	for _, hit := range res.Hits {
		if sub, ok := byID[hit.ID]; ok {
			out.Submissions = append(out.Submissions, sub)
		}
	}
	return out, nil
}

func matchesText(sub models.Submission, text string) bool {
	for _, field := range []string{sub.InsuredName, sub.BrokerName, sub.OperationType} {
		if strings.Contains(strings.ToLower(field), text) {
			return true
		}
	}
	return false
}

func page(subs []models.Submission, from, size int) []models.Submission {
	if from < 0 {
		from = 0
	}
	if size < 1 {
		size = 20
	}
	if size > 100 {
		size = 100
	}
	if from >= len(subs) {
		return []models.Submission{}
	}
	end := from + size
	if end > len(subs) {
		end = len(subs)
	}
	return subs[from:end]
}

// RunPipeline starts a background run. It reports false when a run for id
// is already in flight.
func (s *Service) RunPipeline(ctx context.Context, id string) (bool, error) {
	if _, err := s.manager.Pipeline().Load(ctx, id); err != nil {
		return false, err
	}
	started := s.manager.Start(id)
	s.logger.Info("pipeline run requested", map[string]interface{}{
		"submissionId": id,
		"started":      started,
	})
	return started, nil
}

// PipelineState reports the live run for id. Outside a run it is built from
// the stored submission, keeping the last run's error if this process saw one.
func (s *Service) PipelineState(ctx context.Context, id string) (agent.State, error) {
	live, seen := s.manager.State(id)
	if seen && live.Running {
		return live, nil
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return agent.State{}, err
	}
	stage, _ := sub.Stages.Running()
	return agent.State{
		SubmissionID: id,
		CurrentStage: stage,
		Error:        live.Error,
		Snapshot:     &sub,
		Progress:     sub.Stages.Progress(false),
	}, nil
}

// Decide records the underwriter's decision on a completed submission.
func (s *Service) Decide(ctx context.Context, id string, d Decision) (models.Submission, error) {
	d.Action = strings.ToLower(strings.TrimSpace(d.Action))
	if result := decisionSchema.Validate(d); !result.Valid {
		return models.Submission{}, errors.NewSubmissionValidationFailedError(result.Error())
	}

	next := models.StatusQuoted
	if d.Action == ActionDecline {
		next = models.StatusDeclined
	}

	sub, err := s.transition(ctx, id, d.Action, models.StatusCompleted, func(sub models.Submission) (models.Submission, error) {
		sub.Status = next
		if notes := strings.TrimSpace(d.Notes); notes != "" {
			if sub.Business == nil {
				sub.Business = &models.BusinessInfo{}
			}
			if sub.Business.UnderwriterNotes != "" {
				sub.Business.UnderwriterNotes += "\n"
			}
			sub.Business.UnderwriterNotes += notes
		}
		return sub, nil
	})
	if err != nil {
		return models.Submission{}, err
	}

	s.logger.Info("underwriter decision recorded", map[string]interface{}{
		"submissionId": id,
		"action":       d.Action,
		"status":       sub.Status,
	})
	return sub, nil
}

// IssuePolicy binds a quoted submission.
func (s *Service) IssuePolicy(ctx context.Context, id string, req IssueRequest) (models.Submission, error) {
	now := s.now()
	sub, err := s.transition(ctx, id, "issue policy", models.StatusQuoted, func(sub models.Submission) (models.Submission, error) {
		rate, ok := sub.Stages.RateOutput()
		if !ok {
			return sub, errors.NewSubmissionValidationFailedError("rate stage has no premium")
		}
		coverage, ok := sub.Stages.CoverageOutput()
		if !ok {
			return sub, errors.NewSubmissionValidationFailedError("coverage stage has no recommendations")
		}

		policy, err := policyTerms(req, rate, now)
		if err != nil {
			return sub, err
		}
		policy.Premium = rate.Premium
		policy.Coverages = append([]models.CoverageRecommended(nil), coverage.Recommended...)

		sub.Policy = policy
		sub.Status = models.StatusIssued
		return sub, nil
	})
	if err != nil {
		return models.Submission{}, err
	}

	s.logger.Info("policy issued", map[string]interface{}{
		"submissionId": id,
		"policyNumber": sub.Policy.PolicyNumber,
		"premium":      sub.Policy.Premium,
	})
	return sub, nil
}

func policyTerms(req IssueRequest, rate *models.RateOutput, now time.Time) (*models.PolicyData, error) {
	p := &models.PolicyData{
		PolicyNumber:   strings.TrimSpace(req.PolicyNumber),
		EffectiveDate:  strings.TrimSpace(req.EffectiveDate),
		ExpirationDate: strings.TrimSpace(req.ExpirationDate),
		BrokerNotes:    strings.TrimSpace(req.BrokerNotes),
		IssuedAt:       models.Timestamp(now),
	}
	if p.PolicyNumber == "" {
		p.PolicyNumber = fmt.Sprintf("POL-%d", now.UnixMilli())
	}
	if p.EffectiveDate == "" {
		p.EffectiveDate = rate.EffectiveDate
		if p.EffectiveDate == "" {
			p.EffectiveDate = models.DateOnly(now)
		}
	}

	effective, err := time.Parse(time.DateOnly, p.EffectiveDate)
	if err != nil {
		return nil, errors.NewSubmissionValidationFailedError("effectiveDate: expected YYYY-MM-DD")
	}
	if p.ExpirationDate == "" {
		if req.EffectiveDate == "" && rate.ExpirationDate != "" {
			p.ExpirationDate = rate.ExpirationDate
		} else {
			p.ExpirationDate = models.DateOnly(effective.AddDate(1, 0, 0))
		}
	}
	expiration, err := time.Parse(time.DateOnly, p.ExpirationDate)
	if err != nil {
		return nil, errors.NewSubmissionValidationFailedError("expirationDate: expected YYYY-MM-DD")
	}
	if !expiration.After(effective) {
		return nil, errors.NewSubmissionValidationFailedError("expirationDate must be after effectiveDate")
	}
	return p, nil
}

// transition applies fn to the submission when its status is from, and
// fails with INVALID_STATUS_TRANSITION otherwise.
func (s *Service) transition(ctx context.Context, id, action string, from models.SubmissionStatus, fn func(models.Submission) (models.Submission, error)) (models.Submission, error) {
	if s.manager.Running(id) {
		return models.Submission{}, errors.NewInvalidStatusTransitionError(string(models.StatusProcessing), action)
	}

	var fnErr error
	updated, found, err := s.store.Update(ctx, id, func(sub models.Submission) models.Submission {
		if sub.Status != from {
			fnErr = errors.NewInvalidStatusTransitionError(string(sub.Status), action)
			return sub
		}
		next, err := fn(sub)
		if err != nil {
			fnErr = err
			return sub
		}
		next.Touch(s.now())
		return next
	})
	if err != nil {
		return models.Submission{}, err
	}
	if !found {
		return models.Submission{}, errors.NewSubmissionNotFoundError(id)
	}
	if fnErr != nil {
		return models.Submission{}, fnErr
	}
	return updated, nil
}

// SendProposal emails the drafted proposal to the broker.
func (s *Service) SendProposal(ctx context.Context, id string) (*notification.Result, error) {
	if s.notifier == nil {
		return &notification.Result{Status: notification.StatusDisabled, Channels: []string{}}, nil
	}
	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	comm, ok := sub.Stages.CommunicationOutput()
	if !ok {
		return nil, errors.NewInvalidStatusTransitionError(string(sub.Status), "send proposal")
	}
	return s.notifier.SendProposal(ctx, sub, comm)
}

// RequestInfo asks the broker for more information.
func (s *Service) RequestInfo(ctx context.Context, id string, req notification.InfoRequest) (*notification.Result, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)
	req.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	if req.Priority == "" {
		req.Priority = "normal"
	}

	var problems []string
	if req.Subject == "" {
		problems = append(problems, "subject: is required")
	}
	if req.Message == "" {
		problems = append(problems, "message: is required")
	}
	if !notification.ValidPriority(req.Priority) {
		problems = append(problems, fmt.Sprintf("priority: unknown value %q", req.Priority))
	}
	if len(problems) > 0 {
		return nil, errors.NewSubmissionValidationFailedError(strings.Join(problems, "; "))
	}

	sub, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.notifier == nil {
		return &notification.Result{Status: notification.StatusDisabled, Channels: []string{}}, nil
	}
	return s.notifier.RequestInfo(ctx, sub, req)
}

// Dashboard aggregates the whole book.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{ActiveSubmissions: len(all), ByStatus: make(map[models.SubmissionStatus]int)}
	for _, sub := range all {
		d.ByStatus[sub.Status]++
		if intake, ok := sub.Stages.IntakeOutput(); ok {
			d.TotalVehicles += intake.VehicleCount()
		}
		if rate, ok := sub.Stages.RateOutput(); ok {
			d.PipelinePremium += rate.Premium
		}
		risk, hasRisk := sub.Stages.RiskOutput()
		if sub.Status == models.StatusSubmitted || (hasRisk && risk.RiskBand == models.BandC) {
			d.HighPriority++
		}
		if s.manager.Running(sub.ID) {
			d.RunningPipelines++
		}
	}
	return d, nil
}
