// Package notification sends broker correspondence over SES and SNS.
package notification

import (
	"context"
	"strings"
	"time"

	awsclients "auto-uw-agent/internal/common/aws"
	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/templating"
	"auto-uw-agent/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Delivery statuses.
const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

// Channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

// Priorities, lowest first.
var priorities = []string{"low", "normal", "high", "urgent"}

type Config struct {
	EmailEnabled      bool
	SMSEnabled        bool
	FromEmail         string
	PriorityThreshold string // lowest priority that also goes out by SMS
}

// InfoRequest asks the broker for more information about a submission.
type InfoRequest struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
}

// Result records what was delivered.
type Result struct {
	NotificationID string   `json:"notificationId"`
	Status         string   `json:"status"`
	Channels       []string `json:"channels"`
	SentAt         string   `json:"sentAt"`
}

type Notifier struct {
	config Config
	ses    SESService
	sns    SNSService
	now    func() time.Time
	logger logger.Logger
}

func NewNotifier(config Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Notifier {
	if config.PriorityThreshold == "" {
		config.PriorityThreshold = "high"
	}
	return &Notifier{
		config: config,
		ses:    sesClient,
		sns:    snsClient,
		now:    time.Now,
		logger: log.WithFields(map[string]interface{}{"component": "notifier"}),
	}
}

// SendProposal emails the drafted cover letter and proposal to the broker.
func (n *Notifier) SendProposal(ctx context.Context, sub models.Submission, comm *models.CommunicationOutput) (*Result, error) {
	subject := templating.Render(proposalSubject, map[string]interface{}{
		"insuredName": sub.InsuredName,
		"proposalId":  comm.ProposalID,
	})
	body := comm.EmailBody + "\n\n" + comm.ProposalText
	return n.deliver(ctx, sub, subject, body, "", "normal")
}

// RequestInfo sends an information request. Requests at or above the
// priority threshold also go out by SMS.
func (n *Notifier) RequestInfo(ctx context.Context, sub models.Submission, req InfoRequest) (*Result, error) {
	data := map[string]interface{}{
		"brokerName":   sub.BrokerName,
		"insuredName":  sub.InsuredName,
		"submissionId": sub.ID,
		"subject":      req.Subject,
		"message":      req.Message,
		"priority":     strings.ToUpper(req.Priority),
	}
	subject := templating.Render(infoRequestSubject, data)
	body := templating.Render(infoRequestBody, data)
	sms := templating.Render(infoRequestSMS, data)
	return n.deliver(ctx, sub, subject, body, sms, req.Priority)
}

func (n *Notifier) deliver(ctx context.Context, sub models.Submission, subject, body, sms, priority string) (*Result, error) {
	result := &Result{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		Channels:       []string{},
		SentAt:         models.Timestamp(n.now()),
	}
	log := n.logger.WithFields(map[string]interface{}{
		"submissionId":   sub.ID,
		"notificationId": result.NotificationID,
	})

	if n.config.EmailEnabled && sub.BrokerEmail != "" {
		in := awsclients.TextEmail(n.config.FromEmail, sub.BrokerEmail, subject, body)
		if _, err := n.ses.SendEmail(ctx, in); err != nil {
			log.WithError(err).Error("email send failed", nil)
			return nil, errors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		result.Channels = append(result.Channels, ChannelEmail)
	}

	if n.config.SMSEnabled && sms != "" && sub.BrokerPhone != "" && AtLeast(priority, n.config.PriorityThreshold) {
		if _, err := n.sns.Publish(ctx, awsclients.SMS(sub.BrokerPhone, sms)); err != nil {
			log.WithError(err).Error("SMS send failed", nil)
			return nil, errors.NewNotificationSendFailedError(ChannelSMS, err)
		}
		result.Channels = append(result.Channels, ChannelSMS)
	}

	if len(result.Channels) > 0 {
		result.Status = StatusSent
	}
	log.Info("notification processed", map[string]interface{}{
		"status":   result.Status,
		"channels": result.Channels,
	})
	return result, nil
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	return rank(p) >= 0
}

// AtLeast reports whether priority p ranks at or above threshold.
func AtLeast(p, threshold string) bool {
	r := rank(p)
	return r >= 0 && r >= rank(threshold)
}

func rank(p string) int {
	for i, v := range priorities {
		if v == p {
			return i
		}
	}
	return -1
}

const (
	proposalSubject    = "Commercial Auto Proposal - {{insuredName}} ({{proposalId}})"
	infoRequestSubject = "[{{priority}}] {{subject}} - {{insuredName}}"
	infoRequestBody    = `Dear {{brokerName}},

We need additional information to continue underwriting the submission for {{insuredName}} (reference {{submissionId}}).

{{message}}

Please reply to this email with the requested details.

Underwriting Department`
	infoRequestSMS = "Underwriting request for {{insuredName}}: {{subject}}. Check your email for details."
)
