package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"auto-uw-agent/internal/common/errors"
	"auto-uw-agent/internal/common/logger"
	"auto-uw-agent/internal/common/metrics"
	"auto-uw-agent/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobInput is the process variable set a stage job needs.
type JobInput struct {
	SubmissionID string `json:"submissionId"`
}

// JobOutput is merged back into the process instance on completion.
type JobOutput struct {
	SubmissionID     string                  `json:"submissionId"`
	Stage            models.StageName        `json:"stage"`
	StageStatus      models.StageStatus      `json:"stageStatus"`
	SubmissionStatus models.SubmissionStatus `json:"submissionStatus"`
	RiskBand         models.RiskBand         `json:"riskBand,omitempty"`
	Premium          int                     `json:"premium,omitempty"`
}

// StageJobHandler runs one stage per Zeebe job so a BPMN process can drive
// the pipeline one task at a time.
type StageJobHandler struct {
	pipeline     *Pipeline
	agent        StageAgent
	taskType     string
	timeout      time.Duration
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewStageJobHandler(p *Pipeline, agent StageAgent, timeout time.Duration, log logger.Logger) *StageJobHandler {
	taskType := TaskTypes[agent.Stage()]
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StageJobHandler{
		pipeline:     p,
		agent:        agent,
		taskType:     taskType,
		timeout:      timeout,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *StageJobHandler) TaskType() string { return h.taskType }

func (h *StageJobHandler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	output, err := h.Process(ctx, job.Variables)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(h.taskType, string(errors.Normalize(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.errorHandler.HandleJobError(ctx, client, job, errors.NewInternalError(err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.WithError(err).Error("failed to complete job", map[string]interface{}{"jobKey": job.Key})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(h.taskType).Inc()
	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":       job.Key,
		"submissionId": output.SubmissionID,
	})
}

// Process parses the job variables and executes the handler's stage.
func (h *StageJobHandler) Process(ctx context.Context, variables string) (*JobOutput, error) {
	var input JobInput
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewSubmissionValidationFailedError(fmt.Sprintf("parse job variables: %v", err))
	}
	if input.SubmissionID == "" {
		return nil, errors.NewSubmissionValidationFailedError("submissionId is required")
	}

	if _, err := h.pipeline.Load(ctx, input.SubmissionID); err != nil {
		return nil, err
	}

	sub, err := h.pipeline.ExecuteStage(ctx, input.SubmissionID, h.agent)
	if err != nil {
		return nil, err
	}

	stage := h.agent.Stage()
	result, _ := sub.Stages.Get(stage)
	out := &JobOutput{
		SubmissionID:     sub.ID,
		Stage:            stage,
		StageStatus:      result.Status,
		SubmissionStatus: sub.Status,
	}
	if risk, ok := sub.Stages.RiskOutput(); ok {
		out.RiskBand = risk.RiskBand
	}
	if rate, ok := sub.Stages.RateOutput(); ok {
		out.Premium = rate.Premium
	}
	return out, nil
}
