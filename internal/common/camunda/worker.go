package camunda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/metrics"
	"nyc-kinder-workers/internal/common/observability"
)

// JobRunner carries what every worker needs to turn a zeebe job into a
// call of its execute function: timeout, logging, error mapping and
// metrics.
type JobRunner struct {
	taskType string
	timeout  time.Duration
	logger   logger.Logger
	errors   *apperrors.ErrorHandler
	obs      *observability.Observability
}

func NewJobRunner(taskType string, timeout time.Duration, log logger.Logger, obs *observability.Observability) *JobRunner {
	log = log.WithFields(map[string]interface{}{"taskType": taskType})
	return &JobRunner{
		taskType: taskType,
		timeout:  timeout,
		logger:   log,
		errors:   apperrors.NewErrorHandler(log),
		obs:      obs,
	}
}

func (r *JobRunner) TaskType() string {
	return r.taskType
}

func (r *JobRunner) Logger() logger.Logger {
	return r.logger
}

// Decode parses job variables into In. A parse failure is an
// INVALID_INPUT business error.
func Decode[In any](variables string) (*In, error) {
	var input In
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, fmt.Sprintf("parse variables: %v", err))
	}
	return &input, nil
}

// Execute decodes the job and runs execute under the runner's timeout.
func Execute[In, Out any](ctx context.Context, r *JobRunner, job entities.Job, execute func(context.Context, *In) (Out, error)) (Out, error) {
	var zero Out
	input, err := Decode[In](job.Variables)
	if err != nil {
		return zero, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return execute(ctx, input)
}

// Handle is the zeebe job handler body shared by every worker: it runs
// execute, then completes the job with the output or hands the error to
// the ErrorHandler.
func Handle[In, Out any](r *JobRunner, client worker.JobClient, job entities.Job, execute func(context.Context, *In) (Out, error)) {
	start := time.Now()
	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	ctx, span := r.obs.StartJob(context.Background(), r.taskType, job.Key, job.ProcessInstanceKey)
	output, err := Execute(ctx, r, job, execute)
	if err != nil {
		code := string(apperrors.Normalize(err).Code)
		observability.EndJob(span, code, err)
		r.record(ctx, code, time.Since(start))
		r.errors.HandleJobError(ctx, client, job, err)
		return
	}

	observability.EndJob(span, "", nil)
	r.record(ctx, "", time.Since(start))
	r.completeJob(ctx, client, job, output)
}

func (r *JobRunner) record(ctx context.Context, errorCode string, elapsed time.Duration) {
	metrics.ObserveJob(r.taskType, errorCode, elapsed)
	status := "completed"
	if errorCode != "" {
		status = "failed"
	}
	r.obs.RecordJob(ctx, r.taskType, status, elapsed)
}

func (r *JobRunner) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		r.errors.HandleJobError(ctx, client, job, apperrors.Wrap(apperrors.ErrCodeInternal, err))
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}
	r.logger.Info("job completed", map[string]interface{}{"jobKey": job.Key})
}

// Registration describes one job worker to open against the gateway.
type Registration struct {
	TaskType      string
	Handler       worker.JobHandler
	MaxJobsActive int
	Timeout       time.Duration
}

// StartWorker opens a job worker for reg and returns it; the caller closes it.
func (c *Client) StartWorker(reg Registration, log logger.Logger) worker.JobWorker {
	w := c.client.NewJobWorker().
		JobType(reg.TaskType).
		Handler(reg.Handler).
		MaxJobsActive(reg.MaxJobsActive).
		Timeout(reg.Timeout).
		RequestTimeout(c.config.RequestTimeout).
		Name(reg.TaskType).
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      reg.TaskType,
		"maxJobsActive": reg.MaxJobsActive,
		"timeout":       reg.Timeout.String(),
	})
	return w
}
