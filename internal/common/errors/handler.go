package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// Logger is the subset of logger.Logger the handler needs.
type Logger interface {
	Error(msg string, fields map[string]interface{})
}

// ErrorHandler turns a worker error into either a retrying job failure or
// a BPMN error thrown into the process.
type ErrorHandler struct {
	logger Logger
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Decision is what HandleJobError will do with an error.
type Decision struct {
	Error   *BPMNError
	Retry   bool
	Retries int32
}

// Decide normalizes err and picks between a retry and a thrown BPMN error.
// The retry count never exceeds what the broker still has for the job.
func Decide(err error, jobRetries int32) Decision {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	if bpmnErr.Retries == 0 || jobRetries <= 1 {
		return Decision{Error: bpmnErr}
	}

	retries := int32(bpmnErr.Retries)
	if jobRetries-1 < retries {
		retries = jobRetries - 1
	}
	return Decision{Error: bpmnErr, Retry: true, Retries: retries}
}

func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	d := Decide(err, job.Retries)

	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"processInstanceKey": job.ProcessInstanceKey,
		"errorCode":          d.Error.Code,
		"errorCategory":      d.Error.ErrorVariables["errorCategory"],
		"details":            d.Error.Details,
		"retry":              d.Retry,
		"retries":            d.Retries,
	})

	if d.Retry {
		h.failJob(ctx, client, job, d)
		return
	}
	h.throwBPMNError(ctx, client, job, d.Error)
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, d Decision) {
	_, err := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(d.Retries).
		ErrorMessage(d.Error.Error()).
		Send(ctx)
	if err != nil {
		h.logger.Error("failed to send fail job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	withVars, err := encodeVariables(cmd, bpmnErr.ToErrorVariables())
	if err != nil {
		h.logger.Error("failed to encode error variables", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		_, err = cmd.Send(ctx)
	} else {
		_, err = withVars.Send(ctx)
	}
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
	}
}

func encodeVariables(cmd commands.DispatchThrowErrorCommand, vars map[string]interface{}) (commands.DispatchThrowErrorCommand, error) {
	data, err := json.Marshal(vars)
	if err != nil {
		return nil, err
	}
	return cmd.VariablesFromString(string(data))
}
