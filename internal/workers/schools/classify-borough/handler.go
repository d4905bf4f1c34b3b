package classifyborough

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"nyc-kinder-workers/internal/common/camunda"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/pkg/geography"
)

const (
	TaskType = "classify-borough"
)

type Handler struct {
	config *Config
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config: config,
		runner: runner,
		logger: runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

// execute never fails on a malformed DBN: it classifies as not NYC. Only
// RequireNYC turns a single non-NYC DBN into a business error.
func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	if input.DBN == "" && len(input.DBNs) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "dbn or dbns is required")
	}
	if h.config.MaxDBNs > 0 && len(input.DBNs) > h.config.MaxDBNs {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput,
			fmt.Sprintf("%d dbns exceeds the limit of %d", len(input.DBNs), h.config.MaxDBNs))
	}

	output := &Output{}
	if input.DBN != "" {
		output.Classification = geography.Classify(input.DBN)
		if input.RequireNYC && !output.IsNYC {
			return nil, apperrors.NewNotNYCSchoolError(input.DBN)
		}
		h.count(output, output.Classification)
	}

	if len(input.DBNs) > 0 {
		output.Results = make([]geography.Classification, len(input.DBNs))
		for i, dbn := range input.DBNs {
			output.Results[i] = geography.Classify(dbn)
			h.count(output, output.Results[i])
		}
	}

	h.logger.Debug("classified", map[string]interface{}{
		"nyc":    output.NYCCount,
		"nonNyc": output.NonNYCCount,
	})
	return output, nil
}

func (h *Handler) count(output *Output, c geography.Classification) {
	if c.IsNYC {
		output.NYCCount++
	} else {
		output.NonNYCCount++
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
