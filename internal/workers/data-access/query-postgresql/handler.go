package querypostgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"nyc-kinder-workers/internal/common/camunda"
	"nyc-kinder-workers/internal/common/database"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/internal/workers/data-access/query-postgresql/queries"
)

const (
	TaskType = "query-postgresql"
)

type Handler struct {
	config *Config
	db     *sql.DB
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config: config,
		db:     db,
		runner: runner,
		logger: runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "input cannot be nil")
	}

	queryType := models.QueryType(input.QueryType)
	if _, exists := queries.Registry[queryType]; !exists {
		return nil, apperrors.New(apperrors.ErrCodeInvalidQueryType, fmt.Sprintf("queryType: %q", input.QueryType))
	}

	params := make(map[string]interface{})
	if input.DBN != "" {
		params["dbn"] = input.DBN
	}
	if input.District != 0 {
		params["district"] = input.District
	}
	if input.Borough != "" {
		params["borough"] = input.Borough
	}

	data, rowCount, execTime, err := queries.Execute(ctx, h.db, queryType, params)
	if err != nil {
		return nil, h.mapError(ctx, input, err)
	}

	h.logger.Debug("query executed", map[string]interface{}{
		"queryType": input.QueryType,
		"rowCount":  rowCount,
		"elapsedMs": execTime,
	})
	return &Output{
		Data:               data,
		RowCount:           rowCount,
		QueryExecutionTime: execTime,
	}, nil
}

func (h *Handler) mapError(ctx context.Context, input *Input, err error) error {
	switch {
	case errors.Is(err, queries.ErrMissingParam), errors.Is(err, queries.ErrInvalidParam):
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err)
	case errors.Is(err, database.ErrSchoolNotFound):
		return apperrors.NewSchoolNotFoundError(input.DBN)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewQueryTimeoutError(input.QueryType)
	default:
		return apperrors.NewQueryExecutionFailedError(input.QueryType, err)
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
