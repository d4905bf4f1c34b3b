package computeoverallscore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"

	"nyc-kinder-workers/internal/common/camunda"
	"nyc-kinder-workers/internal/common/database"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/metrics"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/pkg/geography"
)

const (
	TaskType = "compute-overall-score"
)

type Handler struct {
	config *Config
	store  *database.SchoolStore
	redis  redis.Cmdable
	runner *camunda.JobRunner
	obs    *observability.Observability
	logger logger.Logger
}

func NewHandler(config *Config, db *sql.DB, rdb redis.Cmdable, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config: config,
		store:  database.NewSchoolStore(db),
		redis:  rdb,
		runner: runner,
		obs:    obs,
		logger: runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.School != nil {
		school := *input.School
		if school.DBN == "" {
			school.DBN = input.DBN
		}
		if err := checkNYC(input, school.DBN); err != nil {
			return nil, err
		}
		return h.score(ctx, school), nil
	}

	if input.DBN == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "dbn or school is required")
	}
	if err := checkNYC(input, input.DBN); err != nil {
		return nil, err
	}

	if cached, ok := h.getCached(ctx, input.DBN); ok {
		return cached, nil
	}

	school, err := h.store.GetSchool(ctx, input.DBN)
	if errors.Is(err, database.ErrSchoolNotFound) {
		return nil, apperrors.NewSchoolNotFoundError(input.DBN)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, apperrors.NewQueryTimeoutError("school_details")
		}
		return nil, apperrors.NewQueryExecutionFailedError("school_details", err)
	}

	output := h.score(ctx, school)
	h.setCached(ctx, output)
	return output, nil
}

func checkNYC(input *Input, dbn string) error {
	if input.RequireNYC && !geography.IsNYC5Borough(dbn) {
		return apperrors.NewNotNYCSchoolError(dbn)
	}
	return nil
}

func (h *Handler) score(ctx context.Context, school models.School) *Output {
	result := h.config.Engine.Compute(school.Metrics())
	c := geography.Classify(school.DBN)

	metrics.SchoolsScored.WithLabelValues(string(result.Tier)).Inc()
	h.obs.RecordScore(ctx, result.Score, string(result.Tier))

	h.logger.Info("overall score computed", map[string]interface{}{
		"dbn":    school.DBN,
		"score":  result.Score,
		"tier":   result.Tier,
		"scored": result.Scored,
	})

	return &Output{
		DBN:        school.DBN,
		Name:       school.Name,
		District:   school.District,
		Borough:    c.Borough,
		IsNYC:      c.IsNYC,
		Score:      result.Score,
		Tier:       result.Tier,
		TierLabel:  result.TierLabel,
		Scored:     result.Scored,
		Components: result.Components,
	}
}

func (h *Handler) getCached(ctx context.Context, dbn string) (*Output, bool) {
	val, err := h.redis.Get(ctx, database.ScoreCacheKey(dbn)).Result()
	switch {
	case errors.Is(err, redis.Nil):
		metrics.ScoreCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	case err != nil:
		metrics.ScoreCacheLookups.WithLabelValues("error").Inc()
		h.logger.Warn("score cache read failed", map[string]interface{}{
			"dbn":   dbn,
			"error": err,
		})
		return nil, false
	}

	var output Output
	if err := json.Unmarshal([]byte(val), &output); err != nil {
		metrics.ScoreCacheLookups.WithLabelValues("error").Inc()
		return nil, false
	}
	metrics.ScoreCacheLookups.WithLabelValues("hit").Inc()
	output.Cached = true
	return &output, true
}

func (h *Handler) setCached(ctx context.Context, output *Output) {
	data, err := json.Marshal(output)
	if err != nil {
		return
	}
	if err := h.redis.Set(ctx, database.ScoreCacheKey(output.DBN), data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("score cache write failed", map[string]interface{}{
			"dbn":   output.DBN,
			"error": err,
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
