package searchschools

import (
	"context"
	"errors"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"

	"nyc-kinder-workers/internal/common/camunda"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/internal/workers/schools/search-schools/queries"
	"nyc-kinder-workers/pkg/geography"
	"nyc-kinder-workers/pkg/scoring"
)

const (
	TaskType = "search-schools"
)

type Handler struct {
	config *Config
	client *elasticsearch.Client
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, client *elasticsearch.Client, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config: config,
		client: client,
		runner: runner,
		logger: runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	q, err := h.buildQuery(input)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, err.Error())
	}

	tiers := make(map[scoring.Tier]bool, len(input.Tiers))
	for _, name := range input.Tiers {
		t, ok := scoring.ParseTier(name)
		if !ok {
			return nil, apperrors.New(apperrors.ErrCodeInvalidInput, fmt.Sprintf("unknown tier %q", name))
		}
		tiers[t] = true
	}

	result, err := queries.Search(ctx, h.client, q)
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, apperrors.New(apperrors.ErrCodeSearchTimeout, fmt.Sprintf("index: %s", q.Index))
		case errors.Is(err, queries.ErrIndexNotFound):
			return nil, apperrors.Wrap(apperrors.ErrCodeIndexNotFound, err)
		default:
			return nil, apperrors.NewSearchQueryFailedError(q.Index, err)
		}
	}

	// Score and tier are computed, not indexed, so those filters apply to
	// the fetched page only.
	output := &Output{
		Schools:   make([]SearchHit, 0, len(result.Hits)),
		TotalHits: result.TotalHits,
		MaxScore:  result.MaxScore,
		Took:      result.Took,
	}
	for _, hit := range result.Hits {
		if !geography.IsNYC5Borough(hit.School.DBN) {
			continue
		}
		s := models.Score(h.config.Engine, hit.School)
		if len(tiers) > 0 && !tiers[s.Tier] {
			continue
		}
		if input.MinScore != nil && s.Score < *input.MinScore {
			continue
		}
		output.Schools = append(output.Schools, SearchHit{ScoredSchool: s, Relevance: hit.Relevance})
	}

	h.logger.Info("search completed", map[string]interface{}{
		"keywords":  input.Keywords,
		"totalHits": result.TotalHits,
		"returned":  len(output.Schools),
		"tookMs":    result.Took,
	})
	return output, nil
}

func (h *Handler) buildQuery(input *Input) (queries.SchoolQuery, error) {
	q := queries.SchoolQuery{
		Index:          h.config.Index,
		Keywords:       input.Keywords,
		District:       input.District,
		GiftedTalented: input.GiftedTalented,
		From:           input.Pagination.From,
		Size:           input.Pagination.Size,
	}

	if input.Borough != "" {
		b, ok := geography.ParseBorough(input.Borough)
		if !ok {
			return q, fmt.Errorf("unknown borough %q", input.Borough)
		}
		q.Borough = b
	}
	if q.District != 0 {
		if _, ok := geography.BoroughForDistrict(q.District); !ok {
			return q, fmt.Errorf("district %d is not an NYC district", q.District)
		}
	}

	if q.From < 0 {
		q.From = 0
	}
	if q.Size < 1 {
		q.Size = h.config.DefaultSize
	}
	if h.config.MaxSize > 0 && q.Size > h.config.MaxSize {
		q.Size = h.config.MaxSize
	}
	return q, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
