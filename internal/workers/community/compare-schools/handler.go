package compareschools

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"nyc-kinder-workers/internal/common/camunda"
	"nyc-kinder-workers/internal/common/database"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/pkg/geography"
)

const (
	TaskType = "compare-schools"
)

type Handler struct {
	config     *Config
	selections database.SelectionStore
	schools    *database.SchoolStore
	runner     *camunda.JobRunner
	logger     logger.Logger
}

func NewHandler(config *Config, selections database.SelectionStore, db *sql.DB, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config:     config,
		selections: selections,
		schools:    database.NewSchoolStore(db),
		runner:     runner,
		logger:     runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.UserID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "userId is required")
	}

	switch input.Action {
	case ActionAdd:
		return h.add(ctx, input)
	case ActionRemove:
		return h.remove(ctx, input)
	case ActionClear:
		if err := h.selections.Delete(ctx, input.UserID); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrCodeCacheUnavailable, err)
		}
		return &Output{Action: ActionClear, DBNs: []string{}}, nil
	case ActionView:
		return h.view(ctx, input)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, fmt.Sprintf("unknown action %q", input.Action))
	}
}

func (h *Handler) add(ctx context.Context, input *Input) (*Output, error) {
	if geography.ExtractDistrictFromDBN(input.DBN) == 0 {
		return nil, apperrors.NewInvalidDBNError(input.DBN)
	}
	if !geography.IsNYC5Borough(input.DBN) {
		return nil, apperrors.NewNotNYCSchoolError(input.DBN)
	}

	sel, err := h.selections.Get(ctx, input.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCacheUnavailable, err)
	}
	if sel.Contains(input.DBN) {
		return &Output{Action: ActionAdd, DBNs: sel.DBNs}, nil
	}
	if len(sel.DBNs) >= h.config.MaxSchools {
		return nil, apperrors.New(apperrors.ErrCodeComparisonLimitReached,
			fmt.Sprintf("limit: %d", h.config.MaxSchools)).
			WithMetadata("limit", h.config.MaxSchools).
			WithMetadata("dbns", sel.DBNs)
	}

	sel.DBNs = append(sel.DBNs, input.DBN)
	if err := h.save(ctx, sel); err != nil {
		return nil, err
	}

	h.logger.Info("school added to comparison", map[string]interface{}{
		"userId": input.UserID,
		"dbn":    input.DBN,
		"size":   len(sel.DBNs),
	})
	return &Output{Action: ActionAdd, DBNs: sel.DBNs}, nil
}

func (h *Handler) remove(ctx context.Context, input *Input) (*Output, error) {
	sel, err := h.selections.Get(ctx, input.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCacheUnavailable, err)
	}
	if !sel.Contains(input.DBN) {
		return &Output{Action: ActionRemove, DBNs: sel.DBNs}, nil
	}

	kept := make([]string, 0, len(sel.DBNs))
	for _, dbn := range sel.DBNs {
		if dbn != input.DBN {
			kept = append(kept, dbn)
		}
	}
	sel.DBNs = kept
	if err := h.save(ctx, sel); err != nil {
		return nil, err
	}
	return &Output{Action: ActionRemove, DBNs: sel.DBNs}, nil
}

func (h *Handler) save(ctx context.Context, sel models.Selection) error {
	sel.UpdatedAt = h.config.Clock.Now().UTC()
	if err := h.selections.Save(ctx, sel); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeCacheUnavailable, err)
	}
	return nil
}

func (h *Handler) view(ctx context.Context, input *Input) (*Output, error) {
	sel, err := h.selections.Get(ctx, input.UserID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeCacheUnavailable, err)
	}
	output := &Output{Action: ActionView, DBNs: sel.DBNs, Schools: []models.ScoredSchool{}}
	if len(sel.DBNs) == 0 {
		return output, nil
	}

	rows, err := h.schools.GetSchools(ctx, sel.DBNs)
	if err != nil {
		return nil, apperrors.FromQueryError(ctx, "compare_schools", err)
	}
	byDBN := make(map[string]models.School, len(rows))
	for _, s := range rows {
		byDBN[s.DBN] = s
	}

	for _, dbn := range sel.DBNs {
		school, ok := byDBN[dbn]
		if !ok {
			output.Missing = append(output.Missing, dbn)
			continue
		}
		output.Schools = append(output.Schools, models.Score(h.config.Engine, school))
	}
	return output, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
