package managefavorites

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"nyc-kinder-workers/internal/common/camunda"
	"nyc-kinder-workers/internal/common/database"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/internal/common/validation"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/pkg/geography"
)

const (
	TaskType = "manage-favorites"
)

var inputSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["action", "userId"],
	"properties": {
		"action": {"enum": ["add", "remove", "list"]},
		"userId": {"type": "string", "minLength": 1},
		"dbn": {"type": "string"},
		"favoriteId": {"type": "string"}
	}
}`)

type Handler struct {
	config    *Config
	favorites *database.FavoriteStore
	schools   *database.SchoolStore
	runner    *camunda.JobRunner
	logger    logger.Logger
}

func NewHandler(config *Config, db *sql.DB, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config:    config,
		favorites: database.NewFavoriteStore(db),
		schools:   database.NewSchoolStore(db),
		runner:    runner,
		logger:    runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	switch input.Action {
	case ActionAdd:
		return h.add(ctx, input)
	case ActionRemove:
		return h.remove(ctx, input)
	default:
		return h.list(ctx, input)
	}
}

func validateInput(input *Input) error {
	result, err := inputSchema.Validate(input)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err)
	}
	if !result.Valid {
		return apperrors.New(apperrors.ErrCodeInvalidInput, strings.Join(result.GetErrorMessages(), "; "))
	}
	return nil
}

func (h *Handler) add(ctx context.Context, input *Input) (*Output, error) {
	if err := checkSchoolDBN(input.DBN); err != nil {
		return nil, err
	}

	exists, err := h.schools.Exists(ctx, input.DBN)
	if err != nil {
		return nil, apperrors.FromQueryError(ctx, "school_exists", err)
	}
	if !exists {
		return nil, apperrors.NewSchoolNotFoundError(input.DBN)
	}

	favorite := models.Favorite{
		ID:        uuid.New().String(),
		UserID:    input.UserID,
		DBN:       input.DBN,
		CreatedAt: h.config.Clock.Now().UTC(),
	}
	if err := h.favorites.Add(ctx, favorite); err != nil {
		if errors.Is(err, database.ErrDuplicateFavorite) {
			return nil, apperrors.New(apperrors.ErrCodeDuplicateFavorite, fmt.Sprintf("dbn: %s", input.DBN)).
				WithMetadata("dbn", input.DBN)
		}
		return nil, apperrors.FromQueryError(ctx, "add_favorite", err)
	}

	h.logger.Info("favorite added", map[string]interface{}{
		"favoriteId": favorite.ID,
		"userId":     favorite.UserID,
		"dbn":        favorite.DBN,
	})
	return &Output{Action: ActionAdd, Favorite: &favorite, Count: 1}, nil
}

func (h *Handler) remove(ctx context.Context, input *Input) (*Output, error) {
	if input.FavoriteID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "favoriteId is required")
	}

	favorite, err := h.favorites.Get(ctx, input.FavoriteID)
	if errors.Is(err, database.ErrFavoriteNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeFavoriteNotFound, fmt.Sprintf("favoriteId: %s", input.FavoriteID))
	}
	if err != nil {
		return nil, apperrors.FromQueryError(ctx, "get_favorite", err)
	}
	if favorite.UserID != input.UserID {
		return nil, apperrors.NewForbiddenError(input.UserID, "favorite "+favorite.ID)
	}

	if err := h.favorites.Delete(ctx, favorite.ID); err != nil {
		return nil, apperrors.FromQueryError(ctx, "delete_favorite", err)
	}

	h.logger.Info("favorite removed", map[string]interface{}{
		"favoriteId": favorite.ID,
		"userId":     favorite.UserID,
		"dbn":        favorite.DBN,
	})
	return &Output{Action: ActionRemove, Favorite: &favorite, Count: 1}, nil
}

func (h *Handler) list(ctx context.Context, input *Input) (*Output, error) {
	favorites, err := h.favorites.ListByUser(ctx, input.UserID)
	if err != nil {
		return nil, apperrors.FromQueryError(ctx, "list_favorites", err)
	}
	return &Output{Action: ActionList, Favorites: favorites, Count: len(favorites)}, nil
}

// checkSchoolDBN rejects identifiers that cannot belong to an NYC school.
func checkSchoolDBN(dbn string) error {
	if geography.ExtractDistrictFromDBN(dbn) == 0 {
		return apperrors.NewInvalidDBNError(dbn)
	}
	if !geography.IsNYC5Borough(dbn) {
		return apperrors.NewNotNYCSchoolError(dbn)
	}
	return nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
