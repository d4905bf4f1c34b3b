package managereviews

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
	TaskType = "manage-reviews"
)

// Mailer delivers the moderator notification. *aws.Mailer satisfies it.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, body string) (string, error)
}

const reviewSchemaTemplate = `{
	"type": "object",
	"required": ["userId", "dbn", "rating", "body"],
	"properties": {
		"userId": {"type": "string", "minLength": 1},
		"dbn": {"type": "string", "pattern": "^[0-9]{2}[A-Z][0-9]{3}$"},
		"rating": {"type": "integer", "minimum": 1, "maximum": 5},
		"body": {"type": "string", "minLength": 1, "maxLength": %d}
	}
}`

type Handler struct {
	config  *Config
	reviews *database.ReviewStore
	schools *database.SchoolStore
	schema  *validation.Schema
	mailer  Mailer
	runner  *camunda.JobRunner
	logger  logger.Logger
}

// NewHandler builds the handler. mailer may be nil when email is disabled.
func NewHandler(config *Config, db *sql.DB, mailer Mailer, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config:  config,
		reviews: database.NewReviewStore(db),
		schools: database.NewSchoolStore(db),
		schema:  validation.MustCompile(fmt.Sprintf(reviewSchemaTemplate, config.MaxReviewLength)),
		mailer:  mailer,
		runner:  runner,
		logger:  runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	switch input.Action {
	case ActionSubmit:
		return h.submit(ctx, input)
	case ActionDelete:
		return h.delete(ctx, input)
	case ActionList:
		return h.list(ctx, input)
	default:
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, fmt.Sprintf("unknown action %q", input.Action))
	}
}

func (h *Handler) submit(ctx context.Context, input *Input) (*Output, error) {
	input.Body = strings.TrimSpace(input.Body)
	if err := h.validateReview(input); err != nil {
		return nil, err
	}
	if !geography.IsNYC5Borough(input.DBN) {
		return nil, apperrors.NewNotNYCSchoolError(input.DBN)
	}

	exists, err := h.schools.Exists(ctx, input.DBN)
	if err != nil {
		return nil, apperrors.FromQueryError(ctx, "school_exists", err)
	}
	if !exists {
		return nil, apperrors.NewSchoolNotFoundError(input.DBN)
	}

	review := models.Review{
		ID:        uuid.New().String(),
		UserID:    input.UserID,
		DBN:       input.DBN,
		Rating:    input.Rating,
		Body:      input.Body,
		CreatedAt: h.config.Clock.Now().UTC(),
	}
	if err := h.reviews.Insert(ctx, review); err != nil {
		return nil, apperrors.FromQueryError(ctx, "insert_review", err)
	}

	h.logger.Info("review submitted", map[string]interface{}{
		"reviewId": review.ID,
		"userId":   review.UserID,
		"dbn":      review.DBN,
		"rating":   review.Rating,
	})

	return &Output{
		Action:            ActionSubmit,
		Review:            &review,
		ModeratorNotified: h.notifyModerator(ctx, review),
	}, nil
}

func (h *Handler) validateReview(input *Input) error {
	result, err := h.schema.Validate(map[string]interface{}{
		"userId": input.UserID,
		"dbn":    input.DBN,
		"rating": input.Rating,
		"body":   input.Body,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInternal, err)
	}
	if result.Valid {
		return nil
	}

	fields := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		fields = append(fields, e.Field)
	}
	return apperrors.New(apperrors.ErrCodeReviewValidationFailed, strings.Join(result.GetErrorMessages(), "; ")).
		WithMetadata("fields", fields)
}

// notifyModerator is best effort: the review is already stored, so a
// delivery failure is logged and reported in the output only.
func (h *Handler) notifyModerator(ctx context.Context, review models.Review) bool {
	if h.mailer == nil || h.config.ModeratorEmail == "" {
		return false
	}

	subject := fmt.Sprintf("New review for %s (%d/5)", review.DBN, review.Rating)
	body := fmt.Sprintf("Review %s by user %s\n\n%s\n", review.ID, review.UserID, review.Body)
	messageID, err := h.mailer.Send(ctx, []string{h.config.ModeratorEmail}, subject, body)
	if err != nil {
		h.logger.Warn("moderator notification failed", map[string]interface{}{
			"reviewId": review.ID,
			"error":    err,
		})
		return false
	}

	h.logger.Debug("moderator notified", map[string]interface{}{
		"reviewId":  review.ID,
		"messageId": messageID,
	})
	return true
}

func (h *Handler) delete(ctx context.Context, input *Input) (*Output, error) {
	if input.ReviewID == "" || input.UserID == "" {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, "reviewId and userId are required")
	}

	review, err := h.reviews.Get(ctx, input.ReviewID)
	if errors.Is(err, database.ErrReviewNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeReviewNotFound, fmt.Sprintf("reviewId: %s", input.ReviewID))
	}
	if err != nil {
		return nil, apperrors.FromQueryError(ctx, "get_review", err)
	}
	if review.UserID != input.UserID {
		return nil, apperrors.NewForbiddenError(input.UserID, "review "+review.ID)
	}

	if err := h.reviews.Delete(ctx, review.ID); err != nil {
		return nil, apperrors.FromQueryError(ctx, "delete_review", err)
	}

	h.logger.Info("review deleted", map[string]interface{}{
		"reviewId": review.ID,
		"userId":   review.UserID,
		"dbn":      review.DBN,
	})
	return &Output{Action: ActionDelete, Review: &review}, nil
}

func (h *Handler) list(ctx context.Context, input *Input) (*Output, error) {
	if geography.ExtractDistrictFromDBN(input.DBN) == 0 {
		return nil, apperrors.NewInvalidDBNError(input.DBN)
	}

	reviews, err := h.reviews.ListBySchool(ctx, input.DBN)
	if err != nil {
		return nil, apperrors.FromQueryError(ctx, "school_reviews", err)
	}
	summary := database.Summarize(input.DBN, reviews)
	return &Output{Action: ActionList, Reviews: reviews, Summary: &summary}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
