package queries

import (
	"context"
	"database/sql"
	"time"

	"nyc-kinder-workers/internal/common/database"
	"nyc-kinder-workers/internal/models"
)

type SchoolReviewsResult struct {
	Reviews []models.Review      `json:"reviews"`
	Summary models.ReviewSummary `json:"summary"`
}

func SchoolReviews(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	dbn, err := stringParam(params, "dbn")
	if err != nil {
		return nil, 0, 0, err
	}

	start := time.Now()
	reviews, err := database.NewReviewStore(db).ListBySchool(ctx, dbn)
	if err != nil {
		return nil, 0, 0, err
	}

	result := SchoolReviewsResult{
		Reviews: reviews,
		Summary: database.Summarize(dbn, reviews),
	}
	return result, len(reviews), time.Since(start).Milliseconds(), nil
}
