package queries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"nyc-kinder-workers/internal/models"
)

var (
	ErrMissingParam     = errors.New("missing required parameter")
	ErrInvalidParam     = errors.New("invalid parameter")
	ErrUnknownQueryType = errors.New("unknown query type")
)

// QueryFunc runs one named query and returns its data, the row count and
// the execution time in milliseconds.
type QueryFunc func(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error)

var Registry = map[models.QueryType]QueryFunc{
	models.QueryTypeSchoolDetails:     SchoolDetails,
	models.QueryTypeSchoolsByDistrict: SchoolsByDistrict,
	models.QueryTypeSchoolsByBorough:  SchoolsByBorough,
	models.QueryTypeSchoolReviews:     SchoolReviews,
}

func Execute(ctx context.Context, db *sql.DB, queryType models.QueryType, params map[string]interface{}) (interface{}, int, int64, error) {
	fn, exists := Registry[queryType]
	if !exists {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnknownQueryType, queryType)
	}
	return fn(ctx, db, params)
}

func stringParam(params map[string]interface{}, name string) (string, error) {
	v, ok := params[name].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
	return v, nil
}
