package queries

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nyc-kinder-workers/internal/common/database"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/pkg/geography"
)

func SchoolDetails(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	dbn, err := stringParam(params, "dbn")
	if err != nil {
		return nil, 0, 0, err
	}

	start := time.Now()
	school, err := database.NewSchoolStore(db).GetSchool(ctx, dbn)
	if err != nil {
		return nil, 0, 0, err
	}
	return school, 1, time.Since(start).Milliseconds(), nil
}

func SchoolsByDistrict(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	district, ok := params["district"].(int)
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: district", ErrMissingParam)
	}
	if _, mapped := geography.BoroughForDistrict(district); !mapped {
		return nil, 0, 0, fmt.Errorf("%w: district %d is not an NYC district", ErrInvalidParam, district)
	}

	start := time.Now()
	schools, err := database.NewSchoolStore(db).ListByDistricts(ctx, []int{district})
	if err != nil {
		return nil, 0, 0, err
	}
	if schools == nil {
		schools = []models.School{}
	}
	return schools, len(schools), time.Since(start).Milliseconds(), nil
}

// SchoolsByBorough lists the schools of every district in the borough. Rows
// whose DBN classifies elsewhere are dropped so results agree with the
// borough shown for each school.
func SchoolsByBorough(ctx context.Context, db *sql.DB, params map[string]interface{}) (interface{}, int, int64, error) {
	name, err := stringParam(params, "borough")
	if err != nil {
		return nil, 0, 0, err
	}
	borough, ok := geography.ParseBorough(name)
	if !ok {
		return nil, 0, 0, fmt.Errorf("%w: unknown borough %q", ErrInvalidParam, name)
	}

	start := time.Now()
	rows, err := database.NewSchoolStore(db).ListByDistricts(ctx, geography.DistrictsIn(borough))
	if err != nil {
		return nil, 0, 0, err
	}

	schools := make([]models.School, 0, len(rows))
	for _, s := range rows {
		if b, ok := geography.BoroughFromDBN(s.DBN); ok && b == borough {
			schools = append(schools, s)
		}
	}
	return schools, len(schools), time.Since(start).Milliseconds(), nil
}
