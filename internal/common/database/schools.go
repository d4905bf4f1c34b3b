package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"nyc-kinder-workers/internal/models"
)

var ErrSchoolNotFound = errors.New("school not found")

const schoolColumns = `dbn, name, district, ela_proficiency, math_proficiency, climate_score,
	ela_progress, math_progress, latitude, longitude, gifted_talented`

// SchoolStore reads and deletes rows of the schools table.
type SchoolStore struct {
	db *sql.DB
}

func NewSchoolStore(db *sql.DB) *SchoolStore {
	return &SchoolStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchool(row rowScanner) (models.School, error) {
	var s models.School
	err := row.Scan(
		&s.DBN, &s.Name, &s.District,
		&s.ELAProficiency, &s.MathProficiency, &s.ClimateScore,
		&s.ELAProgress, &s.MathProgress,
		&s.Latitude, &s.Longitude, &s.GiftedTalented,
	)
	return s, err
}

func (s *SchoolStore) GetSchool(ctx context.Context, dbn string) (models.School, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+schoolColumns+` FROM schools WHERE dbn = $1`, dbn)
	school, err := scanSchool(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.School{}, fmt.Errorf("%w: %s", ErrSchoolNotFound, dbn)
	}
	if err != nil {
		return models.School{}, fmt.Errorf("get school %s: %w", dbn, err)
	}
	return school, nil
}

// GetSchools returns the rows for dbns ordered by DBN. Unknown DBNs are
// skipped.
func (s *SchoolStore) GetSchools(ctx context.Context, dbns []string) ([]models.School, error) {
	if len(dbns) == 0 {
		return nil, nil
	}
	return s.list(ctx, `SELECT `+schoolColumns+` FROM schools WHERE dbn = ANY($1) ORDER BY dbn`, pq.Array(dbns))
}

// ListByDistricts returns every school in the given districts ordered by name.
func (s *SchoolStore) ListByDistricts(ctx context.Context, districts []int) ([]models.School, error) {
	if len(districts) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(districts))
	for i, d := range districts {
		ids[i] = int64(d)
	}
	return s.list(ctx, `SELECT `+schoolColumns+` FROM schools WHERE district = ANY($1) ORDER BY name, dbn`, pq.Array(ids))
}

func (s *SchoolStore) list(ctx context.Context, query string, args ...interface{}) ([]models.School, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	defer rows.Close()

	var schools []models.School
	for rows.Next() {
		school, err := scanSchool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan school: %w", err)
		}
		schools = append(schools, school)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schools: %w", err)
	}
	return schools, nil
}

// Exists reports whether a row with dbn is present.
func (s *SchoolStore) Exists(ctx context.Context, dbn string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schools WHERE dbn = $1)`, dbn).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check school %s: %w", dbn, err)
	}
	return exists, nil
}

// ListSchoolDBNs returns the identifier of every school, ordered.
func (s *SchoolStore) ListSchoolDBNs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT dbn FROM schools ORDER BY dbn`)
	if err != nil {
		return nil, fmt.Errorf("list school dbns: %w", err)
	}
	defer rows.Close()

	var dbns []string
	for rows.Next() {
		var dbn string
		if err := rows.Scan(&dbn); err != nil {
			return nil, fmt.Errorf("scan dbn: %w", err)
		}
		dbns = append(dbns, dbn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dbns: %w", err)
	}
	return dbns, nil
}

// DeleteSchools removes the rows for dbns in one statement and returns the
// number of rows affected. Favorites and reviews cascade.
func (s *SchoolStore) DeleteSchools(ctx context.Context, dbns []string) (int64, error) {
	if len(dbns) == 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM schools WHERE dbn = ANY($1)`, pq.Array(dbns))
	if err != nil {
		return 0, fmt.Errorf("delete %d schools: %w", len(dbns), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
