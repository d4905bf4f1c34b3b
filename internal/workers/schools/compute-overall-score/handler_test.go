package computeoverallscore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyc-kinder-workers/internal/common/database"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/pkg/geography"
	"nyc-kinder-workers/pkg/scoring"
)

var schoolColumns = []string{
	"dbn", "name", "district", "ela_proficiency", "math_proficiency", "climate_score",
	"ela_progress", "math_progress", "latitude", "longitude", "gifted_talented",
}

func createTestConfig() *Config {
	return &Config{
		Timeout:  5 * time.Second,
		CacheTTL: 10 * time.Minute,
		Engine:   scoring.Default,
	}
}

type fixture struct {
	handler   *Handler
	db        sqlmock.Sqlmock
	redisMock redismock.ClientMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	redisClient, redisMock := redismock.NewClientMock()
	return &fixture{
		handler:   NewHandler(createTestConfig(), db, redisClient, logger.NewTestLogger(t), nil),
		db:        mock,
		redisMock: redisMock,
	}
}

func (f *fixture) verify(t *testing.T) {
	t.Helper()
	assert.NoError(t, f.db.ExpectationsWereMet())
	assert.NoError(t, f.redisMock.ExpectationsWereMet())
}

// cachedScore matches a SET whose value decodes to an Output with score.
func cachedScore(score float64) func(expected, actual []interface{}) error {
	return func(_, actual []interface{}) error {
		if len(actual) < 3 {
			return fmt.Errorf("unexpected args %v", actual)
		}
		data, ok := actual[2].([]byte)
		if !ok {
			return fmt.Errorf("value is %T, want []byte", actual[2])
		}
		var out Output
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
		if out.Score != score {
			return fmt.Errorf("cached score %v, want %v", out.Score, score)
		}
		return nil
	}
}

func TestHandler_Execute_CacheMiss(t *testing.T) {
	f := newFixture(t)
	key := database.ScoreCacheKey("13K009")

	f.redisMock.ExpectGet(key).RedisNil()
	f.db.ExpectQuery(`SELECT (.+) FROM schools WHERE dbn = \$1`).
		WithArgs("13K009").
		WillReturnRows(sqlmock.NewRows(schoolColumns).
			AddRow("13K009", "P.S. 009 Teunis G. Bergen", 13, 90.0, 90.0, 80.0, 70.0, 70.0, nil, nil, false))
	f.redisMock.CustomMatch(cachedScore(81)).ExpectSet(key, nil, 10*time.Minute).SetVal("OK")

	output, err := f.handler.Execute(context.Background(), &Input{DBN: "13K009"})

	require.NoError(t, err)
	assert.Equal(t, 81.0, output.Score)
	assert.Equal(t, scoring.TierGreen, output.Tier)
	assert.Equal(t, "outstanding", output.TierLabel)
	assert.Equal(t, geography.Brooklyn, output.Borough)
	assert.True(t, output.IsNYC)
	assert.True(t, output.Scored)
	assert.False(t, output.Cached)
	assert.Len(t, output.Components, 3)
	f.verify(t)
}

func TestHandler_Execute_CacheHit(t *testing.T) {
	f := newFixture(t)

	cached, _ := json.Marshal(Output{DBN: "02M158", Score: 72.4, Tier: scoring.TierYellow, Scored: true})
	f.redisMock.ExpectGet(database.ScoreCacheKey("02M158")).SetVal(string(cached))

	output, err := f.handler.Execute(context.Background(), &Input{DBN: "02M158"})

	require.NoError(t, err)
	assert.Equal(t, 72.4, output.Score)
	assert.Equal(t, scoring.TierYellow, output.Tier)
	assert.True(t, output.Cached)
	f.verify(t)
}

func TestHandler_Execute_CacheUnavailable(t *testing.T) {
	f := newFixture(t)
	key := database.ScoreCacheKey("24Q012")

	f.redisMock.ExpectGet(key).SetErr(errors.New("dial tcp: connection refused"))
	f.db.ExpectQuery(`FROM schools WHERE dbn = \$1`).
		WithArgs("24Q012").
		WillReturnRows(sqlmock.NewRows(schoolColumns).
			AddRow("24Q012", "P.S. 012 James B. Colgate", 24, nil, nil, 60.0, nil, nil, nil, nil, false))
	f.redisMock.CustomMatch(cachedScore(60)).ExpectSet(key, nil, 10*time.Minute).
		SetErr(errors.New("dial tcp: connection refused"))

	output, err := f.handler.Execute(context.Background(), &Input{DBN: "24Q012"})

	require.NoError(t, err, "cache failures never fail the job")
	assert.Equal(t, 60.0, output.Score)
	assert.Equal(t, scoring.TierYellow, output.Tier)
	f.verify(t)
}

func TestHandler_Execute_InlineSchoolSkipsCache(t *testing.T) {
	f := newFixture(t)

	output, err := f.handler.Execute(context.Background(), &Input{School: &models.School{
		DBN:          "31R001",
		Name:         "P.S. 001 Tottenville",
		ClimateScore: scoring.Float64(95),
	}})

	require.NoError(t, err)
	assert.Equal(t, 95.0, output.Score, "missing families are renormalized")
	assert.Equal(t, geography.StatenIsland, output.Borough)
	f.verify(t)
}

func TestHandler_Execute_NoMetrics(t *testing.T) {
	f := newFixture(t)

	output, err := f.handler.Execute(context.Background(), &Input{School: &models.School{DBN: "02M999"}})

	require.NoError(t, err)
	assert.Equal(t, 0.0, output.Score)
	assert.Equal(t, scoring.TierRed, output.Tier)
	assert.False(t, output.Scored)
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name     string
		input    *Input
		setup    func(f *fixture)
		wantCode apperrors.ErrorCode
	}{
		{
			name:     "no dbn",
			input:    &Input{},
			wantCode: apperrors.ErrCodeInvalidInput,
		},
		{
			name:     "outside the five boroughs",
			input:    &Input{DBN: "84X123", RequireNYC: true},
			wantCode: apperrors.ErrCodeNotNYCSchool,
		},
		{
			name:     "inline school outside the five boroughs",
			input:    &Input{School: &models.School{DBN: "XX"}, RequireNYC: true},
			wantCode: apperrors.ErrCodeNotNYCSchool,
		},
		{
			name:  "unknown school",
			input: &Input{DBN: "02M999"},
			setup: func(f *fixture) {
				f.redisMock.ExpectGet(database.ScoreCacheKey("02M999")).RedisNil()
				f.db.ExpectQuery(`FROM schools`).WillReturnRows(sqlmock.NewRows(schoolColumns))
			},
			wantCode: apperrors.ErrCodeSchoolNotFound,
		},
		{
			name:  "database failure",
			input: &Input{DBN: "02M158"},
			setup: func(f *fixture) {
				f.redisMock.ExpectGet(database.ScoreCacheKey("02M158")).RedisNil()
				f.db.ExpectQuery(`FROM schools`).WillReturnError(errors.New("too many connections"))
			},
			wantCode: apperrors.ErrCodeQueryExecutionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.handler.Execute(context.Background(), tt.input)

			require.Error(t, err)
			stdErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			f.verify(t)
		})
	}
}

func TestHandler_Execute_ZeroFillPolicy(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, _ := redismock.NewClientMock()

	engine, err := scoring.NewEngine(scoring.DefaultWeights, scoring.PolicyZeroFill)
	require.NoError(t, err)
	cfg := createTestConfig()
	cfg.Engine = engine

	handler := NewHandler(cfg, db, redisClient, logger.NewNoOpLogger(), nil)
	output, err := handler.Execute(context.Background(), &Input{School: &models.School{
		DBN:          "02M158",
		ClimateScore: scoring.Float64(100),
	}})

	require.NoError(t, err)
	assert.Equal(t, 30.0, output.Score)
	assert.Equal(t, scoring.TierRed, output.Tier)
}
