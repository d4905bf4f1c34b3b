package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nyc-kinder-workers/internal/common/config"
	"nyc-kinder-workers/internal/common/logger"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Workers: map[string]config.WorkerConfig{
			"search-schools":   {Enabled: false},
			"rank-schools":     {Enabled: true, MaxJobsActive: 2, Timeout: 1500},
			"classify-borough": {Enabled: true, MaxJobsActive: 20, Timeout: 500},
		},
	}
	cfg.Scoring.Weights.Academics = 0.4
	cfg.Scoring.Weights.Climate = 0.3
	cfg.Scoring.Weights.Progress = 0.3
	cfg.Scoring.MaxRanked = 50
	cfg.Community.MaxCompareSchools = 4
	cfg.Community.MaxReviewLength = 2000
	return cfg
}

func TestRegistrations_SkipsDisabledWorkers(t *testing.T) {
	regs, err := registrations(testConfig(), dependencies{log: logger.NewTestLogger(t)})
	require.NoError(t, err)

	byType := map[string]int{}
	for i, r := range regs {
		byType[r.TaskType] = i
		assert.NotNil(t, r.Handler, r.TaskType)
	}

	assert.NotContains(t, byType, "search-schools")
	for _, taskType := range []string{
		"compute-overall-score", "classify-borough", "rank-schools", "query-postgresql",
		"manage-favorites", "manage-reviews", "compare-schools",
	} {
		assert.Contains(t, byType, taskType)
	}

	rank := regs[byType["rank-schools"]]
	assert.Equal(t, 2, rank.MaxJobsActive)
	assert.Equal(t, 1500*time.Millisecond, rank.Timeout)

	// unconfigured workers fall back to the defaults
	fav := regs[byType["manage-favorites"]]
	assert.Equal(t, 5, fav.MaxJobsActive)
	assert.Equal(t, 30*time.Second, fav.Timeout)
}

func TestRegistrations_InvalidScoring(t *testing.T) {
	cfg := testConfig()
	cfg.Scoring.MissingPolicy = "ignore"

	_, err := registrations(cfg, dependencies{log: logger.NewNoOpLogger()})
	assert.Error(t, err)
}

func TestRetryWithBackoff(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	}, 5, time.Millisecond, logger.NewNoOpLogger(), "test dependency")
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	err = retryWithBackoff(context.Background(), func(context.Context) error {
		return errors.New("connection refused")
	}, 2, time.Millisecond, logger.NewNoOpLogger(), "test dependency")
	assert.ErrorContains(t, err, "test dependency failed after 2 attempts")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = retryWithBackoff(ctx, func(context.Context) error {
		return errors.New("connection refused")
	}, 5, time.Hour, logger.NewNoOpLogger(), "test dependency")
	assert.ErrorIs(t, err, context.Canceled)
}
