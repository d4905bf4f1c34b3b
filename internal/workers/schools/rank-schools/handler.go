package rankschools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"nyc-kinder-workers/internal/common/camunda"
	apperrors "nyc-kinder-workers/internal/common/errors"
	"nyc-kinder-workers/internal/common/logger"
	"nyc-kinder-workers/internal/common/observability"
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/pkg/geography"
	"nyc-kinder-workers/pkg/scoring"
)

const (
	TaskType = "rank-schools"
)

type Handler struct {
	config *Config
	runner *camunda.JobRunner
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger, obs *observability.Observability) *Handler {
	runner := camunda.NewJobRunner(TaskType, config.Timeout, log, obs)
	return &Handler{
		config: config,
		runner: runner,
		logger: runner.Logger(),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Handle(h.runner, client, job, h.execute)
}

// compiledFilters is Filters with names resolved once per job.
type compiledFilters struct {
	Filters
	borough geography.Borough
	tiers   map[scoring.Tier]bool
	name    string
}

func compile(f Filters) (*compiledFilters, error) {
	c := &compiledFilters{Filters: f, name: strings.ToLower(strings.TrimSpace(f.Name))}
	if f.Borough != "" {
		b, ok := geography.ParseBorough(f.Borough)
		if !ok {
			return nil, fmt.Errorf("unknown borough %q", f.Borough)
		}
		c.borough = b
	}
	if f.District != 0 {
		if _, ok := geography.BoroughForDistrict(f.District); !ok {
			return nil, fmt.Errorf("district %d is not an NYC district", f.District)
		}
	}
	if len(f.Tiers) > 0 {
		c.tiers = make(map[scoring.Tier]bool, len(f.Tiers))
		for _, name := range f.Tiers {
			t, ok := scoring.ParseTier(name)
			if !ok {
				return nil, fmt.Errorf("unknown tier %q", name)
			}
			c.tiers[t] = true
		}
	}
	return c, nil
}

func (c *compiledFilters) match(s models.ScoredSchool) bool {
	switch {
	case c.borough != "" && s.Borough != c.borough:
		return false
	case c.District != 0 && geography.ExtractDistrictFromDBN(s.DBN) != c.District:
		return false
	case c.MinScore != nil && s.Score < *c.MinScore:
		return false
	case c.tiers != nil && !c.tiers[s.Tier]:
		return false
	case c.GiftedTalentedOnly && !s.GiftedTalented:
		return false
	case c.name != "" && !strings.Contains(strings.ToLower(s.Name), c.name):
		return false
	}
	return true
}

func (h *Handler) execute(_ context.Context, input *Input) (*Output, error) {
	filters, err := compile(input.Filters)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidInput, err.Error())
	}

	start := time.Now()
	output := &Output{RankedSchools: []RankedSchool{}}
	seen := make(map[string]bool, len(input.Schools))
	var scored []models.ScoredSchool

	for _, school := range input.Schools {
		if seen[school.DBN] {
			output.Excluded.Duplicate++
			continue
		}
		seen[school.DBN] = true

		if !geography.IsNYC5Borough(school.DBN) {
			output.Excluded.NonNYC++
			continue
		}

		s := models.Score(h.config.Engine, school)
		if !s.Scored && !filters.IncludeUnscored {
			output.Excluded.Unscored++
			continue
		}
		if !filters.match(s) {
			output.Excluded.Filtered++
			continue
		}
		scored = append(scored, s)
	}

	sortSchools(scored)
	output.TotalMatched = len(scored)

	limit := h.config.MaxItems
	if input.Limit > 0 && (limit <= 0 || input.Limit < limit) {
		limit = input.Limit
	}
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	for i, s := range scored {
		output.RankedSchools = append(output.RankedSchools, RankedSchool{Rank: i + 1, ScoredSchool: s})
	}

	h.logger.Info("ranking completed", map[string]interface{}{
		"inputCount":  len(input.Schools),
		"outputCount": len(output.RankedSchools),
		"durationMs":  time.Since(start).Milliseconds(),
	})
	return output, nil
}

// sortSchools orders by score descending. Unscored schools go last; ties
// break on name, then DBN, so the order is stable across runs.
func sortSchools(schools []models.ScoredSchool) {
	sort.SliceStable(schools, func(i, j int) bool {
		a, b := schools[i], schools[j]
		if a.Scored != b.Scored {
			return a.Scored
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.DBN < b.DBN
	})
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
