package scoring

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func fullMetrics(academics, climate, progress float64) Metrics {
	return Metrics{
		ELAProficiency:  Float64(academics),
		MathProficiency: Float64(academics),
		ClimateScore:    Float64(climate),
		ELAProgress:     Float64(progress),
		MathProgress:    Float64(progress),
	}
}

func mustEngine(t *testing.T, w Weights, p MissingPolicy) *Engine {
	t.Helper()
	e, err := NewEngine(w, p)
	require.NoError(t, err)
	return e
}

// ==========================
// Tier thresholds
// ==========================

func TestScoreColor(t *testing.T) {
	tests := []struct {
		score    float64
		expected Tier
	}{
		{100, TierGreen},
		{80, TierGreen},
		{79.9, TierYellow},
		{60, TierYellow},
		{59.9, TierRed},
		{0, TierRed},
		{math.NaN(), TierRed},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ScoreColor(tt.score), "score %v", tt.score)
	}
}

func TestTierLabels(t *testing.T) {
	assert.Equal(t, "outstanding", TierGreen.Label())
	assert.Equal(t, "strong", TierYellow.Label())
	assert.Equal(t, "below-average", TierRed.Label())

	tier, ok := ParseTier("strong")
	assert.True(t, ok)
	assert.Equal(t, TierYellow, tier)

	tier, ok = ParseTier("red")
	assert.True(t, ok)
	assert.Equal(t, TierRed, tier)

	_, ok = ParseTier("purple")
	assert.False(t, ok)
}

// ==========================
// Overall score
// ==========================

func TestOverallScore_AllFamiliesPresent(t *testing.T) {
	m := fullMetrics(90, 80, 70)

	result := Default.Compute(m)

	assert.Equal(t, 81.0, result.Score)
	assert.Equal(t, TierGreen, result.Tier)
	assert.Equal(t, "outstanding", result.TierLabel)
	assert.True(t, result.Scored)
	assert.Equal(t, 81.0, OverallScore(m))
}

func TestOverallScore_Breakdown(t *testing.T) {
	result := Default.Compute(fullMetrics(90, 80, 70))

	expected := []Component{
		{Family: Academics, Value: 90, Present: true, Weight: 0.4, EffectiveWeight: 0.4},
		{Family: Climate, Value: 80, Present: true, Weight: 0.3, EffectiveWeight: 0.3},
		{Family: Progress, Value: 70, Present: true, Weight: 0.3, EffectiveWeight: 0.3},
	}
	if diff := cmp.Diff(expected, result.Components, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("components mismatch (-want +got):\n%s", diff)
	}
}

func TestOverallScore_Deterministic(t *testing.T) {
	m := Metrics{
		ELAProficiency:  Float64(47.3),
		MathProficiency: Float64(52.9),
		ClimateScore:    Float64(88.1),
		MathProgress:    Float64(61.7),
	}

	first := OverallScore(m)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, OverallScore(m))
	}
}

func TestCompute_MissingFamilies(t *testing.T) {
	tests := []struct {
		name          string
		metrics       Metrics
		policy        MissingPolicy
		expectedScore float64
		expectedTier  Tier
		scored        bool
	}{
		{
			name: "progress missing renormalizes",
			metrics: Metrics{
				ELAProficiency:  Float64(90),
				MathProficiency: Float64(90),
				ClimateScore:    Float64(80),
			},
			policy:        PolicyRenormalize,
			expectedScore: 85.7, // (36 + 24) / 0.7
			expectedTier:  TierGreen,
			scored:        true,
		},
		{
			name: "progress missing zero filled",
			metrics: Metrics{
				ELAProficiency:  Float64(90),
				MathProficiency: Float64(90),
				ClimateScore:    Float64(80),
			},
			policy:        PolicyZeroFill,
			expectedScore: 60,
			expectedTier:  TierYellow,
			scored:        true,
		},
		{
			name:          "climate only",
			metrics:       Metrics{ClimateScore: Float64(55)},
			policy:        PolicyRenormalize,
			expectedScore: 55,
			expectedTier:  TierRed,
			scored:        true,
		},
		{
			name: "single academic metric",
			metrics: Metrics{
				ELAProficiency: Float64(70),
				ClimateScore:   Float64(70),
				ELAProgress:    Float64(70),
			},
			policy:        PolicyRenormalize,
			expectedScore: 70,
			expectedTier:  TierYellow,
			scored:        true,
		},
		{
			name:          "nothing reported",
			metrics:       Metrics{},
			policy:        PolicyRenormalize,
			expectedScore: 0,
			expectedTier:  TierRed,
			scored:        false,
		},
		{
			name:          "nothing reported zero filled",
			metrics:       Metrics{},
			policy:        PolicyZeroFill,
			expectedScore: 0,
			expectedTier:  TierRed,
			scored:        false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := mustEngine(t, DefaultWeights, tt.policy)

			result := e.Compute(tt.metrics)

			assert.Equal(t, tt.expectedScore, result.Score)
			assert.Equal(t, tt.expectedTier, result.Tier)
			assert.Equal(t, tt.scored, result.Scored)
		})
	}
}

func TestCompute_EffectiveWeightsSumToOne(t *testing.T) {
	m := Metrics{MathProficiency: Float64(40), ELAProgress: Float64(90)}

	result := Default.Compute(m)

	var sum float64
	for _, c := range result.Components {
		if !c.Present {
			assert.Zero(t, c.EffectiveWeight, "absent %s carries no weight", c.Family)
		}
		sum += c.EffectiveWeight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	// 40*0.4/0.7 + 90*0.3/0.7
	assert.Equal(t, 61.4, result.Score)
}

func TestCompute_ClampsAndIgnoresNonFinite(t *testing.T) {
	tests := []struct {
		name     string
		metrics  Metrics
		expected float64
	}{
		{
			name:     "above range clamps to 100",
			metrics:  fullMetrics(150, 120, 101),
			expected: 100,
		},
		{
			name:     "below range clamps to 0",
			metrics:  fullMetrics(-5, -20, -1),
			expected: 0,
		},
		{
			name: "mixed clamp averages clamped values",
			metrics: Metrics{
				ELAProficiency:  Float64(150),
				MathProficiency: Float64(-10),
			},
			expected: 50,
		},
		{
			name: "NaN counts as missing",
			metrics: Metrics{
				ELAProficiency:  Float64(math.NaN()),
				MathProficiency: Float64(80),
				ClimateScore:    Float64(math.Inf(1)),
			},
			expected: 80,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := OverallScore(tt.metrics)
			assert.Equal(t, tt.expected, score)
			assert.False(t, math.IsNaN(score))
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 100.0)
		})
	}
}

func TestCompute_CustomWeights(t *testing.T) {
	e := mustEngine(t, Weights{Academics: 1, Climate: 1, Progress: 1}, PolicyRenormalize)

	result := e.Compute(fullMetrics(90, 80, 70))

	assert.Equal(t, 80.0, result.Score)
	assert.Equal(t, TierGreen, result.Tier)
}

func TestCompute_ScoreStaysInRange(t *testing.T) {
	values := []float64{-50, 0, 0.05, 33.33, 59.95, 79.95, 99.99, 100, 250}
	for _, a := range values {
		for _, c := range values {
			for _, p := range values {
				score := OverallScore(fullMetrics(a, c, p))
				require.GreaterOrEqual(t, score, 0.0)
				require.LessOrEqual(t, score, 100.0)
			}
		}
	}
}

// ==========================
// Engine construction
// ==========================

func TestNewEngine_Validation(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		policy  MissingPolicy
		err     error
	}{
		{name: "defaults", weights: DefaultWeights, policy: PolicyRenormalize},
		{name: "empty policy", weights: DefaultWeights, policy: ""},
		{name: "zero weight", weights: Weights{Academics: 0.5, Climate: 0, Progress: 0.5}, policy: PolicyRenormalize, err: ErrInvalidWeights},
		{name: "negative weight", weights: Weights{Academics: -1, Climate: 1, Progress: 1}, policy: PolicyRenormalize, err: ErrInvalidWeights},
		{name: "NaN weight", weights: Weights{Academics: math.NaN(), Climate: 1, Progress: 1}, policy: PolicyRenormalize, err: ErrInvalidWeights},
		{name: "unknown policy", weights: DefaultWeights, policy: "average", err: ErrUnknownPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := NewEngine(tt.weights, tt.policy)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.Nil(t, e)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PolicyRenormalize, e.Policy())
			assert.Equal(t, tt.weights, e.Weights())
		})
	}
}

func TestParseMissingPolicy(t *testing.T) {
	p, err := ParseMissingPolicy("zero_fill")
	require.NoError(t, err)
	assert.Equal(t, PolicyZeroFill, p)

	p, err = ParseMissingPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyRenormalize, p)

	_, err = ParseMissingPolicy("drop")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestMetrics_HasAny(t *testing.T) {
	assert.False(t, Metrics{}.HasAny())
	assert.False(t, Metrics{ClimateScore: Float64(math.NaN())}.HasAny())
	assert.True(t, Metrics{MathProgress: Float64(0)}.HasAny())
}
