// pkg/scoring/engine.go
package scoring

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidWeights = errors.New("invalid score weights")
	ErrUnknownPolicy  = errors.New("unknown missing-data policy")
)

// Weights are the relative weights of each family. They do not need to sum
// to 1; the engine divides by the weight actually applied.
type Weights struct {
	Academics float64 `json:"academics"`
	Climate   float64 `json:"climate"`
	Progress  float64 `json:"progress"`
}

// DefaultWeights is the published 40/30/30 split.
var DefaultWeights = Weights{Academics: 0.40, Climate: 0.30, Progress: 0.30}

func (w Weights) of(f Family) float64 {
	switch f {
	case Academics:
		return w.Academics
	case Climate:
		return w.Climate
	case Progress:
		return w.Progress
	}
	return 0
}

func (w Weights) validate() error {
	for _, f := range Families {
		v := w.of(f)
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s weight %v must be a positive finite number", ErrInvalidWeights, f, v)
		}
	}
	return nil
}

// MissingPolicy decides what happens to the weight of an absent family.
type MissingPolicy string

const (
	// PolicyRenormalize drops absent families and rescales the remaining
	// weights so the score stays on a 0-100 scale.
	PolicyRenormalize MissingPolicy = "renormalize"
	// PolicyZeroFill scores absent families as 0.
	PolicyZeroFill MissingPolicy = "zero_fill"
)

// ParseMissingPolicy maps a config value to a policy; "" means renormalize.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", PolicyRenormalize:
		return PolicyRenormalize, nil
	case PolicyZeroFill:
		return PolicyZeroFill, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

// Component is one family's contribution to a result.
type Component struct {
	Family          Family  `json:"family"`
	Value           float64 `json:"value"`
	Present         bool    `json:"present"`
	Weight          float64 `json:"weight"`
	EffectiveWeight float64 `json:"effectiveWeight"`
}

// Result is the full breakdown of an overall score.
type Result struct {
	Score      float64     `json:"score"`
	Tier       Tier        `json:"tier"`
	TierLabel  string      `json:"tierLabel"`
	Scored     bool        `json:"scored"`
	Components []Component `json:"components"`
}

// Engine computes overall scores. It is immutable and safe for concurrent use.
type Engine struct {
	weights Weights
	policy  MissingPolicy
}

// NewEngine validates the weights and policy.
func NewEngine(weights Weights, policy MissingPolicy) (*Engine, error) {
	if err := weights.validate(); err != nil {
		return nil, err
	}
	if _, err := ParseMissingPolicy(string(policy)); err != nil {
		return nil, err
	}
	if policy == "" {
		policy = PolicyRenormalize
	}
	return &Engine{weights: weights, policy: policy}, nil
}

// Default uses DefaultWeights with renormalization.
var Default = &Engine{weights: DefaultWeights, policy: PolicyRenormalize}

// Weights returns the family weights the engine applies.
func (e *Engine) Weights() Weights {
	return e.weights
}

// Policy returns how the engine treats a missing family.
func (e *Engine) Policy() MissingPolicy {
	return e.policy
}

// Compute scores m. A school with no usable family gets Score 0 and
// Scored false; callers decide whether to show it.
func (e *Engine) Compute(m Metrics) Result {
	components := make([]Component, 0, len(Families))
	var weighted, applied float64
	scored := false

	for _, f := range Families {
		w := e.weights.of(f)
		v, ok := m.familyValue(f)
		c := Component{Family: f, Value: round1(v), Present: ok, Weight: w}

		switch {
		case ok:
			weighted += v * w
			applied += w
			scored = true
		case e.policy == PolicyZeroFill:
			applied += w
		}
		components = append(components, c)
	}

	if !scored || applied == 0 {
		return Result{
			Score:      0,
			Tier:       TierRed,
			TierLabel:  TierRed.Label(),
			Components: components,
		}
	}

	for i := range components {
		if components[i].Present || e.policy == PolicyZeroFill {
			components[i].EffectiveWeight = components[i].Weight / applied
		}
	}

	score := round1(clamp(weighted / applied))
	tier := ScoreColor(score)
	return Result{
		Score:      score,
		Tier:       tier,
		TierLabel:  tier.Label(),
		Scored:     true,
		Components: components,
	}
}

// OverallScore is Compute(m).Score on the default engine.
func OverallScore(m Metrics) float64 {
	return Default.Compute(m).Score
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
