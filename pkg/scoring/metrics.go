// pkg/scoring/metrics.go
package scoring

import "math"

// Metrics are the raw sub-metrics of a school. Nil means the metric is not
// reported for that school (for example progress on a brand-new school).
type Metrics struct {
	ELAProficiency  *float64 `json:"elaProficiency,omitempty"`
	MathProficiency *float64 `json:"mathProficiency,omitempty"`
	ClimateScore    *float64 `json:"climateScore,omitempty"`
	ELAProgress     *float64 `json:"elaProgress,omitempty"`
	MathProgress    *float64 `json:"mathProgress,omitempty"`
}

// Float64 returns a pointer to v.
func Float64(v float64) *float64 {
	return &v
}

// Family groups sub-metrics into one weighted component of the score.
type Family string

const (
	Academics Family = "academics"
	Climate   Family = "climate"
	Progress  Family = "progress"
)

// Families lists the score families in weighting order.
var Families = []Family{Academics, Climate, Progress}

// familyValue averages the usable metrics of a family. ok is false when
// none of them are usable.
func (m Metrics) familyValue(f Family) (float64, bool) {
	switch f {
	case Academics:
		return mean(m.ELAProficiency, m.MathProficiency)
	case Climate:
		return mean(m.ClimateScore)
	case Progress:
		return mean(m.ELAProgress, m.MathProgress)
	}
	return 0, false
}

// HasAny reports whether at least one family can be scored.
func (m Metrics) HasAny() bool {
	for _, f := range Families {
		if _, ok := m.familyValue(f); ok {
			return true
		}
	}
	return false
}

func mean(values ...*float64) (float64, bool) {
	var sum float64
	n := 0
	for _, v := range values {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			continue
		}
		sum += clamp(*v)
		n++
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
