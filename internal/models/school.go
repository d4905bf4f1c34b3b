package models

import (
	"nyc-kinder-workers/pkg/geography"
	"nyc-kinder-workers/pkg/scoring"
)

// School is a row of the schools table. Metric columns are nullable.
type School struct {
	DBN             string   `json:"dbn"`
	Name            string   `json:"name"`
	District        int      `json:"district"`
	ELAProficiency  *float64 `json:"elaProficiency,omitempty"`
	MathProficiency *float64 `json:"mathProficiency,omitempty"`
	ClimateScore    *float64 `json:"climateScore,omitempty"`
	ELAProgress     *float64 `json:"elaProgress,omitempty"`
	MathProgress    *float64 `json:"mathProgress,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	GiftedTalented  bool     `json:"giftedTalented"`
}

// Metrics returns the scoring inputs of the record.
func (s School) Metrics() scoring.Metrics {
	return scoring.Metrics{
		ELAProficiency:  s.ELAProficiency,
		MathProficiency: s.MathProficiency,
		ClimateScore:    s.ClimateScore,
		ELAProgress:     s.ELAProgress,
		MathProgress:    s.MathProgress,
	}
}

// ScoredSchool is a school together with its computed overall score.
type ScoredSchool struct {
	School
	Borough   geography.Borough `json:"borough,omitempty"`
	Score     float64           `json:"score"`
	Tier      scoring.Tier      `json:"tier"`
	TierLabel string            `json:"tierLabel"`
	Scored    bool              `json:"scored"`
}

// Score runs e over s. The borough comes from the DBN, not the stored
// district column.
func Score(e *scoring.Engine, s School) ScoredSchool {
	result := e.Compute(s.Metrics())
	borough, _ := geography.BoroughFromDBN(s.DBN)
	return ScoredSchool{
		School:    s,
		Borough:   borough,
		Score:     result.Score,
		Tier:      result.Tier,
		TierLabel: result.TierLabel,
		Scored:    result.Scored,
	}
}
