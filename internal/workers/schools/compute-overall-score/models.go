package computeoverallscore

import (
	"nyc-kinder-workers/internal/models"
	"nyc-kinder-workers/pkg/geography"
	"nyc-kinder-workers/pkg/scoring"
)

// Input names a school by DBN, or carries the record inline. Inline
// records are scored as given and never cached.
type Input struct {
	DBN        string         `json:"dbn,omitempty"`
	School     *models.School `json:"school,omitempty"`
	RequireNYC bool           `json:"requireNyc,omitempty"`
}

type Output struct {
	DBN        string              `json:"dbn"`
	Name       string              `json:"name"`
	District   int                 `json:"district"`
	Borough    geography.Borough   `json:"borough,omitempty"`
	IsNYC      bool                `json:"isNyc"`
	Score      float64             `json:"score"`
	Tier       scoring.Tier        `json:"tier"`
	TierLabel  string              `json:"tierLabel"`
	Scored     bool                `json:"scored"`
	Components []scoring.Component `json:"components"`
	Cached     bool                `json:"cached"`
}
