package rankschools

import "nyc-kinder-workers/internal/models"

type Input struct {
	Schools []models.School `json:"schools"`
	Filters Filters         `json:"filters"`
	Limit   int             `json:"limit,omitempty"`
}

// Filters narrow the ranked list. Zero values do not filter.
type Filters struct {
	Borough            string   `json:"borough,omitempty"`
	District           int      `json:"district,omitempty"`
	MinScore           *float64 `json:"minScore,omitempty"`
	Tiers              []string `json:"tiers,omitempty"`
	GiftedTalentedOnly bool     `json:"giftedTalentedOnly,omitempty"`
	Name               string   `json:"name,omitempty"`
	IncludeUnscored    bool     `json:"includeUnscored,omitempty"`
}

type Output struct {
	RankedSchools []RankedSchool `json:"rankedSchools"`
	TotalMatched  int            `json:"totalMatched"`
	Excluded      Exclusions     `json:"excluded"`
}

type RankedSchool struct {
	Rank int `json:"rank"`
	models.ScoredSchool
}

// Exclusions counts why input schools did not make the list.
type Exclusions struct {
	NonNYC    int `json:"nonNyc"`
	Duplicate int `json:"duplicate"`
	Unscored  int `json:"unscored"`
	Filtered  int `json:"filtered"`
}
