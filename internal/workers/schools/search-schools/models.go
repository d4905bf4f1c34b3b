package searchschools

import "nyc-kinder-workers/internal/models"

type Input struct {
	Keywords       string     `json:"keywords,omitempty"`
	Borough        string     `json:"borough,omitempty"`
	District       int        `json:"district,omitempty"`
	GiftedTalented bool       `json:"giftedTalented,omitempty"`
	Tiers          []string   `json:"tiers,omitempty"`
	MinScore       *float64   `json:"minScore,omitempty"`
	Pagination     Pagination `json:"pagination"`
}

type Pagination struct {
	From int `json:"from"`
	Size int `json:"size"`
}

type Output struct {
	Schools   []SearchHit `json:"schools"`
	TotalHits int64       `json:"totalHits"`
	MaxScore  float64     `json:"maxScore"`
	Took      int64       `json:"took"` // milliseconds
}

// SearchHit is a scored school plus its search relevance.
type SearchHit struct {
	models.ScoredSchool
	Relevance float64 `json:"relevance"`
}
