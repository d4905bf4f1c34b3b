package compareschools

import "nyc-kinder-workers/internal/models"

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionClear  Action = "clear"
	ActionView   Action = "view"
)

type Input struct {
	Action Action `json:"action"`
	UserID string `json:"userId"`
	DBN    string `json:"dbn,omitempty"`
}

type Output struct {
	Action Action   `json:"action"`
	DBNs   []string `json:"dbns"`
	// Schools and Missing are only filled by view. Schools follow the
	// selection order; Missing lists selected DBNs no longer stored.
	Schools []models.ScoredSchool `json:"schools,omitempty"`
	Missing []string              `json:"missing,omitempty"`
}
