package managereviews

import "nyc-kinder-workers/internal/models"

type Action string

const (
	ActionSubmit Action = "submit"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
)

type Input struct {
	Action   Action `json:"action"`
	UserID   string `json:"userId,omitempty"`
	DBN      string `json:"dbn,omitempty"`
	ReviewID string `json:"reviewId,omitempty"`
	Rating   int    `json:"rating,omitempty"`
	Body     string `json:"body,omitempty"`
}

type Output struct {
	Action            Action                `json:"action"`
	Review            *models.Review        `json:"review,omitempty"`
	Reviews           []models.Review       `json:"reviews,omitempty"`
	Summary           *models.ReviewSummary `json:"summary,omitempty"`
	ModeratorNotified bool                  `json:"moderatorNotified"`
}
