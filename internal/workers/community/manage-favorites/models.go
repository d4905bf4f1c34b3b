package managefavorites

import "nyc-kinder-workers/internal/models"

type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionList   Action = "list"
)

type Input struct {
	Action     Action `json:"action"`
	UserID     string `json:"userId"`
	DBN        string `json:"dbn,omitempty"`
	FavoriteID string `json:"favoriteId,omitempty"`
}

type Output struct {
	Action    Action            `json:"action"`
	Favorite  *models.Favorite  `json:"favorite,omitempty"`
	Favorites []models.Favorite `json:"favorites,omitempty"`
	Count     int               `json:"count"`
}
