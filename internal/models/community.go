package models

import "time"

type Favorite struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	DBN       string    `json:"dbn"`
	CreatedAt time.Time `json:"createdAt"`
}

type Review struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	DBN       string    `json:"dbn"`
	Rating    int       `json:"rating"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewSummary is the aggregate shown next to a school's reviews.
type ReviewSummary struct {
	DBN           string  `json:"dbn"`
	Count         int     `json:"count"`
	AverageRating float64 `json:"averageRating"`
}

// Selection is the ordered set of schools a user is comparing.
type Selection struct {
	UserID    string    `json:"userId"`
	DBNs      []string  `json:"dbns"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Contains reports whether dbn is already selected.
func (s Selection) Contains(dbn string) bool {
	for _, d := range s.DBNs {
		if d == dbn {
			return true
		}
	}
	return false
}
