package managereviews

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type Config struct {
	Timeout         time.Duration
	MaxReviewLength int
	// ModeratorEmail receives a copy of every new review. Empty disables
	// the notification.
	ModeratorEmail string
	Clock          clockwork.Clock
}

func LoadConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		MaxReviewLength: 2000,
		Clock:           clockwork.NewRealClock(),
	}
}
