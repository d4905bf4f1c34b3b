package managefavorites

import (
	"time"

	"github.com/jonboulle/clockwork"
)

type Config struct {
	Timeout time.Duration
	Clock   clockwork.Clock
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		Clock:   clockwork.NewRealClock(),
	}
}
