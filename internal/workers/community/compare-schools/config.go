package compareschools

import (
	"time"

	"github.com/jonboulle/clockwork"

	"nyc-kinder-workers/pkg/scoring"
)

type Config struct {
	Timeout    time.Duration
	MaxSchools int
	Engine     *scoring.Engine
	Clock      clockwork.Clock
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    10 * time.Second,
		MaxSchools: 4,
		Engine:     scoring.Default,
		Clock:      clockwork.NewRealClock(),
	}
}
