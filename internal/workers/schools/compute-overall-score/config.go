package computeoverallscore

import (
	"time"

	"nyc-kinder-workers/pkg/scoring"
)

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
	Engine   *scoring.Engine
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		CacheTTL: 10 * time.Minute,
		Engine:   scoring.Default,
	}
}
