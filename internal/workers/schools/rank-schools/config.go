package rankschools

import (
	"time"

	"nyc-kinder-workers/pkg/scoring"
)

type Config struct {
	MaxItems int
	Timeout  time.Duration
	Engine   *scoring.Engine
}

func LoadConfig() *Config {
	return &Config{
		MaxItems: 100,
		Timeout:  30 * time.Second,
		Engine:   scoring.Default,
	}
}
