package searchschools

import (
	"time"

	"nyc-kinder-workers/pkg/scoring"
)

type Config struct {
	Index       string
	DefaultSize int
	MaxSize     int
	Timeout     time.Duration
	Engine      *scoring.Engine
}

func LoadConfig() *Config {
	return &Config{
		Index:       "schools",
		DefaultSize: 20,
		MaxSize:     100,
		Timeout:     30 * time.Second,
		Engine:      scoring.Default,
	}
}
