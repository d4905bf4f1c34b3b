package classifyborough

import "time"

type Config struct {
	Timeout time.Duration
	MaxDBNs int
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		MaxDBNs: 1000,
	}
}
