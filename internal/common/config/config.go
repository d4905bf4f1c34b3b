// internal/common/config/config.go
package config

import (
	"fmt"

	"nyc-kinder-workers/pkg/scoring"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Scoring       ScoringConfig           `mapstructure:"scoring"`
	Search        SearchConfig            `mapstructure:"search"`
	Community     CommunityConfig         `mapstructure:"community"`
	Cleanup       CleanupConfig           `mapstructure:"cleanup"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Server        ServerConfig            `mapstructure:"server"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	Plaintext      bool   `mapstructure:"plaintext"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Domain Configuration Sections ---

// ScoringConfig controls the overall-score engine and its cache.
type ScoringConfig struct {
	Weights struct {
		Academics float64 `mapstructure:"academics"`
		Climate   float64 `mapstructure:"climate"`
		Progress  float64 `mapstructure:"progress"`
	} `mapstructure:"weights"`
	MissingPolicy string `mapstructure:"missing_policy"`
	CacheTTL      int    `mapstructure:"cache_ttl"` // seconds
	MaxRanked     int    `mapstructure:"max_ranked"`
}

// Engine builds the score engine described by the config.
func (s ScoringConfig) Engine() (*scoring.Engine, error) {
	policy, err := scoring.ParseMissingPolicy(s.MissingPolicy)
	if err != nil {
		return nil, err
	}
	return scoring.NewEngine(scoring.Weights{
		Academics: s.Weights.Academics,
		Climate:   s.Weights.Climate,
		Progress:  s.Weights.Progress,
	}, policy)
}

// SearchConfig holds settings for the search-schools worker.
type SearchConfig struct {
	Index       string `mapstructure:"index"`
	DefaultSize int    `mapstructure:"default_size"`
	MaxSize     int    `mapstructure:"max_size"`
}

// CommunityConfig holds settings for favorites, reviews and comparisons.
type CommunityConfig struct {
	MaxReviewLength   int `mapstructure:"max_review_length"`
	MaxCompareSchools int `mapstructure:"max_compare_schools"`
	SelectionTTL      int `mapstructure:"selection_ttl"` // seconds
}

// CleanupConfig holds settings for the borough cleanup job.
type CleanupConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

// NotificationConfig holds the AWS delivery settings.
type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
	Email struct {
		Enabled        bool   `mapstructure:"enabled"`
		FromEmail      string `mapstructure:"from_email"`
		ModeratorEmail string `mapstructure:"moderator_email"`
	} `mapstructure:"email"`
	Alerts struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"alerts"`
}

// ServerConfig is the ops HTTP server (health, readiness, metrics).
type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
