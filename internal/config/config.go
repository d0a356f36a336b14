package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/benvon/smartmatch/internal/apperr"
	"gopkg.in/yaml.v3"
)

const (
	// SinkDirect persists batched views straight to the database
	SinkDirect = "direct"
	// SinkQueue publishes batched views to RabbitMQ for the worker to persist
	SinkQueue = "queue"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	InteractionSink  string
	RateLimit        string
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
	OTELInsecure     bool
	// MaintenanceSchedule is the cron spec for pruning old view rows
	MaintenanceSchedule string
	ViewRetention       time.Duration
	Pipeline            PipelineConfig
}

// PipelineConfig holds the signal pipeline tunables. The values are conservative
// defaults; none of them are domain constants.
type PipelineConfig struct {
	PresenceGraceWindow         time.Duration `yaml:"presence_grace_window"`
	PresenceChannel             string        `yaml:"presence_channel"`
	BatchFlushInterval          time.Duration `yaml:"batch_flush_interval"`
	BatchMaxSize                int           `yaml:"batch_max_size"`
	RecommendationTTL           time.Duration `yaml:"recommendation_ttl"`
	RecommendationSweepSchedule string        `yaml:"recommendation_sweep_schedule"`
	IOTimeout                   time.Duration `yaml:"io_timeout"`
	ScorerCandidateLimit        int           `yaml:"scorer_candidate_limit"`
	DefaultPageSize             int           `yaml:"default_page_size"`
	MaxPageSize                 int           `yaml:"max_page_size"`
	SessionIdleTimeout          time.Duration `yaml:"session_idle_timeout"`
}

// DefaultPipeline returns the pipeline defaults
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		PresenceGraceWindow:         5 * time.Minute,
		PresenceChannel:             "online",
		BatchFlushInterval:          3 * time.Second,
		BatchMaxSize:                50,
		RecommendationTTL:           10 * time.Minute,
		RecommendationSweepSchedule: "@every 1m",
		IOTimeout:                   5 * time.Second,
		ScorerCandidateLimit:        500,
		DefaultPageSize:             20,
		MaxPageSize:                 100,
		SessionIdleTimeout:          24 * time.Hour,
	}
}

// Load loads configuration from environment variables, optionally overlaying
// pipeline tunables from the YAML file named by PIPELINE_CONFIG_FILE.
// Precedence: defaults, then file, then environment.
func Load() (*Config, error) {
	pipeline := DefaultPipeline()
	if path := getEnv("PIPELINE_CONFIG_FILE", ""); path != "" {
		if err := LoadPipelineFile(path, &pipeline); err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 10),
		InteractionSink:  strings.ToLower(getEnv("INTERACTION_SINK", SinkDirect)),
		RateLimit:        getEnv("RATE_LIMIT", "20-S"),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELInsecure:     getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		// Views are high volume and only feed the candidate filter briefly
		MaintenanceSchedule: getEnv("MAINTENANCE_SCHEDULE", "@daily"),
		ViewRetention:       getEnvDuration("VIEW_RETENTION", 30*24*time.Hour),
		Pipeline: PipelineConfig{
			PresenceGraceWindow:         getEnvDuration("PRESENCE_GRACE_WINDOW", pipeline.PresenceGraceWindow),
			PresenceChannel:             getEnv("PRESENCE_CHANNEL", pipeline.PresenceChannel),
			BatchFlushInterval:          getEnvDuration("BATCH_FLUSH_INTERVAL", pipeline.BatchFlushInterval),
			BatchMaxSize:                getEnvInt("BATCH_MAX_SIZE", pipeline.BatchMaxSize),
			RecommendationTTL:           getEnvDuration("RECOMMENDATION_TTL", pipeline.RecommendationTTL),
			RecommendationSweepSchedule: getEnv("RECOMMENDATION_SWEEP_SCHEDULE", pipeline.RecommendationSweepSchedule),
			IOTimeout:                   getEnvDuration("IO_TIMEOUT", pipeline.IOTimeout),
			ScorerCandidateLimit:        getEnvInt("SCORER_CANDIDATE_LIMIT", pipeline.ScorerCandidateLimit),
			DefaultPageSize:             getEnvInt("DEFAULT_PAGE_SIZE", pipeline.DefaultPageSize),
			MaxPageSize:                 getEnvInt("MAX_PAGE_SIZE", pipeline.MaxPageSize),
			SessionIdleTimeout:          getEnvDuration("SESSION_IDLE_TIMEOUT", pipeline.SessionIdleTimeout),
		},
	}

	if cfg.DatabaseURL == "" {
		return nil, apperr.Configuration("DATABASE_URL is required")
	}

	if cfg.InteractionSink != SinkDirect && cfg.InteractionSink != SinkQueue {
		return nil, apperr.Configuration("INTERACTION_SINK must be %q or %q, got %q", SinkDirect, SinkQueue, cfg.InteractionSink)
	}

	if cfg.InteractionSink == SinkQueue && cfg.RabbitMQURL == "" {
		return nil, apperr.Configuration("RABBITMQ_URL is required when INTERACTION_SINK=queue")
	}

	if cfg.ViewRetention <= 0 {
		return nil, apperr.Configuration("VIEW_RETENTION must be positive")
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadPipelineFile overlays values present in the YAML file at path onto p.
func LoadPipelineFile(path string, p *PipelineConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read pipeline config file: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return fmt.Errorf("failed to parse pipeline config file: %w", err)
	}
	return nil
}

// Validate rejects tunables that would disable a safety bound
func (p PipelineConfig) Validate() error {
	switch {
	case p.PresenceGraceWindow <= 0:
		return apperr.Configuration("presence grace window must be positive")
	case p.PresenceChannel == "":
		return apperr.Configuration("presence channel is required")
	case p.BatchFlushInterval <= 0:
		return apperr.Configuration("batch flush interval must be positive")
	case p.BatchMaxSize <= 0:
		return apperr.Configuration("batch max size must be positive")
	case p.RecommendationTTL <= 0:
		return apperr.Configuration("recommendation ttl must be positive")
	case p.IOTimeout <= 0:
		return apperr.Configuration("io timeout must be positive")
	case p.ScorerCandidateLimit <= 0:
		return apperr.Configuration("scorer candidate limit must be positive")
	case p.DefaultPageSize <= 0 || p.MaxPageSize < p.DefaultPageSize:
		return apperr.Configuration("page sizes must be positive and max_page_size >= default_page_size")
	case p.SessionIdleTimeout <= 0:
		return apperr.Configuration("session idle timeout must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
