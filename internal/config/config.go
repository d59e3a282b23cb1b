package config

import (
	"os"
	"strconv"
	"time"

	"vennqca/internal/errors"
	"vennqca/models"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Ops      OpsConfig
	Engine   EngineConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// OpsConfig holds the operational sidecar settings (health, pprof)
type OpsConfig struct {
	Port    string
	Enabled bool
}

// EngineConfig holds intersection engine settings
type EngineConfig struct {
	// MaxExpressionDepth caps expression tree nesting.
	MaxExpressionDepth int
	// VariableModeOperator combines one variable's proxies when a legacy
	// variable-based intersection normalizes (AND or OR).
	VariableModeOperator models.Operator
	// ExportParallelism bounds concurrent per-organization evaluation
	// during truth-table export.
	ExportParallelism int
	// TreeCacheTTL bounds how long a normalized tree stays cached after its
	// last write-driven invalidation.
	TreeCacheTTL time.Duration
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	cfg := &Config{
		Database: DatabaseConfig{URL: dbURL},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Ops: OpsConfig{
			Port:    getEnvOrDefault("OPS_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
		},
		Engine: EngineConfig{
			MaxExpressionDepth:   getEnvIntOrDefault("ENGINE_MAX_EXPRESSION_DEPTH", 20),
			VariableModeOperator: models.Operator(getEnvOrDefault("ENGINE_VARIABLE_MODE_OPERATOR", "OR")),
			ExportParallelism:    getEnvIntOrDefault("ENGINE_EXPORT_PARALLELISM", 8),
			TreeCacheTTL:         getEnvDurationOrDefault("ENGINE_TREE_CACHE_TTL", 5*time.Minute),
		},
	}

	if !models.ValidOperator(cfg.Engine.VariableModeOperator) {
		return nil, errors.ConfigInvalid("ENGINE_VARIABLE_MODE_OPERATOR must be AND or OR")
	}
	if cfg.Engine.MaxExpressionDepth <= 0 {
		return nil, errors.ConfigInvalid("ENGINE_MAX_EXPRESSION_DEPTH must be positive")
	}
	if cfg.Engine.ExportParallelism <= 0 {
		cfg.Engine.ExportParallelism = 1
	}

	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBoolOrDefault(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
