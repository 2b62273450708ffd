package profile

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// DSN points to where ledgersense stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI Configuration
	AIEnabled        bool   // LEDGERSENSE_AI_ENABLED
	AIProvider       string // LEDGERSENSE_AI_PROVIDER (default: openai)
	AIAPIKey         string // LEDGERSENSE_AI_API_KEY
	AIBaseURL        string // LEDGERSENSE_AI_BASE_URL (default: https://api.openai.com/v1)
	AIEmbeddingModel string // LEDGERSENSE_AI_EMBEDDING_MODEL (default: text-embedding-3-small)

	// Retrieval Configuration
	EmbeddingDimensions int           // LEDGERSENSE_EMBEDDING_DIMENSIONS (default: 256)
	SessionTTL          time.Duration // LEDGERSENSE_SESSION_TTL (default: 4h)
	MaxRows             int           // LEDGERSENSE_MAX_ROWS (default: 20)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the remote embedding provider is configured.
// The deterministic embedding path needs no configuration and is always available.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

// FromEnv loads configuration from LEDGERSENSE_* environment variables.
// Unset variables leave the current values unchanged, so callers can apply
// env defaults first and let explicitly parsed flags win afterwards.
func (p *Profile) FromEnv() {
	p.Mode = getEnvOrDefault("LEDGERSENSE_MODE", p.Mode)
	p.Addr = getEnvOrDefault("LEDGERSENSE_ADDR", p.Addr)
	p.Driver = getEnvOrDefault("LEDGERSENSE_DRIVER", p.Driver)
	p.DSN = getEnvOrDefault("LEDGERSENSE_DSN", p.DSN)

	p.AIEnabled = os.Getenv("LEDGERSENSE_AI_ENABLED") == "true"
	p.AIProvider = getEnvOrDefault("LEDGERSENSE_AI_PROVIDER", "openai")
	p.AIAPIKey = os.Getenv("LEDGERSENSE_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("LEDGERSENSE_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIEmbeddingModel = getEnvOrDefault("LEDGERSENSE_AI_EMBEDDING_MODEL", "text-embedding-3-small")

	p.EmbeddingDimensions = getIntEnvOrDefault("LEDGERSENSE_EMBEDDING_DIMENSIONS", 256)
	p.SessionTTL = getDurationEnvOrDefault("LEDGERSENSE_SESSION_TTL", 4*time.Hour)
	p.MaxRows = getIntEnvOrDefault("LEDGERSENSE_MAX_ROWS", 20)
}

func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'postgres' and 'sqlite' are supported", p.Driver)
	}

	if p.DSN == "" {
		return errors.New("DSN is required")
	}

	if p.EmbeddingDimensions <= 0 {
		p.EmbeddingDimensions = 256
	}
	if p.SessionTTL <= 0 {
		p.SessionTTL = 4 * time.Hour
	}
	if p.MaxRows <= 0 {
		p.MaxRows = 20
	}

	return nil
}
