package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the binaries need. It is loaded once and passed
// to constructors; nothing reads the environment after Load.
type Config struct {
	// Webhook ingress
	WebhookSecret    string
	PublicWebhookURL string

	// GitHub REST
	GitHubAPIURL  string
	GitHubTimeout time.Duration

	// Persistence
	DBDriver    string
	DatabaseURL string

	// Completion inference
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	InferenceTimeout time.Duration

	// Servers
	RESTPort string
	GRPCPort string

	// Temporal; outbound sync runs inline when TemporalAddress is empty
	TemporalAddress   string
	TemporalNamespace string
	TaskQueue         string
}

// Load reads configuration from the environment, after applying an optional .env file
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		WebhookSecret:     getEnv("GITHUB_WEBHOOK_SECRET", ""),
		PublicWebhookURL:  getEnv("PUBLIC_WEBHOOK_URL", ""),
		GitHubAPIURL:      strings.TrimRight(getEnv("GITHUB_API_URL", ""), "/"),
		GitHubTimeout:     getDuration("GITHUB_TIMEOUT", 10*time.Second),
		DBDriver:          getEnv("DB_DRIVER", "sqlite3"),
		DatabaseURL:       getEnv("DATABASE_URL", "file:tasksync.db"),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		InferenceTimeout:  getDuration("INFERENCE_TIMEOUT", 30*time.Second),
		RESTPort:          getEnv("REST_PORT", "8080"),
		GRPCPort:          getEnv("GRPC_PORT", "9090"),
		TemporalAddress:   getEnv("TEMPORAL_ADDRESS", ""),
		TemporalNamespace: getEnv("TEMPORAL_NAMESPACE", "default"),
		TaskQueue:         getEnv("TASK_QUEUE", "feature-sync-queue"),
	}
}

// TemporalEnabled reports whether outbound sync should go through Temporal
func (c *Config) TemporalEnabled() bool {
	return c.TemporalAddress != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go duration strings ("10s") or a bare number of seconds
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
