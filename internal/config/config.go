package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ModelConfig is one (model, resolution) pair in the Veo fallback chain.
type ModelConfig struct {
	Model      string
	Resolution string
}

// DefaultModelFallbacks is the ordered fallback chain tried on submission:
// fast models at high resolution first, standard models at lower resolution last.
var DefaultModelFallbacks = []ModelConfig{
	{Model: "veo-3.1-fast-generate-preview", Resolution: "1080p"},
	{Model: "veo-3.1-generate-preview", Resolution: "1080p"},
	{Model: "veo-3.1-fast-generate-preview", Resolution: "720p"},
	{Model: "veo-3.1-generate-preview", Resolution: "720p"},
}

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Gemini / Veo — the system credential for generation and enhancement.
	// May legitimately be empty: the generator then rejects requests with a
	// credential-missing error until an administrator configures it.
	GeminiKey string

	// OpenAI (legacy enhancement provider — used when preferring it over Gemini)
	OpenAIKey string

	// Credits
	CostPerVideo int // Credits charged per generated video

	// Feature flags (admin console toggles)
	VideoGenerationEnabled bool
	EnhancementEnabled     bool

	// Veo generation
	ModelFallbacks []ModelConfig // Ordered (model, resolution) submission chain
	PollBaseDelay  time.Duration // First poll delay
	PollStepDelay  time.Duration // Added per poll
	PollMaxDelay   time.Duration // Backoff cap
	MaxPolls       int           // 0 = poll forever (matches the dashboard's behavior)

	// Worker
	MaxConcurrentJobs int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	fallbacks, err := ParseModelFallbacks(getEnv("VEO_MODEL_FALLBACKS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid VEO_MODEL_FALLBACKS: %w", err)
	}

	cfg := &Config{
		APIPort:                getEnv("API_PORT", "8080"),
		WorkerEnabled:          getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:          getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins:     getEnv("CORS_ALLOWED_ORIGINS", ""),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379"),
		GeminiKey:              getEnv("GEMINI_API_KEY", ""),
		OpenAIKey:              getEnv("OPENAI_API_KEY", ""),
		CostPerVideo:           getEnvInt("COST_PER_VIDEO", 20),
		VideoGenerationEnabled: getEnvBool("VIDEO_GENERATION_ENABLED", true),
		EnhancementEnabled:     getEnvBool("ENHANCEMENT_ENABLED", true),
		ModelFallbacks:         fallbacks,
		PollBaseDelay:          getEnvDuration("VEO_POLL_BASE_DELAY", 5*time.Second),
		PollStepDelay:          getEnvDuration("VEO_POLL_STEP_DELAY", 1*time.Second),
		PollMaxDelay:           getEnvDuration("VEO_POLL_MAX_DELAY", 10*time.Second),
		MaxPolls:               getEnvInt("VEO_MAX_POLLS", 0),
		MaxConcurrentJobs:      getEnvInt("MAX_CONCURRENT_JOBS", 2),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.CostPerVideo <= 0 {
		return nil, fmt.Errorf("COST_PER_VIDEO must be positive")
	}

	return cfg, nil
}

// ParseModelFallbacks parses a comma-separated "model:resolution" list, e.g.
// "veo-3.1-fast-generate-preview:1080p,veo-3.1-generate-preview:720p".
// An empty string yields DefaultModelFallbacks.
func ParseModelFallbacks(raw string) ([]ModelConfig, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultModelFallbacks, nil
	}

	var configs []ModelConfig
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("expected model:resolution, got %q", entry)
		}

		configs = append(configs, ModelConfig{
			Model:      strings.TrimSpace(parts[0]),
			Resolution: strings.TrimSpace(parts[1]),
		})
	}

	if len(configs) == 0 {
		return nil, fmt.Errorf("no usable entries in %q", raw)
	}

	return configs, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
