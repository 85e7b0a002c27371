package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	ServerPort string
	ServerHost string

	// Storage backend for the import cache and circuit breaker state.
	// "redis" (default) or "postgres".
	StoreBackend string

	// Database configuration (used when StoreBackend is "postgres")
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Normalization provider configuration
	AnthropicAPIKey string
	AnthropicAPIURL string
	AnthropicModel  string
	OpenAIAPIKey    string
	OpenAIAPIURL    string
	OpenAIModel     string
	LLMTimeout      time.Duration

	// Import pipeline tunables
	MaxIngredients     int
	MaxSteps           int
	MaxIngredientChars int
	MaxStepChars       int
	FetchTimeout       time.Duration
	MaxResponseBytes   int64
	MaxRedirects       int
	CircuitThreshold   int
	CircuitCooldown    time.Duration
	CacheTTL           time.Duration

	// Rate limiting for the import endpoint
	ImportRateLimit  int
	ImportRateWindow time.Duration
}

// LoadConfig creates a new Config instance with values from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		ServerHost: getEnv("SERVER_HOST", "0.0.0.0"),

		StoreBackend: getEnv("IMPORT_STORE_BACKEND", "redis"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "mealtogether"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisURL:      os.Getenv("REDIS_URL"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicAPIURL: getEnv("ANTHROPIC_API_URL", "https://api.anthropic.com/v1/messages"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIAPIURL:    getEnv("OPENAI_API_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o"),
		LLMTimeout:      getEnvSeconds("RECIPE_IMPORT_LLM_TIMEOUT_SECONDS", 12*time.Second),

		MaxIngredients:     getEnvInt("RECIPE_IMPORT_MAX_INGREDIENTS", 50),
		MaxSteps:           getEnvInt("RECIPE_IMPORT_MAX_STEPS", 30),
		MaxIngredientChars: getEnvInt("RECIPE_IMPORT_MAX_INGREDIENT_CHARS", 100),
		MaxStepChars:       getEnvInt("RECIPE_IMPORT_MAX_STEP_CHARS", 500),
		FetchTimeout:       getEnvSeconds("RECIPE_IMPORT_TIMEOUT_SECONDS", 10*time.Second),
		MaxResponseBytes:   int64(getEnvInt("RECIPE_IMPORT_MAX_SIZE_BYTES", 5242880)),
		MaxRedirects:       getEnvInt("RECIPE_IMPORT_MAX_REDIRECTS", 3),
		CircuitThreshold:   getEnvInt("RECIPE_IMPORT_CIRCUIT_FAILURE_THRESHOLD", 5),
		CircuitCooldown:    getEnvMinutes("RECIPE_IMPORT_CIRCUIT_COOLDOWN_MINUTES", 15*time.Minute),
		CacheTTL:           getEnvMinutes("RECIPE_IMPORT_CACHE_TTL_MINUTES", 24*time.Hour),

		ImportRateLimit:  getEnvInt("RECIPE_IMPORT_RATE_LIMIT", 10),
		ImportRateWindow: getEnvMinutes("RECIPE_IMPORT_RATE_WINDOW_MINUTES", time.Hour),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.StoreBackend {
	case "redis", "postgres":
	default:
		return fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	if cfg.MaxIngredients < 1 || cfg.MaxSteps < 1 {
		return fmt.Errorf("ingredient/step limits must be positive")
	}
	if cfg.MaxRedirects < 0 {
		return fmt.Errorf("max redirects must not be negative")
	}
	if cfg.MaxResponseBytes < 1 {
		return fmt.Errorf("max response bytes must be positive")
	}
	if cfg.CircuitThreshold < 1 {
		return fmt.Errorf("circuit failure threshold must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func getEnvMinutes(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Minute
		}
	}
	return fallback
}
