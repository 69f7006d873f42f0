package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the .env file specified by SCOUTLENS_ENV (or .env by default),
// then loads the corresponding .secret file if it exists.
// All config is flat env vars read via os.Getenv after loading.
func Load() error {
	envFile := os.Getenv("SCOUTLENS_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Load main env file (ignore error if file doesn't exist)
	_ = godotenv.Load(envFile)

	// Load secret sidecar if it exists
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func intEnv(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func floatEnv(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func ServerPort() int {
	return intEnv("SERVER_PORT", 8080)
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}

// RateLimitRPS returns the per-IP requests per second limit for the API.
func RateLimitRPS() float64 {
	return floatEnv("RATE_LIMIT_RPS", 100)
}

// RateLimitBurst returns the burst size for API rate limiting.
func RateLimitBurst() int {
	return intEnv("RATE_LIMIT_BURST", 20)
}

// LLMProvider returns the configured inference provider name.
// Valid values: openai, deepseek, mock. Defaults to "openai".
func LLMProvider() string {
	p := os.Getenv("LLM_PROVIDER")
	if p == "" {
		return "openai"
	}
	return p
}

func LLMAPIKey() string {
	return os.Getenv("LLM_API_KEY")
}

func LLMBaseURL() string {
	return os.Getenv("LLM_BASE_URL")
}

func LLMModel() string {
	return os.Getenv("LLM_MODEL")
}

func LLMTimeout() time.Duration {
	return time.Duration(intEnv("LLM_TIMEOUT_SECONDS", 120)) * time.Second
}

func LLMRetries() int {
	return intEnv("LLM_RETRIES", 3)
}

// LLMFallbackProvider returns the secondary inference provider name.
// Empty disables provider fallback.
func LLMFallbackProvider() string {
	return os.Getenv("LLM_FALLBACK_PROVIDER")
}

func LLMFallbackAPIKey() string {
	return os.Getenv("LLM_FALLBACK_API_KEY")
}

func LLMFallbackBaseURL() string {
	return os.Getenv("LLM_FALLBACK_BASE_URL")
}

func LLMFallbackModel() string {
	return os.Getenv("LLM_FALLBACK_MODEL")
}

func TavilyAPIKey() string {
	return os.Getenv("TAVILY_API_KEY")
}

func BochaAPIKey() string {
	return os.Getenv("BOCHA_API_KEY")
}

func BochaBaseURL() string {
	return os.Getenv("BOCHA_BASE_URL")
}

func SearchTimeout() time.Duration {
	return time.Duration(intEnv("SEARCH_TIMEOUT_SECONDS", 10)) * time.Second
}

func FetchTimeout() time.Duration {
	return time.Duration(intEnv("FETCH_TIMEOUT_SECONDS", 10)) * time.Second
}

// EmbeddingProvider returns the configured embedding provider.
// Valid values: openai, mock, none. Defaults to "none"; relevance
// scoring then uses keyword heuristics only.
func EmbeddingProvider() string {
	p := os.Getenv("EMBEDDING_PROVIDER")
	if p == "" {
		return "none"
	}
	return p
}

func OpenAIAPIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func LLMRateLimit() int {
	return intEnv("LLM_RATE_LIMIT", 60)
}

func LLMRateWindow() time.Duration {
	return time.Duration(intEnv("LLM_RATE_WINDOW_SECONDS", 60)) * time.Second
}

func SearchRateLimit() int {
	return intEnv("SEARCH_RATE_LIMIT", 120)
}

func SearchRateWindow() time.Duration {
	return time.Duration(intEnv("SEARCH_RATE_WINDOW_SECONDS", 60)) * time.Second
}

func FetchRateLimit() int {
	return intEnv("FETCH_RATE_LIMIT", 120)
}

func CacheTTL() time.Duration {
	return time.Duration(intEnv("CACHE_TTL_SECONDS", 120)) * time.Second
}

func CacheSweepInterval() time.Duration {
	return time.Duration(intEnv("CACHE_SWEEP_SECONDS", 600)) * time.Second
}

// BudgetMaxCalls caps total external calls per enrichment run.
// Zero disables the cap.
func BudgetMaxCalls() int {
	v, err := strconv.Atoi(os.Getenv("BUDGET_MAX_CALLS"))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// BudgetWallClock caps wall-clock time per enrichment run.
func BudgetWallClock() time.Duration {
	return time.Duration(intEnv("BUDGET_WALL_CLOCK_SECONDS", 600)) * time.Second
}

func PublicationWorkers() int {
	return intEnv("PUBLICATION_WORKERS", 8)
}

func AwardWorkers() int {
	return intEnv("AWARD_WORKERS", 8)
}

func SocialWorkers() int {
	return intEnv("SOCIAL_WORKERS", 4)
}

// RelevanceFloor is the minimum relevance for an evidence item to be
// retained on a chain.
func RelevanceFloor() float64 {
	return floatEnv("EVIDENCE_RELEVANCE_FLOOR", 0.5)
}
