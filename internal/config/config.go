package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort   string
	LogLevel  string
	LogFormat string

	FraudAPIURL     string
	FraudAPIPath    string
	FraudAPITimeout time.Duration

	AnalysisMaxConcurrency int
	ValidationNoticeTTL    time.Duration
	MaxUploadMB            int

	StorageBackend string
	StoragePath    string
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3Endpoint     string

	NATSURL     string
	NATSSubject string

	APIRateLimitRPS   float64
	APIRateLimitBurst int
	APIMaxInFlight    int
	APIQueueWait      time.Duration

	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration
}

// Load reads the environment; values from a local .env file never override
// variables that are already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		APIPort:   mustEnv("API_PORT", "8080"),
		LogLevel:  mustEnv("LOG_LEVEL", "info"),
		LogFormat: mustEnv("LOG_FORMAT", "json"),

		FraudAPIURL:     mustEnv("FRAUD_API_URL", "http://localhost:5000/api"),
		FraudAPIPath:    mustEnv("FRAUD_API_PATH", "/document-fraud/analyze"),
		FraudAPITimeout: mustEnvDuration("FRAUD_API_TIMEOUT_SECONDS", 120*time.Second),

		AnalysisMaxConcurrency: mustEnvInt("ANALYSIS_MAX_CONCURRENCY", 0),
		ValidationNoticeTTL:    mustEnvDuration("VALIDATION_NOTICE_TTL_SECONDS", 5*time.Second),
		MaxUploadMB:            mustEnvInt("MAX_UPLOAD_MB", 25),

		StorageBackend: strings.ToLower(mustEnv("STORAGE_BACKEND", "localfs")),
		StoragePath:    mustEnv("STORAGE_PATH", "./data/previews"),
		S3Bucket:       mustEnv("S3_BUCKET", ""),
		S3Prefix:       mustEnv("S3_PREFIX", "previews"),
		S3Region:       mustEnv("S3_REGION", ""),
		S3Endpoint:     mustEnv("S3_ENDPOINT", ""),

		NATSURL:     mustEnv("NATS_URL", ""),
		NATSSubject: mustEnv("NATS_SUBJECT", "documents.analyzed"),

		APIRateLimitRPS:   mustEnvFloat("API_RATE_LIMIT_RPS", 0),
		APIRateLimitBurst: mustEnvInt("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:    mustEnvInt("API_MAX_IN_FLIGHT", 0),
		APIQueueWait:      mustEnvDuration("API_QUEUE_WAIT_SECONDS", 2*time.Second),

		BreakerEnabled:      mustEnvBool("BREAKER_ENABLED", true),
		BreakerMinRequests:  mustEnvInt("BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio: mustEnvFloat("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeout:  mustEnvDuration("BREAKER_OPEN_TIMEOUT_SECONDS", 30*time.Second),
	}
}

// MaxUploadBytes is the multipart body limit derived from MaxUploadMB.
func (c Config) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 25 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

func mustEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return b
}

// mustEnvDuration reads whole or fractional seconds.
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || seconds < 0 {
		return fallback
	}
	return time.Duration(seconds * float64(time.Second))
}
