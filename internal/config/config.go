package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageProviderGCS    = "gcs"
	StorageProviderMemory = "memory"
)

type Config struct {
	DBDSN         string
	ServerPort    string
	SessionSecret string
	LogLevel      string

	RedisAddress string
	WizardTTL    time.Duration
	LockTTL      time.Duration

	StorageProvider string
	GCSBucket       string
	GCSCredentials  string

	PubSubProjectID string
	PubSubTopic     string

	AIBaseURL    string
	AIAPIKey     string
	AIModel      string
	AIMaxTokens  int
	AIGroupBatch int
	AITimeout    time.Duration

	MaxUploadBytes int64
	MaxImageBytes  int64
	PDFWorkers     int64
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBDSN:         os.Getenv("DB_DSN"),
		ServerPort:    os.Getenv("SERVER_PORT"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		LogLevel:      os.Getenv("LOG_LEVEL"),

		RedisAddress: os.Getenv("REDIS_ADDRESS"),
		WizardTTL:    time.Duration(intFromEnv("WIZARD_TTL_HOURS", 72)) * time.Hour,
		LockTTL:      time.Duration(intFromEnv("SCHEDULE_LOCK_SECONDS", 120)) * time.Second,

		StorageProvider: strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_PROVIDER"))),
		GCSBucket:       os.Getenv("GCS_BUCKET"),
		GCSCredentials:  os.Getenv("GCS_CREDENTIALS_JSON"),

		PubSubProjectID: os.Getenv("PUBSUB_PROJECT_ID"),
		PubSubTopic:     os.Getenv("PUBSUB_TOPIC"),

		AIBaseURL:    os.Getenv("AI_BASE_URL"),
		AIAPIKey:     os.Getenv("AI_API_KEY"),
		AIModel:      os.Getenv("AI_MODEL"),
		AIMaxTokens:  intFromEnv("AI_MAX_TOKENS", 8192),
		AIGroupBatch: intFromEnv("AI_GROUP_BATCH", 200),
		AITimeout:    time.Duration(intFromEnv("AI_TIMEOUT_SECONDS", 120)) * time.Second,

		MaxUploadBytes: int64(intFromEnv("MAX_UPLOAD_MB", 50)) * 1024 * 1024,
		MaxImageBytes:  int64(intFromEnv("MAX_IMAGE_MB", 5)) * 1024 * 1024,
		PDFWorkers:     int64(intFromEnv("PDF_WORKERS", 2)),
	}

	if cfg.DBDSN == "" {
		log.Fatal("DB_DSN is not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.SessionSecret == "" {
		log.Fatal("SESSION_SECRET is not set")
	}
	if cfg.RedisAddress == "" {
		cfg.RedisAddress = "localhost:6379"
	}
	if cfg.StorageProvider == "" {
		cfg.StorageProvider = StorageProviderGCS
	}
	if cfg.StorageProvider == StorageProviderGCS && cfg.GCSBucket == "" {
		log.Fatal("GCS_BUCKET is not set")
	}
	if cfg.AIBaseURL == "" {
		cfg.AIBaseURL = "https://api.anthropic.com"
	}
	if cfg.AIModel == "" {
		cfg.AIModel = "claude-sonnet-4-5"
	}
	if cfg.AIAPIKey == "" {
		log.Fatal("AI_API_KEY is not set")
	}

	return cfg
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
