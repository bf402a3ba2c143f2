package config

import (
	"os"
	"strconv"
	"time"
)

type Spaces struct {
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

type OnlySocial struct {
	Token         string
	WorkspaceUUID string
	BaseURL       string
}

type Scheduler struct {
	CronSecret       string
	PreUploadHorizon time.Duration
	PublishWindow    time.Duration
	RecoveryWindow   time.Duration
	QuotaPerMinute   int
	MaxRetries       int
	RetryDelay       time.Duration
	LeaseTTL         time.Duration
}

type Config struct {
	PostgresURI string
	RedisURI    string
	FrontendURL string
	Spaces      Spaces
	OnlySocial  OnlySocial
	Scheduler   Scheduler
	SecretKey   string
	CookieName  string
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI: getEnv("POSTGRES_URI", ""),
		RedisURI:    getEnv("REDIS_URI", ""),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		Spaces: Spaces{
			Region:    getEnv("SPACES_REGION", "fra1"),
			AccessKey: getEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: getEnv("SPACES_SECRET_KEY", ""),
			Bucket:    getEnv("SPACES_BUCKET", ""),
		},
		OnlySocial: OnlySocial{
			Token:         getEnv("ONLYSOCIAL_API_TOKEN", ""),
			WorkspaceUUID: getEnv("ONLYSOCIAL_WORKSPACE_UUID", ""),
			BaseURL:       getEnv("ONLYSOCIAL_BASE_URL", "https://app.onlysocial.io/os/api"),
		},
		Scheduler: Scheduler{
			CronSecret:       getEnv("CRON_SECRET", ""),
			PreUploadHorizon: getEnvDuration("PRE_UPLOAD_HORIZON", 2*time.Hour),
			PublishWindow:    getEnvDuration("PUBLISH_WINDOW", 5*time.Minute),
			RecoveryWindow:   getEnvDuration("RECOVERY_WINDOW", 2*time.Hour),
			QuotaPerMinute:   getEnvInt("ONLYSOCIAL_QUOTA_PER_MINUTE", 25),
			MaxRetries:       getEnvInt("POST_MAX_RETRIES", 3),
			RetryDelay:       getEnvDuration("DISPATCH_RETRY_DELAY", 5*time.Second),
			LeaseTTL:         getEnvDuration("SCHEDULER_LEASE_TTL", 10*time.Minute),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", "postdeck_session"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
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
