package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig
	Browser       BrowserConfig
	Cache         CacheConfig
	Archive       ArchiveConfig
	Events        EventsConfig
	Observability ObservabilityConfig
	Security      SecurityConfig
}

type ServerConfig struct {
	Port            string
	PublicBaseURL   string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type BrowserConfig struct {
	Enabled       bool
	Headless      bool
	LaunchTimeout time.Duration
}

type CacheConfig struct {
	Enabled      bool
	Host         string
	Port         string
	Password     string
	DB           int
	ArtifactTTL  time.Duration
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type ArchiveConfig struct {
	Enabled         bool
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignedTTL    time.Duration
	DynamoTable     string
	DynamoEndpoint  string
}

type EventsConfig struct {
	Enabled bool
	NATSURL string
}

type ObservabilityConfig struct {
	CloudWatchEnabled bool
	Namespace         string
	Region            string
	Endpoint          string
	AccessKeyID       string
	SecretAccessKey   string
	FlushInterval     time.Duration
}

type SecurityConfig struct {
	AllowedOrigins     []string
	AuthEnabled        bool
	AuthToken          string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func Load() (*Config, error) {
	// .env is optional; absence is not an error.
	_ = godotenv.Load()

	artifactTTL, err := parseDuration(getEnv("ARTIFACT_TTL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ARTIFACT_TTL: %w", err)
	}

	launchTimeout, err := parseDuration(getEnv("BROWSER_LAUNCH_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROWSER_LAUNCH_TIMEOUT: %w", err)
	}

	presignedTTL, err := parseDuration(getEnv("S3_PRESIGNED_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGNED_TTL: %w", err)
	}

	flushInterval, err := parseDuration(getEnv("CLOUDWATCH_FLUSH_INTERVAL", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOUDWATCH_FLUSH_INTERVAL: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	rateLimitRPS, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SECOND", "5"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_PER_SECOND: %w", err)
	}

	rateLimitBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	port := getEnv("SERVER_PORT", "8080")

	cfg := &Config{
		Server: ServerConfig{
			Port:          port,
			PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:"+port),
			// Navigation deadlines can reach 60s, so the server-side
			// timeouts leave headroom above the longest capture.
			ReadTimeout:     90 * time.Second,
			WriteTimeout:    90 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Browser: BrowserConfig{
			Enabled:       getEnvBool("BROWSER_ENABLED", true),
			Headless:      getEnvBool("BROWSER_HEADLESS", true),
			LaunchTimeout: launchTimeout,
		},
		Cache: CacheConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", true),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           redisDB,
			ArtifactTTL:  artifactTTL,
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Archive: ArchiveConfig{
			Enabled:         getEnvBool("ARCHIVE_ENABLED", false),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", true),
			PresignedTTL:    presignedTTL,
			DynamoTable:     getEnv("DYNAMODB_TABLE", ""),
			DynamoEndpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
		},
		Events: EventsConfig{
			Enabled: getEnvBool("NATS_ENABLED", false),
			NATSURL: getEnv("NATS_URL", "nats://localhost:4222"),
		},
		Observability: ObservabilityConfig{
			CloudWatchEnabled: getEnvBool("CLOUDWATCH_ENABLED", false),
			Namespace:         getEnv("CLOUDWATCH_NAMESPACE", "BrowserRendering/Captures"),
			Region:            getEnv("CLOUDWATCH_REGION", "us-east-1"),
			Endpoint:          getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:       getEnv("CLOUDWATCH_ACCESS_KEY_ID", ""),
			SecretAccessKey:   getEnv("CLOUDWATCH_SECRET_ACCESS_KEY", ""),
			FlushInterval:     flushInterval,
		},
		Security: SecurityConfig{
			AllowedOrigins:     splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")),
			AuthEnabled:        getEnvBool("AUTH_ENABLED", false),
			AuthToken:          getEnv("AUTH_BEARER_TOKEN", ""),
			RateLimitPerSecond: rateLimitRPS,
			RateLimitBurst:     rateLimitBurst,
		},
	}

	if cfg.Security.AuthEnabled && cfg.Security.AuthToken == "" {
		return nil, fmt.Errorf("AUTH_BEARER_TOKEN is required when AUTH_ENABLED=true")
	}
	if len(cfg.Security.AllowedOrigins) == 0 {
		return nil, fmt.Errorf("ALLOWED_ORIGINS must list at least one origin")
	}
	if cfg.Archive.Enabled && cfg.Archive.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when ARCHIVE_ENABLED=true")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	current := ""

	for _, r := range raw {
		if r == ',' {
			if current != "" {
				items = append(items, current)
				current = ""
			}
			continue
		}
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			current += string(r)
		}
	}

	if current != "" {
		items = append(items, current)
	}

	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
