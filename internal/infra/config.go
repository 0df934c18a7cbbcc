package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	SQLitePath  string

	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	CacheSize         int
	CachePendingTTL   time.Duration
	CacheTerminalTTL  time.Duration
	KafkaBrokers      []string
	KafkaTopic        string
	ComputeBaseURL    string
	ComputeAPIKey     string
	ComputeWebhookURL string
	ComputeTimeout    time.Duration
	WebhookSecret     string
	OutputRulesPath   string
	StoragePath       string
	StorageBaseURL    string
	CORSOrigins       []string
	SegmentInputSize  int
	MaxUploadBytes    int64
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int

	// Per-request ceilings on client-controlled sizes.
	MaxTensorElements int
	MaxFrameCount     int
	MaxRegions        int
	MaxImagePixels    int

	MaxSelections      int
	MaxSelectionPixels int
	SelectionTTL       time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              port,
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        os.Getenv("SQLITE_PATH"),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		CacheSize:         getEnvInt("CACHE_SIZE", 1024),
		CachePendingTTL:   getEnvSeconds("CACHE_PENDING_TTL_SECONDS", 5),
		CacheTerminalTTL:  getEnvSeconds("CACHE_TERMINAL_TTL_SECONDS", 600),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "generation-jobs"),
		ComputeBaseURL:    strings.TrimRight(os.Getenv("COMPUTE_BASE_URL"), "/"),
		ComputeAPIKey:     os.Getenv("COMPUTE_API_KEY"),
		ComputeWebhookURL: os.Getenv("COMPUTE_WEBHOOK_URL"),
		ComputeTimeout:    getEnvSeconds("COMPUTE_TIMEOUT_SECONDS", 30),
		WebhookSecret:     os.Getenv("WEBHOOK_SECRET"),
		OutputRulesPath:   os.Getenv("OUTPUT_RULES_PATH"),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", fmt.Sprintf("http://localhost:%s/static", port)),
		CORSOrigins:       splitList(getEnv("CORS_ORIGINS", "*")),
		SegmentInputSize:  getEnvInt("SEGMENT_INPUT_SIZE", 1024),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_MB", 20)) << 20,
		HTTPReadTimeout:   getEnvSeconds("HTTP_READ_TIMEOUT_SECONDS", 15),
		HTTPWriteTimeout:  getEnvSeconds("HTTP_WRITE_TIMEOUT_SECONDS", 30),
		HTTPIdleTimeout:   getEnvSeconds("HTTP_IDLE_TIMEOUT_SECONDS", 60),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		MaxTensorElements:  getEnvInt("MAX_TENSOR_ELEMENTS", 32<<20),
		MaxFrameCount:      getEnvInt("MAX_FRAME_COUNT", 3600),
		MaxRegions:         getEnvInt("MAX_REGIONS", 8),
		MaxImagePixels:     getEnvInt("MAX_IMAGE_PIXELS", 40_000_000),
		MaxSelections:      getEnvInt("MAX_SELECTIONS", 256),
		MaxSelectionPixels: getEnvInt("MAX_SELECTION_PIXELS", 128<<20),
		SelectionTTL:       getEnvSeconds("SELECTION_TTL_SECONDS", 1800),
	}

	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		return nil, fmt.Errorf("DATABASE_URL or SQLITE_PATH is required")
	}
	if cfg.ComputeBaseURL == "" {
		return nil, fmt.Errorf("COMPUTE_BASE_URL is required")
	}
	if cfg.CachePendingTTL > cfg.CacheTerminalTTL {
		return nil, fmt.Errorf("CACHE_PENDING_TTL_SECONDS must not exceed CACHE_TERMINAL_TTL_SECONDS")
	}
	if cfg.SegmentInputSize <= 0 {
		return nil, fmt.Errorf("SEGMENT_INPUT_SIZE must be positive")
	}
	for name, v := range map[string]int{
		"MAX_TENSOR_ELEMENTS":  cfg.MaxTensorElements,
		"MAX_FRAME_COUNT":      cfg.MaxFrameCount,
		"MAX_REGIONS":          cfg.MaxRegions,
		"MAX_IMAGE_PIXELS":     cfg.MaxImagePixels,
		"MAX_SELECTIONS":       cfg.MaxSelections,
		"MAX_SELECTION_PIXELS": cfg.MaxSelectionPixels,
	} {
		if v <= 0 {
			return nil, fmt.Errorf("%s must be positive", name)
		}
	}
	if cfg.SegmentInputSize > cfg.MaxTensorElements/(3*cfg.SegmentInputSize) {
		return nil, fmt.Errorf("MAX_TENSOR_ELEMENTS must fit one %dx%d RGB tensor", cfg.SegmentInputSize, cfg.SegmentInputSize)
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Second * time.Duration(getEnvInt(key, fallback))
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
