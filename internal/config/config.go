package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read from the environment with
// defaults that match a local docker-compose setup.
type Config struct {
	Port string

	CacheTTL         time.Duration
	ProductCacheTTL  time.Duration
	NegativeCacheTTL time.Duration

	FreshnessWindow time.Duration

	VendorTimeout       time.Duration
	VendorRetries       int
	VendorMaxConcurrent int
	VendorsFile         string

	BreakerThreshold int
	BreakerCooldown  time.Duration

	RateLimitPerMinute int

	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// Empty disables the /admin routes entirely.
	AdminJWTSecret string

	PrewarmEnabled  bool
	PrewarmInterval time.Duration
	PrewarmTopN     int

	VendorReportInterval time.Duration

	LogLevel string
}

func FromEnv() *Config {
	return &Config{
		Port:                 getEnv("PORT", "8080"),
		CacheTTL:             getEnvSeconds("CACHE_TTL", 60),
		ProductCacheTTL:      getEnvSeconds("PRODUCT_CACHE_TTL", 120),
		NegativeCacheTTL:     getEnvSeconds("NEGATIVE_CACHE_TTL_SECONDS", 0),
		FreshnessWindow:      getEnvSeconds("FRESHNESS_WINDOW_SECONDS", 600),
		VendorTimeout:        getEnvSeconds("VENDOR_TIMEOUT_SECONDS", 2),
		VendorRetries:        getEnvInt("VENDOR_RETRIES", 2),
		VendorMaxConcurrent:  getEnvInt("VENDOR_MAX_CONCURRENT", 0),
		VendorsFile:          getEnv("VENDORS_FILE", "vendors.yaml"),
		BreakerThreshold:     getEnvInt("BREAKER_THRESHOLD", 3),
		BreakerCooldown:      getEnvSeconds("BREAKER_COOLDOWN_SECONDS", 30),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		RedisHost:            getEnv("REDIS_HOST", "localhost"),
		RedisPort:            getEnvInt("REDIS_PORT", 6379),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		AdminJWTSecret:       os.Getenv("ADMIN_JWT_SECRET"),
		PrewarmEnabled:       getEnvBool("PREWARM_ENABLED", true),
		PrewarmInterval:      getEnvDuration("PREWARM_INTERVAL", 5*time.Minute),
		PrewarmTopN:          getEnvInt("PREWARM_TOP_N", 10),
		VendorReportInterval: getEnvDuration("VENDOR_REPORT_INTERVAL", 5*time.Minute),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

// RedisAddr returns host:port for the cache connection.
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			return val
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseBool(valStr); err == nil {
			return val
		}
	}
	return defaultVal
}

// getEnvSeconds reads an integer number of seconds.
func getEnvSeconds(key string, defaultSec int) time.Duration {
	return time.Duration(getEnvInt(key, defaultSec)) * time.Second
}

// getEnvDuration reads a Go duration string (e.g. "5m", "90s").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			return val
		}
	}
	return defaultVal
}
