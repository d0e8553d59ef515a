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
	AppEnv            string
	Port              string
	DatabaseURL       string
	GeoIPDBPath       string
	VendorClientID    string
	VendorSecret      string
	VendorScope       string
	VendorBaseURL     string
	VendorTokenURL    string
	VendorStatusURL   string
	PollInterval      time.Duration
	JobSafetyTimeout  time.Duration
	AllowedOrigins    []string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
	VendorHTTPTimeout time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. Vendor credentials are optional at boot so the
// catalog and project endpoints keep working without them; generation calls
// report the missing credentials instead.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		VendorClientID:    os.Getenv("AVATAR_CLIENT_ID"),
		VendorSecret:      os.Getenv("AVATAR_CLIENT_SECRET"),
		VendorScope:       os.Getenv("AVATAR_SCOPE"),
		VendorBaseURL:     os.Getenv("AVATAR_BASE_URL"),
		VendorTokenURL:    os.Getenv("AVATAR_TOKEN_URL"),
		VendorStatusURL:   os.Getenv("AVATAR_STATUS_URL"),
		PollInterval:      time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 3)),
		JobSafetyTimeout:  time.Second * time.Duration(getEnvInt("JOB_SAFETY_TIMEOUT_SECONDS", 300)),
		AllowedOrigins:    splitCSV(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		VendorHTTPTimeout: time.Second * time.Duration(getEnvInt("VENDOR_HTTP_TIMEOUT_SECONDS", 30)),
	}

	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("JOB_POLL_INTERVAL_SECONDS must be positive")
	}
	if cfg.JobSafetyTimeout <= cfg.PollInterval {
		return nil, fmt.Errorf("JOB_SAFETY_TIMEOUT_SECONDS must exceed the poll interval")
	}

	return cfg, nil
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

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
