// Package config provides configuration management for the comment agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the comment agent.
type Config struct {
	// Server settings
	Port     int
	LogLevel string

	// Instagram session and target
	InstagramCookies string // Raw cookie header; never log
	TargetUserID     string
	CommentText      string
	BaseURL          string
	RequestTimeout   time.Duration

	// Comment job
	CommentSchedule   string
	CommentDelayMin   time.Duration
	CommentDelayMax   time.Duration
	CommentJobEnabled bool
	MaxPages          int

	// Persistence
	SessionDBPath        string
	SessionEncryptionKey string // Secret the cookie encryption key is derived from
	KeyringEnabled       bool
	RunHistoryRetention  time.Duration

	// Authentication
	APISecret            string // HS256 secret for bearer tokens
	AllowUnauthenticated bool   // Allow unauthenticated requests (for local use)
	RateLimitPerMinute   int

	// Browser cookie export
	ChromePath       string
	ChromeProfileDir string
}

// Load creates a Config from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:                 getEnvInt("PORT", 8080),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		InstagramCookies:     getEnv("INSTAGRAM_COOKIES", ""),
		TargetUserID:         getEnv("INSTAGRAM_TARGET_USER_ID", ""),
		CommentText:          getEnv("INSTAGRAM_COMMENT_TEXT", ""),
		BaseURL:              getEnv("INSTAGRAM_BASE_URL", "https://www.instagram.com"),
		RequestTimeout:       getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		CommentSchedule:      getEnv("COMMENT_SCHEDULE", "*/5 * * * *"),
		CommentDelayMin:      getEnvDuration("COMMENT_DELAY_MIN", 5*time.Minute),
		CommentDelayMax:      getEnvDuration("COMMENT_DELAY_MAX", 10*time.Minute),
		CommentJobEnabled:    getEnvBool("COMMENT_JOB_ENABLED", true),
		MaxPages:             getEnvInt("COMMENT_MAX_PAGES", 1),
		SessionDBPath:        getEnv("SESSION_DB_PATH", "data/instacomment.db"),
		SessionEncryptionKey: getEnv("SESSION_ENCRYPTION_KEY", ""),
		KeyringEnabled:       getEnvBool("KEYRING_ENABLED", false),
		RunHistoryRetention:  getEnvDuration("RUN_HISTORY_RETENTION", 720*time.Hour),
		APISecret:            getEnv("API_SECRET", ""),
		AllowUnauthenticated: getEnvBool("ALLOW_UNAUTHENTICATED", false),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		ChromePath:           getEnv("CHROME_PATH", ""),
		ChromeProfileDir:     getEnv("CHROME_PROFILE_DIR", ""),
	}
}

// Validate checks the settings the server cannot start without.
// A missing target or comment text is not an error here: runs fail and are recorded.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.CommentDelayMin < 0 || c.CommentDelayMax < c.CommentDelayMin {
		errs = append(errs, fmt.Errorf("COMMENT_DELAY_MIN (%s) must be >= 0 and <= COMMENT_DELAY_MAX (%s)", c.CommentDelayMin, c.CommentDelayMax))
	}
	if c.CommentJobEnabled && strings.TrimSpace(c.CommentSchedule) == "" {
		errs = append(errs, errors.New("COMMENT_SCHEDULE is required when the comment job is enabled"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT must be positive"))
	}
	if c.APISecret == "" && !c.AllowUnauthenticated {
		errs = append(errs, errors.New("API_SECRET is required unless ALLOW_UNAUTHENTICATED=true"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
