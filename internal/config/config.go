// Package config provides application configuration management.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/smoothscroll-go/internal/easing"
)

// Configuration bounds to prevent resource exhaustion.
const (
	maxBrowserPoolSize   = 20
	maxMaxSessions       = 10000
	maxMaxConnections    = 100000
	minFrameInterval     = 4 * time.Millisecond
	maxFrameInterval     = 100 * time.Millisecond
	maxScrollDurationCap = 10 * time.Minute
	minAPIKeyLength      = 16
)

// Config holds all application configuration.
// Configuration is loaded from environment variables at startup.
type Config struct {
	// Server settings
	Host           string
	Port           int
	MaxConnections int

	// Browser settings
	Headless       bool
	BrowserPath    string
	StealthEnabled bool

	// Pool settings
	BrowserPoolSize    int
	BrowserPoolTimeout time.Duration

	// Page session settings
	SessionTTL             time.Duration
	SessionCleanupInterval time.Duration
	MaxSessions            int

	// Animation settings
	FrameInterval         time.Duration
	DefaultScrollDuration time.Duration
	MaxScrollDuration     time.Duration
	DefaultEasing         string

	// Easing presets
	PresetsPath      string
	PresetsHotReload bool

	// Logging
	LogLevel string

	// Metrics
	PrometheusEnabled bool
	PrometheusPort    int

	// Security
	CORSAllowedOrigins []string
	APIKeyEnabled      bool
	APIKey             string
	AllowPrivateURLs   bool
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Localhost by default; set HOST=0.0.0.0 to expose the API.
		Host:           getEnvString("HOST", "127.0.0.1"),
		Port:           getEnvInt("PORT", 8191),
		MaxConnections: getEnvInt("MAX_CONNECTIONS", 256),

		Headless:       getEnvBool("HEADLESS", true),
		BrowserPath:    getEnvString("BROWSER_PATH", ""),
		StealthEnabled: getEnvBool("STEALTH_ENABLED", false),

		BrowserPoolSize:    getEnvInt("BROWSER_POOL_SIZE", 2),
		BrowserPoolTimeout: getEnvDuration("BROWSER_POOL_TIMEOUT", 30*time.Second),

		SessionTTL:             getEnvDuration("SESSION_TTL", 30*time.Minute),
		SessionCleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 1*time.Minute),
		MaxSessions:            getEnvInt("MAX_SESSIONS", 100),

		FrameInterval:         getEnvDuration("FRAME_INTERVAL", 16*time.Millisecond),
		DefaultScrollDuration: getEnvDuration("DEFAULT_SCROLL_DURATION", 600*time.Millisecond),
		MaxScrollDuration:     getEnvDuration("MAX_SCROLL_DURATION", 60*time.Second),
		DefaultEasing:         getEnvString("DEFAULT_EASING", easing.DefaultKeyword),

		PresetsPath:      getEnvString("PRESETS_PATH", ""),
		PresetsHotReload: getEnvBool("PRESETS_HOT_RELOAD", false),

		LogLevel: getEnvString("LOG_LEVEL", "info"),

		PrometheusEnabled: getEnvBool("PROMETHEUS_ENABLED", false),
		PrometheusPort:    getEnvInt("PROMETHEUS_PORT", 8192),

		CORSAllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", nil),
		APIKeyEnabled:      getEnvBool("API_KEY_ENABLED", false),
		APIKey:             getEnvString("API_KEY", ""),
		AllowPrivateURLs:   getEnvBool("ALLOW_PRIVATE_URLS", false),
	}
}

// Validate checks configuration values and logs warnings for invalid values.
// Invalid values are corrected to sensible defaults.
func (c *Config) Validate() {
	// Port 0 asks the system for a free port.
	if c.Port < 0 || c.Port > 65535 {
		log.Warn().Int("port", c.Port).Msg("Invalid port, using default 8191")
		c.Port = 8191
	}
	if c.PrometheusPort < 0 || c.PrometheusPort > 65535 {
		log.Warn().Int("port", c.PrometheusPort).Msg("Invalid Prometheus port, using default 8192")
		c.PrometheusPort = 8192
	}
	if c.PrometheusEnabled && c.Port != 0 && c.PrometheusPort == c.Port {
		log.Error().
			Int("port", c.PrometheusPort).
			Msg("PROMETHEUS_PORT conflicts with PORT, using PORT+1")
		c.PrometheusPort = c.Port + 1
	}

	if c.MaxConnections < 1 {
		log.Warn().Int("max", c.MaxConnections).Msg("Invalid max connections, using 256")
		c.MaxConnections = 256
	} else if c.MaxConnections > maxMaxConnections {
		log.Warn().
			Int("max", c.MaxConnections).
			Int("cap", maxMaxConnections).
			Msg("Max connections too high, capping to maximum")
		c.MaxConnections = maxMaxConnections
	}

	if c.BrowserPath != "" {
		if strings.Contains(c.BrowserPath, "..") {
			log.Error().
				Str("path", c.BrowserPath).
				Msg("BrowserPath contains path traversal sequence (..), ignoring")
			c.BrowserPath = ""
		} else if !isAbsolute(c.BrowserPath) {
			log.Warn().
				Str("path", c.BrowserPath).
				Msg("BrowserPath should be an absolute path")
		}
	}

	if c.BrowserPoolSize < 1 {
		log.Warn().Int("size", c.BrowserPoolSize).Msg("Invalid pool size, using default 2")
		c.BrowserPoolSize = 2
	} else if c.BrowserPoolSize > maxBrowserPoolSize {
		log.Warn().
			Int("size", c.BrowserPoolSize).
			Int("max", maxBrowserPoolSize).
			Msg("Pool size too large, capping to maximum")
		c.BrowserPoolSize = maxBrowserPoolSize
	}

	const minPoolTimeout = 1 * time.Second
	const maxPoolTimeout = 5 * time.Minute
	if c.BrowserPoolTimeout < minPoolTimeout {
		log.Warn().
			Dur("timeout", c.BrowserPoolTimeout).
			Dur("min", minPoolTimeout).
			Msg("Browser pool timeout too short, using minimum")
		c.BrowserPoolTimeout = minPoolTimeout
	} else if c.BrowserPoolTimeout > maxPoolTimeout {
		log.Warn().
			Dur("timeout", c.BrowserPoolTimeout).
			Dur("max", maxPoolTimeout).
			Msg("Browser pool timeout too long, using maximum")
		c.BrowserPoolTimeout = maxPoolTimeout
	}

	if c.MaxSessions < 1 {
		log.Warn().Int("max", c.MaxSessions).Msg("Invalid max sessions, using 100")
		c.MaxSessions = 100
	} else if c.MaxSessions > maxMaxSessions {
		log.Warn().
			Int("sessions", c.MaxSessions).
			Int("max", maxMaxSessions).
			Msg("Max sessions too high, capping to maximum")
		c.MaxSessions = maxMaxSessions
	}

	const minSessionTTL = 1 * time.Minute
	const maxSessionTTL = 24 * time.Hour
	if c.SessionTTL < minSessionTTL {
		log.Warn().
			Dur("ttl", c.SessionTTL).
			Dur("min", minSessionTTL).
			Msg("Session TTL too short, using minimum")
		c.SessionTTL = minSessionTTL
	} else if c.SessionTTL > maxSessionTTL {
		log.Warn().
			Dur("ttl", c.SessionTTL).
			Dur("max", maxSessionTTL).
			Msg("Session TTL too long, using maximum")
		c.SessionTTL = maxSessionTTL
	}

	const minCleanupInterval = 10 * time.Second
	const maxCleanupInterval = 1 * time.Hour
	if c.SessionCleanupInterval < minCleanupInterval {
		log.Warn().
			Dur("interval", c.SessionCleanupInterval).
			Dur("min", minCleanupInterval).
			Msg("Session cleanup interval too short, using minimum")
		c.SessionCleanupInterval = minCleanupInterval
	} else if c.SessionCleanupInterval > maxCleanupInterval {
		log.Warn().
			Dur("interval", c.SessionCleanupInterval).
			Dur("max", maxCleanupInterval).
			Msg("Session cleanup interval too long, using maximum")
		c.SessionCleanupInterval = maxCleanupInterval
	}
	if c.SessionCleanupInterval >= c.SessionTTL {
		log.Warn().
			Dur("cleanup_interval", c.SessionCleanupInterval).
			Dur("ttl", c.SessionTTL).
			Msg("SESSION_CLEANUP_INTERVAL should be less than SESSION_TTL for timely cleanup")
	}

	if c.FrameInterval < minFrameInterval {
		log.Warn().
			Dur("interval", c.FrameInterval).
			Dur("min", minFrameInterval).
			Msg("Frame interval too short, using minimum")
		c.FrameInterval = minFrameInterval
	} else if c.FrameInterval > maxFrameInterval {
		log.Warn().
			Dur("interval", c.FrameInterval).
			Dur("max", maxFrameInterval).
			Msg("Frame interval too long, using maximum")
		c.FrameInterval = maxFrameInterval
	}

	// Max first, then default, so the default is always clamped to a valid max.
	if c.MaxScrollDuration > maxScrollDurationCap {
		log.Warn().
			Dur("duration", c.MaxScrollDuration).
			Dur("max", maxScrollDurationCap).
			Msg("Max scroll duration too high, capping to maximum")
		c.MaxScrollDuration = maxScrollDurationCap
	}
	if c.DefaultScrollDuration > c.MaxScrollDuration {
		log.Warn().
			Dur("default", c.DefaultScrollDuration).
			Dur("max", c.MaxScrollDuration).
			Msg("Default scroll duration exceeds max, adjusting to max")
		c.DefaultScrollDuration = c.MaxScrollDuration
	}

	if c.DefaultEasing == "" {
		c.DefaultEasing = easing.DefaultKeyword
	}

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		log.Warn().Str("level", c.LogLevel).Msg("Invalid log level, using 'info'")
		c.LogLevel = "info"
	}

	if len(c.CORSAllowedOrigins) == 0 {
		log.Warn().Msg("CORS_ALLOWED_ORIGINS not set - allowing all origins (potential CSRF risk)")
	}

	if c.PresetsPath != "" {
		if strings.Contains(c.PresetsPath, "..") {
			log.Error().
				Str("path", c.PresetsPath).
				Msg("PresetsPath contains path traversal sequence (..), ignoring")
			c.PresetsPath = ""
		} else {
			if !isAbsolute(c.PresetsPath) {
				log.Warn().
					Str("path", c.PresetsPath).
					Msg("PresetsPath should be an absolute path")
			}
			if _, err := os.Stat(c.PresetsPath); os.IsNotExist(err) {
				log.Warn().
					Str("path", c.PresetsPath).
					Msg("PresetsPath does not exist - embedded presets will be used")
			}
		}
	}
	if c.PresetsHotReload && c.PresetsPath == "" {
		log.Warn().Msg("PRESETS_HOT_RELOAD enabled but PRESETS_PATH not set - hot-reload disabled")
		c.PresetsHotReload = false
	}

	if c.APIKeyEnabled {
		switch {
		case c.APIKey == "":
			log.Error().Msg("API_KEY_ENABLED is true but API_KEY is empty - authentication will always fail")
		case len(c.APIKey) < minAPIKeyLength:
			log.Error().
				Int("length", len(c.APIKey)).
				Int("min_required", minAPIKeyLength).
				Msg("API_KEY is too short for secure authentication - consider using a longer key")
		}
	}
}

func isAbsolute(path string) bool {
	return strings.HasPrefix(path, "/") || strings.HasPrefix(path, "C:") || strings.HasPrefix(path, "c:")
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.ParseInt(value, 10, 32)
		if err == nil {
			return int(intValue)
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Int("default", defaultValue).
			Msg("Invalid integer in environment variable, using default")
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Bool("default", defaultValue).
			Msg("Invalid boolean in environment variable, using default")
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err == nil {
			if duration > 0 {
				return duration
			}
			log.Warn().
				Str("key", key).
				Str("value", value).
				Dur("default", defaultValue).
				Msg("Duration must be positive, using default")
			return defaultValue
		}
		log.Warn().
			Str("key", key).
			Str("value", value).
			Err(err).
			Dur("default", defaultValue).
			Msg("Invalid duration in environment variable, using default")
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}
