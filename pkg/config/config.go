package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `yaml:"server"`

	// Directory holds the remote directory service settings
	Directory DirectoryConfig `yaml:"directory"`

	// Session holds the local session store settings
	Session SessionConfig `yaml:"session"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	BasePath        string        `yaml:"base_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DirectoryConfig holds the remote directory service settings
type DirectoryConfig struct {
	// BaseURL is the root URL of the remote directory service
	BaseURL string `yaml:"base_url"`

	// ApplicationName and ApplicationPassword authenticate this host
	// application against the directory service
	ApplicationName     string `yaml:"application_name"`
	ApplicationPassword string `yaml:"application_password"`

	// GroupName gates access: only active members may use the host
	GroupName string `yaml:"group_name"`

	// NestedGroups enables transitive membership
	NestedGroups bool `yaml:"nested_groups"`

	// PageSize bounds a single group enumeration call
	PageSize int `yaml:"page_size"`

	// Timeout bounds a single remote round trip
	Timeout time.Duration `yaml:"timeout"`

	// SSOCookieName is the SSO token cookie
	SSOCookieName string `yaml:"sso_cookie_name"`

	// SSOCookieSecure restricts the SSO cookie to HTTPS
	SSOCookieSecure bool `yaml:"sso_cookie_secure"`
}

// SessionConfig holds the local session store settings
type SessionConfig struct {
	// Backend is "memory" or "redis"
	Backend string `yaml:"backend"`

	// TTL is the local session lifetime
	TTL time.Duration `yaml:"ttl"`

	// MemorySize bounds the in-memory store
	MemorySize int `yaml:"memory_size"`

	// RedisURL, RedisPassword and RedisDB configure the Redis backend
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	// SweepInterval is the cron-style purge interval for expired sessions
	SweepInterval time.Duration `yaml:"sweep_interval"`

	// CookieName identifies the local session
	CookieName string `yaml:"cookie_name"`

	// RememberMeCookieName is the host's remember-me cookie
	RememberMeCookieName string `yaml:"remember_me_cookie_name"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	LogFormat      string `yaml:"log_format"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// LoadConfig loads configuration from environment variables. When
// PERIMETER_CONFIG_FILE is set, the YAML file is applied first and the
// environment overrides it.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv("PERIMETER_CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			BasePath:        "/",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Directory: DirectoryConfig{
			PageSize:      500,
			Timeout:       20 * time.Second,
			SSOCookieName: "perimeter.sso.token",
		},
		Session: SessionConfig{
			Backend:              "memory",
			TTL:                  8 * time.Hour,
			MemorySize:           16384,
			SweepInterval:        10 * time.Minute,
			CookieName:           "perimeter.session",
			RememberMeCookieName: "perimeter.remember.me",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			LogFormat:      "json",
			MetricsEnabled: true,
		},
	}
}

// applyFile overlays a YAML configuration file
func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables
func (c *Config) applyEnv() {
	c.Server.Host = getEnv("PERIMETER_HOST", c.Server.Host)
	c.Server.Port = getEnv("PERIMETER_PORT", c.Server.Port)
	c.Server.BasePath = getEnv("PERIMETER_BASE_PATH", c.Server.BasePath)
	c.Server.ReadTimeout = getEnvDuration("PERIMETER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("PERIMETER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("PERIMETER_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("PERIMETER_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Directory.BaseURL = getEnv("PERIMETER_DIRECTORY_URL", c.Directory.BaseURL)
	c.Directory.ApplicationName = getEnv("PERIMETER_DIRECTORY_APP_NAME", c.Directory.ApplicationName)
	c.Directory.ApplicationPassword = getEnv("PERIMETER_DIRECTORY_APP_PASSWORD", c.Directory.ApplicationPassword)
	c.Directory.GroupName = getEnv("PERIMETER_DIRECTORY_GROUP", c.Directory.GroupName)
	c.Directory.NestedGroups = getEnvBool("PERIMETER_DIRECTORY_NESTED_GROUPS", c.Directory.NestedGroups)
	c.Directory.PageSize = getEnvInt("PERIMETER_DIRECTORY_PAGE_SIZE", c.Directory.PageSize)
	c.Directory.Timeout = getEnvDuration("PERIMETER_DIRECTORY_TIMEOUT", c.Directory.Timeout)
	c.Directory.SSOCookieName = getEnv("PERIMETER_SSO_COOKIE_NAME", c.Directory.SSOCookieName)
	c.Directory.SSOCookieSecure = getEnvBool("PERIMETER_SSO_COOKIE_SECURE", c.Directory.SSOCookieSecure)

	c.Session.Backend = getEnv("PERIMETER_SESSION_BACKEND", c.Session.Backend)
	c.Session.TTL = getEnvDuration("PERIMETER_SESSION_TTL", c.Session.TTL)
	c.Session.MemorySize = getEnvInt("PERIMETER_SESSION_MEMORY_SIZE", c.Session.MemorySize)
	c.Session.RedisURL = getEnv("PERIMETER_SESSION_REDIS_URL", c.Session.RedisURL)
	c.Session.RedisPassword = getEnv("PERIMETER_SESSION_REDIS_PASSWORD", c.Session.RedisPassword)
	c.Session.RedisDB = getEnvInt("PERIMETER_SESSION_REDIS_DB", c.Session.RedisDB)
	c.Session.SweepInterval = getEnvDuration("PERIMETER_SESSION_SWEEP_INTERVAL", c.Session.SweepInterval)
	c.Session.CookieName = getEnv("PERIMETER_SESSION_COOKIE_NAME", c.Session.CookieName)
	c.Session.RememberMeCookieName = getEnv("PERIMETER_REMEMBER_ME_COOKIE_NAME", c.Session.RememberMeCookieName)

	c.Observability.LogLevel = getEnv("PERIMETER_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.LogFormat = getEnv("PERIMETER_LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.MetricsEnabled = getEnvBool("PERIMETER_METRICS_ENABLED", c.Observability.MetricsEnabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	if c.Directory.BaseURL == "" {
		return fmt.Errorf("directory base URL is required")
	}
	if c.Directory.ApplicationName == "" {
		return fmt.Errorf("directory application name is required")
	}
	if strings.TrimSpace(c.Directory.GroupName) == "" {
		return fmt.Errorf("authorization group name is required")
	}
	if c.Directory.PageSize <= 0 {
		return fmt.Errorf("directory page size must be positive")
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis session backend")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be memory or redis)", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
