package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type (
	// Config holds configuration settings for the broker and agent
	Config struct {
		// API server
		APIHost  string
		APIPort  int
		LogLevel string

		// Catalog store (workflow and module documents)
		RedisAddr     string
		RedisPassword string
		RedisDB       int
		RedisPrefix   string

		// Session store (one durable record per session)
		SessionBlobURL string
		SessionTTL     time.Duration
		SweepInterval  time.Duration

		// Automation agent
		PollInterval     time.Duration
		PollMaxAttempts  int
		PollGuardTimeout time.Duration
		SubmitDelay      time.Duration

		// Execution controller
		AutoAdvanceDelay time.Duration

		ShutdownTimeout time.Duration
	}
)

const (
	DefaultAPIHost = "0.0.0.0"
	DefaultAPIPort = 3737
	MaxTCPPort     = 65535

	DefaultRedisAddr   = "localhost:6379"
	DefaultRedisDB     = 0
	DefaultRedisPrefix = "auraflow"

	DefaultSessionBlobURL = "file:///var/lib/auraflow/sessions" +
		"?create_dir=true"
	DefaultSessionTTL    = time.Hour
	DefaultSweepInterval = 5 * time.Minute

	DefaultPollInterval     = time.Second
	DefaultPollMaxAttempts  = 120
	DefaultPollGuardTimeout = 130 * time.Second
	DefaultSubmitDelay      = 1500 * time.Millisecond

	DefaultAutoAdvanceDelay = time.Second
	DefaultShutdownTimeout  = 10 * time.Second

	MaxPollMaxAttempts = 100_000
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidSessionTTL    = errors.New("session TTL must be positive")
	ErrInvalidSweepInterval = errors.New(
		"sweep interval must be positive",
	)
	ErrInvalidPollInterval = errors.New(
		"poll interval must be positive",
	)
	ErrInvalidPollAttempts = errors.New(
		"poll max attempts must be positive",
	)
	ErrGuardTooSmall = errors.New(
		"poll guard timeout must exceed interval * attempts",
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for
// the broker, catalog, controller, and agent
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:          DefaultAPIHost,
		APIPort:          DefaultAPIPort,
		LogLevel:         "info",
		RedisAddr:        DefaultRedisAddr,
		RedisDB:          DefaultRedisDB,
		RedisPrefix:      DefaultRedisPrefix,
		SessionBlobURL:   DefaultSessionBlobURL,
		SessionTTL:       DefaultSessionTTL,
		SweepInterval:    DefaultSweepInterval,
		PollInterval:     DefaultPollInterval,
		PollMaxAttempts:  DefaultPollMaxAttempts,
		PollGuardTimeout: DefaultPollGuardTimeout,
		SubmitDelay:      DefaultSubmitDelay,
		AutoAdvanceDelay: DefaultAutoAdvanceDelay,
		ShutdownTimeout:  DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if host := os.Getenv("API_HOST"); host != "" {
		c.APIHost = host
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.RedisPassword = password
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		c.RedisPrefix = prefix
	}
	if blobURL := os.Getenv("SESSION_BLOB_URL"); blobURL != "" {
		c.SessionBlobURL = blobURL
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt("REDIS_DB", &c.RedisDB, -1, 15); err != nil {
		return err
	}
	if err := loadEnvInt(
		"POLL_MAX_ATTEMPTS", &c.PollMaxAttempts, 0, MaxPollMaxAttempts,
	); err != nil {
		return err
	}

	for key, dst := range map[string]*time.Duration{
		"SESSION_TTL":        &c.SessionTTL,
		"SWEEP_INTERVAL":     &c.SweepInterval,
		"POLL_INTERVAL":      &c.PollInterval,
		"POLL_GUARD_TIMEOUT": &c.PollGuardTimeout,
		"SUBMIT_DELAY":       &c.SubmitDelay,
		"AUTO_ADVANCE_DELAY": &c.AutoAdvanceDelay,
		"SHUTDOWN_TIMEOUT":   &c.ShutdownTimeout,
	} {
		if err := loadEnvDuration(key, dst); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}
	if c.SessionTTL <= 0 {
		return ErrInvalidSessionTTL
	}
	if c.SweepInterval <= 0 {
		return ErrInvalidSweepInterval
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.PollMaxAttempts <= 0 {
		return ErrInvalidPollAttempts
	}
	budget := c.PollInterval * time.Duration(c.PollMaxAttempts)
	if c.PollGuardTimeout <= budget {
		return fmt.Errorf("%w: guard %s, budget %s",
			ErrGuardTooSmall, c.PollGuardTimeout, budget)
	}
	return nil
}

// loadEnvInt reads key from the environment, parses it as an integer,
// and sets *dst if the value is in the range (min, max]
func loadEnvInt(key string, dst *int, min, max int) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	if v <= min || v > max {
		return fmt.Errorf("invalid %s: %d out of range (%d, %d]",
			key, v, min, max)
	}
	*dst = v
	return nil
}

// loadEnvDuration reads key from the environment and parses it as a
// positive time.Duration string
func loadEnvDuration(key string, dst *time.Duration) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	*dst = d
	return nil
}
