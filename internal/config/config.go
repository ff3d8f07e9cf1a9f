package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envServicesDir         = "SS_SERVICES_DIR"
	envCacheFile           = "SS_CACHE_FILE"
	envProbeName           = "SS_PROBE_NAME"
	envProbeTimeout        = "SS_PROBE_TIMEOUT"
	envStatuspageBaseURL   = "SS_STATUSPAGE_BASE_URL"
	envStatuspageTimeout   = "SS_STATUSPAGE_TIMEOUT"
	envStatuspageRateLimit = "SS_STATUSPAGE_RATE_LIMIT"
	envPollInterval        = "SS_POLL_INTERVAL"
	envLogLevel            = "SS_LOG_LEVEL"
	envDryRun              = "SS_DRY_RUN"
	envSlackWebhookURL     = "SS_SLACK_WEBHOOK_URL"
	envWebhookURL          = "SS_WEBHOOK_URL"
	envWebhookTemplate     = "SS_WEBHOOK_TEMPLATE"
	envHealthPort          = "SS_HEALTH_PORT"
	envMetricsPort         = "SS_METRICS_PORT"
	envSecretsVar          = "SS_SECRETS_VAR"
)

const (
	defaultServicesDir         = "pings"
	defaultCacheFile           = "cache/status.json"
	defaultProbeName           = "ping"
	defaultProbeTimeout        = 60 * time.Second
	defaultStatuspageBaseURL   = "https://api.statuspage.io/v1"
	defaultStatuspageTimeout   = 30 * time.Second
	defaultStatuspageRateLimit = time.Second
	defaultLogLevel            = "info"
	defaultSecretsVar          = "SECRETS_JSON"
)

// Config describes runtime configuration loaded from the environment.
// Statuspage credentials are not part of it; they resolve through the secrets store.
type Config struct {
	ServicesDir         string
	CacheFile           string
	ProbeName           string
	ProbeTimeout        time.Duration
	StatuspageBaseURL   string
	StatuspageTimeout   time.Duration
	StatuspageRateLimit time.Duration
	// PollInterval of zero means a single run.
	PollInterval    time.Duration
	LogLevel        string
	DryRun          bool
	SlackWebhookURL string
	WebhookURL      string
	WebhookTemplate string
	HealthPort      int
	MetricsPort     int
	SecretsVar      string
}

// Load reads configuration from environment variables and a local .env file if present.
// Existing environment variables take precedence over values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServicesDir:         defaultServicesDir,
		CacheFile:           defaultCacheFile,
		ProbeName:           defaultProbeName,
		ProbeTimeout:        defaultProbeTimeout,
		StatuspageBaseURL:   defaultStatuspageBaseURL,
		StatuspageTimeout:   defaultStatuspageTimeout,
		StatuspageRateLimit: defaultStatuspageRateLimit,
		LogLevel:            defaultLogLevel,
		SecretsVar:          defaultSecretsVar,
	}

	if value, ok := lookupTrimmed(envServicesDir); ok && value != "" {
		cfg.ServicesDir = value
	}
	if value, ok := lookupTrimmed(envCacheFile); ok && value != "" {
		cfg.CacheFile = value
	}
	if value, ok := lookupTrimmed(envProbeName); ok && value != "" {
		if strings.ContainsAny(value, `/\`) {
			return Config{}, fmt.Errorf("%s must be a file name, not a path", envProbeName)
		}
		cfg.ProbeName = value
	}

	var err error
	if cfg.ProbeTimeout, err = positiveDuration(envProbeTimeout, cfg.ProbeTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StatuspageTimeout, err = positiveDuration(envStatuspageTimeout, cfg.StatuspageTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StatuspageRateLimit, err = nonNegativeDuration(envStatuspageRateLimit, cfg.StatuspageRateLimit); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = nonNegativeDuration(envPollInterval, cfg.PollInterval); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envStatuspageBaseURL); ok && value != "" {
		cfg.StatuspageBaseURL = strings.TrimRight(value, "/")
	}
	if value, ok := lookupTrimmed(envLogLevel); ok && value != "" {
		cfg.LogLevel = value
	}
	if value, ok := lookupTrimmed(envDryRun); ok && value != "" {
		dryRun, err := strconv.ParseBool(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envDryRun, err)
		}
		cfg.DryRun = dryRun
	}
	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}
	if value, ok := lookupTrimmed(envWebhookURL); ok {
		cfg.WebhookURL = value
	}
	if value, ok := os.LookupEnv(envWebhookTemplate); ok {
		cfg.WebhookTemplate = value
	}
	if value, ok := lookupTrimmed(envSecretsVar); ok && value != "" {
		cfg.SecretsVar = value
	}

	if cfg.HealthPort, err = port(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = port(envMetricsPort); err != nil {
		return Config{}, err
	}

	if err := validateURL(cfg.StatuspageBaseURL, envStatuspageBaseURL); err != nil {
		return Config{}, err
	}
	if cfg.SlackWebhookURL != "" {
		if err := validateURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
	}
	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, envWebhookURL); err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func positiveDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", key)
	}
	return parsed, nil
}

func nonNegativeDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("%s cannot be negative", key)
	}
	return parsed, nil
}

func port(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if parsed < 0 || parsed > 65535 {
		return 0, fmt.Errorf("%s must be between 0 and 65535", key)
	}
	return parsed, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
