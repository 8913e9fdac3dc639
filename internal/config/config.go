package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultGeocodingTimeout   = 10 * time.Second
	DefaultSessionTTL         = 12 * time.Hour
	DefaultTrackingSteps      = 20
	DefaultTrackingInterval   = 2 * time.Second
	DefaultTrackingMaxOffset  = 0.0005
	DefaultSessionCacheSizeMB = 16
	DefaultNominatimURL       = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent = "phone_number_tracker_app"
)

type Config struct {
	Environment string `toml:"-"`
	Host        string `toml:"host"`
	Port        int    `toml:"port"`

	// origins allowed to call the JSON API from other sites
	AllowedOrigins []string `toml:"allowed_origins"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// geocoding
	NominatimURL        string        `toml:"nominatim_url"`
	NominatimUserAgent  string        `toml:"nominatim_user_agent"`
	GeocodingTimeoutStr string        `toml:"geocoding_timeout"`
	GeocodingTimeout    time.Duration `toml:"-"`

	// session slots
	SessionCacheSizeMB int           `toml:"session_cache_size_mb"`
	SessionTTLStr      string        `toml:"session_ttl"`
	SessionTTL         time.Duration `toml:"-"`
	SecureCookies      bool          `toml:"secure_cookies"`

	// simulated live tracking
	TrackingSteps       int           `toml:"tracking_steps"`
	TrackingIntervalStr string        `toml:"tracking_interval"`
	TrackingInterval    time.Duration `toml:"-"`
	TrackingMaxOffset   float64       `toml:"tracking_max_offset"`

	// redis, used only for rate limiting track requests
	RedisEnabled         bool   `toml:"redis_enabled"`
	RedisHost            string `toml:"redis_host"`
	RedisPort            string `toml:"redis_port"`
	TrackRateLimitPerMin int    `toml:"track_rate_limit_per_min"`
}

type Toml struct {
	Development *Config `toml:"development"`
	Production  *Config `toml:"production"`
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}

	if cfg == nil {
		return nil, fmt.Errorf("config for env [%s] not found", env)
	}

	return cfg, nil
}

// Load reads the TOML file at path and returns the config section for env,
// with defaults applied and duration fields parsed.
func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode toml config file: %w", err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.Environment = strings.ToLower(env)

	if err := cfg.applyDefaults(); err != nil {
		return nil, fmt.Errorf("config [%s]: %w", env, err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.Port <= 0 {
		return errors.New("port must be set")
	}
	if c.NominatimURL == "" {
		c.NominatimURL = DefaultNominatimURL
	}
	if c.NominatimUserAgent == "" {
		c.NominatimUserAgent = DefaultNominatimUserAgent
	}
	if c.SessionCacheSizeMB <= 0 {
		c.SessionCacheSizeMB = DefaultSessionCacheSizeMB
	}
	if c.TrackingSteps <= 0 {
		c.TrackingSteps = DefaultTrackingSteps
	}
	if c.TrackingMaxOffset <= 0 {
		c.TrackingMaxOffset = DefaultTrackingMaxOffset
	}
	if c.RedisEnabled && c.TrackRateLimitPerMin <= 0 {
		return errors.New("track_rate_limit_per_min must be positive when redis is enabled")
	}

	var err error
	if c.GeocodingTimeout, err = parseDuration(c.GeocodingTimeoutStr, DefaultGeocodingTimeout); err != nil {
		return fmt.Errorf("geocoding_timeout: %w", err)
	}
	if c.SessionTTL, err = parseDuration(c.SessionTTLStr, DefaultSessionTTL); err != nil {
		return fmt.Errorf("session_ttl: %w", err)
	}
	if c.TrackingInterval, err = parseDuration(c.TrackingIntervalStr, DefaultTrackingInterval); err != nil {
		return fmt.Errorf("tracking_interval: %w", err)
	}

	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", value)
	}
	return d, nil
}
