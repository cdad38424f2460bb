package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	pkgconfig "feedhub/pkg/config"
)

// CacheConfig is the FeedCache configuration of spec §6.
type CacheConfig struct {
	// MaxCacheSizeBytes bounds total accounted weight. Default 10 MiB.
	MaxCacheSizeBytes int
	// TimeToLive is how long an entry stays fresh after insertion. Default 1h.
	TimeToLive time.Duration
	// RefreshInterval is the PeriodicRefresher's sleep interval. Default 1h.
	RefreshInterval time.Duration
}

// FetcherConfig is the FeedFetcher configuration of spec §6.
type FetcherConfig struct {
	UserAgent      string
	BuffLimit      int64
	ConnectTimeout time.Duration
	TotalTimeout   time.Duration
}

// ServerConfig holds the transport-layer bind address.
type ServerConfig struct {
	Port int
}

// DatabaseConfig holds the SubscriptionStore's connection string. An empty
// URL selects the in-memory store (used for local development and tests).
type DatabaseConfig struct {
	URL string
}

// AuthConfig holds the HS256 secret the transport layer's JWT-decode-only
// principal extraction verifies against.
type AuthConfig struct {
	JWTSecret string
}

// FeedHubConfig is the top-level configuration for the feedhub server.
type FeedHubConfig struct {
	Cache    CacheConfig
	Fetcher  FetcherConfig
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	// FanoutCap bounds simultaneous outbound fetches per usecase call
	// (spec §5). Default 10.
	FanoutCap int
}

const mib = 1 << 20

// Load reads FeedHubConfig from environment variables, falling back to the
// defaults spec §6 names. If FEEDHUB_CONFIG_FILE names a YAML file, its
// key/value pairs seed the environment for any variable not already set,
// so a deployment can check in a base config and still override individual
// values at the process level; no config file is required to run the
// service.
func Load() (*FeedHubConfig, error) {
	if err := applyFileDefaults(os.Getenv("FEEDHUB_CONFIG_FILE")); err != nil {
		return nil, fmt.Errorf("loading feedhub config file: %w", err)
	}

	cfg := &FeedHubConfig{
		Cache: CacheConfig{
			MaxCacheSizeBytes: pkgconfig.GetEnvInt("FEEDHUB_CACHE_MAX_SIZE_MB", 10) * mib,
			TimeToLive:        pkgconfig.GetEnvDuration("FEEDHUB_CACHE_TTL", time.Hour),
			RefreshInterval:   pkgconfig.GetEnvDuration("FEEDHUB_REFRESH_INTERVAL", time.Hour),
		},
		Fetcher: FetcherConfig{
			UserAgent:      pkgconfig.GetEnvString("FEEDHUB_USER_AGENT", "feedhub/1.0"),
			BuffLimit:      int64(pkgconfig.GetEnvInt("FEEDHUB_FETCH_BUFF_LIMIT_MB", 10)) * mib,
			ConnectTimeout: pkgconfig.GetEnvDuration("FEEDHUB_FETCH_CONNECT_TIMEOUT", 10*time.Second),
			TotalTimeout:   pkgconfig.GetEnvDuration("FEEDHUB_FETCH_TOTAL_TIMEOUT", 10*time.Second),
		},
		Server: ServerConfig{
			Port: pkgconfig.GetEnvInt("FEEDHUB_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL: pkgconfig.GetEnvString("FEEDHUB_DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: pkgconfig.GetEnvString("FEEDHUB_JWT_SECRET", ""),
		},
		FanoutCap: pkgconfig.GetEnvInt("FEEDHUB_FANOUT_CAP", 10),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid feedhub configuration: %w", err)
	}
	return cfg, nil
}

// applyFileDefaults reads path as a flat YAML map of environment variable
// names to string values and sets any that aren't already present in the
// environment. A blank path is a no-op, matching the env-var-only default.
func applyFileDefaults(path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var defaults map[string]string
	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	for key, value := range defaults {
		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setting %s: %w", key, err)
			}
		}
	}
	return nil
}

// Validate checks configuration correctness, the same way LoadAIConfig
// validates its own tree before handing it to callers.
func (c *FeedHubConfig) Validate() error {
	if c.Cache.MaxCacheSizeBytes <= 0 {
		return fmt.Errorf("FEEDHUB_CACHE_MAX_SIZE_MB must be positive")
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Cache.TimeToLive); err != nil {
		return fmt.Errorf("FEEDHUB_CACHE_TTL: %w", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Cache.RefreshInterval); err != nil {
		return fmt.Errorf("FEEDHUB_REFRESH_INTERVAL: %w", err)
	}
	if c.Fetcher.BuffLimit <= 0 {
		return fmt.Errorf("FEEDHUB_FETCH_BUFF_LIMIT_MB must be positive")
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Fetcher.ConnectTimeout); err != nil {
		return fmt.Errorf("FEEDHUB_FETCH_CONNECT_TIMEOUT: %w", err)
	}
	if err := pkgconfig.ValidatePositiveDuration(c.Fetcher.TotalTimeout); err != nil {
		return fmt.Errorf("FEEDHUB_FETCH_TOTAL_TIMEOUT: %w", err)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("FEEDHUB_PORT must be between 1 and 65535")
	}
	if c.FanoutCap <= 0 {
		return fmt.Errorf("FEEDHUB_FANOUT_CAP must be positive")
	}
	return nil
}
