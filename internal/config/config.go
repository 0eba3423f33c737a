package config

import (
	"fmt"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v2"
)

// APIConfig describes one of the two OpenProcurement-style REST endpoints the
// bridge talks to.
type APIConfig struct {
	URL     string `yaml:"url"`
	Version string `yaml:"version"`
	Key     string `yaml:"key"`
}

// CacheConfig selects and locates the key-value backend used for contract
// deduplication. Backend "memory" needs no host and is mostly useful for
// tests and local runs.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	DBName  string `yaml:"db_name"`
}

type RetryConfig struct {
	CredentialsAttempts int `yaml:"credentials_attempts"`
	DelayMS             int `yaml:"delay_ms"`
	MaxDelayMS          int `yaml:"max_delay_ms"`
}

// DelaysConfig groups the pacing knobs of the pipeline. All values are
// durations in milliseconds.
type DelaysConfig struct {
	OnErrorMS      int `yaml:"on_error_ms"`
	EmptyFeedMS    int `yaml:"empty_feed_ms"`
	SuperviseMS    int `yaml:"supervise_ms"`
	GraceTimeoutMS int `yaml:"grace_timeout_ms"`
}

type StatusAPIConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type Config struct {
	TendersAPI     APIConfig       `yaml:"tenders_api"`
	ContractingAPI APIConfig       `yaml:"contracting_api"`
	Cache          CacheConfig     `yaml:"cache"`
	Retry          RetryConfig     `yaml:"retry"`
	Delays         DelaysConfig    `yaml:"delays"`
	StatusAPI      StatusAPIConfig `yaml:"status_api"`
}

// Load reads and unmarshals the configuration file located at the given path.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Basic validation
	if cfg.TendersAPI.URL == "" {
		return nil, fmt.Errorf("tenders_api.url is required")
	}
	if cfg.ContractingAPI.URL == "" {
		return nil, fmt.Errorf("contracting_api.url is required")
	}

	switch cfg.Cache.Backend {
	case "":
		cfg.Cache.Backend = "redis"
		fallthrough
	case "redis":
		if cfg.Cache.Host == "" {
			return nil, fmt.Errorf("cache.host is required when cache backend is redis")
		}
	case "memory":
		// No host needed.
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.Cache.Backend)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.TendersAPI.Version == "" {
		cfg.TendersAPI.Version = "2.4"
	}
	if cfg.ContractingAPI.Version == "" {
		cfg.ContractingAPI.Version = "2.4"
	}
	if cfg.Cache.Port == 0 && cfg.Cache.Backend == "redis" {
		cfg.Cache.Port = 6379
	}
	if cfg.Cache.DBName == "" {
		cfg.Cache.DBName = "0"
	}
	if cfg.Retry.CredentialsAttempts == 0 {
		cfg.Retry.CredentialsAttempts = 3
	}
	if cfg.Retry.DelayMS == 0 {
		cfg.Retry.DelayMS = 1000
	}
	if cfg.Retry.MaxDelayMS == 0 {
		cfg.Retry.MaxDelayMS = 60_000
	}
	if cfg.Delays.OnErrorMS == 0 {
		cfg.Delays.OnErrorMS = 5_000
	}
	if cfg.Delays.EmptyFeedMS == 0 {
		cfg.Delays.EmptyFeedMS = 10_000
	}
	if cfg.Delays.SuperviseMS == 0 {
		cfg.Delays.SuperviseMS = 2_000
	}
	if cfg.Delays.GraceTimeoutMS == 0 {
		cfg.Delays.GraceTimeoutMS = 5_000
	}
	if cfg.StatusAPI.Port == 0 {
		cfg.StatusAPI.Port = 8080
	}
}
