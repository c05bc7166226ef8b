package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Training  TrainingConfig  `yaml:"training"`
	Registry  RegistryConfig  `yaml:"registry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	MetricsPort        int    `yaml:"metrics_port"`
	AdminToken         string `yaml:"admin_token"`
	RequestTimeoutMs   int    `yaml:"request_timeout_ms"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// DatabaseConfig holds the Postgres URL. Empty keeps history and offers in
// memory.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// HermesConfig holds the NATS URL. Empty disables events.
type HermesConfig struct {
	URL string `yaml:"url"`
}

type ArtifactsConfig struct {
	Backend string `yaml:"backend"` // file | postgres | memory
	Dir     string `yaml:"dir"`
	Keep    int    `yaml:"keep"`
}

type TrainingConfig struct {
	Samples             int     `yaml:"samples"`
	Seed                uint64  `yaml:"seed"`
	TestFraction        float64 `yaml:"test_fraction"`
	MinReadinessR2      float64 `yaml:"min_readiness_r2"`
	MinAPRR2            float64 `yaml:"min_apr_r2"`
	MinApprovalAccuracy float64 `yaml:"min_approval_accuracy"`
	LogisticMaxIter     int     `yaml:"logistic_max_iter"`
	LogisticC           float64 `yaml:"logistic_c"`
}

type RegistryConfig struct {
	RefreshIntervalMs int `yaml:"refresh_interval_ms"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutMs) * time.Millisecond
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Registry.RefreshIntervalMs) * time.Millisecond
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               8000,
			MetricsPort:        8001,
			RequestTimeoutMs:   30000,
			RateLimitPerMinute: 120,
		},
		Artifacts: ArtifactsConfig{
			Backend: "file",
			Dir:     "artifacts",
			Keep:    3,
		},
		Training: TrainingConfig{
			Samples:             5000,
			Seed:                42,
			TestFraction:        0.2,
			MinReadinessR2:      0.5,
			MinAPRR2:            0.3,
			MinApprovalAccuracy: 0.7,
			LogisticMaxIter:     1000,
			LogisticC:           1.0,
		},
		Registry: RegistryConfig{
			RefreshIntervalMs: 60000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Artifacts.Backend {
	case "file":
		if c.Artifacts.Dir == "" {
			return fmt.Errorf("artifacts.dir is required for the file backend")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres artifact backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown artifacts.backend %q", c.Artifacts.Backend)
	}
	if c.Training.Samples < 10 {
		return fmt.Errorf("training.samples must be at least 10, got %d", c.Training.Samples)
	}
	if c.Training.TestFraction <= 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("training.test_fraction must be in (0, 1), got %v", c.Training.TestFraction)
	}
	if c.Training.LogisticC <= 0 {
		return fmt.Errorf("training.logistic_c must be positive")
	}
	if c.Server.RateLimitPerMinute <= 0 {
		return fmt.Errorf("server.rate_limit_per_minute must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PATHFINDER_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("PATHFINDER_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("PATHFINDER_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("PATHFINDER_REQUEST_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.RequestTimeoutMs = n
		}
	}
	if v := os.Getenv("PATHFINDER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("PATHFINDER_HERMES_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("PATHFINDER_ARTIFACTS_BACKEND"); v != "" {
		cfg.Artifacts.Backend = v
	}
	if v := os.Getenv("PATHFINDER_ARTIFACTS_DIR"); v != "" {
		cfg.Artifacts.Dir = v
	}
	if v := os.Getenv("PATHFINDER_TRAINING_SAMPLES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Training.Samples = n
		}
	}
	if v := os.Getenv("PATHFINDER_TRAINING_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Training.Seed = n
		}
	}
	if v := os.Getenv("PATHFINDER_REFRESH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Registry.RefreshIntervalMs = n
		}
	}
	if v := os.Getenv("PATHFINDER_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}
