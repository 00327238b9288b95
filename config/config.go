package config

import (
	"os"
	"strings"
	"time"

	"fiber-monitor/constants"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AuthConfig gates the dashboard. An empty Username leaves it open.
type AuthConfig struct {
	Username    string        `yaml:"username"`
	Password    string        `yaml:"password"`
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

// Config holds the monitor options. Values are immutable after startup;
// the middleware and dashboard receive a copy.
type Config struct {
	StorageLocation string     `yaml:"storage_location"`
	DashboardPath   string     `yaml:"dashboard_path"`
	ExcludePaths    []string   `yaml:"exclude_paths"`
	Auth            AuthConfig `yaml:"auth"`
}

// Default returns the configuration used when nothing else is provided:
// a local monitor.db file and a dashboard at /monitor excluded from capture.
func Default() Config {
	return Config{
		StorageLocation: constants.DefaultStorageLocation,
		DashboardPath:   constants.DefaultDashboardPath,
		ExcludePaths:    []string{constants.DefaultDashboardPath},
		Auth:            AuthConfig{TokenTTL: constants.DefaultTokenTTL},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment overrides, in that order. A missing or unreadable file is
// ignored.
func Load(path string) Config {
	cfg := Default()
	cfg.ExcludePaths = nil

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, &cfg)
		}
	}
	applyEnv(&cfg)

	if len(cfg.ExcludePaths) == 0 {
		cfg.ExcludePaths = []string{cfg.DashboardPath}
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = constants.DefaultTokenTTL
	}
	return cfg
}

func applyEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv(constants.EnvStorageLocation); v != "" {
		cfg.StorageLocation = v
	}
	if v := os.Getenv(constants.EnvDashboardPath); v != "" {
		cfg.DashboardPath = v
	}
	if v := os.Getenv(constants.EnvExcludePaths); v != "" {
		paths := make([]string, 0)
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		cfg.ExcludePaths = paths
	}
	if v := os.Getenv(constants.EnvAuthUsername); v != "" {
		cfg.Auth.Username = v
	}
	if v := os.Getenv(constants.EnvAuthPassword); v != "" {
		cfg.Auth.Password = v
	}
	if v := os.Getenv(constants.EnvTokenSecret); v != "" {
		cfg.Auth.TokenSecret = v
	}
	if v := os.Getenv(constants.EnvTokenTTL); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Auth.TokenTTL = ttl
		}
	}
}
