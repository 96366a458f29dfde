package app

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/pettai/petbot/core/config"
	coredatabase "github.com/pettai/petbot/core/database"
	"github.com/pettai/petbot/internal/flow"
	"github.com/pettai/petbot/internal/provider"
)

// FlowConfig exposes the session-flow timing knobs.
type FlowConfig struct {
	TimeoutMinutes       int `yaml:"timeout_minutes" envconfig:"FLOW_TIMEOUT_MINUTES"`
	SecretDeleteSeconds  int `yaml:"secret_delete_seconds" envconfig:"FLOW_SECRET_DELETE_SECONDS"`
	NoticeDeleteSeconds  int `yaml:"notice_delete_seconds" envconfig:"FLOW_NOTICE_DELETE_SECONDS"`
	MaxValidationRetries int `yaml:"max_validation_retries" envconfig:"FLOW_MAX_VALIDATION_RETRIES"`
}

func (f FlowConfig) flowConfig() flow.Config {
	cfg := flow.Config{MaxValidationRetries: f.MaxValidationRetries}
	if f.TimeoutMinutes > 0 {
		cfg.Timeout = time.Duration(f.TimeoutMinutes) * time.Minute
	}
	if f.SecretDeleteSeconds > 0 {
		cfg.SecretDeleteAfter = time.Duration(f.SecretDeleteSeconds) * time.Second
	}
	if f.NoticeDeleteSeconds > 0 {
		cfg.NoticeDeleteAfter = time.Duration(f.NoticeDeleteSeconds) * time.Second
	}
	return cfg
}

// Config aggregates the core configuration with the bot's own sections.
type Config struct {
	Core     coreconfig.Config   `yaml:",inline"`
	Database coredatabase.Config `yaml:"database"`
	Provider provider.Config     `yaml:"provider"`
	Flow     FlowConfig          `yaml:"flow"`
}

// CoreConfig implements the cmd.ConfigCarrier interface.
func (c *Config) CoreConfig() *coreconfig.Config {
	return &c.Core
}

// LoadConfig reads the YAML file, applies environment overrides, and validates.
func LoadConfig(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := coreconfig.Normalize(&cfg.Core); err != nil {
		return nil, err
	}
	if cfg.Provider.BaseURL == "" {
		return nil, fmt.Errorf("provider.base_url is required")
	}
	return &cfg, nil
}
