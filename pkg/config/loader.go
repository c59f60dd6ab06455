package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// IngestYAMLConfig represents the complete ingest.yaml file structure:
// everything about this deployment that isn't an LLM provider.
type IngestYAMLConfig struct {
	System   *SystemYAMLConfig `yaml:"system"`
	Jobs     *JobConfig        `yaml:"jobs"`
	Defaults *TenantDefaults   `yaml:"defaults"`
}

// SystemYAMLConfig groups system-wide infrastructure settings.
type SystemYAMLConfig struct {
	Slack      *SlackYAMLConfig      `yaml:"slack"`
	Encryption *EncryptionYAMLConfig `yaml:"encryption"`
	Retention  *RetentionConfig      `yaml:"retention"`
}

// SlackYAMLConfig holds Slack notification settings from YAML.
type SlackYAMLConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	TokenEnv string `yaml:"token_env,omitempty"`
	Channel  string `yaml:"channel,omitempty"`
}

// EncryptionYAMLConfig holds encryption settings from YAML.
type EncryptionYAMLConfig struct {
	MasterKeyEnv string `yaml:"master_key_env,omitempty"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined LLM providers
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "llm_providers", stats.LLMProviders)

	return cfg, nil
}

// load is the internal loader (not exported).
func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	ingestConfig, err := loader.loadIngestYAML()
	if err != nil {
		return nil, NewLoadError("ingest.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()
	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	jobsConfig := DefaultJobConfig()
	if ingestConfig.Jobs != nil {
		if err := mergo.Merge(jobsConfig, ingestConfig.Jobs, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge jobs config: %w", err)
		}
	}

	defaults := DefaultTenantDefaults()
	if ingestConfig.Defaults != nil {
		if err := mergo.Merge(defaults, ingestConfig.Defaults, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge tenant defaults: %w", err)
		}
	}

	slackCfg := resolveSlackConfig(ingestConfig.System)
	encryptionCfg := resolveEncryptionConfig(ingestConfig.System)
	retentionCfg := resolveRetentionConfig(ingestConfig.System)

	return &Config{
		configDir:           configDir,
		LLMProviderRegistry: llmProviderRegistry,
		Jobs:                jobsConfig,
		Retention:           retentionCfg,
		Slack:               slackCfg,
		Encryption:          encryptionCfg,
		TenantDefaults:      defaults,
	}, nil
}

// validate performs comprehensive validation on loaded configuration.
func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using {{.VAR}} template syntax. Missing
	// variables expand to empty string; validation catches required fields
	// left empty. Content that is not a valid template is used unchanged.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadIngestYAML() (*IngestYAMLConfig, error) {
	var cfg IngestYAMLConfig
	if err := l.loadYAML("ingest.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg LLMProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &cfg); err != nil {
		return nil, err
	}

	return cfg.LLMProviders, nil
}

// resolveSlackConfig resolves Slack configuration from system YAML, applying defaults.
func resolveSlackConfig(sys *SystemYAMLConfig) *SlackConfig {
	cfg := &SlackConfig{
		Enabled:  false,
		TokenEnv: "SLACK_BOT_TOKEN",
	}

	if sys == nil || sys.Slack == nil {
		return cfg
	}

	s := sys.Slack
	if s.Enabled != nil {
		cfg.Enabled = *s.Enabled
	}
	if s.TokenEnv != "" {
		cfg.TokenEnv = s.TokenEnv
	}
	if s.Channel != "" {
		cfg.Channel = s.Channel
	}

	return cfg
}

// resolveEncryptionConfig resolves encryption configuration from system YAML, applying defaults.
func resolveEncryptionConfig(sys *SystemYAMLConfig) *EncryptionConfig {
	cfg := &EncryptionConfig{MasterKeyEnv: "TARSY_INGEST_MASTER_KEY"}

	if sys == nil || sys.Encryption == nil || sys.Encryption.MasterKeyEnv == "" {
		return cfg
	}
	cfg.MasterKeyEnv = sys.Encryption.MasterKeyEnv
	return cfg
}

// resolveRetentionConfig resolves retention configuration from system YAML, applying defaults.
func resolveRetentionConfig(sys *SystemYAMLConfig) *RetentionConfig {
	cfg := DefaultRetentionConfig()

	if sys == nil || sys.Retention == nil {
		return cfg
	}

	r := sys.Retention
	if r.SoftDeleteRetentionDays > 0 {
		cfg.SoftDeleteRetentionDays = r.SoftDeleteRetentionDays
	}
	if r.ProgressLogTTL > 0 {
		cfg.ProgressLogTTL = r.ProgressLogTTL
	}
	if r.CleanupInterval > 0 {
		cfg.CleanupInterval = r.CleanupInterval
	}

	return cfg
}
