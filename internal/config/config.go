package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds everything the suite reads at startup
type Config struct {
	DBPath    string `yaml:"db_path"`
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	UserID    string `yaml:"user_id"`

	// AuthToken is the bearer token the API accepts; empty disables auth
	AuthToken string `yaml:"auth_token"`

	AutosaveDelay time.Duration `yaml:"autosave_delay"`

	// CLISuccessRate is the probability a simulated card CLI run succeeds
	CLISuccessRate float64 `yaml:"cli_success_rate"`

	Agents Agents `yaml:"agents"`
}

// Agents configures the external AI collaborators
type Agents struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AnthropicModel  string `yaml:"anthropic_model"`
	HFToken         string `yaml:"hf_token"`
	PromptBaseURL   string `yaml:"prompt_base_url"`
	PromptModel     string `yaml:"prompt_model"`
	ForecastURL     string `yaml:"forecast_url"`
}

// Dir returns the suite's home directory, ~/.suite
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".suite")
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		DBPath:         filepath.Join(Dir(), "suite.db"),
		Addr:           ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
		UserID:         "demo",
		AutosaveDelay:  1500 * time.Millisecond,
		CLISuccessRate: 0.9,
	}
}

// DefaultPath is where Load looks when no path is given
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load builds the configuration: defaults, then the YAML file at path
// (a missing file is fine), then a .env file in the working directory,
// then environment variables
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"SUITE_DB":          &cfg.DBPath,
		"SUITE_ADDR":        &cfg.Addr,
		"SUITE_LOG_LEVEL":   &cfg.LogLevel,
		"SUITE_LOG_FORMAT":  &cfg.LogFormat,
		"SUITE_USER_ID":     &cfg.UserID,
		"SUITE_AUTH_TOKEN":  &cfg.AuthToken,
		"ANTHROPIC_API_KEY": &cfg.Agents.AnthropicAPIKey,
		"ANTHROPIC_MODEL":   &cfg.Agents.AnthropicModel,
		"HF_API_TOKEN":      &cfg.Agents.HFToken,
		"HF_BASE_URL":       &cfg.Agents.PromptBaseURL,
		"HF_MODEL":          &cfg.Agents.PromptModel,
		"FORECAST_API_URL":  &cfg.Agents.ForecastURL,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("SUITE_AUTOSAVE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SUITE_AUTOSAVE_DELAY: %w", err)
		}
		cfg.AutosaveDelay = d
	}
	if v := os.Getenv("SUITE_CLI_SUCCESS_RATE"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SUITE_CLI_SUCCESS_RATE: %w", err)
		}
		cfg.CLISuccessRate = p
	}
	return nil
}
