package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for Catchpost. It is loaded once at
// process start and treated as read-only afterwards; handlers receive it
// by reference and never mutate it.
type Config struct {
	Slack       SlackConfig    `json:"slack" yaml:"slack"`
	Telegram    TelegramConfig `json:"telegram" yaml:"telegram"`
	Metrics     MetricsConfig  `json:"metrics" yaml:"metrics"`
	Environment string         `json:"environment" yaml:"environment"`
	Port        int            `json:"port" yaml:"port"`
	SecretKey   string         `json:"secretKey" yaml:"secretKey"`
}

// SlackConfig configures the forwarding destination.
type SlackConfig struct {
	BotToken  string `json:"botToken" yaml:"botToken"`
	ChannelID string `json:"channelId" yaml:"channelId"`
	// APIURL overrides the Slack API base URL (must end with "/").
	// Leave empty for the public API.
	APIURL string `json:"apiUrl,omitempty" yaml:"apiUrl,omitempty"`
}

// TelegramConfig configures the optional Telegram mirror.
type TelegramConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled"`
	Token     string `json:"token" yaml:"token"`
	ChatID    string `json:"chatId" yaml:"chatId"`
	ParseMode string `json:"parseMode,omitempty" yaml:"parseMode,omitempty"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfigDir returns the default config directory (~/.catchpost).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".catchpost"
	}
	return filepath.Join(home, ".catchpost")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

func Defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Enabled: false,
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Endpoint: "/metrics",
		},
		Environment: "development",
		Port:        3000,
	}
}

// Load reads a config file (YAML or JSON by extension), expands ${VAR}
// references, applies environment overrides on top, and validates the
// result. Unknown keys in the file are tolerated.
func Load(path string) (*Config, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// Substitute environment variables: ${VAR} and ${VAR:-default}
	data = []byte(ExpandEnvVars(string(data)))

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	ApplyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a config from environment variables alone, for
// deployments that carry no config file.
func FromEnv() (*Config, error) {
	cfg := Defaults()
	ApplyEnv(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg. Nested fields use a
// double-underscore delimiter (SLACK__BOT_TOKEN etc.). Variables that are
// unset or empty leave the existing value untouched.
func ApplyEnv(cfg *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("SLACK__BOT_TOKEN", &cfg.Slack.BotToken)
	setString("SLACK__CHANNEL_ID", &cfg.Slack.ChannelID)
	setString("SLACK__API_URL", &cfg.Slack.APIURL)
	setBool("TELEGRAM__ENABLED", &cfg.Telegram.Enabled)
	setString("TELEGRAM__TOKEN", &cfg.Telegram.Token)
	setString("TELEGRAM__CHAT_ID", &cfg.Telegram.ChatID)
	setString("TELEGRAM__PARSE_MODE", &cfg.Telegram.ParseMode)
	setBool("METRICS__ENABLED", &cfg.Metrics.Enabled)
	setString("METRICS__ENDPOINT", &cfg.Metrics.Endpoint)
	setString("ENVIRONMENT", &cfg.Environment)
	setString("SECRET_KEY", &cfg.SecretKey)
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match // Keep original if no env var and no default
		}
		return val
	})
}

// Validate checks that the config has valid values. The Slack credentials
// and the manual-trigger secret are required; everything else has defaults.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Slack.BotToken == "" {
		errs = append(errs, "slack.botToken is required")
	}
	if cfg.Slack.ChannelID == "" {
		errs = append(errs, "slack.channelId is required")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "secretKey is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if cfg.Slack.APIURL != "" && !strings.HasSuffix(cfg.Slack.APIURL, "/") {
		errs = append(errs, "slack.apiUrl must end with a trailing slash")
	}
	if cfg.Telegram.Enabled {
		if cfg.Telegram.Token == "" {
			errs = append(errs, "telegram.token is required when telegram.enabled")
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(cfg.Telegram.ChatID), 10, 64); err != nil {
			errs = append(errs, "telegram.chatId must be a numeric chat ID")
		}
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Endpoint, "/") {
		errs = append(errs, "metrics.endpoint must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Sanitize returns a copy of cfg with credentials masked, for display.
func Sanitize(cfg *Config) *Config {
	out := *cfg
	out.Slack.BotToken = mask(out.Slack.BotToken)
	out.Telegram.Token = mask(out.Telegram.Token)
	out.SecretKey = mask(out.SecretKey)
	return &out
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
