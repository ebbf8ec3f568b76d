package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ito-mmj/misskey-sample/pkg/misskey"
)

const (
	minTimelineLimit = 1
	maxTimelineLimit = 100
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName        string `mapstructure:"app_name"`
	Env            string `mapstructure:"app_env"`
	LogLevel       string `mapstructure:"log_level"`
	PublishersFile string `mapstructure:"publishers_file"`

	BaseURL        string             `mapstructure:"misskey_base_url"`
	Token          string             `mapstructure:"misskey_token"`
	NoteText       string             `mapstructure:"note_text"`
	VisibilityName string             `mapstructure:"note_visibility"`
	Visibility     misskey.Visibility `mapstructure:"-"`
	TimelineLimit  int                `mapstructure:"timeline_limit"`

	CallDelayMs        int64         `mapstructure:"call_delay_ms"`
	CallDelay          time.Duration `mapstructure:"-"`
	HTTPTimeoutSeconds int64         `mapstructure:"http_timeout_seconds"`
	HTTPTimeout        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "misskey-notepost")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("publishers_file", "")
	v.SetDefault("misskey_base_url", misskey.DefaultBaseURL)
	v.SetDefault("misskey_token", "")
	v.SetDefault("note_text", "Hello Misskey World.")
	v.SetDefault("note_visibility", string(misskey.VisibilityPublic))
	v.SetDefault("timeline_limit", misskey.DefaultTimelineLimit)
	v.SetDefault("call_delay_ms", 1000)
	v.SetDefault("http_timeout_seconds", 15)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize validates raw values and fills the derived fields.
func (c *Config) normalize() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		return fmt.Errorf("invalid misskey_base_url (must not be empty)")
	}
	c.Token = strings.TrimSpace(c.Token)
	c.PublishersFile = strings.TrimSpace(c.PublishersFile)

	vis, err := misskey.ParseVisibility(c.VisibilityName)
	if err != nil {
		return fmt.Errorf("invalid note_visibility: %w", err)
	}
	c.Visibility = vis

	if c.TimelineLimit < minTimelineLimit || c.TimelineLimit > maxTimelineLimit {
		return fmt.Errorf("invalid timeline_limit (must be between %d and %d)", minTimelineLimit, maxTimelineLimit)
	}

	if c.CallDelayMs < 0 {
		return fmt.Errorf("invalid call_delay_ms (must not be negative)")
	}
	c.CallDelay = time.Duration(c.CallDelayMs) * time.Millisecond

	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid http_timeout_seconds (must be positive seconds)")
	}
	c.HTTPTimeout = time.Duration(c.HTTPTimeoutSeconds) * time.Second

	return nil
}

// Redacted returns a loggable view of the config with the token masked.
func (c *Config) Redacted() map[string]any {
	if c == nil {
		return nil
	}
	token := ""
	if c.Token != "" {
		token = "***"
	}
	return map[string]any{
		"app_name":        c.AppName,
		"app_env":         c.Env,
		"log_level":       c.LogLevel,
		"publishers_file": c.PublishersFile,
		"base_url":        c.BaseURL,
		"token":           token,
		"visibility":      string(c.Visibility),
		"timeline_limit":  c.TimelineLimit,
		"call_delay":      c.CallDelay.String(),
		"http_timeout":    c.HTTPTimeout.String(),
	}
}
