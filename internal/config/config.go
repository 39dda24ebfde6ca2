// Package config loads application configuration from file and
// environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Provider    ProviderConfig    `mapstructure:"provider"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	PostProcess PostProcessConfig `mapstructure:"postprocess"`
	Subsync     SubsyncConfig     `mapstructure:"subsync"`
}

// ProviderConfig holds settings for the remote subtitle API.
type ProviderConfig struct {
	BaseURL                string   `mapstructure:"base_url"`
	APIKey                 string   `mapstructure:"api_key"`
	UserAgent              string   `mapstructure:"user_agent"`
	Languages              []string `mapstructure:"languages"`
	MaxTitles              int      `mapstructure:"max_titles"`
	MaxRetries             int      `mapstructure:"max_retries"`
	SearchTimeoutSeconds   int      `mapstructure:"search_timeout_seconds"`
	DownloadTimeoutSeconds int      `mapstructure:"download_timeout_seconds"`
	TitlePacingSeconds     int      `mapstructure:"title_pacing_seconds"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// PostProcessConfig holds post-processing command configuration.
type PostProcessConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Command        string `mapstructure:"command"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SubsyncConfig holds subtitle synchronization configuration.
type SubsyncConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	ToolPath         string  `mapstructure:"tool_path"`
	MaxOffsetSeconds int     `mapstructure:"max_offset_seconds"`
	NoFixFramerate   bool    `mapstructure:"no_fix_framerate"`
	EpisodeThreshold float64 `mapstructure:"episode_threshold"`
	MovieThreshold   float64 `mapstructure:"movie_threshold"`
}

// SearchTimeout returns the per-attempt search timeout.
func (c *ProviderConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutSeconds) * time.Second
}

// DownloadTimeout returns the download timeout.
func (c *ProviderConfig) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSeconds) * time.Second
}

// TitlePacing returns the delay applied between title attempts.
func (c *ProviderConfig) TitlePacing() time.Duration {
	return time.Duration(c.TitlePacingSeconds) * time.Second
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.subrift")
	}

	v.SetEnvPrefix("SUBRIFT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults + env vars
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "https://api.subrift.example")
	v.SetDefault("provider.api_key", "")
	v.SetDefault("provider.user_agent", "subrift/1.0")
	v.SetDefault("provider.languages", []string{"en"})
	v.SetDefault("provider.max_titles", 3)
	v.SetDefault("provider.max_retries", 3)
	v.SetDefault("provider.search_timeout_seconds", 10)
	v.SetDefault("provider.download_timeout_seconds", 30)
	v.SetDefault("provider.title_pacing_seconds", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("postprocess.enabled", false)
	v.SetDefault("postprocess.command", "")
	v.SetDefault("postprocess.timeout_seconds", 60)

	v.SetDefault("subsync.enabled", false)
	v.SetDefault("subsync.tool_path", "ffsubsync")
	v.SetDefault("subsync.max_offset_seconds", 60)
	v.SetDefault("subsync.no_fix_framerate", false)
	v.SetDefault("subsync.episode_threshold", 0)
	v.SetDefault("subsync.movie_threshold", 0)
}
