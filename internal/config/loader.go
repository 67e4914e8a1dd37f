package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("NGASCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("ngascope")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".ngascope"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("forum.base_url", cfg.Forum.BaseURL)
	v.SetDefault("forum.listing_url", cfg.Forum.ListingURL)
	v.SetDefault("forum.forum_id", cfg.Forum.ForumID)
	v.SetDefault("forum.cookie_file", cfg.Forum.CookieFile)
	v.SetDefault("forum.auth_marker", cfg.Forum.AuthMarker)

	v.SetDefault("crawl.max_pages", cfg.Crawl.MaxPages)
	v.SetDefault("crawl.pages_hard_cap", cfg.Crawl.PagesHardCap)
	v.SetDefault("crawl.request_delay", cfg.Crawl.RequestDelay)
	v.SetDefault("crawl.request_timeout", cfg.Crawl.RequestTimeout)
	v.SetDefault("crawl.user_agent", cfg.Crawl.UserAgent)

	v.SetDefault("content.max_length", cfg.Content.MaxLength)

	v.SetDefault("ollama.endpoint", cfg.Ollama.Endpoint)
	v.SetDefault("ollama.model", cfg.Ollama.Model)
	v.SetDefault("ollama.timeout", cfg.Ollama.Timeout)
	v.SetDefault("ollama.temperature", cfg.Ollama.Temperature)
	v.SetDefault("ollama.top_p", cfg.Ollama.TopP)
	v.SetDefault("ollama.top_k", cfg.Ollama.TopK)

	v.SetDefault("output.dir", cfg.Output.Dir)
	v.SetDefault("output.format", cfg.Output.Format)
	v.SetDefault("output.charts", cfg.Output.Charts)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
}
