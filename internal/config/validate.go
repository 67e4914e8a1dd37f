package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if err := ValidateURL(cfg.Forum.BaseURL); err != nil {
		return fmt.Errorf("forum.base_url: %w", err)
	}
	if err := ValidateURL(cfg.Forum.ListingURL); err != nil {
		return fmt.Errorf("forum.listing_url: %w", err)
	}
	if cfg.Forum.ForumID == "" {
		return fmt.Errorf("forum.forum_id must not be empty")
	}

	if cfg.Crawl.MaxPages < 1 {
		return fmt.Errorf("crawl.max_pages must be >= 1, got %d", cfg.Crawl.MaxPages)
	}
	if cfg.Crawl.PagesHardCap < 1 {
		return fmt.Errorf("crawl.pages_hard_cap must be >= 1, got %d", cfg.Crawl.PagesHardCap)
	}
	if cfg.Crawl.RequestDelay < 0 {
		return fmt.Errorf("crawl.request_delay must be >= 0")
	}
	if cfg.Crawl.RequestTimeout <= 0 {
		return fmt.Errorf("crawl.request_timeout must be > 0")
	}

	if cfg.Content.MaxLength < 1 {
		return fmt.Errorf("content.max_length must be >= 1, got %d", cfg.Content.MaxLength)
	}

	if err := ValidateURL(cfg.Ollama.Endpoint); err != nil {
		return fmt.Errorf("ollama.endpoint: %w", err)
	}
	if cfg.Ollama.Model == "" {
		return fmt.Errorf("ollama.model must not be empty")
	}
	if cfg.Ollama.Timeout <= 0 {
		return fmt.Errorf("ollama.timeout must be > 0")
	}
	if cfg.Ollama.Temperature < 0 || cfg.Ollama.Temperature > 2 {
		return fmt.Errorf("ollama.temperature must be in [0, 2], got %g", cfg.Ollama.Temperature)
	}
	if cfg.Ollama.TopP <= 0 || cfg.Ollama.TopP > 1 {
		return fmt.Errorf("ollama.top_p must be in (0, 1], got %g", cfg.Ollama.TopP)
	}
	if cfg.Ollama.TopK < 1 {
		return fmt.Errorf("ollama.top_k must be >= 1, got %d", cfg.Ollama.TopK)
	}

	validFormats := map[string]bool{
		"json": true, "csv": true, "txt": true,
	}
	if !validFormats[cfg.Output.Format] {
		return fmt.Errorf("output.format %q is not supported (valid: json, csv, txt)", cfg.Output.Format)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr must not be empty when metrics are enabled")
	}

	return nil
}

// ValidateURL checks if a URL string is usable as a fetch target.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
