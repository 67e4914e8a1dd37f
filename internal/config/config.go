package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for ngascope.
type Config struct {
	Forum   ForumConfig   `mapstructure:"forum"   yaml:"forum"`
	Crawl   CrawlConfig   `mapstructure:"crawl"   yaml:"crawl"`
	Content ContentConfig `mapstructure:"content" yaml:"content"`
	Ollama  OllamaConfig  `mapstructure:"ollama"  yaml:"ollama"`
	Output  OutputConfig  `mapstructure:"output"  yaml:"output"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ForumConfig identifies the target forum board.
type ForumConfig struct {
	BaseURL    string `mapstructure:"base_url"    yaml:"base_url"`
	ListingURL string `mapstructure:"listing_url" yaml:"listing_url"`
	ForumID    string `mapstructure:"forum_id"    yaml:"forum_id"`
	CookieFile string `mapstructure:"cookie_file" yaml:"cookie_file"`
	AuthMarker string `mapstructure:"auth_marker" yaml:"auth_marker"`
}

// CrawlConfig controls the paging and fetching loops.
type CrawlConfig struct {
	MaxPages       int           `mapstructure:"max_pages"       yaml:"max_pages"`
	PagesHardCap   int           `mapstructure:"pages_hard_cap"  yaml:"pages_hard_cap"`
	RequestDelay   time.Duration `mapstructure:"request_delay"   yaml:"request_delay"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
}

// ContentConfig controls post body extraction.
type ContentConfig struct {
	MaxLength int `mapstructure:"max_length" yaml:"max_length"`
}

// OllamaConfig controls the classification service.
type OllamaConfig struct {
	Endpoint    string        `mapstructure:"endpoint"    yaml:"endpoint"`
	Model       string        `mapstructure:"model"       yaml:"model"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
	Temperature float64       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float64       `mapstructure:"top_p"       yaml:"top_p"`
	TopK        int           `mapstructure:"top_k"       yaml:"top_k"`
}

// OutputConfig controls report writers.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"       yaml:"dir"`
	Format   string `mapstructure:"format"    yaml:"format"` // json, csv, txt
	Charts   bool   `mapstructure:"charts"    yaml:"charts"`
	MongoURI string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db"  yaml:"mongo_db"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the metrics listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr"    yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults for the NGA
// "二次元国家地理" board.
func DefaultConfig() *Config {
	return &Config{
		Forum: ForumConfig{
			BaseURL:    "https://ngabbs.com",
			ListingURL: "https://ngabbs.com/thread.php",
			ForumID:    "-447601",
			CookieFile: "nga_cookies.json",
			AuthMarker: "你必须登录",
		},
		Crawl: CrawlConfig{
			MaxPages:       10,
			PagesHardCap:   100,
			RequestDelay:   1 * time.Second,
			RequestTimeout: 30 * time.Second,
			UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Content: ContentConfig{
			MaxLength: 5000,
		},
		Ollama: OllamaConfig{
			Endpoint:    "http://localhost:11434",
			Model:       "gemma3:latest",
			Timeout:     60 * time.Second,
			Temperature: 0.1,
			TopP:        0.9,
			TopK:        40,
		},
		Output: OutputConfig{
			Dir:    "./output",
			Format: "json",
			Charts: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
	}
}
