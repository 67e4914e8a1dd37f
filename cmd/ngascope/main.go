package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ngascope/ngascope/internal/classify"
	"github.com/ngascope/ngascope/internal/config"
	"github.com/ngascope/ngascope/internal/crawler"
	"github.com/ngascope/ngascope/internal/fetcher"
	"github.com/ngascope/ngascope/internal/observability"
	"github.com/ngascope/ngascope/internal/report"
	"github.com/ngascope/ngascope/internal/storage"
	"github.com/ngascope/ngascope/internal/types"
)

var (
	cfgFile      string
	verbose      bool
	forumID      string
	outputDir    string
	outputFormat string
	maxPages     int
	delay        string
	withCharts   bool
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "ngascope",
		Short: "ngascope — NGA forum post classifier",
		Long: `ngascope crawls an NGA forum board, fetches each thread's opening post,
classifies it into a fixed 8-way taxonomy with a local Ollama model, and
writes classification reports and summary statistics.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(crawlCmd())
	rootCmd.AddCommand(checkOllamaCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a board and classify its posts",
		Long:  "Page through the configured board listing, fetch and classify each thread's opening post, and write reports.",
		RunE:  runCrawl,
	}

	cmd.Flags().StringVarP(&forumID, "forum-id", "f", "", "board ID (default from config: 二次元国家地理)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&outputFormat, "format", "", "report format: json, csv, txt")
	cmd.Flags().IntVarP(&maxPages, "pages", "p", 0, "maximum listing pages to crawl")
	cmd.Flags().StringVar(&delay, "delay", "", "delay between requests (e.g. 1s, 500ms)")
	cmd.Flags().BoolVar(&withCharts, "charts", false, "also write an HTML chart report")

	return cmd
}

// runCrawl executes the crawl command.
func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := setupLogger(cfg)

	client, err := fetcher.NewClient(cfg.Crawl, logger)
	if err != nil {
		return fmt.Errorf("create fetcher: %w", err)
	}
	defer client.Close()

	// Interrupts cancel the context; the crawler finishes the post in
	// flight and returns whatever it has collected.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Session: a missing cookie file means anonymous access, which the
	// forum may reject mid-crawl with its login wall.
	if cfg.Forum.CookieFile != "" {
		if err := client.LoadCookieFile(cfg.Forum.CookieFile, cfg.Forum.BaseURL); err != nil {
			logger.Warn("no usable cookie file, continuing anonymously", "error", err)
		} else if ok, err := client.ProbeLogin(ctx, cfg.Forum.ListingURL, cfg.Forum.ForumID, cfg.Forum.AuthMarker); err != nil {
			logger.Warn("login probe failed", "error", err)
		} else if !ok {
			logger.Warn("cookies present but session not authenticated")
		} else {
			logger.Info("session authenticated")
		}
	}

	// Classification service: unreachable at startup degrades the run to
	// collection-only instead of aborting it.
	ollama := classify.NewOllamaClient(cfg.Ollama, logger)
	var engine *classify.Engine
	if err := ollama.CheckService(ctx); err != nil {
		logger.Error("classification disabled for this run", "error", err)
	} else {
		engine = classify.NewEngine(ollama, logger)
	}

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Addr); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}

	c, err := crawler.New(cfg, client, engine, metrics, logger)
	if err != nil {
		return fmt.Errorf("create crawler: %w", err)
	}

	logger.Info("starting crawl",
		"forum_id", cfg.Forum.ForumID,
		"max_pages", cfg.Crawl.MaxPages,
		"model", cfg.Ollama.Model,
		"classification", engine != nil,
	)

	start := time.Now()
	result, err := c.Run(ctx)
	if err != nil {
		return fmt.Errorf("crawl run: %w", err)
	}

	if err := writeReports(cfg, result, logger); err != nil {
		return err
	}

	printSummary(result, time.Since(start), cfg.Output.Dir)
	if c.State() == crawler.StateAuthRequired {
		fmt.Println("\n⚠ 需要登录才能访问完整版块内容，已保存部分结果")
	}
	return nil
}

// writeReports persists the run in the configured format, plus the text
// summary, optional charts, and optional Mongo sink.
func writeReports(cfg *config.Config, result *types.Report, logger *slog.Logger) error {
	writer, err := storage.NewFileWriter(cfg.Output.Dir, logger)
	if err != nil {
		return fmt.Errorf("create report writer: %w", err)
	}

	switch cfg.Output.Format {
	case "json":
		if _, err := writer.WriteJSON(result); err != nil {
			return err
		}
	case "csv":
		if _, err := writer.WriteCSV(result); err != nil {
			return err
		}
	}
	if _, err := writer.WriteSummary(result); err != nil {
		return err
	}

	if cfg.Output.Charts {
		if _, err := report.WriteCharts(result, cfg.Output.Dir, logger); err != nil {
			logger.Error("chart report failed", "error", err)
		}
	}

	if cfg.Output.MongoURI != "" {
		sink, err := storage.NewMongoSink(cfg.Output.MongoURI, cfg.Output.MongoDB, logger)
		if err != nil {
			logger.Error("mongodb sink unavailable", "error", err)
			return nil
		}
		defer sink.Close()
		if err := sink.Store(context.Background(), result.Posts); err != nil {
			logger.Error("mongodb store failed", "error", err)
		}
	}

	return nil
}

// printSummary writes the end-of-run digest to stdout.
func printSummary(result *types.Report, elapsed time.Duration, outputDir string) {
	s := result.Statistics

	fmt.Printf("\n=== 分类统计 ===\n")
	fmt.Printf("总帖子数: %d (耗时 %s)\n", s.TotalPosts, elapsed.Round(time.Second))

	if len(s.Categories) > 0 {
		fmt.Println("\n分类分布:")
		for category, count := range s.Categories {
			percentage := float64(count) / float64(s.TotalPosts) * 100
			fmt.Printf("  %s: %d (%.1f%%)\n", category, count, percentage)
		}
	}
	if s.Summary.MostCommonKeyword != "" {
		fmt.Printf("\n最热关键词: %s\n", s.Summary.MostCommonKeyword)
	}
	fmt.Printf("\n结果已保存到: %s\n", outputDir)
}

// checkOllamaCmd creates the "check-ollama" subcommand.
func checkOllamaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-ollama",
		Short: "Verify the Ollama service and run one test classification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger := setupLogger(cfg)

			ollama := classify.NewOllamaClient(cfg.Ollama, logger)
			if err := ollama.CheckService(cmd.Context()); err != nil {
				return err
			}

			engine := classify.NewEngine(ollama, logger)
			result, err := engine.Classify(cmd.Context(),
				"【讨论】最近看的新番推荐",
				"最近在看鬼灭之刃最新季，画质真的很棒，推荐大家去看看。另外还有咒术回战也很不错。",
			)
			if err != nil {
				return err
			}

			fmt.Printf("测试分类结果: category=%s keywords=%v confidence=%.2f\n",
				result.Category(), result.Keywords, result.Confidence)
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("ngascope %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Forum:\n")
			fmt.Printf("  Base URL:        %s\n", cfg.Forum.BaseURL)
			fmt.Printf("  Forum ID:        %s\n", cfg.Forum.ForumID)
			fmt.Printf("  Cookie File:     %s\n", cfg.Forum.CookieFile)
			fmt.Printf("\nCrawl:\n")
			fmt.Printf("  Max Pages:       %d (hard cap %d)\n", cfg.Crawl.MaxPages, cfg.Crawl.PagesHardCap)
			fmt.Printf("  Request Delay:   %s\n", cfg.Crawl.RequestDelay)
			fmt.Printf("  Request Timeout: %s\n", cfg.Crawl.RequestTimeout)
			fmt.Printf("\nOllama:\n")
			fmt.Printf("  Endpoint:        %s\n", cfg.Ollama.Endpoint)
			fmt.Printf("  Model:           %s\n", cfg.Ollama.Model)
			fmt.Printf("  Timeout:         %s\n", cfg.Ollama.Timeout)
			fmt.Printf("\nOutput:\n")
			fmt.Printf("  Directory:       %s\n", cfg.Output.Dir)
			fmt.Printf("  Format:          %s\n", cfg.Output.Format)
			fmt.Printf("  Charts:          %v\n", cfg.Output.Charts)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:         %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Addr:            %s\n", cfg.Metrics.Addr)
			return nil
		},
	}
}

// setupLogger creates a structured logger from the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if forumID != "" {
		cfg.Forum.ForumID = forumID
	}
	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}
	if outputFormat != "" {
		cfg.Output.Format = outputFormat
	}
	if maxPages > 0 {
		cfg.Crawl.MaxPages = maxPages
	}
	if delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			cfg.Crawl.RequestDelay = d
		}
	}
	if withCharts {
		cfg.Output.Charts = true
	}
}
