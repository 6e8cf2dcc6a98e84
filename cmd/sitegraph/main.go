package main

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/alvmarrod/sitegraph/internal/config"
	"github.com/alvmarrod/sitegraph/internal/crawler"
	"github.com/alvmarrod/sitegraph/internal/export"
	"github.com/alvmarrod/sitegraph/internal/fetch"
	"github.com/alvmarrod/sitegraph/internal/metrics"
	"github.com/alvmarrod/sitegraph/internal/storage"
	"github.com/alvmarrod/sitegraph/internal/version"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "sitegraph [root-url] [max-pages] [output-name]",
	Short: "Crawl a website and emit its link graph",
	Long: `sitegraph crawls a single website breadth-first from a root URL and
writes the discovered pages and links as a {nodes, edges} JSON graph
ready for visualization.`,
	Version:       version.Version,
	Args:          cobra.MaximumNArgs(3),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCrawl,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.Flags().String("db", "", "Also store the graph in this SQLite database")
	rootCmd.Flags().String("metrics", "", "Write crawl metrics to this JSON file")
	rootCmd.Flags().Int("workers", 1, "Number of pages fetched concurrently")
	rootCmd.Flags().Duration("timeout", 10*time.Second, "Per-request timeout")
	rootCmd.Flags().StringSlice("fold", nil, "Fold links whose last path segment matches (e.g. main)")

	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatalf("%v", err)
	}
}

// setupLogging configures the global logger the way every command expects
func setupLogging(level string) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logrus.SetLevel(lvl)
}

// loadConfig reads the config file and applies positional arguments and flags on top
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.SeedURL = args[0]
	}
	if len(args) > 1 {
		maxPages, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("invalid max-pages %q: %w", args[1], err)
		}
		cfg.MaxPages = maxPages
	}
	if len(args) > 2 {
		cfg.OutputName = args[2]
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath, _ = flags.GetString("db")
	}
	if flags.Changed("metrics") {
		cfg.MetricsPath, _ = flags.GetString("metrics")
	}
	if flags.Changed("workers") {
		cfg.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("timeout") {
		timeout, _ := flags.GetDuration("timeout")
		cfg.RequestTimeoutMs = int(timeout.Milliseconds())
	}
	if flags.Changed("fold") {
		cfg.FoldSegments, _ = flags.GetStringSlice("fold")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	logrus.Infof("Site Graph v%s starting...", version.Version)
	logrus.Infof("Configuration loaded: root=%s, max_pages=%d, workers=%d",
		cfg.SeedURL, cfg.MaxPages, cfg.Workers)

	tracker := metrics.NewTracker(cfg.SeedURL)

	c := crawler.NewCrawler(crawler.Options{
		Rules: crawler.Rules{
			ResourceExtensions: cfg.ResourceExtensions,
			SkipDirectParent:   cfg.SkipParentLinks,
			FoldSegments:       cfg.FoldSegments,
			HTTPOnly:           cfg.HTTPOnly,
		},
		Workers:  cfg.Workers,
		Fetcher:  fetch.NewFetcher(cfg.RequestTimeout(), cfg.UserAgent),
		Recorder: tracker,
	})

	// Start progress logger
	stopProgress := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logrus.Info(tracker.LogProgress())
			case <-stopProgress:
				return
			}
		}
	}()

	result, err := c.Run(cfg.SeedURL, cfg.MaxPages)
	close(stopProgress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("crawl failed: %w", err)
	}
	tracker.Finish(result.TerminationReason)

	exporters := []export.Exporter{export.NewJSONFile(cfg.OutputName)}
	if cfg.DBPath != "" {
		store, err := storage.NewStorage(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		defer store.Close()
		exporters = append(exporters, store)
	}

	for _, exporter := range exporters {
		if err := exporter.Export(result.Graph); err != nil {
			return err
		}
	}
	logrus.Infof("Graph written to %s (%d nodes, %d edges)",
		export.NewJSONFile(cfg.OutputName).Path, len(result.Graph.Nodes), len(result.Graph.Edges))
	if cfg.DBPath != "" {
		logrus.Infof("Graph stored in database %s", cfg.DBPath)
	}

	logrus.Info("Final stats: " + tracker.LogProgress())

	if cfg.MetricsPath != "" {
		if err := tracker.WriteToFile(cfg.MetricsPath); err != nil {
			logrus.Errorf("Failed to write metrics: %v", err)
		} else {
			logrus.Infof("Metrics written to %s", cfg.MetricsPath)
		}
	}

	return nil
}
