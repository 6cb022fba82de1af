package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ohess/newsroom/internal/config"
	"github.com/ohess/newsroom/internal/database"
	"github.com/ohess/newsroom/internal/oracle"
	"github.com/ohess/newsroom/internal/pipeline"
	"github.com/ohess/newsroom/internal/scheduler"
	"github.com/ohess/newsroom/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "newsroom",
	Short:   "Curated multi-locale news feeds",
	Long:    "Newsroom ingests news clusters per locale, deduplicates and classifies them, and publishes curated feeds with a controlled share of clearly marked fictional content.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("newsroom", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/newsroom/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure locales, feeds, and the oracle backend.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Reports:")
		fmt.Printf("  Total: %d\n", stats.TotalReports)
		fmt.Printf("  Pending dedup: %d\n", stats.PendingDedup)
		fmt.Printf("  Duplicates: %d\n", stats.DuplicateReports)
		fmt.Printf("  Classified: %d\n", stats.ClassifiedReports)
		fmt.Println("\nArticles:")
		fmt.Printf("  Published: %d\n", stats.TotalArticles)
		fmt.Printf("  Fabricated: %d\n", stats.FabricatedArticles)
		fmt.Println("\nLocales:")
		for _, locale := range cfg.DomainLocales() {
			count, err := db.CountArticles(locale)
			if err != nil {
				return err
			}
			fmt.Printf("  %s: %d articles\n", locale.Key(), count)
		}
		return nil
	},
}

// --- run command ---

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one pipeline pass: ingest -> reconcile -> classify -> publish",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider := oracle.NewProvider(cfg.Oracle)
		if provider == nil {
			return fmt.Errorf("no oracle backend available")
		}

		result, err := pipeline.New(cfg, db, provider).Run(context.Background())
		printSteps(result)
		if err != nil {
			return err
		}

		fmt.Println("\nPipeline complete! Run 'newsroom serve' to browse the feeds.")
		return nil
	},
}

// --- watch command ---

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline now and then on a fixed schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		provider := oracle.NewProvider(cfg.Oracle)
		if provider == nil {
			return fmt.Errorf("no oracle backend available")
		}

		pipe := pipeline.New(cfg, db, provider)
		sched := scheduler.New(cfg.Pipeline.Interval(), func(ctx context.Context) error {
			_, err := pipe.Run(ctx)
			return err
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Watching: pipeline every %s. Press Ctrl+C to stop.\n", cfg.Pipeline.Interval())
		sched.Start(ctx)
		return nil
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local feed server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, cfg.DomainLocales(), port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func printSteps(result *pipeline.Result) {
	if result == nil {
		return
	}
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/4: %s (%s)\n", i+1, step.Name, step.Duration.Round(time.Millisecond))
		fmt.Printf("  %s\n", step.Summary)
	}
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "newsroom.db")
	return database.Open(dbPath)
}
