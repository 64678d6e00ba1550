package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pacmirror/pacmirror/internal/config"
)

var (
	// Global flags
	cfgPath   string
	logLevel  string
	logFormat string
	globalCfg *config.Config
	logger    *slog.Logger

	// Rank flags; zero values mean "not set, use config".
	flagSourceURL   string
	flagTargetRepo  string
	flagOutputFile  string
	flagMirrors     int
	flagMaxCheck    int
	flagThreads     int
	flagStatsFile   string
	flagHistoryDB   string
	flagExclude     []string
	flagExcludeFrom string
)

// NewRootCmd creates and returns the root command. Running it without a
// subcommand executes the ranking pipeline.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pacmirror",
		Short: "Rank Arch Linux mirrors by measured download performance",
		Long: `pacmirror fetches the Arch Linux mirror-status catalog, filters out
mirrors that are inactive, out of sync, or excluded by rule, benchmarks the
survivors with one real download probe each, and ranks them by a weighted
score combining the measured transfer rate with the upstream quality score.

The result is written as a pacman mirrorlist (stdout or file), optionally
with a CSV statistics dump and a SQLite run history.`,
		Example: `  pacmirror
  pacmirror -m 5 -t core -o /tmp/mirrorlist
  pacmirror --exclude 'country=SomeCountry' --exclude '!domain=keep.this.mirror'
  pacmirror --exclude-from /etc/pacmirror/excluded.conf -s /tmp/stats.csv
  pacmirror history --history-db /var/lib/pacmirror/history.db`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging()
			return loadConfig(cmd)
		},
		RunE: rankRun,
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")

	cmd.Flags().StringVarP(&flagSourceURL, "source-url", "S", "", "mirror status data source URL")
	cmd.Flags().StringVarP(&flagTargetRepo, "target-repo", "t", "", "speed test target repository (core, extra, or community)")
	cmd.Flags().StringVarP(&flagOutputFile, "output-file", "o", "", "mirrorlist output file (stdout if not set)")
	cmd.Flags().IntVarP(&flagMirrors, "mirrors", "m", 0, "limit the list to the n mirrors with the highest score")
	cmd.Flags().IntVar(&flagMaxCheck, "max-check", -1, "maximum number of synced mirrors to benchmark (0 = unlimited)")
	cmd.Flags().IntVarP(&flagThreads, "threads", "T", 0, "number of concurrent benchmark probes")
	cmd.Flags().StringVarP(&flagStatsFile, "stats-file", "s", "", "statistics CSV output file")
	cmd.Flags().StringVar(&flagHistoryDB, "history-db", "", "SQLite database recording run history")
	cmd.Flags().StringArrayVar(&flagExclude, "exclude", nil, "exclusion rule, may be repeated (e.g. 'domain=bad.mirror')")
	cmd.Flags().StringVar(&flagExcludeFrom, "exclude-from", "", "file with exclusion rules, one per line")

	cmd.AddCommand(newHistoryCmd())

	return cmd
}

// loadConfig resolves the effective configuration: file (explicit or
// discovered) over defaults, then command-line flags over both.
func loadConfig(cmd *cobra.Command) error {
	fs := afero.NewOsFs()

	path := cfgPath
	if path == "" {
		if found, err := config.FindConfigFile(fs); err == nil {
			path = found
		}
	}

	if path != "" {
		cfg, err := config.Load(fs, path)
		if err != nil {
			return err
		}
		globalCfg = cfg
		logger.Debug("config loaded", "path", path)
	} else {
		globalCfg = config.DefaultConfig()
	}

	if flagSourceURL != "" {
		globalCfg.SourceURL = flagSourceURL
	}
	if flagTargetRepo != "" {
		globalCfg.TargetRepo = flagTargetRepo
	}
	if flagOutputFile != "" {
		globalCfg.OutputFile = flagOutputFile
	}
	if flagMirrors > 0 {
		globalCfg.Mirrors = flagMirrors
	}
	if flagMaxCheck >= 0 {
		globalCfg.MaxCheck = flagMaxCheck
	}
	if flagThreads > 0 {
		globalCfg.Threads = flagThreads
	}
	if flagStatsFile != "" {
		globalCfg.StatsFile = flagStatsFile
	}
	if flagHistoryDB != "" {
		globalCfg.HistoryDB = flagHistoryDB
	}
	if len(flagExclude) > 0 {
		globalCfg.Exclude = append(globalCfg.Exclude, flagExclude...)
	}
	if flagExcludeFrom != "" {
		globalCfg.ExcludeFrom = flagExcludeFrom
	}

	if err := globalCfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// setupLogging initializes the slog logger based on flags. Logs go to
// stderr so the mirrorlist on stdout stays clean.
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}
