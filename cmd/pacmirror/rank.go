package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pacmirror/pacmirror/internal/exclude"
	"github.com/pacmirror/pacmirror/internal/mirror"
	"github.com/pacmirror/pacmirror/internal/output"
	"github.com/pacmirror/pacmirror/internal/status"
	"github.com/pacmirror/pacmirror/internal/store"
)

// rankRun executes the full pipeline: fetch status, filter, benchmark,
// score, select, and write outputs. Any error returned here makes the
// process exit non-zero; per-probe failures are absorbed inside the probe
// stage and never reach this level.
func rankRun(cmd *cobra.Command, args []string) error {
	cfg := globalCfg
	fs := afero.NewOsFs()
	ctx := context.Background()

	repo, err := mirror.ParseTargetRepo(cfg.TargetRepo)
	if err != nil {
		return err
	}

	// Surface output-path and rule-file problems before any network
	// activity.
	for _, path := range []string{cfg.OutputFile, cfg.StatsFile} {
		if path == "" {
			continue
		}
		if exists, err := afero.Exists(fs, path); err != nil {
			return fmt.Errorf("checking %s: %w", path, err)
		} else if exists {
			return fmt.Errorf("%s already exists", path)
		}
	}

	var rules exclude.Rules
	if cfg.ExcludeFrom != "" {
		rules, err = exclude.LoadFile(fs, cfg.ExcludeFrom)
		if err != nil {
			return err
		}
	}
	// Literals come after the file so they override it on conflict.
	rules = rules.Add(cfg.Exclude...)
	if len(rules) > 0 {
		logger.Debug("exclusion rules loaded", "count", len(rules))
	}

	startedAt := time.Now()

	mirrorsStatus, err := status.NewClient(logger).Fetch(ctx, cfg.SourceURL)
	if err != nil {
		return err
	}
	logger.Info("mirror status fetched", "url", cfg.SourceURL,
		"mirrors", len(mirrorsStatus.Urls), "last_check", mirrorsStatus.LastCheck)

	candidates, err := mirror.Filter(mirrorsStatus, cfg.MaxCheck, rules)
	if err != nil {
		return err
	}
	logger.Info("synced mirrors selected for benchmarking", "count", len(candidates))

	best, err := mirror.Evaluate(ctx, candidates, cfg.Mirrors, repo, cfg.Threads, logger)
	if err != nil {
		return err
	}
	logger.Info("mirrors ranked", "selected", len(best), "target_repo", repo)

	if cfg.StatsFile != "" {
		if err := output.WriteCSVFile(fs, cfg.StatsFile, best); err != nil {
			return err
		}
		logger.Info("statistics saved", "path", cfg.StatsFile)
	}

	if cfg.HistoryDB != "" {
		if err := saveHistory(cfg.HistoryDB, repo, len(candidates), best, startedAt); err != nil {
			return err
		}
	}

	if cfg.OutputFile != "" {
		if err := output.WriteMirrorlistFile(fs, cfg.OutputFile, cfg.SourceURL, best); err != nil {
			return err
		}
		logger.Info("mirrorlist saved", "path", cfg.OutputFile)
		return nil
	}

	if err := output.MirrorlistHeader(os.Stdout, cfg.SourceURL, time.Now()); err != nil {
		return fmt.Errorf("writing mirrorlist to stdout: %w", err)
	}
	if err := output.Mirrorlist(os.Stdout, best); err != nil {
		return fmt.Errorf("writing mirrorlist to stdout: %w", err)
	}
	return nil
}

func saveHistory(dbPath string, repo mirror.TargetRepo, candidates int, best mirror.Mirrors, startedAt time.Time) error {
	st, err := store.New(dbPath, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			logger.Error("failed to close history store", "error", err)
		}
	}()

	run := &store.Run{
		SourceURL:  globalCfg.SourceURL,
		TargetRepo: repo.String(),
		Candidates: candidates,
		Selected:   len(best),
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	}
	return st.SaveRun(run, best)
}
