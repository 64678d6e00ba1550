package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pacmirror/pacmirror/internal/store"
)

var (
	historyDB    string
	historyLimit int
	historyRunID int64
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past ranking runs from the history database",
		Example: `  pacmirror history --history-db /var/lib/pacmirror/history.db
  pacmirror history --history-db history.db --run 3`,
		RunE: historyRun,
	}

	cmd.Flags().StringVar(&historyDB, "history-db", "", "SQLite database recording run history")
	cmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show")
	cmd.Flags().Int64Var(&historyRunID, "run", 0, "show the selected mirrors of one run")

	return cmd
}

func historyRun(cmd *cobra.Command, args []string) error {
	dbPath := historyDB
	if dbPath == "" {
		dbPath = globalCfg.HistoryDB
	}
	if dbPath == "" {
		return fmt.Errorf("no history database configured (use --history-db)")
	}

	st, err := store.New(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if historyRunID > 0 {
		return printRunResults(st, historyRunID)
	}

	runs, err := st.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs recorded")
		return nil
	}

	fmt.Printf("%-5s %-20s %-10s %10s %8s\n", "ID", "WHEN", "REPO", "CANDIDATES", "SELECTED")
	for _, r := range runs {
		fmt.Printf("%-5d %-20s %-10s %10d %8d\n",
			r.ID, r.FinishedAt.Format(time.DateTime), r.TargetRepo, r.Candidates, r.Selected)
	}
	return nil
}

func printRunResults(st *store.Store, runID int64) error {
	results, err := st.RunResults(runID)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("run %d not found or has no results", runID)
	}

	fmt.Printf("%-4s %-14s %-14s %s\n", "RANK", "RATE (B/s)", "WEIGHTED", "URL")
	for _, r := range results {
		fmt.Printf("%-4d %-14s %-14s %s\n", r.Rank, floatOrDash(r.TransferRate), floatOrDash(r.WeightedScore), r.URL)
	}
	return nil
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}
