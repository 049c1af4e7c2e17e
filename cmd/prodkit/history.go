package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/prodkit/prodkit/internal/shell/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded deployment runs",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.History.Enabled {
		fmt.Println(yellow("run history is disabled"))
		return nil
	}

	h, err := store.NewHistoryStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer h.Close()

	runs, err := h.ListRuns(historyLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no deployment runs recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tHOST\tUSER\tSTATUS\tSTAGE\tMESSAGE")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.Host, run.User, colorStatus(run.Status), run.Stage, run.Message)
	}
	return w.Flush()
}

func colorStatus(status string) string {
	switch status {
	case "succeeded":
		return green(status)
	case "failed":
		return red(status)
	default:
		return yellow(status)
	}
}
