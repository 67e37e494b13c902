package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/layerworks/strata/internal/database"
	"github.com/layerworks/strata/internal/tableprinter"
)

const defaultHistoryLimit = 20

var historyLimitFlag int
var historyAllFlag bool

var historyCmd = &cobra.Command{
	Use:   historyCmdStr,
	Short: "Show recent compose and install runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(
		&historyLimitFlag,
		limitFlagName,
		defaultHistoryLimit,
		"maximum number of runs to show",
	)
	historyCmd.Flags().BoolVar(
		&historyAllFlag,
		allFlagName,
		false,
		"show all runs",
	)
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	limit := historyLimitFlag
	if historyAllFlag {
		limit = 0
	}
	runs, err := db.ListRuns(limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	tbl := tableprinter.NewTable("WHEN", "ID", "COMMAND", "STACKS", "PROFILE", "TARGET", "STATUS")
	for _, run := range runs {
		tbl.AddRow(
			run.CreatedAt.Local().Format("2006-01-02 15:04"),
			run.ShortID,
			run.Command,
			strings.Join(run.Stacks, "+"),
			run.Profile,
			run.Target,
			colorizeRunStatus(run.Status),
		)
	}
	tbl.Print()
	return nil
}

// colorizeRunStatus wraps a run status with ANSI color codes.
func colorizeRunStatus(status string) string {
	switch status {
	case database.RunStatusCompleted:
		return colorize(status, ansiGreen)
	case database.RunStatusFailed:
		return colorize(status, ansiRed)
	default:
		return status
	}
}
