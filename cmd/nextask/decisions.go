package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Show recent decision records from the daemon",
	Args:  cobra.NoArgs,
	RunE:  runDecisions,
}

var decisionsLimit int

func init() {
	decisionsCmd.Flags().IntVarP(&decisionsLimit, "limit", "n", 20, "Number of records to show")
}

func runDecisions(cmd *cobra.Command, args []string) error {
	entries, err := apiClient().Decisions(cmd.Context(), decisionsLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No decision records")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTION\tOUTCOME\tTASK\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Action, e.Outcome, e.TaskID, e.Details)
	}
	return w.Flush()
}
