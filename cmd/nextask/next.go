package main

import (
	"fmt"
	"os"

	"github.com/fentz26/nextask/internal/logger"
	"github.com/fentz26/nextask/internal/render"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/taskfile"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the next task to work on",
	Long: `Shows the highest-priority task whose dependencies are done. Subtasks of
in-progress tasks come first. --skip N returns the task N places further down the
same ordering, so --skip 1 is the alternative when the first pick is not workable.`,
	Args: cobra.NoArgs,
	RunE: runNext,
}

var (
	nextSkip   string
	nextFormat string
	nextFile   string
)

func init() {
	nextCmd.Flags().StringVarP(&nextSkip, "skip", "s", "0", "Number of eligible tasks to skip")
	nextCmd.Flags().StringVarP(&nextFormat, "format", "f", "text", "Output format (text, json)")
	nextCmd.Flags().StringVar(&nextFile, "file", "", "Select from a JSON or YAML task file instead of the daemon")
}

func runNext(cmd *cobra.Command, args []string) error {
	if nextFormat != "text" && nextFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", nextFormat)
	}
	skip, err := selector.ParseSkip(nextSkip)
	if err != nil {
		return err
	}

	var out *selector.Outcome
	if nextFile != "" {
		out, err = selectFromFile(nextFile, currentTag(), skip)
	} else {
		out, err = apiClient().Next(cmd.Context(), currentTag(), skip)
	}
	if err != nil {
		return err
	}

	logger.L().WithFields(logrus.Fields{
		"tag":       currentTag(),
		"skip":      skip,
		"found":     out.Found,
		"available": out.AvailableTaskCount,
	}).Debug("selection complete")

	if nextFormat == "json" {
		return render.JSON(os.Stdout, out)
	}
	return render.Text(os.Stdout, out)
}

func selectFromFile(path, tag string, skip int) (*selector.Outcome, error) {
	tasks, err := taskfile.LoadTag(path, tag)
	if err != nil {
		return nil, err
	}
	return selector.SelectNext(tasks, skip)
}
