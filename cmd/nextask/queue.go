package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/fentz26/nextask/internal/render"
	"github.com/fentz26/nextask/internal/selector"
	"github.com/fentz26/nextask/internal/taskfile"
	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "List every eligible task with the --skip value that selects it",
	Args:  cobra.NoArgs,
	RunE:  runQueue,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List tags and their task counts",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

var (
	queueFile string
	queueJSON bool
)

func init() {
	queueCmd.Flags().StringVar(&queueFile, "file", "", "Plan from a JSON or YAML task file instead of the daemon")
	queueCmd.Flags().BoolVar(&queueJSON, "json", false, "Output JSON")
}

func runQueue(cmd *cobra.Command, args []string) error {
	var (
		seq selector.Sequence
		err error
	)
	if queueFile != "" {
		seq, err = planFromFile(queueFile, currentTag())
	} else {
		seq, err = queueFromDaemon(cmd.Context(), currentTag())
	}
	if err != nil {
		return err
	}

	if queueJSON {
		return render.QueueJSON(os.Stdout, seq)
	}
	return render.Queue(os.Stdout, seq)
}

func planFromFile(path, tag string) (selector.Sequence, error) {
	tasks, err := taskfile.LoadTag(path, tag)
	if err != nil {
		return nil, err
	}
	return selector.Plan(tasks)
}

// queueFromDaemon fetches the queue and rebuilds it as a Sequence so both
// sources render the same way.
func queueFromDaemon(ctx context.Context, tag string) (selector.Sequence, error) {
	entries, err := apiClient().Queue(ctx, tag)
	if err != nil {
		return nil, err
	}
	seq := make(selector.Sequence, len(entries))
	for i, e := range entries {
		seq[i] = e.Unit
	}
	return seq, nil
}

func runTags(cmd *cobra.Command, args []string) error {
	tags, err := apiClient().ListTags(cmd.Context())
	if err != nil {
		return err
	}
	if len(tags) == 0 {
		fmt.Println("No tags found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tTASKS")
	for _, t := range tags {
		marker := ""
		if t.Tag == currentTag() {
			marker = " *"
		}
		fmt.Fprintf(w, "%s%s\t%d\n", t.Tag, marker, t.Tasks)
	}
	return w.Flush()
}
