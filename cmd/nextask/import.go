package main

import (
	"fmt"

	"github.com/fentz26/nextask/internal/taskfile"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Replace the tasks of a tag with those in a JSON or YAML task file",
	Long: `Reads a task file and replaces every task of the target tag (--tag) with its
contents. Files may hold several tags ({"<tag>": {"tasks": [...]}}) or a single
list ({"tasks": [...]}); --from-tag picks which tag of the file to read.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var (
	importFromTag string
	importAll     bool
)

func init() {
	importCmd.Flags().StringVar(&importFromTag, "from-tag", "", "Tag to read from the file (default: the target tag)")
	importCmd.Flags().BoolVar(&importAll, "all", false, "Import every tag in the file into the tag of the same name")
}

func runImport(cmd *cobra.Command, args []string) error {
	file, err := taskfile.Load(args[0])
	if err != nil {
		return err
	}
	client := apiClient()

	if importAll {
		names := file.TagNames()
		for _, name := range names {
			tasks, err := file.Tasks(name)
			if err != nil {
				return err
			}
			n, err := client.Import(cmd.Context(), name, tasks)
			if err != nil {
				return fmt.Errorf("importing tag %s: %w", name, err)
			}
			fmt.Printf("Imported %d tasks into %s\n", n, name)
		}
		if len(names) == 0 {
			fmt.Println("No tags in file")
		}
		return nil
	}

	from := importFromTag
	if from == "" {
		from = currentTag()
	}
	tasks, err := file.Tasks(from)
	if err != nil {
		return err
	}

	n, err := client.Import(cmd.Context(), currentTag(), tasks)
	if err != nil {
		return err
	}
	fmt.Printf("Imported %d tasks into %s\n", n, currentTag())
	return nil
}
