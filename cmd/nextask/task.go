package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fentz26/nextask/internal/models"
	"github.com/fentz26/nextask/internal/store"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new task",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status [ref] [status]",
	Short: "Set the status of a task or subtask (pending, in-progress, done, cancelled, deferred)",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskStatus,
}

var taskSubtaskCmd = &cobra.Command{
	Use:   "subtask [task-id]",
	Short: "Add a subtask to a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskSubtask,
}

var taskDependCmd = &cobra.Command{
	Use:   "depend [ref] [depends-on]",
	Short: "Make a task or subtask wait for another",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskDepend,
}

var taskRmCmd = &cobra.Command{
	Use:   "rm [ref]",
	Short: "Delete a task or subtask",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskRm,
}

var (
	taskTitle    string
	taskDesc     string
	taskPriority string
	taskDeps     []string
	taskStatus   string
	removeDep    bool
)

func init() {
	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskShowCmd, taskStatusCmd, taskSubtaskCmd, taskDependCmd, taskRmCmd)

	for _, c := range []*cobra.Command{taskAddCmd, taskSubtaskCmd} {
		c.Flags().StringVar(&taskTitle, "title", "", "Title (required)")
		c.Flags().StringVar(&taskDesc, "desc", "", "Description")
		c.Flags().StringVarP(&taskPriority, "priority", "p", "", "Priority (critical, high, medium, low)")
		c.Flags().StringSliceVarP(&taskDeps, "depends-on", "d", nil, "Ids this one waits for (repeatable or comma-separated)")
		c.MarkFlagRequired("title")
	}

	taskListCmd.Flags().StringVar(&taskStatus, "status", "", "Filter by status (pending, in-progress, done, cancelled, deferred)")
	taskDependCmd.Flags().BoolVar(&removeDep, "remove", false, "Remove the dependency instead of adding it")
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	task, err := apiClient().CreateTask(cmd.Context(), store.NewTask{
		Tag:          currentTag(),
		Title:        taskTitle,
		Description:  taskDesc,
		Priority:     models.Priority(taskPriority),
		Dependencies: taskDeps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created task: %s (%s)\n", task.ID, task.Priority)
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	tasks, err := apiClient().ListTasks(cmd.Context(), currentTag(), taskStatus)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No tasks found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tDEPENDS ON")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.ID, truncate(t.Title, 40), t.Status, t.Priority, joinDeps(t.Dependencies))
		for _, st := range t.Subtasks {
			ref := models.SubtaskRef(t.ID, st.ID)
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", ref, truncate(st.Title, 38), st.Status, st.Priority, joinDeps(st.Dependencies))
		}
	}
	return w.Flush()
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	task, err := apiClient().GetTask(cmd.Context(), currentTag(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:           %s\n", task.ID)
	fmt.Printf("Title:        %s\n", task.Title)
	fmt.Printf("Description:  %s\n", task.Description)
	fmt.Printf("Status:       %s\n", task.Status)
	fmt.Printf("Priority:     %s\n", task.Priority)
	fmt.Printf("Dependencies: %s\n", joinDeps(task.Dependencies))
	fmt.Printf("Created:      %s\n", task.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Updated:      %s\n", task.UpdatedAt.Local().Format("2006-01-02 15:04:05"))

	if len(task.Subtasks) > 0 {
		fmt.Println("\nSubtasks:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, st := range task.Subtasks {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", models.SubtaskRef(task.ID, st.ID), truncate(st.Title, 40), st.Status, st.Priority, joinDeps(st.Dependencies))
		}
		return w.Flush()
	}
	return nil
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	if err := apiClient().SetStatus(cmd.Context(), currentTag(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("Task %s is now %s\n", args[0], strings.ToLower(args[1]))
	return nil
}

func runTaskSubtask(cmd *cobra.Command, args []string) error {
	st, err := apiClient().AddSubtask(cmd.Context(), currentTag(), args[0], store.NewSubtask{
		Title:        taskTitle,
		Description:  taskDesc,
		Priority:     models.Priority(taskPriority),
		Dependencies: taskDeps,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created subtask: %s (%s)\n", models.SubtaskRef(args[0], st.ID), st.Priority)
	return nil
}

func runTaskDepend(cmd *cobra.Command, args []string) error {
	client := apiClient()
	if removeDep {
		if err := client.RemoveDependency(cmd.Context(), currentTag(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s no longer depends on %s\n", args[0], args[1])
		return nil
	}

	if err := client.AddDependency(cmd.Context(), currentTag(), args[0], args[1]); err != nil {
		return err
	}
	fmt.Printf("%s now depends on %s\n", args[0], args[1])
	return nil
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	if err := apiClient().DeleteTask(cmd.Context(), currentTag(), args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[0])
	return nil
}

// --- Helpers ---

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func joinDeps(deps []string) string {
	if len(deps) == 0 {
		return "-"
	}
	return strings.Join(deps, ",")
}
