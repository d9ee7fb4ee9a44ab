package cli

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Manage background tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List background processing tasks",
	RunE:  runTasksList,
}

var tasksCancelCmd = &cobra.Command{
	Use:   "cancel [task-id]",
	Short: "Cancel a pending or running task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksCancel,
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksCancelCmd)
	rootCmd.AddCommand(tasksCmd)
}

func runTasksList(cmd *cobra.Command, _ []string) error {
	if taskManager == nil {
		return errors.New("task manager not configured")
	}

	tasks := taskManager.Tasks()
	if len(tasks) == 0 {
		cmd.Println("No tasks.")
		return nil
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	for i := range tasks {
		cmd.Printf("  %s  %-9s %-7s %3.0f%%  %s\n",
			tasks[i].ID, tasks[i].Status, tasks[i].Kind,
			tasks[i].Progress, tasks[i].Name)
		if tasks[i].ErrorMessage != "" {
			cmd.Printf("      %s\n", tasks[i].ErrorMessage)
		}
	}
	return nil
}

func runTasksCancel(cmd *cobra.Command, args []string) error {
	if taskManager == nil {
		return errors.New("task manager not configured")
	}

	if taskManager.Cancel(args[0]) {
		cmd.Printf("Cancellation requested for %s\n", args[0])
	} else {
		cmd.Printf("Task %s is not cancellable\n", args[0])
	}
	return nil
}
