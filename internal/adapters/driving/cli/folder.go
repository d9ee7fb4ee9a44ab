package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var folderWait bool

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage watched folders",
	Long:  `Commands for registering, removing and listing watched folders.`,
}

var folderAddCmd = &cobra.Command{
	Use:   "add [path]",
	Short: "Watch a folder and index its files",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderAdd,
}

var folderRemoveCmd = &cobra.Command{
	Use:   "remove [path]",
	Short: "Stop watching a folder and remove its files from the index",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderRemove,
}

var folderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List watched folders",
	RunE:  runFolderList,
}

func init() {
	folderAddCmd.Flags().BoolVar(&folderWait, "wait", false, "block until the initial indexing pass finishes")
	folderCmd.AddCommand(folderAddCmd)
	folderCmd.AddCommand(folderRemoveCmd)
	folderCmd.AddCommand(folderListCmd)
	rootCmd.AddCommand(folderCmd)
}

func runFolderAdd(cmd *cobra.Command, args []string) error {
	if indexManager == nil {
		return errors.New("index manager not configured")
	}

	count, err := indexManager.AddFolder(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (%d supported files found)\n", args[0], count)

	if folderWait && taskManager != nil {
		if err := waitForIdle(cmd); err != nil {
			return err
		}
		cmd.Println("Initial indexing complete.")
	}
	return nil
}

func runFolderRemove(cmd *cobra.Command, args []string) error {
	if indexManager == nil {
		return errors.New("index manager not configured")
	}

	if err := indexManager.RemoveFolder(cmd.Context(), args[0]); err != nil {
		return err
	}
	cmd.Printf("Stopped watching %s\n", args[0])
	return nil
}

func runFolderList(cmd *cobra.Command, _ []string) error {
	if indexManager == nil {
		return errors.New("index manager not configured")
	}

	folders := indexManager.Folders()
	if len(folders) == 0 {
		cmd.Println("No folders watched.")
		return nil
	}

	for _, f := range folders {
		cmd.Printf("  %s (added %s)\n", f.Path, f.AddedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// waitForIdle polls the task manager until no pending or running tasks
// remain or the command context is cancelled.
func waitForIdle(cmd *cobra.Command) error {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-cmd.Context().Done():
			return cmd.Context().Err()
		case <-ticker.C:
			busy := false
			for _, t := range taskManager.Tasks() {
				if !t.Status.IsTerminal() {
					busy = true
					break
				}
			}
			if !busy {
				return nil
			}
		}
	}
}
