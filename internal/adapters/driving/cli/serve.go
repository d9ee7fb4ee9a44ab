package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the watcher and indexing pipeline in the foreground",
	Long: `Runs the folder watcher, background processor and ingestion
pipeline until interrupted. Watched folders persist between runs, so
missed changes are picked up by the startup scan and periodic rescans.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if indexManager == nil {
		return errors.New("index manager not configured")
	}

	cmd.Println("semdex is watching. Press Ctrl+C to stop.")
	<-cmd.Context().Done()
	return nil
}
