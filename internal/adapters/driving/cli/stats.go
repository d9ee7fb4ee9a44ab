package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index and processing statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	stats, err := documentStore.Stats(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println("Index:")
	cmd.Printf("  Chunks:     %d (%d documents, %d highlights)\n",
		stats.TotalChunks, stats.DocumentChunks, stats.HighlightChunks)
	cmd.Printf("  Sources:    %d\n", stats.SourceCount)
	cmd.Printf("  Dimensions: %d\n", stats.Dimensions)

	if indexManager != nil {
		cmd.Printf("  Folders:    %d\n", len(indexManager.Folders()))
		cmd.Printf("  Files:      %d\n", len(indexManager.FileRecords()))
	}

	if taskManager != nil {
		ps := taskManager.Stats()
		cmd.Println("Processing:")
		cmd.Printf("  Submitted:  %d\n", ps.Submitted)
		cmd.Printf("  Completed:  %d\n", ps.Completed)
		cmd.Printf("  Failed:     %d\n", ps.Failed)
		cmd.Printf("  Cancelled:  %d\n", ps.Cancelled)
		if ps.Completed > 0 {
			cmd.Printf("  Avg time:   %s\n", ps.AverageDuration.Round(time.Millisecond))
		}
	}
	return nil
}
