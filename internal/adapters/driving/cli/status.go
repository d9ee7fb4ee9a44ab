package cli

import (
	"errors"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

var statusFailedOnly bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-file processing state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFailedOnly, "failed", false, "show only files that failed processing")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if indexManager == nil {
		return errors.New("index manager not configured")
	}

	records := indexManager.FileRecords()
	if len(records) == 0 {
		cmd.Println("No files tracked.")
		return nil
	}

	paths := make([]string, 0, len(records))
	for path := range records {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	shown := 0
	for _, path := range paths {
		rec := records[path]
		if statusFailedOnly && rec.Status == domain.FileStatusSuccess {
			continue
		}
		shown++
		cmd.Printf("  %-8s %s (%d chunks)\n", rec.Status, path, rec.ChunkCount)
		if rec.LastError != "" {
			cmd.Printf("           %s\n", rec.LastError)
		}
	}
	if shown == 0 {
		cmd.Println("No matching files.")
	}
	return nil
}
