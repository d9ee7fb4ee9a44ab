// Package cli provides the cobra command tree for semdex.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/core/ports/driving"
	"github.com/custodia-labs/semdex/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Injected services. Set once by SetServices before Execute.
var (
	searchService driving.SearchService
	indexManager  driving.IndexManager
	taskManager   driving.TaskManager
	documentStore driven.DocumentStore
)

// Services aggregates everything the commands need.
type Services struct {
	Search driving.SearchService
	Index  driving.IndexManager
	Tasks  driving.TaskManager
	Store  driven.DocumentStore
}

// SetServices injects the service implementations used by the commands.
func SetServices(s Services) {
	searchService = s.Search
	indexManager = s.Index
	taskManager = s.Tasks
	documentStore = s.Store
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "semdex",
	Short: "Local semantic file indexing and search",
	Long: `Semdex watches folders, indexes supported files into a local
vector store and answers semantic search queries over their content.

Indexing runs in the background: watched folders are scanned, changed
files re-embedded and deleted files pruned automatically.`,
	SilenceUsage: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		if verbose {
			logger.SetVerbose(true)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Execute runs the root command with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
