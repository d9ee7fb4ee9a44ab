package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var suggestMax int

var suggestCmd = &cobra.Command{
	Use:   "suggest [prefix]",
	Short: "Suggest query completions for a prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runSuggest,
}

func init() {
	suggestCmd.Flags().IntVarP(&suggestMax, "max", "m", 5, "maximum number of suggestions")
	rootCmd.AddCommand(suggestCmd)
}

func runSuggest(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	suggestions, err := searchService.Suggestions(cmd.Context(), args[0], suggestMax)
	if err != nil {
		return err
	}
	if len(suggestions) == 0 {
		cmd.Println("No suggestions.")
		return nil
	}
	for _, s := range suggestions {
		cmd.Println(s)
	}
	return nil
}
