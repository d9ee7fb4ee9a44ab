package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

var highlightCmd = &cobra.Command{
	Use:   "highlight",
	Short: "Manage captured highlights",
}

var (
	highlightColor  string
	highlightNote   string
	highlightTags   []string
	highlightSource string
)

var highlightAddCmd = &cobra.Command{
	Use:   "add [text]",
	Short: "Store a highlight in the search index",
	Long: `Store a snippet of text as a highlight. Highlights are searchable
alongside indexed file content and carry a colour tag, an optional note
and optional labels that boost them during ranking.`,
	Args: cobra.ExactArgs(1),
	RunE: runHighlightAdd,
}

func init() {
	highlightAddCmd.Flags().StringVarP(&highlightColor, "color", "c", "yellow", "colour tag")
	highlightAddCmd.Flags().StringVar(&highlightNote, "note", "", "personal annotation")
	highlightAddCmd.Flags().StringSliceVar(&highlightTags, "tag", nil, "label (repeatable)")
	highlightAddCmd.Flags().StringVar(&highlightSource, "source", "", "where the highlight was captured")
	highlightCmd.AddCommand(highlightAddCmd)
	rootCmd.AddCommand(highlightCmd)
}

func runHighlightAdd(cmd *cobra.Command, args []string) error {
	if documentStore == nil {
		return errors.New("document store not configured")
	}

	content := strings.TrimSpace(args[0])
	if content == "" {
		return fmt.Errorf("highlight text is empty: %w", domain.ErrInvalidInput)
	}

	id, err := documentStore.AddHighlight(cmd.Context(), domain.Highlight{
		Content: content,
		Source:  highlightSource,
		Color:   highlightColor,
		Note:    highlightNote,
		Tags:    highlightTags,
	})
	if err != nil {
		return fmt.Errorf("storing highlight: %w", err)
	}

	cmd.Printf("Stored highlight %s (%s)\n", id, highlightColor)
	return nil
}
