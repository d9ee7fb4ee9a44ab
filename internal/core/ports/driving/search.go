package driving

import (
	"context"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

// SearchService answers ranked queries against the indexed chunks.
type SearchService interface {
	// Search preprocesses and embeds the query, retrieves candidates,
	// reranks and filters them down to limit results with similarity
	// at or above threshold. Zero limit/threshold use configured
	// defaults.
	Search(ctx context.Context, query string, limit int, threshold float64) ([]domain.SearchResult, error)

	// Suggestions returns up to max completion suggestions for a prefix.
	Suggestions(ctx context.Context, prefix string, max int) ([]string, error)

	// LearnFromSearch extends the suggestion vocabulary with terms
	// observed in the query.
	LearnFromSearch(query string)
}
