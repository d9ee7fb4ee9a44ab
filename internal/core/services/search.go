package services

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/core/ports/driving"
	"github.com/custodia-labs/semdex/internal/logger"
)

// Ensure SearchEngine implements the interface.
var _ driving.SearchService = (*SearchEngine)(nil)

// Ranking factor names, as reported in SearchResult.Factors.
const (
	FactorBaseSimilarity   = "baseSimilarity"
	FactorHighlightSource  = "highlightSource"
	FactorHighlightContent = "highlightContent"
	FactorRecency          = "recency"
	FactorKeyword          = "keyword"
	FactorLength           = "length"
	FactorSource           = "source"
)

// Metadata keys consulted during reranking.
const (
	metaNote          = "note"
	metaTitle         = "title"
	metaTags          = "tags"
	metaPDFHighlights = "pdf_highlights"
)

// SearchEngine answers ranked queries: query preprocessing, candidate
// retrieval through the document store, multi-factor reranking,
// deduplication and suggestion generation.
type SearchEngine struct {
	cfg      domain.SearchConfig
	store    driven.DocumentStore
	embedder driven.EmbeddingProvider

	// vocabMu guards the learned suggestion vocabulary.
	vocabMu sync.RWMutex
	vocab   []string
	known   map[string]bool

	// now is replaceable for recency tests.
	now func() time.Time
}

// NewSearchEngine creates a search engine. The embedder is required;
// search fails with ErrEmbeddingUnavailable when it is nil.
func NewSearchEngine(
	cfg domain.SearchConfig,
	store driven.DocumentStore,
	embedder driven.EmbeddingProvider,
) *SearchEngine {
	known := make(map[string]bool, len(cfg.SuggestionVocabulary))
	vocab := make([]string, 0, len(cfg.SuggestionVocabulary))
	for _, term := range cfg.SuggestionVocabulary {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || known[term] {
			continue
		}
		known[term] = true
		vocab = append(vocab, term)
	}

	return &SearchEngine{
		cfg:      cfg,
		store:    store,
		embedder: embedder,
		vocab:    vocab,
		known:    known,
		now:      time.Now,
	}
}

// PreprocessQuery collapses whitespace and expands configured
// abbreviations with a token-level dictionary lookup.
func (e *SearchEngine) PreprocessQuery(query string) string {
	tokens := strings.Fields(query)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if expansion, ok := e.cfg.Abbreviations[strings.ToLower(token)]; ok {
			out = append(out, expansion)
			continue
		}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}

// Search runs the full query pipeline: preprocess, embed, retrieve
// candidates, rerank and filter down to limit results with raw
// similarity at or above threshold.
func (e *SearchEngine) Search(
	ctx context.Context, query string, limit int, threshold float64,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.SearchResult{}, nil
	}
	if e.embedder == nil {
		return nil, domain.ErrEmbeddingUnavailable
	}

	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if threshold <= 0 {
		threshold = e.cfg.DefaultThreshold
	}

	processed := e.PreprocessQuery(query)
	if processed != query {
		logger.Debug("Preprocessed query: %q", processed)
	}

	embedding, err := e.embedder.Embed(ctx, processed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	logger.Debug("Query embedding: %d dimensions", len(embedding))

	candidates, err := e.store.Search(ctx, embedding, limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("retrieve candidates: %w", err)
	}
	logger.Debug("Candidate pool: %d chunks", len(candidates))

	e.rerank(candidates, processed)
	results := e.finalFilter(candidates, limit, threshold)
	logger.Info("Final results: %d", len(results))

	return results, nil
}

// rerank computes the weighted multi-factor score for each candidate
// and sorts descending by final score. Each factor is individually
// capped before weighting.
func (e *SearchEngine) rerank(candidates []domain.SearchResult, query string) {
	terms := queryTerms(query)
	queryLower := strings.ToLower(query)

	for idx := range candidates {
		r := &candidates[idx]

		factors := map[string]float64{
			FactorBaseSimilarity:   r.Similarity,
			FactorHighlightSource:  e.highlightSourceBoost(r),
			FactorHighlightContent: e.highlightContentBoost(r),
			FactorRecency:          e.recencyBoost(r),
			FactorKeyword:          e.keywordBoost(r, terms, queryLower),
			FactorLength:           e.lengthAdjustment(r),
			FactorSource:           e.sourceBoost(r),
		}

		w := e.cfg.Weights
		r.Factors = factors
		r.FinalScore = factors[FactorBaseSimilarity]*w.BaseSimilarity +
			factors[FactorHighlightSource]*w.HighlightSource +
			factors[FactorHighlightContent]*w.HighlightContent +
			factors[FactorRecency]*w.Recency +
			factors[FactorKeyword]*w.Keyword +
			factors[FactorLength]*w.Length +
			factors[FactorSource]*w.Source
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].FinalScore > candidates[j].FinalScore
	})
}

// highlightSourceBoost rewards user-captured highlights: base boost,
// extra for a personal note, adjusted per colour.
func (e *SearchEngine) highlightSourceBoost(r *domain.SearchResult) float64 {
	if !r.IsHighlight {
		return 0
	}
	boost := e.cfg.HighlightBoost
	if note, _ := r.Metadata[metaNote].(string); strings.TrimSpace(note) != "" {
		boost += e.cfg.NoteBoost
	}
	boost += e.cfg.ColorBoosts[strings.ToLower(r.HighlightColor)]
	return boost
}

// highlightContentBoost rewards chunks carrying PDF highlight
// annotations, with extra weight when the annotated text is literally
// contained in the chunk. Capped.
func (e *SearchEngine) highlightContentBoost(r *domain.SearchResult) float64 {
	annotations := metadataStrings(r.Metadata[metaPDFHighlights])
	if len(annotations) == 0 {
		return 0
	}

	boost := e.cfg.HighlightContentBoost
	contentLower := strings.ToLower(r.Content)
	for _, annotated := range annotations {
		if annotated == "" {
			continue
		}
		if strings.Contains(contentLower, strings.ToLower(annotated)) {
			boost += e.cfg.HighlightContainedBoost
		}
	}

	if boost > e.cfg.HighlightContentCap {
		boost = e.cfg.HighlightContentCap
	}
	return boost
}

// recencyBoost looks up the chunk age in the configured buckets.
// Zero when recency boosting is disabled.
func (e *SearchEngine) recencyBoost(r *domain.SearchResult) float64 {
	if !e.cfg.RecencyEnabled || r.CreatedAt.IsZero() {
		return 0
	}
	age := e.now().Sub(r.CreatedAt)
	for _, bucket := range e.cfg.RecencyBuckets {
		if age <= bucket.MaxAge {
			return bucket.Boost
		}
	}
	return 0
}

// keywordBoost rewards exact word-boundary matches of query terms plus
// a phrase bonus when the whole query appears verbatim. Capped.
func (e *SearchEngine) keywordBoost(r *domain.SearchResult, terms []*regexp.Regexp, queryLower string) float64 {
	if len(terms) == 0 {
		return 0
	}

	contentLower := strings.ToLower(r.Content)
	boost := 0.0
	for _, term := range terms {
		if term.MatchString(contentLower) {
			boost += e.cfg.KeywordTermBoost
		}
	}
	if strings.Contains(contentLower, queryLower) {
		boost += e.cfg.PhraseBoost
	}

	if boost > e.cfg.KeywordCap {
		boost = e.cfg.KeywordCap
	}
	return boost
}

// lengthAdjustment looks up the content length in the configured
// buckets; the adjustment may be negative.
func (e *SearchEngine) lengthAdjustment(r *domain.SearchResult) float64 {
	length := len(r.Content)
	for _, bucket := range e.cfg.LengthBuckets {
		if length <= bucket.MaxChars {
			return bucket.Adjustment
		}
	}
	return 0
}

// sourceBoost combines file-extension and path-pattern lookups with the
// highlight flag and metadata-derived factors.
func (e *SearchEngine) sourceBoost(r *domain.SearchResult) float64 {
	boost := 0.0

	ext := strings.ToLower(filepath.Ext(r.Source))
	boost += e.cfg.ExtensionBoosts[ext]

	sourceLower := strings.ToLower(r.Source)
	for pattern, b := range e.cfg.PathPatternBoosts {
		if strings.Contains(sourceLower, strings.ToLower(pattern)) {
			boost += b
		}
	}

	if r.IsHighlight {
		boost += e.cfg.HighlightBoost
	}
	if note, _ := r.Metadata[metaNote].(string); strings.TrimSpace(note) != "" {
		boost += e.cfg.NoteBoost
	}

	if tags := metadataStrings(r.Metadata[metaTags]); len(tags) > 0 {
		tagBonus := e.cfg.TagBonus * float64(len(tags))
		if tagBonus > e.cfg.TagBonusCap {
			tagBonus = e.cfg.TagBonusCap
		}
		boost += tagBonus
	}

	return boost
}

// finalFilter converts scores to display percentages, drops noise below
// the minimum display score and the raw similarity floor, deduplicates
// by normalised content, attaches display fields and truncates to limit.
func (e *SearchEngine) finalFilter(
	candidates []domain.SearchResult, limit int, threshold float64,
) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, limit)
	seen := make(map[string]bool)

	for _, r := range candidates {
		if r.Similarity < threshold {
			continue
		}

		r.DisplayScore = displayPercent(r.FinalScore)
		if r.DisplayScore <= e.cfg.MinDisplayScore {
			continue
		}

		normalized := domain.NormalizeContent(r.Content)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		r.DisplayTitle = e.displayTitle(&r)
		r.DisplaySnippet = truncateSnippet(r.Content, e.cfg.SnippetMaxLength)

		results = append(results, r)
		if len(results) >= limit {
			break
		}
	}

	return results
}

// displayTitle builds the result title: highlight title from metadata,
// or the source filename.
func (e *SearchEngine) displayTitle(r *domain.SearchResult) string {
	if r.IsHighlight {
		if title, _ := r.Metadata[metaTitle].(string); title != "" {
			return title
		}
		if r.HighlightColor != "" {
			return fmt.Sprintf("Highlight (%s)", r.HighlightColor)
		}
		return "Highlight"
	}
	if r.Source != "" {
		return filepath.Base(r.Source)
	}
	return r.ChunkID
}

// Suggestions runs a relaxed sample search on the prefix and extracts
// matching words and metadata values; the static vocabulary is the
// fallback when the sample yields nothing.
func (e *SearchEngine) Suggestions(ctx context.Context, prefix string, max int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" || max <= 0 {
		return nil, nil
	}

	var suggestions []string
	seen := make(map[string]bool)

	if e.embedder != nil {
		if sampled := e.sampleSuggestions(ctx, prefix); len(sampled) > 0 {
			for _, s := range sampled {
				if !seen[s] {
					seen[s] = true
					suggestions = append(suggestions, s)
				}
			}
		}
	}

	if len(suggestions) == 0 {
		e.vocabMu.RLock()
		for _, term := range e.vocab {
			if strings.HasPrefix(term, prefix) && !seen[term] {
				seen[term] = true
				suggestions = append(suggestions, term)
			}
		}
		e.vocabMu.RUnlock()
	}

	if len(suggestions) > max {
		suggestions = suggestions[:max]
	}
	return suggestions, nil
}

// sampleSuggestions extracts prefix-matching words from a small relaxed
// search over the prefix itself. Errors degrade to the vocabulary
// fallback rather than failing the call.
func (e *SearchEngine) sampleSuggestions(ctx context.Context, prefix string) []string {
	embedding, err := e.embedder.Embed(ctx, prefix)
	if err != nil {
		logger.Debug("Suggestion sample embedding failed: %v", err)
		return nil
	}

	sample, err := e.store.Search(ctx, embedding, 20, 0.1)
	if err != nil {
		logger.Debug("Suggestion sample search failed: %v", err)
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	collect := func(text string) {
		for _, word := range strings.Fields(strings.ToLower(text)) {
			word = strings.Trim(word, ".,;:!?\"'()[]{}")
			if len(word) > len(prefix) && strings.HasPrefix(word, prefix) && !seen[word] {
				seen[word] = true
				out = append(out, word)
			}
		}
	}

	for _, r := range sample {
		collect(r.Content)
		for _, value := range r.Metadata {
			if s, ok := value.(string); ok {
				collect(s)
			}
		}
	}
	return out
}

// LearnFromSearch extends the suggestion vocabulary with query terms of
// at least the configured minimum length.
func (e *SearchEngine) LearnFromSearch(query string) {
	e.vocabMu.Lock()
	defer e.vocabMu.Unlock()

	for _, term := range strings.Fields(strings.ToLower(query)) {
		term = strings.Trim(term, ".,;:!?\"'()[]{}")
		if len(term) < e.cfg.MinLearnTermLength || e.known[term] {
			continue
		}
		e.known[term] = true
		e.vocab = append(e.vocab, term)
	}
}

// metadataStrings coerces a metadata value into a string slice.
// JSON round-trips turn []string into []any, so both are handled.
func metadataStrings(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// queryTerms compiles a word-boundary matcher per query term.
func queryTerms(query string) []*regexp.Regexp {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]*regexp.Regexp, 0, len(fields))
	for _, field := range fields {
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(field) + `\b`)
		if err != nil {
			continue
		}
		terms = append(terms, re)
	}
	return terms
}

// displayPercent converts a final score to a clamped 0-100 percentage.
func displayPercent(score float64) float64 {
	percent := score * 100
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// truncateSnippet bounds content to maxLen characters, cutting at a
// sentence end or space where possible.
func truncateSnippet(content string, maxLen int) string {
	content = strings.Join(strings.Fields(content), " ")
	if maxLen <= 0 || len(content) <= maxLen {
		return content
	}

	cut := content[:maxLen]

	// Prefer a sentence boundary in the back half of the window.
	for _, terminator := range []string{". ", "! ", "? "} {
		if idx := strings.LastIndex(cut, terminator); idx >= maxLen/2 {
			return cut[:idx+1]
		}
	}
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "..."
}
