package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

func searchTestConfig() domain.SearchConfig {
	return domain.SearchConfig{
		Weights: domain.RankingWeights{
			BaseSimilarity:   1.0,
			HighlightSource:  0.15,
			HighlightContent: 0.1,
			Recency:          0.1,
			Keyword:          0.2,
			Length:           0.05,
			Source:           0.1,
		},
		Abbreviations:           map[string]string{"ml": "machine learning", "db": "database"},
		HighlightBoost:          0.5,
		NoteBoost:               0.3,
		ColorBoosts:             map[string]float64{"red": 0.2, "yellow": 0.1},
		HighlightContentBoost:   0.3,
		HighlightContainedBoost: 0.2,
		HighlightContentCap:     0.6,
		RecencyEnabled:          true,
		RecencyBuckets: []domain.RecencyBucket{
			{MaxAge: 24 * time.Hour, Boost: 1.0},
			{MaxAge: 7 * 24 * time.Hour, Boost: 0.5},
		},
		KeywordTermBoost: 0.3,
		PhraseBoost:      0.5,
		KeywordCap:       1.0,
		LengthBuckets: []domain.LengthBucket{
			{MaxChars: 20, Adjustment: -0.5},
			{MaxChars: 2000, Adjustment: 0.2},
		},
		ExtensionBoosts:      map[string]float64{".md": 0.2},
		PathPatternBoosts:    map[string]float64{"notes/": 0.3},
		TagBonus:             0.1,
		TagBonusCap:          0.25,
		MinDisplayScore:      5,
		SnippetMaxLength:     80,
		DefaultLimit:         10,
		DefaultThreshold:     0.3,
		SuggestionVocabulary: []string{"kubernetes", "kafka", "keyboard"},
		MinLearnTermLength:   4,
	}
}

func newTestEngine(results []domain.SearchResult) (*SearchEngine, *recordingStore) {
	store := newRecordingStore()
	store.results = results
	engine := NewSearchEngine(searchTestConfig(), store, &stubEmbedder{dims: 3})
	return engine, store
}

func TestSearchEmptyQuery(t *testing.T) {
	engine, store := newTestEngine(nil)

	results, err := engine.Search(context.Background(), "   ", 5, 0.3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Empty(t, store.searched)
}

func TestSearchWithoutEmbedder(t *testing.T) {
	engine := NewSearchEngine(searchTestConfig(), newRecordingStore(), nil)

	_, err := engine.Search(context.Background(), "anything", 5, 0.3)
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestSearchEmbeddingFailure(t *testing.T) {
	store := newRecordingStore()
	engine := NewSearchEngine(searchTestConfig(), store, &stubEmbedder{dims: 3, err: assert.AnError})

	_, err := engine.Search(context.Background(), "anything", 5, 0.3)
	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestPreprocessQuery(t *testing.T) {
	engine, _ := newTestEngine(nil)

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"no abbreviations", "plain words", "plain words"},
		{"expands token", "ml pipelines", "machine learning pipelines"},
		{"case insensitive lookup", "ML pipelines", "machine learning pipelines"},
		{"collapses whitespace", "  db   schema  ", "database schema"},
		{"no partial token match", "html parser", "html parser"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.PreprocessQuery(tt.query))
		})
	}
}

func TestSearchKeywordAndPhraseRanking(t *testing.T) {
	// Same raw similarity; keyword matches must decide the order.
	engine, _ := newTestEngine([]domain.SearchResult{
		{ChunkID: "none", Content: "completely unrelated prose about gardening and weather patterns", Similarity: 0.7},
		{ChunkID: "phrase", Content: "the kafka consumer group rebalanced after the broker restart happened", Similarity: 0.7},
		{ChunkID: "partial", Content: "the consumer lagged while nothing else matched here at all", Similarity: 0.7},
	})

	results, err := engine.Search(context.Background(), "kafka consumer group", 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "phrase", results[0].ChunkID)
	assert.Equal(t, "partial", results[1].ChunkID)
	assert.Equal(t, "none", results[2].ChunkID)

	// Three term matches plus the verbatim phrase: 3*0.3+0.5 clamped
	// to the keyword cap.
	assert.InDelta(t, 1.0, results[0].Factors[FactorKeyword], 1e-9)
	assert.InDelta(t, 0.3, results[1].Factors[FactorKeyword], 1e-9)
	assert.Zero(t, results[2].Factors[FactorKeyword])
}

func TestSearchHighlightRanking(t *testing.T) {
	engine, _ := newTestEngine([]domain.SearchResult{
		{ChunkID: "plain-chunk", Content: "ordinary document text that runs long enough to dodge the short-content penalty", Similarity: 0.6},
		{
			ChunkID: "noted-highlight", Content: "captured insight with plenty of surrounding context to stay above the length floor",
			Similarity: 0.6, IsHighlight: true, HighlightColor: "red",
			Metadata: map[string]any{"note": "revisit this"},
		},
	})

	results, err := engine.Search(context.Background(), "insight", 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "noted-highlight", results[0].ChunkID)
	// Base 0.5 + note 0.3 + red 0.2.
	assert.InDelta(t, 1.0, results[0].Factors[FactorHighlightSource], 1e-9)
	assert.Zero(t, results[1].Factors[FactorHighlightSource])
}

func TestSearchRecencyRanking(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	content := "identical enough in similarity that only recency separates these results"

	engine, _ := newTestEngine([]domain.SearchResult{
		{ChunkID: "old", Content: content + " old", Similarity: 0.6, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{ChunkID: "today", Content: content + " today", Similarity: 0.6, CreatedAt: now.Add(-2 * time.Hour)},
		{ChunkID: "this-week", Content: content + " week", Similarity: 0.6, CreatedAt: now.Add(-3 * 24 * time.Hour)},
	})
	engine.now = func() time.Time { return now }

	results, err := engine.Search(context.Background(), "separates", 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "today", results[0].ChunkID)
	assert.Equal(t, "this-week", results[1].ChunkID)
	assert.Equal(t, "old", results[2].ChunkID)
	assert.InDelta(t, 1.0, results[0].Factors[FactorRecency], 1e-9)
	assert.InDelta(t, 0.5, results[1].Factors[FactorRecency], 1e-9)
	assert.Zero(t, results[2].Factors[FactorRecency])
}

func TestSearchSourceBoosts(t *testing.T) {
	content := "shared content body long enough to take the mid-length adjustment bucket"
	engine, _ := newTestEngine([]domain.SearchResult{
		{ChunkID: "plain", Content: content + " one", Similarity: 0.6, Source: "/docs/readme.rst"},
		{ChunkID: "boosted", Content: content + " two", Similarity: 0.6, Source: "/home/notes/todo.md",
			Metadata: map[string]any{"tags": []any{"work", "urgent", "q3", "extra"}}},
	})

	results, err := engine.Search(context.Background(), "body", 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "boosted", results[0].ChunkID)
	// Extension .md 0.2 + path "notes/" 0.3 + tag bonus capped at 0.25.
	assert.InDelta(t, 0.75, results[0].Factors[FactorSource], 1e-9)
}

func TestSearchFinalFilter(t *testing.T) {
	engine, _ := newTestEngine([]domain.SearchResult{
		{ChunkID: "keep", Content: "a result comfortably above every floor with enough words in it", Similarity: 0.8},
		{ChunkID: "below-threshold", Content: "raw similarity below the caller's floor despite fine length", Similarity: 0.2},
		{ChunkID: "duplicate", Content: "  A RESULT comfortably above every floor with enough words in it  ", Similarity: 0.75},
	})

	results, err := engine.Search(context.Background(), "floor", 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "keep", results[0].ChunkID)
	assert.Greater(t, results[0].DisplayScore, 5.0)
	assert.Equal(t, "a result comfortably above every floor with enough words in it", results[0].DisplaySnippet)
	assert.Equal(t, "keep", results[0].DisplayTitle) // no source: falls back to chunk ID
}

func TestSearchLimitAndDefaults(t *testing.T) {
	var candidates []domain.SearchResult
	for i := 0; i < 15; i++ {
		candidates = append(candidates, domain.SearchResult{
			ChunkID:    string(rune('a' + i)),
			Content:    "distinct content number " + string(rune('a'+i)) + " padded well past the short bucket",
			Similarity: 0.9,
		})
	}
	engine, _ := newTestEngine(candidates)

	// limit <= 0 falls back to DefaultLimit.
	results, err := engine.Search(context.Background(), "content", 0, 0.3)
	require.NoError(t, err)
	assert.Len(t, results, 10)

	results, err = engine.Search(context.Background(), "content", 3, 0.3)
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestDisplayTitle(t *testing.T) {
	engine, _ := newTestEngine(nil)

	tests := []struct {
		name   string
		result domain.SearchResult
		want   string
	}{
		{"file source", domain.SearchResult{Source: "/docs/guide.md"}, "guide.md"},
		{"highlight with title", domain.SearchResult{IsHighlight: true, Metadata: map[string]any{"title": "My capture"}}, "My capture"},
		{"highlight with colour", domain.SearchResult{IsHighlight: true, HighlightColor: "red"}, "Highlight (red)"},
		{"bare highlight", domain.SearchResult{IsHighlight: true}, "Highlight"},
		{"no source", domain.SearchResult{ChunkID: "abc_chunk_0"}, "abc_chunk_0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.displayTitle(&tt.result))
		})
	}
}

func TestTruncateSnippet(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"short passes through", "short text", 80, "short text"},
		{"whitespace collapsed", "spaced\n\nout   text", 80, "spaced out text"},
		{
			"sentence boundary preferred",
			"First sentence ends here. Second sentence runs on considerably longer than the cut",
			40, "First sentence ends here.",
		},
		{
			"word boundary fallback",
			"nosentencebreak but plenty of words to cut somewhere reasonable in the middle",
			30, "nosentencebreak but plenty of...",
		},
		{"zero max disables", "whatever length this is", 0, "whatever length this is"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateSnippet(tt.content, tt.maxLen))
		})
	}
}

func TestSuggestionsFromVocabulary(t *testing.T) {
	// No stored content: the sample search yields nothing and the
	// static vocabulary answers.
	engine, _ := newTestEngine(nil)

	suggestions, err := engine.Suggestions(context.Background(), "ka", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"kafka"}, suggestions)

	suggestions, err = engine.Suggestions(context.Background(), "k", 2)
	require.NoError(t, err)
	assert.Len(t, suggestions, 2)

	suggestions, err = engine.Suggestions(context.Background(), "", 10)
	require.NoError(t, err)
	assert.Empty(t, suggestions)
}

func TestSuggestionsFromStoredContent(t *testing.T) {
	engine, _ := newTestEngine([]domain.SearchResult{
		{Content: "Kubernetes deployments and kustomize overlays", Metadata: map[string]any{"title": "kubecon notes"}},
	})

	suggestions, err := engine.Suggestions(context.Background(), "ku", 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kubernetes", "kustomize", "kubecon"}, suggestions)
}

func TestLearnFromSearch(t *testing.T) {
	engine, _ := newTestEngine(nil)

	engine.LearnFromSearch("Terraform modules, and a dog")

	suggestions, err := engine.Suggestions(context.Background(), "terra", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"terraform"}, suggestions)

	// "dog" and "a" fall below the minimum learnable length.
	suggestions, err = engine.Suggestions(context.Background(), "do", 10)
	require.NoError(t, err)
	assert.Empty(t, suggestions)

	// Known terms are not duplicated.
	engine.LearnFromSearch("terraform again")
	suggestions, err = engine.Suggestions(context.Background(), "terra", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"terraform"}, suggestions)
}

func TestSearchSimilarityOnlyWeights(t *testing.T) {
	// With every weight zeroed except base similarity, the final order
	// must match the raw similarity order no matter what the other
	// factors would have contributed.
	cfg := searchTestConfig()
	cfg.Weights = domain.RankingWeights{BaseSimilarity: 1.0}

	store := newRecordingStore()
	store.results = []domain.SearchResult{
		{
			ChunkID:        "boosted",
			Content:        "kafka consumer group rebalance notes",
			Source:         "notes/kafka.md",
			Similarity:     0.5,
			IsHighlight:    true,
			HighlightColor: "red",
		},
		{ChunkID: "middle", Content: "entirely unrelated meeting minutes", Similarity: 0.7},
		{ChunkID: "best", Content: "another unrelated body of text", Similarity: 0.9},
	}
	engine := NewSearchEngine(cfg, store, &stubEmbedder{dims: 3})

	results, err := engine.Search(context.Background(), "kafka consumer group", 10, 0.3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "best", results[0].ChunkID)
	assert.Equal(t, "middle", results[1].ChunkID)
	assert.Equal(t, "boosted", results[2].ChunkID)

	for _, r := range results {
		assert.InDelta(t, r.Similarity, r.FinalScore, 1e-9)
	}
}

func TestMetadataStrings(t *testing.T) {
	assert.Nil(t, metadataStrings(nil))
	assert.Nil(t, metadataStrings(""))
	assert.Equal(t, []string{"one"}, metadataStrings("one"))
	assert.Equal(t, []string{"a", "b"}, metadataStrings([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "b"}, metadataStrings([]any{"a", 3, "b"}))
	assert.Nil(t, metadataStrings(42))
}
