package domain

import "time"

// Config is the full runtime configuration tree. It is populated once at
// startup by merging defaults with file overrides and treated as
// immutable afterwards.
type Config struct {
	// Watcher configures folder monitoring.
	Watcher WatcherConfig `toml:"watcher"`

	// Processor configures the background worker pool.
	Processor ProcessorConfig `toml:"processor"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `toml:"embedding"`

	// Store configures the vector store.
	Store StoreConfig `toml:"store"`

	// Search configures ranking and suggestions.
	Search SearchConfig `toml:"search"`
}

// WatcherConfig configures the folder watcher and ingestion queue.
type WatcherConfig struct {
	// RescanInterval is the period of the fallback re-walk of all
	// watched folders.
	RescanInterval time.Duration `toml:"rescan_interval"`

	// QueueCapacity bounds the ingestion queue between watcher and workers.
	QueueCapacity int `toml:"queue_capacity"`

	// MaxFileSize is the largest file accepted for processing, in bytes.
	MaxFileSize int64 `toml:"max_file_size"`
}

// ProcessorConfig configures the background task processor.
type ProcessorConfig struct {
	// Workers is the fixed worker pool size.
	Workers int `toml:"workers"`

	// PollTimeout bounds each queue pop so maintenance can interleave.
	PollTimeout time.Duration `toml:"poll_timeout"`

	// SubscriberBuffer is the per-subscriber update channel capacity.
	SubscriberBuffer int `toml:"subscriber_buffer"`

	// DrainTimeout bounds how long Stop waits for in-flight tasks.
	DrainTimeout time.Duration `toml:"drain_timeout"`

	// TaskRetention is the age after which terminal tasks are evicted.
	TaskRetention time.Duration `toml:"task_retention"`
}

// EmbeddingConfig configures the embedding provider adapter.
type EmbeddingConfig struct {
	// Provider selects the adapter ("ollama" or "openai").
	Provider string `toml:"provider"`

	// BaseURL overrides the provider endpoint.
	BaseURL string `toml:"base_url"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// APIKey authenticates cloud providers.
	APIKey string `toml:"api_key"`

	// BatchSize caps texts per provider request.
	BatchSize int `toml:"batch_size"`

	// RequestsPerSecond throttles cloud provider calls. Zero disables
	// throttling.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// StoreConfig configures the vector store backend.
type StoreConfig struct {
	// DataDir is the directory holding the database and state files.
	DataDir string `toml:"data_dir"`

	// PoolMultiplier inflates the candidate pool fetched for reranking.
	PoolMultiplier int `toml:"pool_multiplier"`

	// RelaxedFactor scales the similarity threshold for the candidate
	// scan so the reranker can promote borderline matches.
	RelaxedFactor float64 `toml:"relaxed_factor"`
}

// RecencyBucket maps a maximum chunk age to an additive boost.
type RecencyBucket struct {
	// MaxAge is the upper age bound for this bucket.
	MaxAge time.Duration `toml:"max_age"`

	// Boost is the additive score for chunks within MaxAge.
	Boost float64 `toml:"boost"`
}

// LengthBucket maps a content-length range to a score adjustment,
// which may be negative.
type LengthBucket struct {
	// MaxChars is the upper content length bound for this bucket.
	MaxChars int `toml:"max_chars"`

	// Adjustment is applied to chunks within MaxChars.
	Adjustment float64 `toml:"adjustment"`
}

// RankingWeights are the multipliers applied to each ranking factor
// when combining them into the final score.
type RankingWeights struct {
	BaseSimilarity   float64 `toml:"base_similarity"`
	HighlightSource  float64 `toml:"highlight_source"`
	HighlightContent float64 `toml:"highlight_content"`
	Recency          float64 `toml:"recency"`
	Keyword          float64 `toml:"keyword"`
	Length           float64 `toml:"length"`
	Source           float64 `toml:"source"`
}

// SearchConfig configures query preprocessing, reranking and suggestions.
type SearchConfig struct {
	// Weights combine the individual ranking factors.
	Weights RankingWeights `toml:"weights"`

	// Abbreviations is the token-level expansion dictionary applied
	// during query preprocessing.
	Abbreviations map[string]string `toml:"abbreviations"`

	// HighlightBoost is the base boost for highlight-sourced chunks.
	HighlightBoost float64 `toml:"highlight_boost"`

	// NoteBoost is added when a highlight carries a personal note.
	NoteBoost float64 `toml:"note_boost"`

	// ColorBoosts adjusts highlight chunks per colour tag.
	ColorBoosts map[string]float64 `toml:"color_boosts"`

	// HighlightContentBoost is applied when a chunk carries PDF
	// highlight annotations.
	HighlightContentBoost float64 `toml:"highlight_content_boost"`

	// HighlightContainedBoost is the extra weight when annotated text
	// is literally contained in the chunk content.
	HighlightContainedBoost float64 `toml:"highlight_contained_boost"`

	// HighlightContentCap bounds the total highlight-content factor.
	HighlightContentCap float64 `toml:"highlight_content_cap"`

	// RecencyEnabled toggles the recency factor.
	RecencyEnabled bool `toml:"recency_enabled"`

	// RecencyBuckets maps chunk age to boost, checked in order.
	RecencyBuckets []RecencyBucket `toml:"recency_buckets"`

	// KeywordTermBoost is added per exact word-boundary query term match.
	KeywordTermBoost float64 `toml:"keyword_term_boost"`

	// PhraseBoost is added when the whole query appears verbatim.
	PhraseBoost float64 `toml:"phrase_boost"`

	// KeywordCap bounds the total keyword factor.
	KeywordCap float64 `toml:"keyword_cap"`

	// LengthBuckets maps content length to an adjustment, checked in order.
	LengthBuckets []LengthBucket `toml:"length_buckets"`

	// ExtensionBoosts adjusts chunks per source file extension.
	ExtensionBoosts map[string]float64 `toml:"extension_boosts"`

	// PathPatternBoosts adjusts chunks whose source contains a substring.
	PathPatternBoosts map[string]float64 `toml:"path_pattern_boosts"`

	// TagBonus is added per metadata tag, bounded by TagBonusCap.
	TagBonus    float64 `toml:"tag_bonus"`
	TagBonusCap float64 `toml:"tag_bonus_cap"`

	// MinDisplayScore drops results at or below this 0-100 display
	// percentage. Distinct from the raw similarity threshold.
	MinDisplayScore float64 `toml:"min_display_score"`

	// SnippetMaxLength bounds display snippets in characters.
	SnippetMaxLength int `toml:"snippet_max_length"`

	// DefaultLimit is the result count when the caller passes none.
	DefaultLimit int `toml:"default_limit"`

	// DefaultThreshold is the similarity floor when the caller passes none.
	DefaultThreshold float64 `toml:"default_threshold"`

	// SuggestionVocabulary is the static fallback for suggestions.
	SuggestionVocabulary []string `toml:"suggestion_vocabulary"`

	// MinLearnTermLength is the shortest query term retained by
	// vocabulary learning.
	MinLearnTermLength int `toml:"min_learn_term_length"`
}

// DefaultConfig returns the built-in configuration. File overrides are
// merged on top of this by the config adapter.
func DefaultConfig() Config {
	return Config{
		Watcher: WatcherConfig{
			RescanInterval: 30 * time.Second,
			QueueCapacity:  256,
			MaxFileSize:    32 << 20, // 32 MiB
		},
		Processor: ProcessorConfig{
			Workers:          4,
			PollTimeout:      500 * time.Millisecond,
			SubscriberBuffer: 64,
			DrainTimeout:     10 * time.Second,
			TaskRetention:    time.Hour,
		},
		Embedding: EmbeddingConfig{
			Provider:  "ollama",
			Model:     "nomic-embed-text",
			BatchSize: 32,
		},
		Store: StoreConfig{
			PoolMultiplier: 2,
			RelaxedFactor:  0.8,
		},
		Search: SearchConfig{
			Weights: RankingWeights{
				BaseSimilarity:   1.0,
				HighlightSource:  0.15,
				HighlightContent: 0.1,
				Recency:          0.1,
				Keyword:          0.2,
				Length:           0.05,
				Source:           0.1,
			},
			Abbreviations: map[string]string{
				"ml":  "machine learning",
				"ai":  "artificial intelligence",
				"nlp": "natural language processing",
				"db":  "database",
			},
			HighlightBoost: 0.5,
			NoteBoost:      0.2,
			ColorBoosts: map[string]float64{
				"red":    0.3,
				"orange": 0.2,
				"yellow": 0.1,
				"green":  0.05,
			},
			HighlightContentBoost:   0.3,
			HighlightContainedBoost: 0.2,
			HighlightContentCap:     0.5,
			RecencyEnabled:          true,
			RecencyBuckets: []RecencyBucket{
				{MaxAge: 24 * time.Hour, Boost: 0.3},
				{MaxAge: 7 * 24 * time.Hour, Boost: 0.2},
				{MaxAge: 30 * 24 * time.Hour, Boost: 0.1},
			},
			KeywordTermBoost: 0.1,
			PhraseBoost:      0.25,
			KeywordCap:       0.6,
			LengthBuckets: []LengthBucket{
				{MaxChars: 80, Adjustment: -0.1},
				{MaxChars: 1200, Adjustment: 0.05},
				{MaxChars: 1 << 30, Adjustment: -0.05},
			},
			ExtensionBoosts: map[string]float64{
				".md":  0.1,
				".pdf": 0.05,
			},
			PathPatternBoosts: map[string]float64{},
			TagBonus:          0.05,
			TagBonusCap:       0.2,
			MinDisplayScore:   5,
			SnippetMaxLength:  240,
			DefaultLimit:      10,
			DefaultThreshold:  0.3,
			SuggestionVocabulary: []string{
				"machine learning", "artificial intelligence",
				"neural networks", "deep learning", "data analysis",
			},
			MinLearnTermLength: 4,
		},
	}
}
