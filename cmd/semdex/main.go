// Command semdex is the local semantic file indexing and search tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	configfile "github.com/custodia-labs/semdex/internal/adapters/driven/config/file"
	"github.com/custodia-labs/semdex/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/semdex/internal/adapters/driven/embedding/openai"
	statefile "github.com/custodia-labs/semdex/internal/adapters/driven/state/file"
	"github.com/custodia-labs/semdex/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/semdex/internal/adapters/driving/cli"
	"github.com/custodia-labs/semdex/internal/chunker"
	"github.com/custodia-labs/semdex/internal/core/domain"
	"github.com/custodia-labs/semdex/internal/core/ports/driven"
	"github.com/custodia-labs/semdex/internal/core/services"
	"github.com/custodia-labs/semdex/internal/extractors"
	"github.com/custodia-labs/semdex/internal/extractors/html"
	"github.com/custodia-labs/semdex/internal/extractors/markdown"
	"github.com/custodia-labs/semdex/internal/extractors/plaintext"
	"github.com/custodia-labs/semdex/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := configfile.Load(os.Getenv("SEMDEX_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if os.Getenv("SEMDEX_VERBOSE") != "" {
		logger.SetVerbose(true)
	}

	embedder, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return err
	}
	defer embedder.Close()

	store, err := sqlite.NewStore(cfg.Store, embedder)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	state, err := statefile.NewStateStore(cfg.Store.DataDir)
	if err != nil {
		return fmt.Errorf("opening state store: %w", err)
	}

	registry, err := services.NewProcessedFileRegistry(state)
	if err != nil {
		return fmt.Errorf("restoring registry: %w", err)
	}

	exts := extractors.NewRegistry(
		plaintext.New(),
		markdown.New(),
		html.New(),
	)

	watcher, err := services.NewFolderWatcher(cfg.Watcher, registry, exts)
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	processor := services.NewBackgroundProcessor(cfg.Processor)
	ingestor := services.NewIngestor(
		cfg.Watcher, registry, exts, chunker.New(), store, processor,
	)
	engine := services.NewSearchEngine(cfg.Search, store, embedder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	processor.Start()
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	go ingestor.Run(ctx, watcher.Events())
	go taskJanitor(ctx, processor, cfg.Processor.TaskRetention)

	cli.SetVersion(version)
	cli.SetServices(cli.Services{
		Search: engine,
		Index:  watcher,
		Tasks:  processor,
		Store:  store,
	})

	runErr := cli.Execute(ctx)

	if err := watcher.Stop(); err != nil {
		logger.Warn("Watcher shutdown: %v", err)
	}
	if err := processor.Stop(); err != nil {
		logger.Warn("Processor shutdown: %v", err)
	}
	return runErr
}

// newEmbedder builds the configured embedding provider.
func newEmbedder(cfg domain.EmbeddingConfig) (driven.EmbeddingProvider, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewEmbeddingProvider(openai.Config{
			APIKey:            cfg.APIKey,
			BaseURL:           cfg.BaseURL,
			Model:             cfg.Model,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
	case "", "ollama":
		return ollama.NewEmbeddingProvider(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		}), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// taskJanitor periodically evicts old terminal tasks.
func taskJanitor(ctx context.Context, p *services.BackgroundProcessor, retention time.Duration) {
	if retention <= 0 {
		retention = time.Hour
	}
	ticker := time.NewTicker(retention / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := p.CleanupOldTasks(retention); n > 0 {
				logger.Debug("Evicted %d old tasks", n)
			}
		}
	}
}
