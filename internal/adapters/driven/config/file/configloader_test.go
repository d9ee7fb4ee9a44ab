package file

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/semdex/internal/core/domain"
)

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)

	// Defaults intact
	assert.Equal(t, domain.DefaultConfig().Processor.Workers, cfg.Processor.Workers)
	assert.Equal(t, domain.DefaultConfig().Search.DefaultLimit, cfg.Search.DefaultLimit)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[processor]
workers = 8

[embedding]
provider = "openai"
model = "text-embedding-3-large"

[watcher]
rescan_interval = "2m0s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Processor.Workers)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", cfg.Embedding.Model)
	assert.Equal(t, 2*time.Minute, cfg.Watcher.RescanInterval)

	// Untouched sections keep their defaults.
	assert.Equal(t, domain.DefaultConfig().Watcher.QueueCapacity, cfg.Watcher.QueueCapacity)
	assert.Equal(t, domain.DefaultConfig().Store.PoolMultiplier, cfg.Store.PoolMultiplier)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0600))

	cfg, err := Load(path)
	assert.Error(t, err)
	// Defaults returned even on error so callers can keep running.
	assert.Equal(t, domain.DefaultConfig().Processor.Workers, cfg.Processor.Workers)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := domain.DefaultConfig()
	cfg.Embedding.Provider = "ollama"
	cfg.Embedding.Model = "all-minilm"
	cfg.Processor.Workers = 2

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "all-minilm", loaded.Embedding.Model)
	assert.Equal(t, 2, loaded.Processor.Workers)
}
