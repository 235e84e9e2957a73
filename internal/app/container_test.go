package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productstudio/internal/domain"
	"productstudio/internal/generation"
	"productstudio/internal/infra"
)

func testConfig(t *testing.T) *infra.Config {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("CACHE_BACKEND", "memory")
	cfg, err := infra.LoadConfig()
	require.NoError(t, err)
	return cfg
}

func TestNewWiresMemoryBackends(t *testing.T) {
	cfg := testConfig(t)
	c, err := New(context.Background(), cfg, *infra.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.True(t, c.Provider.Synthetic())
	assert.Equal(t, domain.ModelAuto, c.DefaultModel)
	assert.Len(t, c.Orchestrator.BreakerSnapshots(), 2)
}

func TestSQLiteStoreDoublesAsCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "studio.db")
	cfg.CacheBackend = "db"

	ctx := context.Background()
	c, err := New(ctx, cfg, *infra.NopLogger())
	require.NoError(t, err)

	res, err := c.Orchestrator.Run(ctx, generation.Request{
		ProductName: "Wool Scarf",
		Description: "hand-knit, soft",
		Images:      []domain.Image{{MimeType: "image/png", Data: "iVBORw0KGgo="}},
		ImageCount:  1,
		UseCache:    true,
	})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// A fresh container over the same file sees the task and the cached analysis.
	c2, err := New(ctx, cfg, *infra.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c2.Close() })

	got, err := c2.Store.GetTask(ctx, res.Task.ID)
	require.NoError(t, err)
	assert.Len(t, got.GeneratedImages, 1)
	assert.Equal(t, 1, c2.Cache.Len())
}

func TestFileCacheBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = "file"
	cfg.CachePath = t.TempDir()

	c, err := New(context.Background(), cfg, *infra.NopLogger())
	require.NoError(t, err)
	assert.NoError(t, c.Close())
}

func TestStoredGeminiKeyDisablesSyntheticMode(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "sqlite"
	cfg.SQLitePath = filepath.Join(t.TempDir(), "studio.db")

	ctx := context.Background()
	c, err := New(ctx, cfg, *infra.NopLogger())
	require.NoError(t, err)
	require.NotNil(t, c.Credentials)
	assert.True(t, c.Provider.Synthetic())
	require.NoError(t, c.Credentials.SetGeminiAPIKey(ctx, "AIzaStoredKey"))
	require.NoError(t, c.Close())

	c2, err := New(ctx, cfg, *infra.NopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c2.Close() })
	assert.False(t, c2.Provider.Synthetic())
	assert.Equal(t, "AIzaStored...", c2.Provider.Info().APIKeyPrefix)
}
