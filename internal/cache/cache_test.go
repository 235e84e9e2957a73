package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productstudio/internal/domain"
)

var (
	imgA = domain.Image{MimeType: "image/png", Data: "aGVsbG8gd29ybGQ="}
	imgB = domain.Image{MimeType: "image/jpeg", Data: "c2Vjb25kIGltYWdl"}
)

func sampleResult(title string) domain.AnalysisResult {
	return domain.AnalysisResult{
		Analysis: domain.ProductAnalysis{
			Sketch: "a folded scarf",
			Dimensions: map[string]domain.Dimension{
				"length": {Label: "Length", Description: "end to end", Estimate: "180cm"},
			},
			Materials: domain.Materials{Primary: "wool", Location: "body", Description: "soft knit"},
		},
		SEO: domain.SEOContent{Titles: []string{title}, Tags: [][]string{{"scarf", "wool"}}},
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestFingerprintStableAndSensitive(t *testing.T) {
	base := Fingerprint([]domain.Image{imgA, imgB}, "Wool Scarf", "hand-knit, soft")
	assert.Equal(t, base, Fingerprint([]domain.Image{imgA, imgB}, "Wool Scarf", "hand-knit, soft"))
	assert.NotEqual(t, base, Fingerprint([]domain.Image{imgB, imgA}, "Wool Scarf", "hand-knit, soft"))
	assert.NotEqual(t, base, Fingerprint([]domain.Image{imgA, imgB}, "Wool Hat", "hand-knit, soft"))
	assert.NotEqual(t, base, Fingerprint([]domain.Image{imgA, imgB}, "Wool Scarf", "machine-knit"))
}

func TestFingerprintOnlyReadsPrefix(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	a := domain.Image{Data: string(long)}
	long[250] = 'b'
	b := domain.Image{Data: string(long)}
	assert.Equal(t, Fingerprint([]domain.Image{a}, "n", "d"), Fingerprint([]domain.Image{b}, "n", "d"))
}

func TestHashStringMatchesRollingHash(t *testing.T) {
	assert.Equal(t, "0", hashString(""))
	// 'a' = 97 = "2p" in base 36.
	assert.Equal(t, "2p", hashString("a"))
	// ("ab") = 97*31 + 98 = 3105.
	assert.Equal(t, "2e9", hashString("ab"))
}

func TestCacheSetGet(t *testing.T) {
	store := NewMemoryStore()
	c := New(Options{Store: store})
	ctx := context.Background()
	images := []domain.Image{imgA}

	_, ok := c.Get(images, "Wool Scarf", "soft")
	assert.False(t, ok)

	want := sampleResult("Cozy Wool Scarf")
	require.NoError(t, c.Set(ctx, images, "Wool Scarf", "soft", want))

	got, ok := c.Get(images, "Wool Scarf", "soft")
	require.True(t, ok)
	assert.Equal(t, want, got)

	_, ok = c.Get(images, "Wool Scarf", "different")
	assert.False(t, ok)

	raw, err := store.Get(ctx, StorageKey)
	require.NoError(t, err)
	var pairs []json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &pairs))
	assert.Len(t, pairs, 1)
}

func TestCacheExpiresLazily(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(Options{Now: clk.Now})
	ctx := context.Background()
	images := []domain.Image{imgA}

	require.NoError(t, c.Set(ctx, images, "n", "d", sampleResult("t")))
	clk.now = clk.now.Add(DefaultTTL - time.Minute)
	_, ok := c.Get(images, "n", "d")
	assert.True(t, ok)

	clk.now = clk.now.Add(2 * time.Minute)
	_, ok = c.Get(images, "n", "d")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheLoadDropsExpired(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	ctx := context.Background()

	writer := New(Options{Store: store, Now: clk.Now})
	require.NoError(t, writer.Set(ctx, []domain.Image{imgA}, "old", "d", sampleResult("old")))
	clk.now = clk.now.Add(6 * 24 * time.Hour)
	require.NoError(t, writer.Set(ctx, []domain.Image{imgA}, "new", "d", sampleResult("new")))

	clk.now = clk.now.Add(2 * 24 * time.Hour)
	reader := New(Options{Store: store, Now: clk.Now})
	require.NoError(t, reader.Load(ctx))
	assert.Equal(t, 1, reader.Len())

	got, ok := reader.Get([]domain.Image{imgA}, "new", "d")
	require.True(t, ok)
	assert.Equal(t, []string{"new"}, got.SEO.Titles)
}

func TestCacheLoadIgnoresCorruptPayload(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, StorageKey, []byte("{not json")))

	c := New(Options{Store: store})
	require.NoError(t, c.Load(ctx))
	assert.Equal(t, 0, c.Len())
}

func TestCacheClearRemovesPersistedCopy(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	c := New(Options{Store: store})
	require.NoError(t, c.Set(ctx, []domain.Image{imgA}, "n", "d", sampleResult("t")))

	require.NoError(t, c.Clear(ctx))
	assert.Equal(t, 0, c.Len())
	_, err := store.Get(ctx, StorageKey)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

type failingStore struct{ *MemoryStore }

func (f *failingStore) Put(context.Context, string, []byte) error {
	return domain.ErrStorage
}

func TestCacheSetKeepsEntryWhenPersistFails(t *testing.T) {
	c := New(Options{Store: &failingStore{MemoryStore: NewMemoryStore()}})
	err := c.Set(context.Background(), []domain.Image{imgA}, "n", "d", sampleResult("t"))
	assert.ErrorIs(t, err, domain.ErrStorage)

	_, ok := c.Get([]domain.Image{imgA}, "n", "d")
	assert.True(t, ok)
}

func TestCacheReportsLookups(t *testing.T) {
	var hits, misses int
	c := New(Options{OnLookup: func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	}})
	_, _ = c.Get([]domain.Image{imgA}, "n", "d")
	require.NoError(t, c.Set(context.Background(), []domain.Image{imgA}, "n", "d", sampleResult("t")))
	_, _ = c.Get([]domain.Image{imgA}, "n", "d")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestCacheServesEntryExactlyAtTTL(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	c := New(Options{Now: clk.Now})
	images := []domain.Image{imgA}

	require.NoError(t, c.Set(context.Background(), images, "n", "d", sampleResult("t")))
	clk.now = clk.now.Add(DefaultTTL)
	_, ok := c.Get(images, "n", "d")
	assert.True(t, ok)

	clk.now = clk.now.Add(time.Millisecond)
	_, ok = c.Get(images, "n", "d")
	assert.False(t, ok)
}

// gatedStore blocks the first Put until release is closed.
type gatedStore struct {
	*MemoryStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Put(ctx context.Context, key string, value []byte) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.MemoryStore.Put(ctx, key, value)
}

func TestCacheConcurrentSetsPersistEveryEntry(t *testing.T) {
	store := &gatedStore{MemoryStore: NewMemoryStore(), entered: make(chan struct{}), release: make(chan struct{})}
	c := New(Options{Store: store})
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Set(ctx, []domain.Image{imgA}, "a", "d", sampleResult("a")))
	}()
	<-store.entered
	go func() {
		defer wg.Done()
		assert.NoError(t, c.Set(ctx, []domain.Image{imgB}, "b", "d", sampleResult("b")))
	}()
	// let the second Set race ahead before the first write lands
	time.Sleep(50 * time.Millisecond)
	close(store.release)
	wg.Wait()

	reloaded := New(Options{Store: store.MemoryStore})
	require.NoError(t, reloaded.Load(ctx))
	assert.Equal(t, 2, reloaded.Len())
	_, ok := reloaded.Get([]domain.Image{imgB}, "b", "d")
	assert.True(t, ok)
}
