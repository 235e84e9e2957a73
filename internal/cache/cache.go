package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"productstudio/internal/domain"
	"productstudio/internal/infra"
)

// StorageKey is the key the whole cache is persisted under.
const StorageKey = "analysis_cache"

// DefaultTTL is how long an analysis stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Entry is one cached analysis.
type Entry struct {
	Result    domain.AnalysisResult `json:"result"`
	Timestamp int64                 `json:"timestamp"`
}

// Options configures an AnalysisCache.
type Options struct {
	// Store persists the cache. Nil keeps it in memory only.
	Store  domain.KeyValueStore
	TTL    time.Duration
	Now    func() time.Time
	Logger *infra.Logger
	// OnLookup observes every Get with hit=true or false.
	OnLookup func(hit bool)
}

// AnalysisCache maps request fingerprints to analyses. Set writes the whole
// cache through to the store before returning.
type AnalysisCache struct {
	store    domain.KeyValueStore
	ttl      time.Duration
	now      func() time.Time
	logger   *infra.Logger
	onLookup func(hit bool)

	// persistMu orders snapshot encoding with its write so an older
	// snapshot never lands after a newer one. Taken before mu.
	persistMu sync.Mutex
	mu        sync.Mutex
	entries   map[string]Entry
}

// New returns an empty cache. Call Load to rehydrate persisted entries.
func New(opts Options) *AnalysisCache {
	c := &AnalysisCache{
		store:    opts.Store,
		ttl:      opts.TTL,
		now:      opts.Now,
		logger:   opts.Logger,
		onLookup: opts.OnLookup,
		entries:  make(map[string]Entry),
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = infra.NopLogger()
	}
	return c
}

// Get returns the cached analysis for the inputs. Expired entries are evicted
// on access.
func (c *AnalysisCache) Get(images []domain.Image, name, description string) (domain.AnalysisResult, bool) {
	key := Fingerprint(images, name, description)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.expired(entry) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if c.onLookup != nil {
		c.onLookup(ok)
	}
	if !ok {
		return domain.AnalysisResult{}, false
	}
	return entry.Result, true
}

// Set stores result and persists the cache. The in-memory entry is kept even
// when persistence fails; the error is returned so callers can decide.
func (c *AnalysisCache) Set(ctx context.Context, images []domain.Image, name, description string, result domain.AnalysisResult) error {
	key := Fingerprint(images, name, description)

	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.entries[key] = Entry{Result: result, Timestamp: c.now().UnixMilli()}
	payload, err := c.encodeLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.write(ctx, payload)
}

// Len reports the number of entries currently held, expired or not.
func (c *AnalysisCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every entry and removes the persisted copy.
func (c *AnalysisCache) Clear(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	if err := c.store.Delete(ctx, StorageKey); err != nil {
		return fmt.Errorf("clear analysis cache: %w", err)
	}
	return nil
}

// Load replaces the in-memory entries with the persisted, unexpired ones. A
// missing or unreadable payload leaves the cache empty.
func (c *AnalysisCache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	raw, err := c.store.Get(ctx, StorageKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load analysis cache: %w", err)
	}

	var pairs []pair
	if err := json.Unmarshal(raw, &pairs); err != nil {
		c.logger.Warn().Err(err).Msg("cache: discarding unreadable analysis cache")
		return nil
	}

	loaded := make(map[string]Entry, len(pairs))
	dropped := 0
	for _, p := range pairs {
		if c.expired(p.Entry) {
			dropped++
			continue
		}
		loaded[p.Key] = p.Entry
	}

	c.mu.Lock()
	c.entries = loaded
	c.mu.Unlock()

	c.logger.Debug().Int("entries", len(loaded)).Int("dropped", dropped).Msg("cache: loaded analysis cache")
	return nil
}

// Persist writes the current entries to the store.
func (c *AnalysisCache) Persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	payload, err := c.encodeLocked()
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return c.write(ctx, payload)
}

func (c *AnalysisCache) write(ctx context.Context, payload []byte) error {
	if c.store == nil {
		return nil
	}
	if err := c.store.Put(ctx, StorageKey, payload); err != nil {
		return fmt.Errorf("persist analysis cache: %w", err)
	}
	return nil
}

// expired reports whether e is older than the TTL. An entry exactly TTL old
// is still served.
func (c *AnalysisCache) expired(e Entry) bool {
	return c.now().Sub(time.UnixMilli(e.Timestamp)) > c.ttl
}

func (c *AnalysisCache) encodeLocked() ([]byte, error) {
	pairs := make([]pair, 0, len(c.entries))
	for k, e := range c.entries {
		pairs = append(pairs, pair{Key: k, Entry: e})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	data, err := json.Marshal(pairs)
	if err != nil {
		return nil, fmt.Errorf("encode analysis cache: %w", err)
	}
	return data, nil
}

// pair encodes as a two element JSON array: [key, entry].
type pair struct {
	Key   string
	Entry Entry
}

func (p pair) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{p.Key, p.Entry})
}

func (p *pair) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("cache pair has %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.Key); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Entry)
}
