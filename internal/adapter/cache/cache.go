// Package cache memoizes conversions by archive content. Results live in an
// in-process LRU and, optionally, in a shared DocumentStore so replicas can
// reuse each other's work.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/shp-geojson-service/internal/domain"
	"github.com/couchcryptid/shp-geojson-service/internal/observability"
)

// Cache tiers and lookup results used as metric labels.
const (
	tierMemory = "memory"
	tierStore  = "valkey"

	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// DocumentStore is a shared key-value store for encoded conversions.
// Get reports a miss as (nil, false, nil).
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachedConverter wraps a domain.Converter and returns stored results for
// archives it has already converted. Only successful conversions are cached,
// so failures are always retried.
type CachedConverter struct {
	inner       domain.Converter
	fingerprint string
	memory      *lruCache
	store       DocumentStore
	ttl         time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Option customizes a CachedConverter.
type Option func(*CachedConverter)

// WithStore adds a shared store consulted after the in-memory cache.
func WithStore(store DocumentStore, ttl time.Duration) Option {
	return func(c *CachedConverter) {
		c.store = store
		c.ttl = ttl
	}
}

// NewCachedConverter creates a cache decorator around inner. fingerprint
// must change whenever inner's output for the same archive would change.
// A maxEntries of zero disables the in-memory tier.
func NewCachedConverter(inner domain.Converter, fingerprint string, maxEntries int, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *CachedConverter {
	c := &CachedConverter{
		inner:       inner,
		fingerprint: fingerprint,
		logger:      logger,
		metrics:     metrics,
	}
	if maxEntries > 0 {
		c.memory = newLRUCache(maxEntries)
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Convert returns the cached conversion for archive or delegates to the
// wrapped converter.
func (c *CachedConverter) Convert(ctx context.Context, archive []byte) (domain.Conversion, error) {
	key := c.key(archive)

	if c.memory != nil {
		if conv, ok := c.memory.get(key); ok {
			c.lookup(tierMemory, resultHit)
			return conv, nil
		}
		c.lookup(tierMemory, resultMiss)
	}

	if conv, ok := c.fromStore(ctx, key); ok {
		if c.memory != nil {
			c.memory.put(key, conv)
		}
		return conv, nil
	}

	conv, err := c.inner.Convert(ctx, archive)
	if err != nil {
		return conv, err
	}

	if c.memory != nil {
		c.memory.put(key, conv)
	}
	c.toStore(ctx, key, conv)
	return conv, nil
}

// key is the hex SHA-256 of the fingerprint and the archive bytes.
func (c *CachedConverter) key(archive []byte) string {
	h := sha256.New()
	h.Write([]byte(c.fingerprint))
	h.Write([]byte{0})
	h.Write(archive)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *CachedConverter) fromStore(ctx context.Context, key string) (domain.Conversion, bool) {
	if c.store == nil {
		return domain.Conversion{}, false
	}
	data, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.lookup(tierStore, resultError)
		c.logger.Warn("document store get failed", "error", err)
		return domain.Conversion{}, false
	}
	if !ok {
		c.lookup(tierStore, resultMiss)
		return domain.Conversion{}, false
	}
	conv, err := decodeEntry(data)
	if err != nil {
		c.lookup(tierStore, resultError)
		c.logger.Warn("document store entry unreadable", "error", err)
		return domain.Conversion{}, false
	}
	c.lookup(tierStore, resultHit)
	return conv, true
}

// toStore writes conv to the shared store. Failures are logged; the
// conversion itself already succeeded.
func (c *CachedConverter) toStore(ctx context.Context, key string, conv domain.Conversion) {
	if c.store == nil {
		return
	}
	data, err := encodeEntry(conv)
	if err != nil {
		c.logger.Warn("encode document store entry failed", "error", err)
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("document store set failed", "error", err)
	}
}

func (c *CachedConverter) lookup(tier, result string) {
	c.metrics.CacheLookups.WithLabelValues(tier, result).Inc()
}

// storedEntry is the representation of a conversion in the shared store.
type storedEntry struct {
	Document json.RawMessage `json:"document"`
	Features int             `json:"features"`
	Source   string          `json:"source"`
	CRS      string          `json:"crs"`
}

func encodeEntry(conv domain.Conversion) ([]byte, error) {
	data, err := json.Marshal(storedEntry{
		Document: conv.Document,
		Features: conv.Features,
		Source:   conv.Source,
		CRS:      conv.CRS,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}
	return data, nil
}

func decodeEntry(data []byte) (domain.Conversion, error) {
	var e storedEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return domain.Conversion{}, fmt.Errorf("unmarshal entry: %w", err)
	}
	return domain.Conversion{
		Document: []byte(e.Document),
		Features: e.Features,
		Source:   e.Source,
		CRS:      e.CRS,
	}, nil
}
