// Package kwcache caches classified keywords in a key-value store.
package kwcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/db"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

const cacheKeyPrefix = "keywordsense:kw_cache:"

// DefaultTTL is used when New receives a non-positive ttl.
const DefaultTTL = 7 * 24 * time.Hour

// store is the consumer interface for the keyword cache (ISP).
type store interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	SetMultiWithTTL(ctx context.Context, items []db.KVSetItem, ttl time.Duration) error
}

// classifier is the decorated batch classifier.
type classifier interface {
	ClassifyBatch(ctx context.Context, keywords []string, retriesRemaining int) ([]keyword.AnalyzedKeyword, error)
}

// CachedClassifier serves known keywords from the store and sends only misses upstream.
type CachedClassifier struct {
	inner      classifier
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner classifier,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedClassifier {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedClassifier{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Ready forwards the preflight check of the inner classifier, so a fatal
// misconfiguration surfaces even when every keyword is a cache hit.
func (c *CachedClassifier) Ready() error {
	if pf, ok := c.inner.(interface{ Ready() error }); ok {
		return pf.Ready() //nolint:wrapcheck // inner sentinel passed through
	}
	return nil
}

// ClassifyBatch returns records in input order. Cache read and write failures
// degrade to a pass-through; errors from the inner classifier are returned as is.
func (c *CachedClassifier) ClassifyBatch(
	ctx context.Context, keywords []string, retriesRemaining int,
) ([]keyword.AnalyzedKeyword, error) {
	if err := c.Ready(); err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return c.inner.ClassifyBatch(ctx, keywords, retriesRemaining)
	}

	keys := make([]string, len(keywords))
	for i, kw := range keywords {
		keys[i] = cacheKey(kw)
	}

	cached := c.lookup(ctx, keys, keywords)

	var misses []string
	for i, kw := range keywords {
		if _, ok := cached[i]; !ok {
			misses = append(misses, kw)
		}
	}
	c.incCache("hit", len(keywords)-len(misses))
	c.incCache("miss", len(misses))

	fresh := make(map[string][]keyword.AnalyzedKeyword)
	if len(misses) > 0 {
		recs, err := c.inner.ClassifyBatch(ctx, misses, retriesRemaining)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			k := normalize(r.Original())
			fresh[k] = append(fresh[k], r)
		}
		c.put(ctx, recs)
	}

	out := make([]keyword.AnalyzedKeyword, 0, len(keywords))
	for i, kw := range keywords {
		if r, ok := cached[i]; ok {
			out = append(out, r)
			continue
		}
		k := normalize(kw)
		if q := fresh[k]; len(q) > 0 {
			out = append(out, q[0])
			fresh[k] = q[1:]
		}
	}
	return out, nil
}

// lookup returns cached records by input position.
func (c *CachedClassifier) lookup(ctx context.Context, keys, keywords []string) map[int]keyword.AnalyzedKeyword {
	found := make(map[int]keyword.AnalyzedKeyword)
	values, err := c.store.MGet(ctx, keys)
	if err != nil {
		c.logger.Warn("Failed to read keyword cache", zap.Int("keys", len(keys)), zap.Error(err))
		return found
	}
	if len(values) != len(keys) {
		c.logger.Warn("Keyword cache returned unexpected value count",
			zap.Int("keys", len(keys)), zap.Int("values", len(values)))
		return found
	}

	for i, data := range values {
		if len(data) == 0 {
			continue
		}
		var dto recordDTO
		if err := json.Unmarshal(data, &dto); err != nil {
			c.logger.Warn("Failed to parse cached keyword", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		rec, err := dto.toDomain(keywords[i])
		if err != nil {
			c.logger.Warn("Invalid cached keyword", zap.String("key", keys[i]), zap.Error(err))
			continue
		}
		found[i] = rec
	}
	return found
}

func (c *CachedClassifier) put(ctx context.Context, recs []keyword.AnalyzedKeyword) {
	if len(recs) == 0 {
		return
	}
	items := make([]db.KVSetItem, 0, len(recs))
	for _, r := range recs {
		data, err := json.Marshal(toDTO(r))
		if err != nil {
			c.logger.Warn("Failed to encode keyword for cache", zap.String("keyword", r.Original()), zap.Error(err))
			continue
		}
		items = append(items, db.KVSetItem{Key: cacheKey(r.Original()), Value: data})
	}
	if err := c.store.SetMultiWithTTL(ctx, items, c.ttl); err != nil {
		c.logger.Warn("Failed to cache keywords", zap.Int("count", len(items)), zap.Error(err))
	}
}

func (c *CachedClassifier) incCache(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

func cacheKey(kw string) string {
	h := sha256.Sum256([]byte(normalize(kw)))
	return fmt.Sprintf("%s%s", cacheKeyPrefix, hex.EncodeToString(h[:]))
}

func normalize(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}
