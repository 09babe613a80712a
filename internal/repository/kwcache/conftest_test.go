package kwcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/keywordsense/internal/db"
	"github.com/kailas-cloud/keywordsense/internal/domain/keyword"
)

type mockClassifier struct {
	err      error
	readyErr error
	calls    [][]string
}

func (m *mockClassifier) Ready() error { return m.readyErr }

func (m *mockClassifier) ClassifyBatch(_ context.Context, keywords []string, _ int) ([]keyword.AnalyzedKeyword, error) {
	m.calls = append(m.calls, append([]string(nil), keywords...))
	if m.err != nil {
		return nil, m.err
	}
	out := make([]keyword.AnalyzedKeyword, 0, len(keywords))
	for _, kw := range keywords {
		k, err := keyword.New(kw, "fresh", true, false, keyword.Informational)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data    map[string][]byte
	mgetErr error
	setErr  error
	setTTL  time.Duration
	sets    int
}

func (m *mockKVStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if m.mgetErr != nil {
		return nil, m.mgetErr
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = m.data[k]
	}
	return out, nil
}

func (m *mockKVStore) SetMultiWithTTL(_ context.Context, items []db.KVSetItem, ttl time.Duration) error {
	m.sets++
	m.setTTL = ttl
	if m.setErr != nil {
		return m.setErr
	}
	for _, it := range items {
		m.data[it.Key] = it.Value
	}
	return nil
}

func newTestCachedClassifier(t *testing.T, inner *mockClassifier) (*CachedClassifier, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{data: make(map[string][]byte)}
	return New(inner, ms, time.Hour, nil, zap.NewNop()), ms
}

func seed(t *testing.T, ms *mockKVStore, kw, cluster string) {
	t.Helper()
	ms.data[cacheKey(kw)] = []byte(`{"cluster":"` + cluster + `","isEnglish":false,"isBrand":true,"intent":"Commercial"}`)
}
