package geocode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passage_router/pkg/resolve"
)

// memStore is an in-memory Store.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	readErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingLookup struct {
	calls int
	cands []resolve.Candidate
	err   error
}

func (c *countingLookup) Lookup(ctx context.Context, place, country string) ([]resolve.Candidate, error) {
	c.calls++
	return c.cands, c.err
}

func TestCachedLookupHitAfterMiss(t *testing.T) {
	next := &countingLookup{cands: []resolve.Candidate{{Lat: 1, Lng: 2, DisplayName: "Hamble", Importance: 0.4}}}
	store := newMemStore()
	c := NewCachedLookup(next, store, time.Hour, nil)
	ctx := context.Background()

	first, err := c.Lookup(ctx, "Hamble", "GB")
	require.NoError(t, err)
	second, err := c.Lookup(ctx, "  hamble ", "gb")
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls, "second lookup should be served from cache")
	assert.Equal(t, first, second)
	assert.Equal(t, time.Hour, store.ttls[cacheKey("Hamble", "GB")])
}

func TestCachedLookupCachesEmptyResults(t *testing.T) {
	next := &countingLookup{}
	c := NewCachedLookup(next, newMemStore(), time.Hour, nil)

	for range 2 {
		cands, err := c.Lookup(context.Background(), "Nowhere", "")
		require.NoError(t, err)
		assert.Empty(t, cands)
	}
	assert.Equal(t, 1, next.calls)
}

func TestCachedLookupBypassesBrokenCache(t *testing.T) {
	next := &countingLookup{cands: []resolve.Candidate{{DisplayName: "Cowes"}}}
	store := newMemStore()
	store.readErr = errors.New("connection refused")
	c := NewCachedLookup(next, store, time.Hour, nil)

	cands, err := c.Lookup(context.Background(), "Cowes", "GB")
	require.NoError(t, err)
	assert.Len(t, cands, 1)

	// A corrupt entry is treated as a miss.
	store.readErr = nil
	store.data[cacheKey("Yarmouth", "GB")] = []byte("{not json")
	_, err = c.Lookup(context.Background(), "Yarmouth", "GB")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCachedLookupPropagatesLookupErrors(t *testing.T) {
	next := &countingLookup{err: errors.New("rate limited")}
	store := newMemStore()
	c := NewCachedLookup(next, store, time.Hour, nil)

	_, err := c.Lookup(context.Background(), "Cowes", "GB")
	assert.Error(t, err)
	assert.Empty(t, store.data, "errors must not be cached")
}
