package geocode

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyStore implements Store using Valkey (Redis-compatible).
type ValkeyStore struct {
	client valkey.Client
}

// NewValkeyStore connects to a Valkey server.
func NewValkeyStore(addr string) (*ValkeyStore, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("valkey connect: %w", err)
	}
	return &ValkeyStore{client: client}, nil
}

// Get retrieves a value by key.
func (s *ValkeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Set stores a value. A non-positive ttl stores it without expiry.
func (s *ValkeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(value)).Build()).Error()
	}
	return s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(value)).Ex(ttl).Build(),
	).Error()
}

// Close releases the client.
func (s *ValkeyStore) Close() {
	s.client.Close()
}
