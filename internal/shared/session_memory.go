package shared

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/allegro/bigcache/v3"
)

// MemorySessionStore keeps sessions in process memory. bigcache shards its
// entries behind per-shard locks, so concurrent requests may share one store.
type MemorySessionStore struct {
	cache *bigcache.BigCache
	now   func() time.Time
}

// NewMemorySessionStore builds an in-process store. maxTTL bounds how long
// bigcache retains any entry; per-entry expiry is tracked in the value.
func NewMemorySessionStore(maxTTL time.Duration) (*MemorySessionStore, error) {
	cfg := bigcache.DefaultConfig(maxTTL)
	cfg.CleanWindow = cleanWindow(maxTTL)
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, err
	}
	return &MemorySessionStore{cache: cache, now: time.Now}, nil
}

// Get fetches the encoded session unless it has expired.
func (s *MemorySessionStore) Get(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, err := s.cache.Get(id)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(entry) < 8 {
		return nil, ErrNotFound
	}
	expiresAt := int64(binary.BigEndian.Uint64(entry[:8]))
	if s.now().UnixNano() >= expiresAt {
		_ = s.cache.Delete(id)
		return nil, ErrNotFound
	}
	data := make([]byte, len(entry)-8)
	copy(data, entry[8:])
	return data, nil
}

// Set stores the encoded session prefixed with its expiry instant.
func (s *MemorySessionStore) Set(ctx context.Context, id string, data []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entry := make([]byte, 8+len(data))
	binary.BigEndian.PutUint64(entry[:8], uint64(s.now().Add(ttl).UnixNano()))
	copy(entry[8:], data)
	return s.cache.Set(id, entry)
}

// Delete drops the session if present.
func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	if err := s.cache.Delete(id); err != nil && !errors.Is(err, bigcache.ErrEntryNotFound) {
		return err
	}
	return nil
}

// Close releases the cache.
func (s *MemorySessionStore) Close() error {
	return s.cache.Close()
}

func cleanWindow(ttl time.Duration) time.Duration {
	w := ttl / 10
	if w < time.Second {
		return time.Second
	}
	if w > 5*time.Minute {
		return 5 * time.Minute
	}
	return w
}

var _ SessionStore = (*MemorySessionStore)(nil)
