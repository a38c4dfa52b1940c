package notify

import (
	"context"
	"sync"
	"time"

	goRedis "github.com/redis/go-redis/v9"
)

// MemorySuppressor keeps keys in process memory.
type MemorySuppressor struct {
	mu   sync.Mutex
	seen map[string]time.Time

	Now func() time.Time
}

func NewMemorySuppressor() *MemorySuppressor {
	return &MemorySuppressor{
		seen: make(map[string]time.Time),
		Now:  time.Now,
	}
}

func (s *MemorySuppressor) Acquire(_ context.Context, key string, window time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	for k, until := range s.seen {
		if !now.Before(until) {
			delete(s.seen, k)
		}
	}
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = now.Add(window)
	return true, nil
}

// RedisSuppressor shares the window across processes with SET NX EX.
type RedisSuppressor struct {
	client goRedis.UniversalClient
	prefix string
}

func NewRedisSuppressor(client goRedis.UniversalClient, prefix string) *RedisSuppressor {
	return &RedisSuppressor{client: client, prefix: prefix}
}

func (s *RedisSuppressor) Acquire(ctx context.Context, key string, window time.Duration) (bool, error) {
	return s.client.SetNX(ctx, s.prefix+key, 1, window).Result()
}

var (
	_ Suppressor = (*MemorySuppressor)(nil)
	_ Suppressor = (*RedisSuppressor)(nil)
)
