// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package dedup remembers which messages were already auto-replied so
// overlapping monitor ticks never answer the same message twice.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long a seen key is remembered.
	DefaultTTL = 7 * 24 * time.Hour

	// keyPrefix namespaces dedup keys in Redis.
	keyPrefix = "replydesk:seen:"
)

// Filter claims keys. IsNew returns true exactly once per key within the TTL.
type Filter interface {
	IsNew(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// RedisFilter is shared across processes.
type RedisFilter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisFilter creates a dedup filter backed by Redis.
func NewRedisFilter(rdb *redis.Client, ttl time.Duration) *RedisFilter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisFilter{rdb: rdb, ttl: ttl}
}

// IsNew returns true if the key has NOT been seen before.
// If true, the key is marked as seen atomically (SETNX).
func (f *RedisFilter) IsNew(ctx context.Context, key string) (bool, error) {
	set, err := f.rdb.SetNX(ctx, keyPrefix+key, 1, f.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

// Forget releases a key so a later attempt may claim it again.
func (f *RedisFilter) Forget(ctx context.Context, key string) error {
	if err := f.rdb.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

// MemoryFilter is the single-process fallback when no Redis is configured.
type MemoryFilter struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryFilter creates an in-process filter.
func NewMemoryFilter(ttl time.Duration) *MemoryFilter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryFilter{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (f *MemoryFilter) IsNew(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if exp, ok := f.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	f.seen[key] = now.Add(f.ttl)
	f.sweep(now)
	return true, nil
}

func (f *MemoryFilter) Forget(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.seen, key)
	return nil
}

// sweep drops expired keys. Caller holds f.mu.
func (f *MemoryFilter) sweep(now time.Time) {
	for k, exp := range f.seen {
		if !now.Before(exp) {
			delete(f.seen, k)
		}
	}
}
