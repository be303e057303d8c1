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

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Design-Arena-Gens/agentic-49df7ae4/internal/models"
)

const (
	IDCookie = "session_id"

	// keyPrefix namespaces session hashes in Redis.
	keyPrefix = "replydesk:session:"
)

// RedisStore keeps credentials server-side in a Redis hash keyed by a random
// session id. The browser only holds the id.
type RedisStore struct {
	rdb    *redis.Client
	secure bool
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(rdb *redis.Client, secure bool) *RedisStore {
	return &RedisStore{rdb: rdb, secure: secure, now: time.Now}
}

func (s *RedisStore) Load(r *http.Request) (models.Credentials, error) {
	c, err := r.Cookie(IDCookie)
	if err != nil || c.Value == "" {
		return models.Credentials{}, models.ErrNoSession
	}

	fields, err := s.rdb.HGetAll(r.Context(), keyPrefix+c.Value).Result()
	if err != nil {
		return models.Credentials{}, fmt.Errorf("load session: %w", err)
	}
	if fields["access_token"] == "" {
		return models.Credentials{}, models.ErrNoSession
	}

	creds := models.Credentials{
		SessionID:    c.Value,
		AccessToken:  fields["access_token"],
		RefreshToken: fields["refresh_token"],
	}
	if v := fields["expiry"]; v != "" {
		expiry, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return models.Credentials{}, fmt.Errorf("load session: parse expiry: %w", err)
		}
		if !s.now().Before(expiry) {
			return models.Credentials{}, models.ErrNoSession
		}
		creds.Expiry = expiry
	}
	return creds, nil
}

func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, c models.Credentials) error {
	if !c.Valid() {
		return fmt.Errorf("save session: %w", ErrPartialCredentials)
	}

	// A login always gets a fresh id; a pre-existing cookie value is never
	// promoted to an authenticated session.
	id := uuid.NewString()
	var previous string
	if existing, err := r.Cookie(IDCookie); err == nil && existing.Value != "" {
		previous = keyPrefix + existing.Value
	}

	expiry := c.Expiry
	if expiry.IsZero() {
		expiry = s.now().Add(DefaultAccessLifetime)
	}

	key := keyPrefix + id
	_, err := s.rdb.TxPipelined(r.Context(), func(pipe redis.Pipeliner) error {
		if previous != "" {
			pipe.Del(r.Context(), previous)
		}
		pipe.HSet(r.Context(), key,
			"access_token", c.AccessToken,
			"refresh_token", c.RefreshToken,
			"expiry", expiry.UTC().Format(time.RFC3339),
		)
		pipe.Expire(r.Context(), key, RefreshRetention)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	http.SetCookie(w, newCookie(IDCookie, id, int(RefreshRetention.Seconds()), s.secure))
	return nil
}

func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	expireCookie(w, IDCookie, s.secure)

	c, err := r.Cookie(IDCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	if err := s.rdb.Del(r.Context(), keyPrefix+c.Value).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Ping checks the Redis connection. Used by the health endpoint.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
